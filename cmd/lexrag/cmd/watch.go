package cmd

import (
	"bufio"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexrag/lexrag/internal/config"
	"github.com/lexrag/lexrag/internal/search"
	"github.com/lexrag/lexrag/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var topK int
	var useRerank bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Interactive queries with automatic reindexing on corpus change",
		Long: `Read queries from stdin (one per line) and print results. The corpus
file is watched: when it changes, the index rebuilds in the background
and swaps in atomically while queries keep being served.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			embedder, err := newEmbedder(cfg)
			if err != nil {
				return err
			}
			defer embedder.Close()

			scorer, err := newScorer(cfg)
			if err != nil {
				return err
			}

			idx, err := loadOrBuild(ctx, cfg, embedder, false)
			if err != nil {
				return err
			}

			engine, err := search.NewEngine(idx, embedder, scorer, cfg)
			if err != nil {
				return err
			}

			w, err := watcher.New(cfg.Source.Path, 0)
			if err != nil {
				return err
			}
			defer w.Stop()
			w.Start(ctx)

			// Rebuilds run off the query loop; Swap makes the new
			// index visible atomically.
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case <-w.Changes():
						rebuilt, err := loadOrBuild(ctx, cfg, embedder, true)
						if err != nil {
							slog.Error("reindex after corpus change failed", "error", err)
							continue
						}
						engine.Swap(rebuilt)
					case err := <-w.Errors():
						slog.Warn("watcher error", "error", err)
					}
				}
			}()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "watching", cfg.Source.Path, "- enter queries, Ctrl-D to exit")

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				if ctx.Err() != nil {
					break
				}
				query := strings.TrimSpace(scanner.Text())
				if query == "" {
					continue
				}

				results, err := engine.Search(ctx, query, search.Options{
					TopK:      topK,
					UseRerank: useRerank || cfg.Search.UseRerank,
				})
				if err != nil {
					fmt.Fprintf(out, "error: %v\n", err)
					continue
				}
				if err := printResults(cmd, results, "text"); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "n", 0, "Number of results (0 uses the configured default)")
	cmd.Flags().BoolVar(&useRerank, "rerank", false, "Rescore fused candidates with the cross-encoder")

	return cmd
}
