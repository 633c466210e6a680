package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lexrag/lexrag/internal/config"
	"github.com/lexrag/lexrag/internal/index"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show corpus and index cache status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "source:  %s\n", orUnset(cfg.Source.Path))
			fmt.Fprintf(out, "cache:   %s\n", orUnset(cfg.Cache.Path))
			fmt.Fprintf(out, "model:   %s (%s, %d dims)\n",
				cfg.Embeddings.Model, cfg.Embeddings.Provider, cfg.Embeddings.Dimensions)

			cached, err := index.Load(cfg.Cache.Path)
			if err != nil {
				fmt.Fprintf(out, "index:   not available (%v)\n", err)
				return nil
			}

			fmt.Fprintf(out, "index:   %d chunks, built %s\n",
				len(cached.Chunks), cached.BuiltAt.Format("2006-01-02 15:04:05"))

			if cfg.Source.Path != "" {
				if data, err := os.ReadFile(cfg.Source.Path); err == nil {
					if index.Checksum(string(data), cfg) == cached.SourceChecksum {
						fmt.Fprintln(out, "state:   current")
					} else {
						fmt.Fprintln(out, "state:   stale (corpus or parameters changed)")
					}
				}
			}
			return nil
		},
	}

	return cmd
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}
