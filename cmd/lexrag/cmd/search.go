package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexrag/lexrag/internal/config"
	"github.com/lexrag/lexrag/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	topK   int
	rerank bool
	format string // "text" or "json"
}

// searchResultJSON is the JSON output shape for one hit.
type searchResultJSON struct {
	ChunkID     int     `json:"chunk_id"`
	Score       float64 `json:"score"`
	RRFScore    float64 `json:"rrf_score"`
	VectorRank  int     `json:"vector_rank,omitempty"`
	LexicalRank int     `json:"lexical_rank,omitempty"`
	Reranked    bool    `json:"reranked,omitempty"`
	Section     string  `json:"section,omitempty"`
	Text        string  `json:"text"`
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a hybrid query against the index",
		Long: `Run a hybrid query: BM25 and vector retrieval execute in parallel
and their rankings fuse via Reciprocal Rank Fusion.

Examples:
  lexrag search "prohibited biometric identification"
  lexrag search "transparency obligations" --top-k 3 --format json
  lexrag search "high-risk classification" --rerank`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

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

			idx, err := loadOrBuild(cmd.Context(), cfg, embedder, false)
			if err != nil {
				return err
			}

			engine, err := search.NewEngine(idx, embedder, scorer, cfg)
			if err != nil {
				return err
			}

			results, err := engine.Search(cmd.Context(), query, search.Options{
				TopK:      opts.topK,
				UseRerank: opts.rerank || cfg.Search.UseRerank,
			})
			if err != nil {
				return err
			}

			return printResults(cmd, results, opts.format)
		},
	}

	cmd.Flags().IntVarP(&opts.topK, "top-k", "n", 0, "Number of results (0 uses the configured default)")
	cmd.Flags().BoolVar(&opts.rerank, "rerank", false, "Rescore fused candidates with the cross-encoder")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func printResults(cmd *cobra.Command, results []search.Result, format string) error {
	out := cmd.OutOrStdout()

	if format == "json" {
		payload := make([]searchResultJSON, len(results))
		for i, r := range results {
			payload[i] = searchResultJSON{
				ChunkID:     r.ChunkID,
				Score:       r.Score,
				RRFScore:    r.RRFScore,
				VectorRank:  r.VectorRank,
				LexicalRank: r.LexicalRank,
				Reranked:    r.Reranked,
				Section:     r.Chunk.SourceSection,
				Text:        r.Chunk.Text,
			}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "no results")
		return nil
	}

	for i, r := range results {
		section := r.Chunk.SourceSection
		if section == "" {
			section = "-"
		}
		fmt.Fprintf(out, "%2d. [chunk %d] score=%.5f section=%s\n", i+1, r.ChunkID, r.Score, section)
		fmt.Fprintf(out, "    %s\n", snippet(r.Chunk.Text, 200))
	}
	return nil
}

// snippet truncates text to maxLen runes for terminal display.
func snippet(text string, maxLen int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
