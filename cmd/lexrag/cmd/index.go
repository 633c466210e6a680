package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexrag/lexrag/internal/config"
)

func newIndexCmd() *cobra.Command {
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the retrieval index and persist it to the cache",
		Long: `Chunk the corpus, embed every chunk, build the BM25 and vector
indexes, and write the result to the index cache. A cached index whose
checksum still matches the corpus and parameters is reused unless
--rebuild is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			embedder, err := newEmbedder(cfg)
			if err != nil {
				return err
			}
			defer embedder.Close()

			idx, err := loadOrBuild(cmd.Context(), cfg, embedder, rebuild)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d chunks (model %s) -> %s\n",
				len(idx.Chunks), idx.Model, cfg.Cache.Path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Rebuild even when the cached index is current")

	return cmd
}
