package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexrag/lexrag/internal/config"
)

func newSectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "section <label>",
		Short: "Print the full text of a section",
		Long: `Reassemble and print the full text of one section (e.g. "Article 5")
from its indexed chunks, with the sliding-window overlap removed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := strings.Join(args, " ")

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			embedder, err := newEmbedder(cfg)
			if err != nil {
				return err
			}
			defer embedder.Close()

			idx, err := loadOrBuild(cmd.Context(), cfg, embedder, false)
			if err != nil {
				return err
			}

			text, ok := idx.SectionText(label)
			if !ok {
				return fmt.Errorf("section %q not found in the index", label)
			}

			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}

	return cmd
}
