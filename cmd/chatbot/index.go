package main

import (
	"context"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/config"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/index"
)

func indexCmd() *cobra.Command {
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the documents directory for question answering",
		Long: "Chunks and embeds every matching file under documents.dir into the vector\n" +
			"store. Without --rebuild, an already-populated store is left untouched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrDefaults()

			eng, err := index.New(cfg.Documents, logger)
			if err != nil {
				return fmt.Errorf("document index: %w", err)
			}
			eng.Preload()

			ctx := context.Background()
			dir := config.ExpandPath(cfg.Documents.Dir)
			fmt.Printf("Indexing %s\n", dir)

			// File count is only known as indexing progresses, so the
			// bar runs in spinner mode.
			bar := progressbar.NewOptions(-1,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
				progressbar.OptionSpinnerType(14),
			)
			onFile := func(name string) {
				bar.Describe(fmt.Sprintf("[cyan]Indexing[reset] %s", name))
				bar.Add(1)
			}

			var st index.IndexStats
			if rebuild {
				st, err = eng.Rebuild(ctx, onFile)
			} else {
				st, err = eng.EnsureIndexed(ctx)
			}
			bar.Finish()
			fmt.Println()
			if err != nil {
				return err
			}

			if st.Skipped {
				fmt.Printf("Index already populated (%d chunks). Use --rebuild to reindex.\n", eng.Count())
				return nil
			}
			fmt.Printf("Indexed %d chunks from %d files.\n", st.Indexed, len(st.Files))
			for _, f := range st.Files {
				fmt.Printf("  - %s\n", f)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "drop the existing index and reindex everything")
	return cmd
}
