package cli

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
	"github.com/kirillkom/dataroom-assistant/internal/infrastructure/chunking"
	"github.com/kirillkom/dataroom-assistant/internal/infrastructure/extractor"
)

const previewRunes = 60

var chunkCmd = &cobra.Command{
	Use:   "chunk FILE...",
	Short: "Show how documents are split into chunks",
	Long: `Extracts and splits each file with the configured CHUNK_SIZE and
CHUNK_OVERLAP, without calling any model. Useful for checking extraction
quality before uploading a data room.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChunk,
}

func init() {
	rootCmd.AddCommand(chunkCmd)
}

func runChunk(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if err := cfg.ValidateChunking(); err != nil {
		return err
	}
	ext := extractor.New()
	splitter := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	for _, path := range args {
		format, err := domain.FormatFromFilename(path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		pages, err := ext.Extract(cmd.Context(), format, data)
		if err != nil {
			return fmt.Errorf("extract %s: %w", path, err)
		}
		chunks := splitter.Split(pages)

		cmd.Printf("%s: %d pages, %d chunks\n", path, len(pages), len(chunks))
		for _, c := range chunks {
			cmd.Printf("  [%d] page %d, %d runes: %s\n", c.Index, c.PageNumber, utf8.RuneCountInString(c.Text), preview(c.Text))
		}
	}
	return nil
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	return string([]rune(text)[:previewRunes]) + "..."
}
