package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

var (
	askFiles  []string
	askFormat string
)

var askCmd = &cobra.Command{
	Use:   "ask --file FILE [--file FILE...] QUESTION...",
	Short: "Answer questions about local documents",
	Long: `Ingests the given files into a throwaway session and answers each
question with citations. Every argument is one question, so quote them.
Nothing is persisted.

Examples:
  dataroom ask -f ppa.pdf -f permit.docx "What is the contracted capacity?"
  dataroom ask -f lease.txt --format json "Who owns the land?" "When does the lease end?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

// askOutput is the machine-readable form of an answer.
type askOutput struct {
	QueryID   string            `json:"query_id" yaml:"query_id"`
	Question  string            `json:"question" yaml:"question"`
	Answer    string            `json:"answer" yaml:"answer"`
	Citations []domain.Citation `json:"citations" yaml:"citations"`
}

func init() {
	askCmd.Flags().StringArrayVarP(&askFiles, "file", "f", nil, "document to ingest (repeatable)")
	askCmd.Flags().StringVar(&askFormat, "format", "text", "output format: text, json or yaml")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	switch askFormat {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", askFormat)
	}

	app, sessionID, err := openApp(cmd, askFiles)
	if err != nil {
		return err
	}
	defer app.Close()

	outputs := make([]askOutput, 0, len(args))
	for _, question := range args {
		answer, err := app.QA.Answer(cmd.Context(), sessionID, question)
		if err != nil {
			return fmt.Errorf("answer failed: %w", err)
		}
		outputs = append(outputs, askOutput{
			QueryID:   answer.QueryID,
			Question:  answer.Question,
			Answer:    answer.Text,
			Citations: answer.Citations,
		})
	}

	switch askFormat {
	case "json":
		data, err := json.MarshalIndent(outputs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answers: %w", err)
		}
		cmd.Println(string(data))
	case "yaml":
		data, err := yaml.Marshal(outputs)
		if err != nil {
			return fmt.Errorf("failed to marshal answers: %w", err)
		}
		cmd.Print(string(data))
	default:
		for i, out := range outputs {
			if len(outputs) > 1 {
				if i > 0 {
					cmd.Println()
				}
				cmd.Printf("Q: %s\n", out.Question)
			}
			outputAnswerText(cmd, out)
		}
	}
	return nil
}

func outputAnswerText(cmd *cobra.Command, out askOutput) {
	cmd.Println(out.Answer)
	if len(out.Citations) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, c := range out.Citations {
		cmd.Printf("  [%d] %s, page %d\n", i+1, c.Filename, c.PageNumber)
		if c.Text != "" {
			cmd.Printf("      %s\n", preview(c.Text))
		}
	}
}
