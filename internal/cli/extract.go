package cli

import (
	"cvforge/internal/common"
	"cvforge/internal/types"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [resume-file]",
	Short: "Print the text of a PDF or DOCX resume",
	Long: `Extract the plain text of a PDF or DOCX document without calling the AI.
PDF text is read line by line; DOCX paragraphs (including those inside
tables) are joined with newlines in document order.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

var extractConfig common.CommandConfig

func init() {
	addFormatFlags(extractCmd, &extractConfig, "Output file path (default: stdout)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	runner := newRunner(cmd)

	doc, err := runner.Files().ReadDocument(args[0])
	if err != nil {
		return err
	}

	return runner.Output.HandleOutput(types.ExtractOutput{
		File:       doc.File,
		MIMEType:   doc.MIMEType,
		Characters: len(doc.Text),
		Text:       doc.Text,
	}, extractConfig)
}
