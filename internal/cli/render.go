package cli

import (
	"cvforge/internal/common"
	"cvforge/internal/render"
	"cvforge/internal/resume"
	"cvforge/internal/types"

	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render [record-file]",
	Short: "Render a resume record as an A4 PDF",
	Long: `Render a JSON or YAML resume record as an A4 PDF.

The PDF is written to --output, which may be a file or a directory. It
defaults to <Name>_CV.pdf in the current directory. A short report of the
written file is printed in --format.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

var renderConfig common.CommandConfig

func init() {
	addFormatFlags(renderCmd, &renderConfig, "PDF file or directory (default: <Name>_CV.pdf)")
}

func runRender(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())
	runner := newRunner(cmd)

	rec, err := runner.Files().LoadRecord(args[0])
	if err != nil {
		return err
	}

	report, err := writePDF(runner, rec, renderConfig.OutputFile)
	if err != nil {
		return err
	}
	logger.Info("Resume rendered", "file", report.Path)

	return runner.Output.HandleOutput(report, common.CommandConfig{OutputFormat: renderConfig.OutputFormat})
}

// writePDF renders rec and writes it to output, resolved against the
// record's default PDF filename.
func writePDF(runner *common.Runner, rec resume.Record, output string) (types.ArtifactOutput, error) {
	data, err := render.NewRenderer().Render(rec)
	if err != nil {
		return types.ArtifactOutput{}, err
	}
	path, err := runner.Output.WriteArtifact(data, output, rec.PDFFilename())
	if err != nil {
		return types.ArtifactOutput{}, err
	}
	return types.ArtifactOutput{Path: path, Bytes: len(data)}, nil
}
