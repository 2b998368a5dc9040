package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/solscan/internal/report"
)

func newReportCmd() *cobra.Command {
	var inputPath string
	var format string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Re-render a previously written JSON report artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" {
				return errors.New("--input is required")
			}

			doc, err := report.Load(inputPath)
			if err != nil {
				return err
			}

			var data []byte
			switch format {
			case "markdown", "md":
				data = []byte(report.RenderMarkdown(doc))
			case "sarif":
				data, err = report.RenderSARIF(doc)
			case "json":
				data, err = report.RenderJSON(doc)
			default:
				return fmt.Errorf("unsupported format %q (expected markdown, sarif, or json)", format)
			}
			if err != nil {
				return err
			}

			if outputPath == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := writeFile(outputPath, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", outputPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Path to a JSON scan artifact")
	cmd.Flags().StringVar(&format, "format", "markdown", "Output format (markdown, sarif, json)")
	cmd.Flags().StringVar(&outputPath, "output", "", "Destination path (stdout when omitted)")
	if err := cmd.MarkFlagRequired("input"); err != nil {
		panic(err)
	}

	return cmd
}
