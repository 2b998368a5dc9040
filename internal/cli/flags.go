package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/solscan/internal/config"
)

// runtimeFlagSet tracks shared scan flags before they are converted into
// config overrides.
type runtimeFlagSet struct {
	outputDir      string
	formats        string
	engine         string
	workers        int
	maxLines       int
	rulesFile      string
	exclude        string
	failOn         string
	slitherBinary  string
	slitherTimeout int
	summaryFile    string
}

func bindRuntimeFlags(cmd *cobra.Command, flags *runtimeFlagSet) {
	cmd.Flags().StringVar(&flags.outputDir, "output-dir", "", "Directory for scan artifacts")
	cmd.Flags().StringVar(&flags.formats, "formats", "", "Comma-separated output formats (json,markdown,sarif)")
	cmd.Flags().StringVar(&flags.engine, "engine", "", "Scan engine: builtin, slither, or auto")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, fmt.Sprintf("Number of concurrent workers (1-%d)", config.MaxWorkers))
	cmd.Flags().IntVar(&flags.maxLines, "max-lines", 0, "Abort when the corpus exceeds this many lines (0 = unbounded)")
	cmd.Flags().StringVar(&flags.rulesFile, "rules", "", "Path to a YAML rule pack layered over the built-in rules")
	cmd.Flags().StringVar(&flags.exclude, "exclude", "", "Comma-separated glob patterns to skip (e.g. test/**)")
	cmd.Flags().StringVar(&flags.failOn, "fail-on", "", "Severity threshold for a failing exit code (default high)")
	cmd.Flags().StringVar(&flags.slitherBinary, "slither-binary", "", "Path to the slither binary")
	cmd.Flags().IntVar(&flags.slitherTimeout, "slither-timeout", 0, "Slither timeout in seconds")
	cmd.Flags().StringVar(&flags.summaryFile, "summary-file", "", "Optional summary JSON output path")
}

func (f runtimeFlagSet) toOverrides(cmd *cobra.Command) config.Overrides {
	ov := config.Overrides{}

	if cmd.Flags().Changed("output-dir") {
		ov.OutputDir = f.outputDir
	}
	if cmd.Flags().Changed("formats") {
		ov.Formats = config.ParseList(f.formats)
	}
	if cmd.Flags().Changed("engine") {
		ov.Engine = f.engine
	}
	if cmd.Flags().Changed("workers") {
		ov.Workers = f.workers
		ov.WorkersSet = true
	}
	if cmd.Flags().Changed("max-lines") {
		ov.MaxLines = f.maxLines
		ov.MaxLinesSet = true
	}
	if cmd.Flags().Changed("rules") {
		ov.RulesFile = f.rulesFile
	}
	if cmd.Flags().Changed("exclude") {
		ov.Excludes = config.ParseList(f.exclude)
	}
	if cmd.Flags().Changed("fail-on") {
		ov.FailOn = f.failOn
	}
	if cmd.Flags().Changed("slither-binary") {
		ov.SlitherBinary = f.slitherBinary
	}
	if cmd.Flags().Changed("slither-timeout") {
		ov.SlitherTimeout = f.slitherTimeout
		ov.SlitherTimeoutSet = true
	}
	if cmd.Flags().Changed("summary-file") {
		ov.SummaryFile = f.summaryFile
	}

	return ov
}
