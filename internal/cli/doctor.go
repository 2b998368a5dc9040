package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/example/solscan/internal/config"
	"github.com/example/solscan/internal/corpus"
	"github.com/example/solscan/internal/rules"
	"github.com/example/solscan/internal/slither"
)

type doctorCheck struct {
	Name   string
	Status string // "✓" or "✗"
	Detail string
	Error  error
}

func newDoctorCmd(loader *config.Loader) *cobra.Command {
	flags := &runtimeFlagSet{}

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate the environment before running scans",
		Long: `The doctor subcommand validates the solscan environment:
- Go runtime version
- slither binary presence (when the configured engine needs it)
- Output directory writability
- Rule pack and exclude pattern syntax`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loader.Load(flags.toOverrides(cmd))
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			checks := runDoctorChecks(cfg)
			printDoctorReport(cmd, checks)

			for _, check := range checks {
				if check.Error != nil {
					return fmt.Errorf("doctor checks failed")
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), "\n✓ All checks passed. System is ready.")
			return nil
		},
	}

	bindRuntimeFlags(cmd, flags)

	return cmd
}

func runDoctorChecks(cfg config.RuntimeConfig) []doctorCheck {
	checks := []doctorCheck{
		{Name: "Go runtime", Status: "✓", Detail: runtime.Version()},
		checkConfig(cfg),
		checkSlither(cfg),
		checkOutputDir(cfg.OutputDir),
		checkRulePack(cfg),
		checkExcludes(cfg.Excludes),
	}
	return checks
}

func checkConfig(cfg config.RuntimeConfig) doctorCheck {
	check := doctorCheck{Name: "Configuration"}
	if err := cfg.Validate(); err != nil {
		check.Status = "✗"
		check.Detail = err.Error()
		check.Error = err
		return check
	}
	check.Status = "✓"
	check.Detail = fmt.Sprintf("engine=%s workers=%d", cfg.Engine, cfg.Workers)
	return check
}

func checkSlither(cfg config.RuntimeConfig) doctorCheck {
	check := doctorCheck{Name: "Slither binary"}
	runner := &slither.CommandRunner{Binary: cfg.SlitherBinary}
	err := runner.EnsureBinary()
	if err == nil {
		check.Status = "✓"
		check.Detail = cfg.SlitherBinary
		return check
	}
	if cfg.Engine == config.EngineBuiltin {
		// Builtin scans never touch slither.
		check.Status = "✓"
		check.Detail = "not found (not required for builtin engine)"
		return check
	}
	check.Status = "✗"
	check.Detail = err.Error()
	check.Error = err
	return check
}

func checkOutputDir(dir string) doctorCheck {
	check := doctorCheck{Name: "Output directory"}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		check.Status = "✗"
		check.Detail = err.Error()
		check.Error = err
		return check
	}

	probe := filepath.Join(dir, ".solscan-doctor")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		check.Status = "✗"
		check.Detail = fmt.Sprintf("not writable: %v", err)
		check.Error = err
		return check
	}
	os.Remove(probe)

	check.Status = "✓"
	check.Detail = dir
	return check
}

func checkRulePack(cfg config.RuntimeConfig) doctorCheck {
	check := doctorCheck{Name: "Rule pack"}
	if cfg.RulesFile == "" {
		check.Status = "✓"
		check.Detail = "built-in rules only"
		return check
	}

	pack, err := rules.LoadPack(cfg.RulesFile)
	if err != nil {
		check.Status = "✗"
		check.Detail = err.Error()
		check.Error = err
		return check
	}
	check.Status = "✓"
	check.Detail = fmt.Sprintf("%s (%d rules)", cfg.RulesFile, len(pack))
	return check
}

func checkExcludes(patterns []string) doctorCheck {
	check := doctorCheck{Name: "Exclude patterns"}
	if _, err := corpus.NewProvider(patterns); err != nil {
		check.Status = "✗"
		check.Detail = err.Error()
		check.Error = err
		return check
	}
	check.Status = "✓"
	check.Detail = fmt.Sprintf("%d pattern(s)", len(patterns))
	return check
}

func printDoctorReport(cmd *cobra.Command, checks []doctorCheck) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "solscan doctor")
	fmt.Fprintln(out)
	for _, check := range checks {
		fmt.Fprintf(out, "%s %-18s %s\n", check.Status, check.Name, check.Detail)
	}
}
