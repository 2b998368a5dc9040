package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/solscan/internal/config"
	"github.com/example/solscan/internal/corpus"
	"github.com/example/solscan/internal/events"
	"github.com/example/solscan/internal/report"
	"github.com/example/solscan/internal/rules"
	"github.com/example/solscan/internal/scan"
	"github.com/example/solscan/internal/slither"
)

func newScanCmd(loader *config.Loader, app *App) *cobra.Command {
	flags := &runtimeFlagSet{}

	cmd := &cobra.Command{
		Use:   "scan [target]",
		Short: "Scan a Solidity file or directory and write report artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]

			cfg, err := loader.Load(flags.toOverrides(cmd))
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := ensureOutputDir(cfg.OutputDir); err != nil {
				return err
			}

			ruleSet, err := loadRuleset(cfg)
			if err != nil {
				return err
			}
			registry, err := rules.NewRegistry(ruleSet)
			if err != nil {
				return err
			}

			provider, err := corpus.NewProvider(cfg.Excludes)
			if err != nil {
				return err
			}
			files, err := provider.Collect(target)
			if err != nil {
				return err
			}

			emitter := events.NewEmitter(cmd.OutOrStdout())
			if err := emitter.Emit(events.Event{
				Type:    "scan-start",
				Message: "Starting scan",
				Fields: map[string]interface{}{
					"target": target,
					"files":  len(files),
					"rules":  registry.Len(),
					"engine": cfg.Engine,
				},
			}); err != nil {
				return err
			}

			external, usedEngine, err := runExternal(cmd, cfg, target, app)
			if err != nil {
				return err
			}

			engine := scan.Engine{Workers: cfg.Workers, MaxLines: cfg.MaxLines}
			result, evalErrs, err := engine.Scan(cmd.Context(), registry, files)
			if err != nil {
				return err
			}
			for _, ee := range evalErrs {
				app.Logger.Warnw("rule evaluation degraded", "rule", ee.RuleID, "file", ee.File, "error", ee.Message)
			}

			doc := report.Document{
				GeneratedAt: time.Now().UTC(),
				Target:      target,
				Engine:      usedEngine,
				Scan:        result,
				Warnings:    evalErrs,
				External:    external,
			}

			artifacts, err := report.Write(doc, cfg.OutputDir, cfg.Formats)
			if err != nil {
				return err
			}
			for _, path := range artifacts {
				if err := emitter.Emit(events.Event{
					Type:   "artifact-written",
					Fields: map[string]interface{}{"path": path, "format": filepath.Ext(path)},
				}); err != nil {
					return err
				}
			}

			if cfg.SummaryFile != "" {
				if err := writeSummary(cfg.SummaryFile, doc, artifacts); err != nil {
					return err
				}
			}

			if err := emitter.Emit(events.Event{
				Type:    "scan-finished",
				Message: "Scan complete",
				Fields: map[string]interface{}{
					"findings":  len(result.Findings),
					"external":  len(external),
					"warnings":  len(evalErrs),
					"artifacts": len(artifacts),
				},
			}); err != nil {
				return err
			}

			threshold := cfg.FailThreshold()
			if worst, ok := worstCombined(result, external); ok && worst.Rank() >= threshold.Rank() {
				return &ThresholdError{Worst: worst, Threshold: threshold}
			}
			return nil
		},
	}

	bindRuntimeFlags(cmd, flags)

	return cmd
}

// runExternal invokes slither when the engine mode asks for it. In auto
// mode an unusable slither downgrades to the builtin engine with a
// warning instead of failing the scan.
func runExternal(cmd *cobra.Command, cfg config.RuntimeConfig, target string, app *App) ([]slither.Finding, string, error) {
	if cfg.Engine == config.EngineBuiltin {
		return nil, config.EngineBuiltin, nil
	}

	runner := &slither.CommandRunner{Binary: cfg.SlitherBinary}
	if err := runner.EnsureBinary(); err != nil {
		if cfg.Engine == config.EngineAuto {
			app.Logger.Warnw("slither unavailable, falling back to builtin engine", "error", err)
			return nil, config.EngineBuiltin, nil
		}
		return nil, cfg.Engine, err
	}

	result, err := runner.Analyze(cmd.Context(), slither.Input{
		Target:         target,
		TimeoutSeconds: cfg.SlitherTimeout,
	})
	if err != nil {
		if cfg.Engine == config.EngineAuto {
			app.Logger.Warnw("slither run failed, falling back to builtin engine", "error", err)
			return nil, config.EngineBuiltin, nil
		}
		return nil, cfg.Engine, err
	}

	app.Logger.Debugw("slither finished",
		"findings", len(result.Findings),
		"detectors", result.Detectors,
		"duration", result.Duration,
	)
	return result.Findings, cfg.Engine, nil
}

// worstCombined extends the severity policy over external findings so
// the exit-code decision sees the merged report.
func worstCombined(r scan.Report, external []slither.Finding) (rules.Severity, bool) {
	worst, ok := scan.WorstSeverity(r)
	for _, f := range external {
		if !ok || f.Severity.Rank() > worst.Rank() {
			worst = f.Severity
			ok = true
		}
	}
	return worst, ok
}

func writeSummary(path string, doc report.Document, artifacts []string) error {
	summary := map[string]interface{}{
		"generatedAt": doc.GeneratedAt.Format(time.RFC3339),
		"target":      doc.Target,
		"engine":      doc.Engine,
		"counts":      doc.Scan.CountsBySeverity,
		"findings":    len(doc.Scan.Findings),
		"external":    len(doc.External),
		"warnings":    len(doc.Warnings),
		"artifacts":   artifacts,
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	if err := ensureOutputDir(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// loadRuleset returns the built-in rules, with any configured rule pack
// layered on top. Pack rules replace built-ins sharing the same id.
func loadRuleset(cfg config.RuntimeConfig) ([]rules.Rule, error) {
	base := rules.DefaultRules()
	if cfg.RulesFile == "" {
		return base, nil
	}

	pack, err := rules.LoadPack(cfg.RulesFile)
	if err != nil {
		return nil, err
	}

	replaced := make(map[string]rules.Rule, len(pack))
	for _, r := range pack {
		replaced[r.ID] = r
	}

	merged := make([]rules.Rule, 0, len(base)+len(pack))
	for _, r := range base {
		if override, ok := replaced[r.ID]; ok {
			merged = append(merged, override)
			delete(replaced, r.ID)
			continue
		}
		merged = append(merged, r)
	}
	for _, r := range pack {
		if _, pending := replaced[r.ID]; pending {
			merged = append(merged, r)
		}
	}
	return merged, nil
}

func ensureOutputDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o755)
}
