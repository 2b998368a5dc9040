package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/solscan/internal/config"
	"github.com/example/solscan/internal/rules"
)

const version = "1.0.0"

// App carries runtime collaborators shared by all sub-commands.
type App struct {
	Logger *zap.SugaredLogger
}

// ThresholdError signals that the scan found severities at or above the
// configured fail-on level. The process entrypoint maps it to a distinct
// exit code so CI can gate on it.
type ThresholdError struct {
	Worst     rules.Severity
	Threshold rules.Severity
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("findings at severity %s reached the fail threshold (%s)", e.Worst, e.Threshold)
}

// Execute builds the root command tree and runs the CLI.
func Execute() error {
	loader := &config.Loader{ConfigPath: config.DefaultConfigPath}
	app := &App{}

	var configPath string
	var debug bool

	rootCmd := &cobra.Command{
		Use:           "solscan",
		Short:         "Rule-based pattern scanner for Solidity sources",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	rootCmd.SetVersionTemplate("solscan version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath, "Path to solscan.config.yml (optional)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			loader.ConfigPath = configPath
		}
		logger, err := newLogger(debug)
		if err != nil {
			return err
		}
		app.Logger = logger
		return nil
	}

	rootCmd.AddCommand(
		newScanCmd(loader, app),
		newRulesCmd(loader),
		newReportCmd(),
		newDoctorCmd(loader),
	)

	return rootCmd.Execute()
}

func newLogger(debug bool) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	cfg.Encoding = "console"
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger.Sugar(), nil
}
