package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/solscan/internal/config"
	"github.com/example/solscan/internal/rules"
)

// starterPack is the rule-pack skeleton written by `rules init`.
const starterPack = `# solscan rule pack
# Each rule needs an id, a severity, and exactly one of: literal, pattern, anyOf.
rules:
  - id: example-suppressed-origin
    description: tx.origin outside of comments
    severity: high
    literal: "tx.origin"
    exclude:
      - pattern: '^\s*//'
`

func newRulesCmd(loader *config.Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and scaffold scan rules",
	}
	cmd.AddCommand(newRulesListCmd(loader), newRulesInitCmd())
	return cmd
}

func newRulesListCmd(loader *config.Loader) *cobra.Command {
	var asJSON bool
	flags := &runtimeFlagSet{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the effective ruleset (built-ins plus any rule pack)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loader.Load(flags.toOverrides(cmd))
			if err != nil {
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

			if asJSON {
				type ruleView struct {
					ID          string         `json:"id"`
					Severity    rules.Severity `json:"severity"`
					Description string         `json:"description"`
					Exclusions  int            `json:"exclusions"`
				}
				views := make([]ruleView, 0, registry.Len())
				for _, r := range registry.Rules() {
					views = append(views, ruleView{
						ID:          r.ID,
						Severity:    r.Severity,
						Description: r.Description,
						Exclusions:  len(r.Exclusions),
					})
				}
				data, err := json.MarshalIndent(views, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSEVERITY\tDESCRIPTION")
			for _, r := range registry.Rules() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.ID, r.Severity, r.Description)
			}
			return w.Flush()
		},
	}

	bindRuntimeFlags(cmd, flags)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print rules as JSON")

	return cmd
}

func newRulesInitCmd() *cobra.Command {
	var outputPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter rule-pack YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if _, err := os.Stat(outputPath); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", outputPath)
				}
			}

			// The starter content must always satisfy the pack parser.
			if _, err := rules.ParsePack([]byte(starterPack)); err != nil {
				return err
			}

			if err := os.WriteFile(outputPath, []byte(starterPack), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rule pack written to %s\n", outputPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&outputPath, "output", "solscan.rules.yml", "Destination for the rule pack")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}
