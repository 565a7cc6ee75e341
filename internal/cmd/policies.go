package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oasislearninghub/oasis/internal/core/gate"
	"github.com/oasislearninghub/oasis/internal/output"
)

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "Show the effective rate limit policies",
	Long: `Show the rate limit policies after config overrides are applied.

Each page session gets its own limiter per policy. Controls are bound to
policies as follows: external links use global, buttons use click and form
submissions use form.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		policies, err := cfg.Policies()
		if err != nil {
			return err
		}
		if err := gate.DefaultBindings.Validate(policies); err != nil {
			return err
		}

		rendered, err := output.NewFormatter(format).FormatPolicies(policies.Sorted())
		if err != nil {
			return err
		}
		return writeRendered(cmd, format, "policies", rendered)
	},
}

func init() {
	addOutputFlags(policiesCmd, output.FormatTable)
	rootCmd.AddCommand(policiesCmd)
}
