package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// EffectiveConfig is the config command's output.
type EffectiveConfig struct {
	OpenSchemes       []string `json:"open_schemes"`
	RepromptOnDismiss bool     `json:"reprompt_on_dismiss"`
	Prompt            string   `json:"prompt"`
	Output            string   `json:"output"`
	Database          string   `json:"database"`
	Hash              string   `json:"hash"`
}

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration scan would use: schema defaults unified with
--config (or ./qrscan.cue when present).

The hash is the fingerprint recorded with each session. It covers only
the fields that change reconciler output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			hash, _, err := cfg.Record()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to hash config", err)
			}

			eff := EffectiveConfig{
				OpenSchemes:       cfg.OpenSchemes,
				RepromptOnDismiss: cfg.RepromptOnDismiss,
				Prompt:            cfg.Prompt,
				Output:            cfg.Output,
				Database:          cfg.Database,
				Hash:              hash,
			}

			if rootOpts.Format == "json" {
				return writeResponse(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: eff})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "open_schemes:        %s\n", strings.Join(eff.OpenSchemes, ", "))
			fmt.Fprintf(w, "reprompt_on_dismiss: %t\n", eff.RepromptOnDismiss)
			fmt.Fprintf(w, "prompt:              %s\n", eff.Prompt)
			fmt.Fprintf(w, "output:              %s\n", eff.Output)
			fmt.Fprintf(w, "database:            %s\n", orNone(eff.Database))
			fmt.Fprintf(w, "hash:                %s\n", eff.Hash)
			return nil
		},
	}
}
