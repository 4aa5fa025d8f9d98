package cli

import (
	"github.com/agentx-labs/unithost/internal/branding"
	"github.com/spf13/cobra"
	slogcontext "github.com/veqryn/slog-context"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

// current is the host resolved for the running command.
var current *host

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` discovers extensions and add-ons, initializes the allow-listed and
persisted ones, and keeps the per-category activation records in step with
what is installed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		h, err := newHost(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		current = h
		cmd.SetContext(slogcontext.NewCtx(cmd.Context(), h.logger))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $HOME/"+branding.HomeDir()+"/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "loglevel", "", "set the log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&logFormat, "logformat", "f", "", "set the log format (text, json)")
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	return rootCmd.Execute()
}
