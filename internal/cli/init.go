package cli

import (
	"fmt"

	"github.com/agentx-labs/unithost/internal/branding"
	"github.com/agentx-labs/unithost/internal/userdata"
	"github.com/spf13/cobra"
)

var initExample bool

func init() {
	initCmd.Flags().BoolVar(&initExample, "example", false, "also install an example extension that logs its lifecycle calls")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the home directory layout",
	Long: `Create the unit directories, the state directory and a default config file.
Existing files are left alone.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if err := userdata.Init(out, current.layout, initExample); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nRun '%s boot' to start the installed units.\n", branding.CLIName())
		return nil
	},
}
