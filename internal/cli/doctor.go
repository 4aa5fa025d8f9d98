package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/agentx-labs/unithost/internal/manifest"
	"github.com/agentx-labs/unithost/internal/registry"
	"github.com/agentx-labs/unithost/internal/unit"
	"github.com/agentx-labs/unithost/internal/userdata"
	"github.com/spf13/cobra"
)

var doctorFix bool

func init() {
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "create missing directories and correct permissions")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the installation",
	Long:  `Check the home layout, every unit manifest and both activation records.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if problems := runDoctor(cmd.Context(), current, cmd.OutOrStdout(), doctorFix); problems > 0 {
			return fmt.Errorf("%d problem(s) found", problems)
		}
		return nil
	},
}

func runDoctor(ctx context.Context, h *host, out io.Writer, fix bool) int {
	problems := userdata.Check(out, h.layout, fix)
	for _, c := range unit.Categories() {
		problems += checkManifests(ctx, h, out, c)
	}
	for _, c := range unit.Categories() {
		problems += runRecordCheck(ctx, h, out, c)
	}
	return problems
}

// checkManifests loads every unit directory's manifest directly so that the
// ones discovery skips are reported too.
func checkManifests(ctx context.Context, h *host, out io.Writer, c unit.Category) int {
	fmt.Fprintf(out, "%s check:\n", c.Plural())
	ld, err := h.loader(c)
	if err != nil {
		fmt.Fprintf(out, "  [FAIL] %v\n", err)
		return 1
	}
	units, err := ld.Discover(ctx)
	if err != nil {
		fmt.Fprintf(out, "  [FAIL] %v\n", err)
		return 1
	}

	problems := 0
	for _, d := range units {
		if !ld.Exists(ctx, d.Key) {
			fmt.Fprintf(out, "  [WARN] %s: no factory for entry %q\n", d.Key, d.Entry)
			problems++
			continue
		}
		fmt.Fprintf(out, "  [ OK ] %s %s\n", d.Key, d.Version)
	}

	skipped, err := undiscovered(h.layout.UnitsDir(c), units)
	if err != nil {
		fmt.Fprintf(out, "  [WARN] %v\n", err)
		return problems + 1
	}
	for _, dir := range skipped {
		_, _, err := manifest.Load(dir)
		var invalid *manifest.InvalidError
		switch {
		case errors.Is(err, manifest.ErrNoManifest):
			continue
		case errors.As(err, &invalid):
			fmt.Fprintf(out, "  [FAIL] %s: invalid manifest\n", dir)
			for _, issue := range invalid.Result.Issues {
				fmt.Fprintf(out, "         %s\n", issue.String())
			}
		case err != nil:
			fmt.Fprintf(out, "  [FAIL] %s: %v\n", dir, err)
		default:
			fmt.Fprintf(out, "  [WARN] %s: skipped by discovery (name, type or ignore pattern)\n", dir)
		}
		problems++
	}
	if len(units) == 0 && problems == 0 {
		fmt.Fprintln(out, "  [INFO] no units installed")
	}
	return problems
}

// undiscovered returns the subdirectories of dir that discovery did not
// turn into units.
func undiscovered(dir string, units []registry.Discovered) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	found := make(map[string]bool, len(units))
	for _, d := range units {
		found[filepath.Clean(d.Dir)] = true
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if !found[path] {
			out = append(out, path)
		}
	}
	return out, nil
}
