package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/agentx-labs/unithost/internal/activation"
	"github.com/agentx-labs/unithost/internal/registry"
	"github.com/agentx-labs/unithost/internal/scaffold"
	"github.com/agentx-labs/unithost/internal/unit"
	"github.com/agentx-labs/unithost/internal/unitkey"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	unitsCategory    unit.Category
	unitsNewEntry    string
	unitsNewDescribe string
)

func init() {
	unitsListCmd.Flags().Var(&unitsCategory, "category", "only list units of this category (extension, addon)")
	unitsNewCmd.Flags().StringVar(&unitsNewEntry, "entry", "", "factory that builds the unit (default \"log\")")
	unitsNewCmd.Flags().StringVar(&unitsNewDescribe, "description", "", "description written to the manifest")
	unitsCmd.AddCommand(unitsNewCmd)
	unitsCmd.AddCommand(unitsListCmd)
	unitsCmd.AddCommand(unitsEnableCmd)
	unitsCmd.AddCommand(unitsDisableCmd)
	rootCmd.AddCommand(unitsCmd)
}

var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "Inspect and toggle installed units",
}

var unitsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered units",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		categories := unit.Categories()
		if cmd.Flags().Changed("category") {
			categories = []unit.Category{unitsCategory}
		}
		return runUnitsList(cmd.Context(), current, cmd.OutOrStdout(), categories)
	},
}

var unitsNewCmd = &cobra.Command{
	Use:   "new <category> <name>",
	Short: "Create a unit directory from a template",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := unit.ParseCategory(args[0])
		if err != nil {
			return err
		}
		return runUnitsNew(current, cmd.OutOrStdout(), c, args[1], unitsNewEntry, unitsNewDescribe)
	},
}

var unitsEnableCmd = &cobra.Command{
	Use:   "enable <category> <key>",
	Short: "Add a unit to its category's activation record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := unit.ParseCategory(args[0])
		if err != nil {
			return err
		}
		key, stamp, err := enableUnit(cmd.Context(), current, c, args[1], activation.SystemClock{})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Enabled %s %s (activated %s)\n", c, key, stamp)
		return nil
	},
}

var unitsDisableCmd = &cobra.Command{
	Use:   "disable <category> <key>",
	Short: "Remove a unit from its category's activation record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := unit.ParseCategory(args[0])
		if err != nil {
			return err
		}
		key, removed, err := disableUnit(cmd.Context(), current, c, args[1])
		if err != nil {
			return err
		}
		if !removed {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s is not in the activation record\n", c, key)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Disabled %s %s\n", c, key)
		return nil
	},
}

func runUnitsList(ctx context.Context, h *host, out io.Writer, categories []unit.Category) error {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Category", "Key", "Version", "Entry", "Source", "Allowed", "Activated"})

	rows := 0
	for _, c := range categories {
		ld, err := h.loader(c)
		if err != nil {
			return fmt.Errorf("creating %s registry: %w", c, err)
		}
		units, err := ld.Discover(ctx)
		if err != nil {
			return fmt.Errorf("discovering %s: %w", c.Plural(), err)
		}

		allowed := make(map[string]bool)
		for _, k := range h.cfg.NormalizedAllowList(c, h.logger) {
			allowed[k] = true
		}
		activated := canonicalEntries(h.store(false).Read(ctx, c).Entries())

		for _, d := range units {
			stamp, ok := activated.Get(d.Key)
			if !ok {
				stamp = "-"
			}
			entry := d.Entry
			if !ld.Exists(ctx, d.Key) {
				entry += " (no factory)"
			}
			t.AppendRow(table.Row{c.String(), d.Key, d.Version, entry, d.SourceName, yesNo(allowed[d.Key]), stamp})
			rows++
		}
	}

	if rows == 0 {
		fmt.Fprintln(out, "No units installed yet.")
		return nil
	}
	t.SetStyle(table.StyleLight)
	t.Render()
	return nil
}

func runUnitsNew(h *host, out io.Writer, c unit.Category, name, entry, description string) error {
	data, err := scaffold.NewData(c, name, entry)
	if err != nil {
		return err
	}
	if description != "" {
		data.Description = description
	}
	result, err := scaffold.Generate(data, filepath.Join(h.layout.UnitsDir(c), data.Name))
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Created %s %s in %s\n", c, data.Name, result.OutputDir)
	for _, f := range result.Files {
		fmt.Fprintf(out, "  %s\n", f)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(out, "  [WARN] %s\n", w)
	}
	return nil
}

// enableUnit appends key to the category's record with the current time.
// A key that is already recorded keeps its timestamp and nothing is written.
func enableUnit(ctx context.Context, h *host, c unit.Category, raw string, clock activation.Clock) (string, string, error) {
	key, ok := unitkey.Normalize(raw)
	if !ok {
		return "", "", fmt.Errorf("invalid unit key %q", raw)
	}
	ld, err := h.loader(c)
	if err != nil {
		return key, "", err
	}
	if !ld.Exists(ctx, key) {
		return key, "", fmt.Errorf("%s %q: %w", c, key, registry.ErrNotFound)
	}

	store := h.store(false)
	snap := store.Read(ctx, c)
	if snap.Err != nil {
		return key, "", fmt.Errorf("reading %s: %w", c.StorageKey(), snap.Err)
	}
	entries := snap.Entries()
	if stamp, ok := canonicalEntries(entries).Get(key); ok {
		return key, stamp, nil
	}
	stamp := activation.Stamp(clock)
	entries.Set(key, stamp)
	if err := store.Write(ctx, c, entries); err != nil {
		return key, "", err
	}
	return key, stamp, nil
}

// disableUnit removes every recorded spelling of key from the category's
// record. It reports whether anything was removed.
func disableUnit(ctx context.Context, h *host, c unit.Category, raw string) (string, bool, error) {
	key, ok := unitkey.Normalize(raw)
	if !ok {
		return "", false, fmt.Errorf("invalid unit key %q", raw)
	}
	store := h.store(false)
	snap := store.Read(ctx, c)
	if snap.Err != nil {
		return key, false, fmt.Errorf("reading %s: %w", c.StorageKey(), snap.Err)
	}
	var kept activation.Entries
	removed := false
	for _, e := range snap.Entries() {
		if k, ok := unitkey.Normalize(e.Key); ok && k == key {
			removed = true
			continue
		}
		kept.Set(e.Key, e.Value)
	}
	if !removed {
		return key, false, nil
	}
	if err := store.Write(ctx, c, kept); err != nil {
		return key, false, err
	}
	return key, true, nil
}

// canonicalEntries keys entries by canonical key; the first spelling wins.
func canonicalEntries(entries activation.Entries) activation.Entries {
	var out activation.Entries
	for _, e := range entries {
		k, ok := unitkey.Normalize(e.Key)
		if !ok || out.Has(k) {
			continue
		}
		out.Set(k, e.Value)
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
