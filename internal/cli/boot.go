package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/agentx-labs/unithost/internal/branding"
	"github.com/agentx-labs/unithost/internal/lifecycle"
	"github.com/agentx-labs/unithost/internal/reconcile"
	"github.com/agentx-labs/unithost/internal/unit"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	bootMetricsTextfile string
	bootEphemeral       bool
)

func init() {
	bootCmd.Flags().StringVar(&bootMetricsTextfile, "metrics-textfile", "", "write metrics to this file in the node exporter textfile format")
	bootCmd.Flags().BoolVar(&bootEphemeral, "ephemeral", false, "keep activation records in memory instead of the state directory")
	rootCmd.AddCommand(bootCmd)
}

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Run the unit lifecycle once",
	Long: `Initialize allow-listed units, reconcile the persisted activation records
against the installed units and run the after-init pass. Extensions go
before add-ons at every step.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBoot(cmd.Context(), current, cmd.OutOrStdout(), bootEphemeral, bootMetricsTextfile)
	},
}

func runBoot(ctx context.Context, h *host, out io.Writer, ephemeral bool, textfile string) error {
	regs := make(map[unit.Category]lifecycle.Registry)
	for _, c := range unit.Categories() {
		ld, err := h.loader(c)
		if err != nil {
			return fmt.Errorf("creating %s registry: %w", c, err)
		}
		regs[c] = ld
	}

	rec := reconcile.New(h.store(ephemeral),
		reconcile.WithLogger(h.logger),
		reconcile.WithMetrics(h.metrics),
	)
	req := &unit.Request{
		Command:   branding.CLIName() + " boot",
		StartedAt: time.Now().UTC(),
		Ephemeral: ephemeral,
	}
	orch, err := lifecycle.New(h.cfg, rec, regs,
		lifecycle.WithLogger(h.logger),
		lifecycle.WithMetrics(h.metrics),
		lifecycle.WithRequest(req),
	)
	if err != nil {
		return err
	}

	report, runErr := orch.Run(ctx)
	renderReport(out, report)

	if textfile != "" {
		if err := h.metrics.WriteTextfile(textfile); err != nil {
			h.logger.Warn("writing metrics textfile failed", "path", textfile, "error", err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("boot stopped in state %s: %w", orch.State(), runErr)
	}
	return nil
}

func renderReport(out io.Writer, report *lifecycle.Report) {
	if report == nil {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Category", "Key", "Source", "Activated", "Status"})
	for _, cr := range report.Categories {
		for _, e := range cr.Active {
			activated := e.Value
			if activated == "" {
				activated = "-"
			}
			status := "pending"
			switch {
			case slices.Contains(cr.AfterInitialized, e.Key):
				status = "ready"
			case slices.Contains(cr.Skipped, e.Key):
				status = "skipped"
			}
			t.AppendRow(table.Row{cr.Category.Plural(), e.Key, activeSource(cr, e.Key), activated, status})
		}
	}
	t.SetStyle(table.StyleLight)
	t.Render()

	for _, cr := range report.Categories {
		for _, line := range reportNotes(cr) {
			fmt.Fprintf(out, "%s: %s\n", cr.Category.Plural(), line)
		}
	}
}

func reportNotes(cr *lifecycle.CategoryReport) []string {
	var notes []string
	if cr.ReconcileDisabled {
		notes = append(notes, "persisted reconciliation disabled")
	}
	if len(cr.MissingAllowed) > 0 {
		notes = append(notes, fmt.Sprintf("allow-listed but not installed: %v", cr.MissingAllowed))
	}
	if res := cr.Reconciled; res != nil {
		notes = append(notes, resultNotes(res)...)
	}
	return notes
}

func resultNotes(res *reconcile.Result) []string {
	var notes []string
	if res.Err != nil {
		notes = append(notes, "reconciliation failed: "+res.Err.Error())
	}
	if res.Repaired {
		notes = append(notes, "activation record repaired")
	}
	if len(res.Dropped) > 0 {
		notes = append(notes, fmt.Sprintf("dropped invalid entries: %v", res.Dropped))
	}
	if len(res.Restamped) > 0 {
		notes = append(notes, fmt.Sprintf("restamped: %v", res.Restamped))
	}
	if len(res.Pruned) > 0 {
		notes = append(notes, fmt.Sprintf("pruned uninstalled: %v", res.Pruned))
	}
	if res.Written {
		notes = append(notes, "activation record written")
	}
	return notes
}

// activeSource says where an active key came from.
func activeSource(cr *lifecycle.CategoryReport, key string) string {
	allowed := slices.Contains(cr.Allowed, key) || slices.Contains(cr.MissingAllowed, key)
	persisted := cr.Reconciled != nil && cr.Reconciled.Active.Has(key)
	switch {
	case allowed && persisted:
		return "both"
	case persisted:
		return "persisted"
	default:
		return "allow-list"
	}
}
