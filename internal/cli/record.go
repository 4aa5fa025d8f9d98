package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/agentx-labs/unithost/internal/activation"
	"github.com/agentx-labs/unithost/internal/unit"
	"github.com/agentx-labs/unithost/internal/unitkey"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

// Output formats.
const (
	outputTable = "table"
	outputYAML  = "yaml"
	outputJSON  = "json"
)

var recordOutput string

func init() {
	recordShowCmd.Flags().StringVarP(&recordOutput, "output", "o", outputTable, "output format (table, yaml, json)")
	recordCmd.AddCommand(recordShowCmd)
	recordCmd.AddCommand(recordCheckCmd)
	rootCmd.AddCommand(recordCmd)
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Inspect activation records",
}

var recordShowCmd = &cobra.Command{
	Use:   "show <category>",
	Short: "Print a category's activation record as stored",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := unit.ParseCategory(args[0])
		if err != nil {
			return err
		}
		return runRecordShow(cmd.Context(), current, cmd.OutOrStdout(), c, recordOutput)
	},
}

var recordCheckCmd = &cobra.Command{
	Use:   "check <category>",
	Short: "Report problems in a category's activation record without repairing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := unit.ParseCategory(args[0])
		if err != nil {
			return err
		}
		problems := runRecordCheck(cmd.Context(), current, cmd.OutOrStdout(), c)
		if problems > 0 {
			return fmt.Errorf("%s has %d problem(s)", c.StorageKey(), problems)
		}
		return nil
	},
}

// recordRow is one stored pair with its diagnosis.
type recordRow struct {
	Key    string `json:"key" yaml:"key"`
	Value  string `json:"value" yaml:"value"`
	Line   int    `json:"line" yaml:"line"`
	Status string `json:"status" yaml:"status"`
}

// Pair statuses.
const (
	statusOK           = "ok"
	statusBadKey       = "invalid key"
	statusBadValue     = "invalid value"
	statusBadTimestamp = "unparseable timestamp"
	statusNonCanonical = "non-canonical key"
	statusDuplicate    = "duplicate"
)

// diagnose classifies every pair the way a reconciliation pass would treat
// it, without changing anything.
func diagnose(pairs []activation.Pair) []recordRow {
	rows := make([]recordRow, 0, len(pairs))
	seen := make(map[string]bool)
	for _, p := range pairs {
		row := recordRow{Key: p.Key, Value: p.Value, Line: p.Line, Status: statusOK}
		key, keyOK := unitkey.Normalize(p.Key)
		switch {
		case !p.KeyOK || !keyOK:
			row.Status = statusBadKey
		case !p.ValueOK:
			row.Status = statusBadValue
		case seen[key]:
			row.Status = statusDuplicate
		default:
			if _, ok := activation.ParseTimestamp(p.Value); !ok {
				row.Status = statusBadTimestamp
			} else if !unitkey.Valid(p.Key) {
				row.Status = statusNonCanonical
			}
		}
		if keyOK {
			seen[key] = true
		}
		rows = append(rows, row)
	}
	return rows
}

func runRecordShow(ctx context.Context, h *host, out io.Writer, c unit.Category, format string) error {
	snap := h.store(false).Read(ctx, c)
	if snap.Err != nil {
		return fmt.Errorf("reading %s: %w", c.StorageKey(), snap.Err)
	}
	rows := diagnose(snap.Decoded.Pairs)

	switch format {
	case outputJSON:
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case outputYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		return enc.Close()
	case outputTable:
		if !snap.Found {
			fmt.Fprintf(out, "No %s record.\n", c.StorageKey())
			return nil
		}
		if !snap.Decoded.ShapeValid {
			fmt.Fprintf(out, "%s is not a mapping and will be reset on the next boot.\n", c.StorageKey())
			return nil
		}
		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.AppendHeader(table.Row{"Line", "Key", "Activated", "Status"})
		for _, r := range rows {
			t.AppendRow(table.Row{r.Line, r.Key, r.Value, r.Status})
		}
		t.SetStyle(table.StyleLight)
		t.Render()
		return nil
	default:
		return fmt.Errorf("invalid output format %q (want table, yaml or json)", format)
	}
}

// runRecordCheck prints every problem found in the record and returns how
// many there were.
func runRecordCheck(ctx context.Context, h *host, out io.Writer, c unit.Category) int {
	snap := h.store(false).Read(ctx, c)
	fmt.Fprintf(out, "Record %s:\n", c.StorageKey())
	if snap.Err != nil {
		fmt.Fprintf(out, "  [FAIL] unreadable: %v\n", snap.Err)
		return 1
	}
	if !snap.Found {
		fmt.Fprintln(out, "  [ OK ] not present")
		return 0
	}
	if !snap.Decoded.ShapeValid {
		fmt.Fprintln(out, "  [FAIL] not a mapping")
		for _, issue := range snap.Decoded.Issues {
			fmt.Fprintf(out, "         %s\n", issue.String())
		}
		return 1
	}

	problems := 0
	for _, r := range diagnose(snap.Decoded.Pairs) {
		if r.Status == statusOK {
			continue
		}
		problems++
		fmt.Fprintf(out, "  [WARN] line %d: %q: %s\n", r.Line, r.Key, r.Status)
	}
	if problems == 0 {
		fmt.Fprintf(out, "  [ OK ] %d entries\n", len(snap.Decoded.Pairs))
	}
	return problems
}
