package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/agentx-labs/unithost/internal/activation"
	"github.com/agentx-labs/unithost/internal/unit"
)

func TestDiagnose(t *testing.T) {
	payload := strings.Join([]string{
		`alpha: "2024-01-01 00:00:00"`,
		`Beta: "2024-01-01 00:00:00"`,
		`gamma: "not a date"`,
		`ALPHA: "2024-01-02 00:00:00"`,
		`9lives: "2024-01-01 00:00:00"`,
		`delta: [1, 2]`,
	}, "\n")
	decoded := activation.Decode([]byte(payload))
	if !decoded.ShapeValid {
		t.Fatal("payload should be a mapping")
	}

	want := []string{
		statusOK,
		statusNonCanonical,
		statusBadTimestamp,
		statusDuplicate,
		statusBadKey,
		statusBadValue,
	}
	rows := diagnose(decoded.Pairs)
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(rows), len(want))
	}
	for i, r := range rows {
		if r.Status != want[i] {
			t.Errorf("row %d (%s): status = %q, want %q", i, r.Key, r.Status, want[i])
		}
	}
}

func TestRunRecordShowJSON(t *testing.T) {
	h := newTestHost(t)
	writeRecord(t, h, "extensions.active", "alpha: \"2024-01-01 00:00:00\"\n")

	var out bytes.Buffer
	if err := runRecordShow(context.Background(), h, &out, unit.Extension, outputJSON); err != nil {
		t.Fatalf("runRecordShow: %v", err)
	}
	var rows []recordRow
	if err := json.Unmarshal(out.Bytes(), &rows); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if len(rows) != 1 || rows[0].Key != "alpha" || rows[0].Status != statusOK || rows[0].Line != 1 {
		t.Errorf("rows = %+v", rows)
	}
}

func TestRunRecordShowFormats(t *testing.T) {
	h := newTestHost(t)
	writeRecord(t, h, "addons.active", "gamma: \"2024-01-01 00:00:00\"\n")

	tests := []struct {
		format string
		want   string
	}{
		{outputTable, "gamma"},
		{outputYAML, "key: gamma"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var out bytes.Buffer
			if err := runRecordShow(context.Background(), h, &out, unit.AddOn, tt.format); err != nil {
				t.Fatalf("runRecordShow: %v", err)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out.String())
			}
		})
	}

	if err := runRecordShow(context.Background(), h, &bytes.Buffer{}, unit.AddOn, "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRunRecordCheck(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		problems int
	}{
		{"missing", "", 0},
		{"clean", "alpha: \"2024-01-01 00:00:00\"\n", 0},
		{"not a mapping", "- alpha\n", 1},
		{"bad pairs", "alpha: \"soon\"\n1: \"2024-01-01 00:00:00\"\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHost(t)
			if tt.payload != "" {
				writeRecord(t, h, "extensions.active", tt.payload)
			}
			var out bytes.Buffer
			got := runRecordCheck(context.Background(), h, &out, unit.Extension)
			if got != tt.problems {
				t.Errorf("problems = %d, want %d\n%s", got, tt.problems, out.String())
			}
		})
	}
}

func TestRunRecordCheckDoesNotRepair(t *testing.T) {
	h := newTestHost(t)
	writeRecord(t, h, "extensions.active", "- alpha\n")
	runRecordCheck(context.Background(), h, &bytes.Buffer{}, unit.Extension)
	if rec := readRecord(t, h, "extensions.active"); rec != "- alpha\n" {
		t.Errorf("record modified: %q", rec)
	}
}

func TestRecordCommandsReportUnreadableRecord(t *testing.T) {
	h := newTestHost(t)
	repo := activation.NewMemoryRepository()
	repo.ReadErr = errors.New("permission denied")
	h.repo = repo

	var out bytes.Buffer
	if got := runRecordCheck(context.Background(), h, &out, unit.Extension); got != 1 {
		t.Errorf("problems = %d, want 1\n%s", got, out.String())
	}
	if !strings.Contains(out.String(), "permission denied") {
		t.Errorf("output does not name the read error:\n%s", out.String())
	}
	if err := runRecordShow(context.Background(), h, &bytes.Buffer{}, unit.Extension, outputTable); err == nil {
		t.Error("runRecordShow succeeded on an unreadable record")
	}
}
