package lifecycle

import (
	"github.com/agentx-labs/unithost/internal/activation"
	"github.com/agentx-labs/unithost/internal/reconcile"
	"github.com/agentx-labs/unithost/internal/unit"
)

// CategoryReport describes what a run did for one category.
type CategoryReport struct {
	Category unit.Category

	// Allowed lists allow-listed keys initialized in the init pass, in
	// registry order. MissingAllowed lists allow-listed keys with no unit.
	Allowed        []string
	MissingAllowed []string

	ReconcileDisabled bool
	// Reconciled is nil when reconciliation was disabled.
	Reconciled *reconcile.Result

	// Active is the merged active set: allow-listed keys in config order,
	// then reconciled keys. Values are activation timestamps, empty for keys
	// that are only allow-listed.
	Active activation.Entries

	AfterInitialized []string
	// Skipped lists active keys that no longer resolve to a unit.
	Skipped []string
}

// Report is the outcome of a run.
type Report struct {
	Categories []*CategoryReport
}

// For returns the report for c, or nil.
func (r *Report) For(c unit.Category) *CategoryReport {
	if r == nil {
		return nil
	}
	for _, cr := range r.Categories {
		if cr.Category == c {
			return cr
		}
	}
	return nil
}
