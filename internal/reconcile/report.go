package reconcile

import (
	"fmt"
	"strings"

	"github.com/lotas/tabgruppen/internal/applog"
	"github.com/lotas/tabgruppen/internal/facility"
	"github.com/lotas/tabgruppen/internal/types"
)

// OpKind names a facility call issued during reconciliation.
type OpKind string

const (
	OpLookupTab   OpKind = "lookup-tab"
	OpLookupGroup OpKind = "lookup-group"
	OpUngroup     OpKind = "ungroup"
	OpCreate      OpKind = "create"
	OpAdd         OpKind = "add"
	OpUpdate      OpKind = "update"
)

// Outcome is the result class of a single operation.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeSkipped Outcome = "skipped" // target vanished
	OutcomeFailed  Outcome = "failed"  // aborted the run
)

// Op is one facility call and its outcome.
type Op struct {
	Kind    OpKind
	Group   string
	TabIDs  []types.TabID
	GroupID types.GroupID
	Outcome Outcome
	Err     error
}

// Report accumulates the operations of one reconciliation run.
type Report struct {
	Ops       []Op
	Created   int // groups created
	Added     int // tabs added to existing groups
	Ungrouped int
	Updated   int // groups retitled
	Skipped   int
	Targets   []types.GroupID
}

// fold records op with the outcome implied by err. It reports whether the
// operation succeeded, and returns err only when the run must stop.
func (r *Report) fold(op Op, err error) (bool, error) {
	switch {
	case err == nil:
		op.Outcome = OutcomeOK
		r.Ops = append(r.Ops, op)
		r.count(op)
		return true, nil
	case facility.IsNotFound(err):
		op.Outcome = OutcomeSkipped
		op.Err = err
		r.Ops = append(r.Ops, op)
		r.Skipped++
		applog.Warn("reconcile.skip", err, "op", op.Kind, "group", op.Group, "tabs", fmtIDs(op.TabIDs), "groupId", op.GroupID)
		return false, nil
	default:
		op.Outcome = OutcomeFailed
		op.Err = err
		r.Ops = append(r.Ops, op)
		return false, fmt.Errorf("%s: %w", op.Kind, err)
	}
}

func (r *Report) count(op Op) {
	switch op.Kind {
	case OpCreate:
		r.Created++
		r.Targets = append(r.Targets, op.GroupID)
	case OpAdd:
		r.Added += len(op.TabIDs)
	case OpUngroup:
		r.Ungrouped++
	case OpUpdate:
		r.Updated++
	}
}

// Mutations returns only the operations that changed browser state.
func (r *Report) Mutations() []Op {
	var out []Op
	for _, op := range r.Ops {
		switch op.Kind {
		case OpLookupTab, OpLookupGroup:
			continue
		}
		out = append(out, op)
	}
	return out
}

// Summary is a one-line human readable description of the run.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d created, %d tabs added, %d ungrouped, %d updated, %d skipped",
		r.Created, r.Added, r.Ungrouped, r.Updated, r.Skipped)
}

func fmtIDs(ids []types.TabID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(int(id))
	}
	return strings.Join(parts, ",")
}
