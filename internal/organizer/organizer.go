// Package organizer ties the selection model to the browser: it loads
// suggestions, applies the user's selection and re-reads the result.
package organizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lotas/tabgruppen/internal/applog"
	"github.com/lotas/tabgruppen/internal/facility"
	"github.com/lotas/tabgruppen/internal/grouping"
	"github.com/lotas/tabgruppen/internal/reconcile"
	"github.com/lotas/tabgruppen/internal/selection"
	"github.com/lotas/tabgruppen/internal/types"
)

// ErrNothingSelected is returned by Organize when no tab is selected.
var ErrNothingSelected = errors.New("organizer: no tabs selected")

// Run describes one finished organize attempt.
type Run struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Report     *reconcile.Report // nil if reconciliation never started
	Err        error
}

// Journal receives a record of every organize attempt.
type Journal interface {
	RecordRun(ctx context.Context, run Run) (int64, error)
}

// Session owns the selection model for one window.
type Session struct {
	fac     facility.Facility
	engine  *reconcile.Engine
	model   *selection.Model
	origin  string
	journal Journal
	engOpts []reconcile.Option
	now     func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithExtensionOrigin hides the extension's own pages from suggestions.
func WithExtensionOrigin(origin string) Option {
	return func(s *Session) { s.origin = origin }
}

// WithJournal records every organize attempt in j.
func WithJournal(j Journal) Option {
	return func(s *Session) { s.journal = j }
}

// WithEngineOptions passes options through to the reconcile engine.
func WithEngineOptions(opts ...reconcile.Option) Option {
	return func(s *Session) { s.engOpts = append(s.engOpts, opts...) }
}

// New returns a Session with an empty model. Call Load to populate it.
func New(fac facility.Facility, opts ...Option) *Session {
	s := &Session{
		fac:   fac,
		model: selection.New(nil),
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.engine = reconcile.New(fac, s.engOpts...)
	return s
}

// Model returns the live selection model.
func (s *Session) Model() *selection.Model { return s.model }

// Fetch lists the current window and builds fresh suggestions without
// touching the model.
func (s *Session) Fetch(ctx context.Context) ([]types.GroupSuggestion, error) {
	tabs, err := s.fac.ListTabs(ctx, facility.ScopeCurrentWindow)
	if err != nil {
		return nil, fmt.Errorf("list tabs: %w", err)
	}
	groups := grouping.Fresh(grouping.Filter(tabs, s.origin))
	applog.Info("organizer.fetch", "tabs", len(tabs), "suggestions", len(groups))
	return groups, nil
}

// Load replaces the model with fresh suggestions.
func (s *Session) Load(ctx context.Context) error {
	groups, err := s.Fetch(ctx)
	if err != nil {
		return err
	}
	s.model.Replace(groups)
	return nil
}

// ActiveTab returns the focused tab of the current window.
func (s *Session) ActiveTab(ctx context.Context) (types.TabID, error) {
	win, err := s.fac.CurrentWindow(ctx)
	if err != nil {
		return 0, fmt.Errorf("current window: %w", err)
	}
	tab, err := s.fac.ActiveTab(ctx, win)
	if err != nil {
		return 0, fmt.Errorf("active tab: %w", err)
	}
	return tab.ID, nil
}

// Apply reconciles groups against the browser and returns the resynced
// view. It never touches the model, so callers on another goroutine can
// hand the result back with Model().Replace.
func (s *Session) Apply(ctx context.Context, groups []types.GroupSuggestion) (*reconcile.Report, []types.GroupSuggestion, error) {
	started := s.now()
	applog.Info("organize.start", "groups", len(groups))

	report, err := s.engine.Reconcile(ctx, groups)
	var view []types.GroupSuggestion
	if err == nil {
		view, err = Resync(ctx, s.fac, s.origin)
	}
	s.record(ctx, Run{StartedAt: started, FinishedAt: s.now(), Report: report, Err: err})
	if err != nil {
		applog.Error("organize.failed", err)
		return report, nil, err
	}
	applog.Info("organize.done", "summary", report.Summary(), "suggestions", len(view))
	return report, view, nil
}

// Organize applies the model's selection and, on success, replaces the
// model with the resynced view. On failure the model is left unchanged.
func (s *Session) Organize(ctx context.Context) (*reconcile.Report, error) {
	if !s.model.HasAnySelected() {
		return nil, ErrNothingSelected
	}
	report, view, err := s.Apply(ctx, s.model.Groups())
	if err != nil {
		return report, err
	}
	s.model.Replace(view)
	return report, nil
}

func (s *Session) record(ctx context.Context, run Run) {
	if s.journal == nil {
		return
	}
	if _, err := s.journal.RecordRun(ctx, run); err != nil {
		applog.Error("organize.journal", err)
	}
}
