package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dorkroom/pkg/domain"
)

// AdmissionOutcome is the terminal state of an admission.
type AdmissionOutcome string

const (
	// AdmissionAccepted means the record passed every hard check.
	AdmissionAccepted AdmissionOutcome = "accepted"
	// AdmissionRejected means at least one hard check failed.
	AdmissionRejected AdmissionOutcome = "rejected"
	// AdmissionHeld means a commit carried near-duplicate warnings that were
	// not acknowledged.
	AdmissionHeld AdmissionOutcome = "held"
)

const maxIDAttempts = 8

// AdmitOptions controls an admission.
type AdmitOptions struct {
	// DryRun performs every check and returns the would-be record without
	// producing a new snapshot.
	DryRun bool
	// AcknowledgeWarnings lets a commit proceed despite near-duplicate
	// warnings.
	AcknowledgeWarnings bool
}

// AdmissionResult describes the outcome of an admission. Record holds the
// typed Film, Developer, Combination or Format with its assigned id. Snapshot
// is the new snapshot after a commit and the unchanged current snapshot
// otherwise.
type AdmissionResult struct {
	Outcome  AdmissionOutcome `json:"outcome"`
	Kind     EntityKind       `json:"kind"`
	Action   Action           `json:"action,omitempty"`
	ID       string           `json:"id,omitempty"`
	Record   any              `json:"record,omitempty"`
	DryRun   bool             `json:"dry_run"`
	Result   Result           `json:"result"`
	Snapshot *Snapshot        `json:"-"`
}

// Warnings returns the soft findings attached to the admission.
func (r AdmissionResult) Warnings() []Violation { return r.Result.Warnings() }

// commitFunc durably writes a snapshot before it becomes visible.
type commitFunc func(ctx context.Context, next *Snapshot) error

// Admit validates a candidate against the active snapshot and, unless
// opts.DryRun is set, publishes the resulting snapshot. Hard failures return
// a RejectionError carrying every violation; an unacknowledged
// near-duplicate on commit returns ErrHeld. In both cases the returned
// result is still populated.
func (e *Engine) Admit(ctx context.Context, cand Candidate, opts AdmitOptions) (AdmissionResult, error) {
	return e.admit(ctx, cand, opts, nil)
}

func (e *Engine) admit(ctx context.Context, cand Candidate, opts AdmitOptions, persist commitFunc) (res AdmissionResult, err error) {
	defer e.observe(ctx, opAdmit)(&err)
	mu, ok := e.kindMu[cand.Kind]
	if !ok {
		return AdmissionResult{Outcome: AdmissionRejected, Kind: cand.Kind, DryRun: opts.DryRun}, fmt.Errorf("%w: %q", ErrUnknownKind, cand.Kind)
	}
	mu.Lock()
	defer mu.Unlock()
	defer func() {
		if res.Outcome != "" {
			e.recordAdmission(res, err)
		}
	}()

	for {
		st, err := e.current()
		if err != nil {
			return AdmissionResult{}, err
		}
		res, next, err := e.evaluate(ctx, st, cand, opts)
		if err != nil || next == nil {
			return res, err
		}

		e.swapMu.Lock()
		if e.state.Load() != st {
			// Another kind committed while this one was validating.
			e.swapMu.Unlock()
			continue
		}
		err = e.commit(ctx, next, persist)
		e.swapMu.Unlock()
		if err != nil {
			res.Outcome = AdmissionRejected
			res.Snapshot = st.snapshot
			return res, err
		}
		return res, nil
	}
}

// commit indexes, persists and publishes next. Callers hold swapMu.
func (e *Engine) commit(ctx context.Context, next *Snapshot, persist commitFunc) error {
	idx, warnings, err := BuildIndexes(next, e.policy)
	if err != nil {
		return fmt.Errorf("index admitted snapshot: %w", err)
	}
	if persist != nil {
		if err := persist(ctx, next); err != nil {
			return fmt.Errorf("persist snapshot: %w", err)
		}
	}
	e.publish(next, idx, warnings)
	return nil
}

// evaluate runs the pipeline against st. next is non-nil only for an
// accepted commit.
func (e *Engine) evaluate(ctx context.Context, st *engineState, cand Candidate, opts AdmitOptions) (AdmissionResult, *Snapshot, error) {
	out := AdmissionResult{Kind: cand.Kind, DryRun: opts.DryRun, Snapshot: st.snapshot, Action: ActionCreate}

	record, schema, err := decodeCandidate(cand)
	if err != nil {
		out.Outcome = AdmissionRejected
		return out, nil, err
	}
	out.Result.Violations = schema

	var before any
	if cand.ID != "" {
		pos := positionOf(st.snapshot, cand.Kind, cand.ID)
		if pos < 0 {
			out.Result.Add(Violation{
				Rule:     ruleSchema,
				Code:     domain.CodeUnknownID,
				Severity: SeverityBlock,
				Message:  fmt.Sprintf("%s %s does not exist", cand.Kind, cand.ID),
				Entity:   cand.Kind,
				EntityID: cand.ID,
				Field:    "id",
			})
		} else {
			out.Action = ActionUpdate
			before = recordAt(st.snapshot, cand.Kind, pos)
		}
	}
	if out.Result.HasBlocking() {
		out.Outcome = AdmissionRejected
		return out, nil, RejectionError{Result: out.Result}
	}

	id := cand.ID
	if out.Action == ActionCreate {
		if id, err = e.newID(st.snapshot, cand.Kind); err != nil {
			out.Outcome = AdmissionRejected
			return out, nil, err
		}
		if f, ok := record.(Film); ok && f.DateAdded == "" {
			f.DateAdded = e.nowFn().Format(time.RFC3339)
			record = f
		}
	}
	record = withID(record, id)
	out.ID, out.Record = id, record

	change := Change{Entity: cand.Kind, Action: out.Action, Before: before, After: record}
	ruleRes, err := e.rules.Evaluate(ctx, st.idx, []Change{change})
	if err != nil {
		out.Outcome = AdmissionRejected
		return out, nil, fmt.Errorf("evaluate rules: %w", err)
	}
	out.Result.Merge(ruleRes)

	switch {
	case out.Result.HasBlocking():
		out.Outcome = AdmissionRejected
		return out, nil, RejectionError{Result: out.Result}
	case !opts.DryRun && !opts.AcknowledgeWarnings && out.Result.Has(domain.CodeNearDuplicate):
		out.Outcome = AdmissionHeld
		return out, nil, ErrHeld{Result: out.Result}
	}
	out.Outcome = AdmissionAccepted
	if opts.DryRun {
		return out, nil, nil
	}
	next := applyChange(st.snapshot, change)
	out.Snapshot = next
	return out, next, nil
}

func (e *Engine) newID(snap *Snapshot, kind EntityKind) (string, error) {
	for range maxIDAttempts {
		id := e.idFn()
		if id != "" && positionOf(snap, kind, id) < 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("allocate %s id: %d attempts collided", kind, maxIDAttempts)
}

func (e *Engine) recordAdmission(res AdmissionResult, err error) {
	e.metrics.RecordAdmission(res.Kind, res.Outcome)
	evt := e.logger.Info()
	if res.Outcome == AdmissionRejected {
		evt = e.logger.Warn()
	}
	var (
		rejection RejectionError
		held      ErrHeld
	)
	if err != nil && !errors.As(err, &rejection) && !errors.As(err, &held) {
		evt = e.logger.Error().Err(err)
	}
	evt.Str("kind", string(res.Kind)).
		Str("id", res.ID).
		Str("action", string(res.Action)).
		Str("outcome", string(res.Outcome)).
		Bool("dry_run", res.DryRun).
		Int("violations", len(res.Result.Blocking())).
		Int("warnings", len(res.Result.Warnings())).
		Msg("admission evaluated")
}

// positionOf returns the collection index of id, or -1.
func positionOf(snap *Snapshot, kind EntityKind, id string) int {
	switch kind {
	case EntityFilm:
		for i, f := range snap.Films {
			if f.ID == id {
				return i
			}
		}
	case EntityDeveloper:
		for i, d := range snap.Developers {
			if d.ID == id {
				return i
			}
		}
	case EntityCombination:
		for i, c := range snap.Combinations {
			if c.ID == id {
				return i
			}
		}
	case EntityFormat:
		for i, f := range snap.Formats {
			if f.ID == id {
				return i
			}
		}
	}
	return -1
}

func recordAt(snap *Snapshot, kind EntityKind, pos int) any {
	switch kind {
	case EntityFilm:
		return snap.Films[pos]
	case EntityDeveloper:
		return snap.Developers[pos]
	case EntityCombination:
		return snap.Combinations[pos]
	case EntityFormat:
		return snap.Formats[pos]
	}
	return nil
}

// applyChange returns a new snapshot with change applied. Only the affected
// collection is copied; records are values and never mutated in place.
func applyChange(snap *Snapshot, change Change) *Snapshot {
	next := *snap
	switch rec := change.After.(type) {
	case Film:
		next.Films = upsert(snap.Films, rec, change.Action, func(f Film) string { return f.ID })
	case Developer:
		next.Developers = upsert(snap.Developers, rec, change.Action, func(d Developer) string { return d.ID })
	case Combination:
		next.Combinations = upsert(snap.Combinations, rec, change.Action, func(c Combination) string { return c.ID })
	case Format:
		next.Formats = upsert(snap.Formats, rec, change.Action, func(f Format) string { return f.ID })
	}
	return &next
}

func upsert[T any](items []T, rec T, action Action, id func(T) string) []T {
	out := make([]T, len(items), len(items)+1)
	copy(out, items)
	if action == ActionUpdate {
		for i := range out {
			if id(out[i]) == id(rec) {
				out[i] = rec
				return out
			}
		}
	}
	return append(out, rec)
}
