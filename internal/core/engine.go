package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dorkroom/internal/similarity"
)

// Defaults applied when no option overrides them.
const (
	DefaultLimit                  = 10
	DefaultNearDuplicateThreshold = 92.0
	DefaultPushPullTolerance      = 0.25
)

const opLoad = "load"

// Engine is the in-memory data engine. Its lifecycle is constructed → Load →
// ready; queries issued before the first successful Load return ErrNotLoaded.
// Loaded state is immutable and published atomically, so queries never need
// a lock.
type Engine struct {
	state atomic.Pointer[engineState]

	scorer            similarity.Scorer
	policy            IndexPolicy
	limit             int
	nearDupThreshold  float64
	pushPullTolerance float64
	rules             *RulesEngine
	metrics           MetricsRecorder
	logger            zerolog.Logger
	idFn              func() string
	nowFn             func() time.Time

	kindMu map[EntityKind]*sync.Mutex
	swapMu sync.Mutex
}

type engineState struct {
	snapshot *Snapshot
	idx      *Indexes
	warnings []Violation
	loadedAt time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithThreshold sets the fuzzy search threshold.
func WithThreshold(t float64) Option { return func(e *Engine) { e.scorer = similarity.New(t) } }

// WithIndexPolicy sets how dangling combinations are treated at load.
func WithIndexPolicy(p IndexPolicy) Option { return func(e *Engine) { e.policy = p } }

// WithDefaultLimit sets the fuzzy search limit used when callers pass zero.
func WithDefaultLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.limit = n
		}
	}
}

// WithNearDuplicateThreshold sets the score at which admissions warn about
// near-duplicates.
func WithNearDuplicateThreshold(t float64) Option {
	return func(e *Engine) {
		if t > 0 {
			e.nearDupThreshold = t
		}
	}
}

// WithPushPullTolerance sets the allowed stop difference for the push/pull check.
func WithPushPullTolerance(t float64) Option {
	return func(e *Engine) {
		if t >= 0 {
			e.pushPullTolerance = t
		}
	}
}

// WithRulesEngine replaces the default admission rules.
func WithRulesEngine(r *RulesEngine) Option {
	return func(e *Engine) {
		if r != nil {
			e.rules = r
		}
	}
}

// WithIDGenerator replaces the identifier source used for new records.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.idFn = fn
		}
	}
}

// WithClock replaces the engine clock.
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) {
		if fn != nil {
			e.nowFn = fn
		}
	}
}

// NewEngine constructs an unloaded engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		scorer:            similarity.New(similarity.DefaultThreshold),
		policy:            PolicyExclude,
		limit:             DefaultLimit,
		nearDupThreshold:  DefaultNearDuplicateThreshold,
		pushPullTolerance: DefaultPushPullTolerance,
		metrics:           noopMetrics{},
		logger:            zerolog.Nop(),
		idFn:              uuid.NewString,
		nowFn:             func() time.Time { return time.Now().UTC() },
		kindMu: map[EntityKind]*sync.Mutex{
			EntityFilm:        {},
			EntityDeveloper:   {},
			EntityCombination: {},
			EntityFormat:      {},
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rules == nil {
		e.rules = NewDefaultRulesEngine(e.nearDupThreshold, e.pushPullTolerance)
	}
	return e
}

// Load builds indexes from snap and makes it the active state. The snapshot
// must be fully materialized; it is not copied, so callers must not modify it
// afterwards. Integrity violations are returned as warnings unless the
// engine's policy is PolicyStrict, in which case the load fails and the
// previous state stays active.
func (e *Engine) Load(ctx context.Context, snap *Snapshot) ([]Violation, error) {
	done := e.observe(ctx, opLoad)
	if snap == nil {
		snap = &Snapshot{}
	}
	idx, warnings, err := BuildIndexes(snap, e.policy)
	done(&err)
	if err != nil {
		e.logger.Error().Err(err).Int("violations", len(warnings)).Msg("snapshot rejected")
		return warnings, err
	}
	e.swapMu.Lock()
	e.publish(snap, idx, warnings)
	e.swapMu.Unlock()
	return warnings, nil
}

// publish swaps in a new state. Callers hold swapMu.
func (e *Engine) publish(snap *Snapshot, idx *Indexes, warnings []Violation) {
	e.state.Store(&engineState{snapshot: snap, idx: idx, warnings: warnings, loadedAt: e.nowFn()})
	counts := snap.Counts()
	e.metrics.RecordLoad(counts, len(warnings))
	evt := e.logger.Info().
		Int("films", counts[EntityFilm]).
		Int("developers", counts[EntityDeveloper]).
		Int("combinations", counts[EntityCombination]).
		Int("formats", counts[EntityFormat]).
		Int("warnings", len(warnings))
	evt.Msg("snapshot loaded")
	for _, w := range warnings {
		e.logger.Warn().Str("code", string(w.Code)).Str("entity", string(w.Entity)).Str("id", w.EntityID).Msg(w.Message)
	}
}

// Loaded reports whether a snapshot has been loaded.
func (e *Engine) Loaded() bool { return e.state.Load() != nil }

func (e *Engine) current() (*engineState, error) {
	st := e.state.Load()
	if st == nil {
		return nil, ErrNotLoaded
	}
	return st, nil
}

// Snapshot returns the active snapshot. Callers must treat it as read-only.
func (e *Engine) Snapshot() (*Snapshot, error) {
	st, err := e.current()
	if err != nil {
		return nil, err
	}
	return st.snapshot, nil
}

// Warnings returns the integrity warnings reported by the active load.
func (e *Engine) Warnings() ([]Violation, error) {
	st, err := e.current()
	if err != nil {
		return nil, err
	}
	return append([]Violation(nil), st.warnings...), nil
}

// Stats summarizes the active state.
type Stats struct {
	Counts   map[EntityKind]int `json:"counts"`
	Warnings int                `json:"warnings"`
	LoadedAt time.Time          `json:"loaded_at"`
}

// Stats returns record counts and load metadata.
func (e *Engine) Stats() (Stats, error) {
	st, err := e.current()
	if err != nil {
		return Stats{}, err
	}
	return Stats{Counts: st.snapshot.Counts(), Warnings: len(st.warnings), LoadedAt: st.loadedAt}, nil
}

// DefaultLimit returns the fuzzy search limit applied when callers pass zero.
func (e *Engine) DefaultLimit() int { return e.limit }

// observe starts timing op; call the returned func with the operation's
// error when it completes.
func (e *Engine) observe(ctx context.Context, op string) func(*error) {
	start := time.Now()
	return func(errp *error) {
		e.metrics.Observe(ctx, op, errp == nil || *errp == nil, time.Since(start))
	}
}
