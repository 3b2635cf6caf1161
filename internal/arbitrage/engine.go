package arbitrage

import (
	"context"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"triarb/internal/catalog"
	"triarb/internal/config"
	"triarb/internal/metrics"
	"triarb/internal/model"
	"triarb/internal/triangle"
)

// State is the engine lifecycle. The only transition is ColdStart -> Running.
type State int32

const (
	StateColdStart State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "cold_start"
}

// Stats is a snapshot of the engine counters.
type Stats struct {
	State                State
	Triangles            int
	TrackedPairs         int
	QuotesProcessed      uint64
	UnknownQuotes        uint64
	TrianglesEvaluated   uint64
	OpportunitiesEmitted uint64
	OpportunitiesDropped uint64
}

// ColdStartReport describes the pair coverage at the end of cold start.
type ColdStartReport struct {
	Initialized   int
	Uninitialized []uint32
	TimedOut      bool
}

// Engine owns the quote cache and recomputes the triangles touched by every quote.
// Run is the only writer of the cache; all mutation happens on its goroutine.
type Engine struct {
	logger    *slog.Logger
	cfg       *config.Config
	catalog   *catalog.Catalog
	triangles []*triangle.Triangle
	index     *triangle.Index
	last      []Profit
	opps      chan model.Opportunity
	now       func() time.Time

	state                atomic.Int32
	quotesProcessed      atomic.Uint64
	unknownQuotes        atomic.Uint64
	trianglesEvaluated   atomic.Uint64
	opportunitiesEmitted atomic.Uint64
	opportunitiesDropped atomic.Uint64
}

// NewEngine creates an engine over derived triangles. The triangles and the index
// built from them are never modified afterwards.
func NewEngine(logger *slog.Logger, cfg *config.Config, cat *catalog.Catalog, tris []*triangle.Triangle) *Engine {
	e := &Engine{
		logger:    logger,
		cfg:       cfg,
		catalog:   cat,
		triangles: tris,
		index:     triangle.NewIndex(tris),
		last:      make([]Profit, len(tris)),
		opps:      make(chan model.Opportunity, cfg.Arbitrage.OpportunityBuffer),
		now:       time.Now,
	}
	metrics.Triangles.Set(float64(len(tris)))
	metrics.TrackedPairs.Set(float64(e.index.Len()))
	return e
}

// Opportunities returns the channel profitable opportunities are emitted on.
func (e *Engine) Opportunities() <-chan model.Opportunity {
	return e.opps
}

// State returns the current lifecycle state. Safe for concurrent use.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Stats returns the current counters. Safe for concurrent use.
func (e *Engine) Stats() Stats {
	return Stats{
		State:                e.State(),
		Triangles:            len(e.triangles),
		TrackedPairs:         e.index.Len(),
		QuotesProcessed:      e.quotesProcessed.Load(),
		UnknownQuotes:        e.unknownQuotes.Load(),
		TrianglesEvaluated:   e.trianglesEvaluated.Load(),
		OpportunitiesEmitted: e.opportunitiesEmitted.Load(),
		OpportunitiesDropped: e.opportunitiesDropped.Load(),
	}
}

// TrackedPairIDs returns the ids of the pairs referenced by at least one triangle.
func (e *Engine) TrackedPairIDs() []uint32 {
	return e.index.PairIDs()
}

// LastProfit returns the most recent evaluation of a triangle. It must be called
// from the goroutine running the engine or after Run has returned.
func (e *Engine) LastProfit(triangleID int) Profit {
	if triangleID < 0 || triangleID >= len(e.last) {
		return Profit{}
	}
	return e.last[triangleID]
}

// Run consumes quote events in order until ctx is cancelled or events is closed.
// It first waits for every tracked pair to be quoted, or for the cold-start
// timeout, then recomputes affected triangles on every event.
func (e *Engine) Run(ctx context.Context, events <-chan model.QuoteEvent) {
	e.logger.Info("Engine: starting", "triangles", len(e.triangles), "trackedPairs", e.index.Len(),
		"coldStartTimeout", e.cfg.Arbitrage.ColdStartTimeout())

	report, open := e.coldStart(ctx, events)
	if ctx.Err() != nil {
		e.logger.Info("Engine: context cancelled during cold start")
		return
	}
	e.finishColdStart(report)
	if !open {
		e.logger.Info("Engine: quote feed closed")
		return
	}

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Engine: context cancelled, shutting down")
			return
		case ev, ok := <-events:
			if !ok {
				e.logger.Info("Engine: quote feed closed")
				return
			}
			e.ProcessQuote(ev.Quote)
		}
	}
}

// coldStart stores incoming quotes without evaluating triangles until every
// tracked pair has been seen or the deadline passes. It reports false when the
// feed closed.
func (e *Engine) coldStart(ctx context.Context, events <-chan model.QuoteEvent) (ColdStartReport, bool) {
	pending := make(map[uint32]struct{}, e.index.Len())
	for _, id := range e.index.PairIDs() {
		if !e.catalog.Quote(id).Ready() {
			pending[id] = struct{}{}
		}
	}
	total := e.index.Len()
	timeout := e.cfg.Arbitrage.ColdStartTimeout()

	report := func(timedOut bool) ColdStartReport {
		missing := make([]uint32, 0, len(pending))
		for id := range pending {
			missing = append(missing, id)
		}
		slices.Sort(missing)
		return ColdStartReport{Initialized: total - len(missing), Uninitialized: missing, TimedOut: timedOut}
	}

	if len(pending) == 0 {
		return report(false), true
	}
	if timeout <= 0 {
		return report(true), true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for len(pending) > 0 {
		select {
		case <-ctx.Done():
			return report(false), true
		case <-timer.C:
			return report(true), true
		case ev, ok := <-events:
			if !ok {
				return report(false), false
			}
			if e.store(ev.Quote) {
				delete(pending, ev.PairID)
			}
		}
	}
	return report(false), true
}

func (e *Engine) finishColdStart(r ColdStartReport) {
	metrics.UninitializedPairs.Set(float64(len(r.Uninitialized)))
	if len(r.Uninitialized) > 0 {
		symbols := make([]string, 0, len(r.Uninitialized))
		for _, id := range r.Uninitialized {
			if p, ok := e.catalog.ByID(id); ok {
				symbols = append(symbols, p.Text())
			}
		}
		e.logger.Warn("Engine: cold start deadline reached with unquoted pairs",
			"initialized", r.Initialized, "uninitialized", len(r.Uninitialized), "pairs", symbols)
	} else {
		e.logger.Info("Engine: all tracked pairs quoted", "initialized", r.Initialized)
	}
	e.state.Store(int32(StateRunning))
	metrics.SetReady(true)
}

// store writes a quote into the pair cache.
func (e *Engine) store(q model.Quote) bool {
	if !e.catalog.SetQuote(q) {
		e.unknownQuotes.Add(1)
		metrics.UnknownQuotesTotal.Inc()
		return false
	}
	e.quotesProcessed.Add(1)
	metrics.QuotesTotal.Inc()
	return true
}

// ProcessQuote applies a quote and evaluates every triangle referencing its pair,
// using the current cached quotes of all three legs. The most profitable result is
// emitted when its ratio is positive and returned with ok set.
func (e *Engine) ProcessQuote(q model.Quote) (opp model.Opportunity, ok bool) {
	if !e.store(q) {
		return opp, false
	}

	var (
		best    Profit
		bestTri *triangle.Triangle
	)
	now := e.now()
	fee := e.cfg.Arbitrage.FeeMultiplier
	for _, tri := range e.index.Affected(q.PairID) {
		p := CalcProfit(tri,
			e.catalog.Quote(tri.Pairs[0]),
			e.catalog.Quote(tri.Pairs[1]),
			e.catalog.Quote(tri.Pairs[2]),
			fee, now)
		e.last[tri.ID] = p
		e.trianglesEvaluated.Add(1)
		metrics.TrianglesEvaluated.Inc()
		if p.Profit > best.Profit {
			best = p
			bestTri = tri
		}
	}
	if bestTri == nil || best.Ratio <= 0 {
		return opp, false
	}

	opp = e.opportunity(bestTri, best, q.PairID)
	e.emit(opp)
	return opp, true
}

func (e *Engine) opportunity(tri *triangle.Triangle, p Profit, trigger uint32) model.Opportunity {
	opp := model.Opportunity{
		Timestamp: p.Timestamp,
		Coin:      tri.Coin,
		Triangle:  tri.Name,
		Legs:      tri.Legs,
		Direction: p.Direction,
		Ratio:     p.Ratio,
		Amount:    p.Amount,
		Profit:    p.Profit,
		Quotes:    p.Quotes,
	}
	if tp, ok := e.catalog.ByID(trigger); ok {
		opp.TriggerPair = tp.Text()
	}
	spend, other := tri.Pairs[0], tri.Pairs[1]
	if p.Direction == model.Reverse {
		spend, other = other, spend
	}
	executable := p.Amount
	if sp, ok := e.catalog.ByID(spend); ok {
		opp.ProfitAsset = sp.Quote
		executable = sp.RoundToStep(executable)
	}
	if op, ok := e.catalog.ByID(other); ok {
		executable = op.RoundToStep(executable)
	}
	opp.ExecutableAmount = executable
	return opp
}

// emit never blocks the consumer; a full buffer drops the opportunity.
func (e *Engine) emit(opp model.Opportunity) {
	select {
	case e.opps <- opp:
		e.opportunitiesEmitted.Add(1)
		metrics.OpportunitiesTotal.Inc()
		metrics.OpportunityRatio.Observe(opp.Ratio * 10000)
		e.logger.Debug("Engine: opportunity emitted", "triangle", opp.Triangle, "ratio", opp.Ratio,
			"direction", opp.Direction.String())
	default:
		e.opportunitiesDropped.Add(1)
		metrics.OpportunitiesDropped.Inc()
		e.logger.Warn("Engine: opportunity buffer full, dropping", "triangle", opp.Triangle, "ratio", opp.Ratio)
	}
}
