package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/stablewatch/velocity-monitor/internal/config"
	"github.com/stablewatch/velocity-monitor/internal/metrics"
)

const (
	fetchConcurrency = 4

	// Stored velocity stats are pruned at most once per interval; every
	// cycle in between skips the delete.
	cleanupInterval = 24 * time.Hour
)

// AlertFunc sends a message to a Telegram chat.
type AlertFunc func(chatID int64, message string) error

// SupplySource provides a token's off-chain supply and price reading.
type SupplySource interface {
	Name() string
	FetchSupply(ctx context.Context, tok config.Token) (supply, price float64, err error)
}

// ChainSource provides a token's on-chain transfer activity for the trailing
// velocity window.
type ChainSource interface {
	Name() string
	FetchActivity(ctx context.Context, tok config.Token) (ChainActivity, error)
}

// Store is the subset of the persistence layer the engine writes through.
type Store interface {
	InsertObservations(ctx context.Context, obs []SupplyObservation) error
	InsertVelocityStat(ctx context.Context, token string, ts time.Time, m VelocityMetric) error
	InsertFlaggedChanges(ctx context.Context, changes []FlaggedChange) error
	GetSubscriberChatIDs(ctx context.Context, eventName string) ([]int64, error)
	CleanupOldVelocityStats(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Dedup suppresses repeat alerts for the same condition.
type Dedup interface {
	AlreadySent(ctx context.Context, key string) bool
	Record(ctx context.Context, key string, ttl time.Duration)
	Clear(ctx context.Context, key string)
	ClearByPattern(ctx context.Context, pattern string)
}

// Publisher writes the per-cycle report to its output formats.
type Publisher interface {
	Publish(ctx context.Context, r *Report) error
}

// EngineOpts wires the engine's collaborators. Store, Dedup, Publisher and
// Alert may be nil; the engine then skips the corresponding step.
type EngineOpts struct {
	Tokens    []config.Token
	Supply    SupplySource
	Chain     ChainSource
	Store     Store
	Dedup     Dedup
	Publisher Publisher
	Alert     AlertFunc
	Logger    *slog.Logger
	Config    config.Config
}

// Engine runs the poll loop: fetch every token's supply and activity, compute
// changes and velocity, persist, alert, and publish a report snapshot.
type Engine struct {
	tokens    []config.Token
	supply    SupplySource
	chain     ChainSource
	store     Store
	dedup     Dedup
	publisher Publisher
	alertFn   AlertFunc
	logger    *slog.Logger
	cfg       config.Config

	fill *FillState

	// history holds each token's observations over the trailing velocity
	// window for the per-window supply-change breakdown. Only touched from
	// RunCycle, which never runs concurrently with itself.
	history     map[string][]SupplyObservation
	lastCleanup time.Time

	mu         sync.RWMutex
	lastReport *Report
}

func NewEngine(opts EngineOpts) *Engine {
	return &Engine{
		tokens:    opts.Tokens,
		supply:    opts.Supply,
		chain:     opts.Chain,
		store:     opts.Store,
		dedup:     opts.Dedup,
		publisher: opts.Publisher,
		alertFn:   opts.Alert,
		logger:    opts.Logger,
		cfg:       opts.Config,
		fill:      NewFillState(),
		history:   make(map[string][]SupplyObservation),
	}
}

// LatestReport returns the snapshot from the most recent completed cycle, or
// nil before the first cycle finishes.
func (e *Engine) LatestReport() *Report {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastReport
}

// Tokens returns the configured token symbols in order.
func (e *Engine) Tokens() []string {
	syms := make([]string, len(e.tokens))
	for i, t := range e.tokens {
		syms[i] = t.Symbol
	}
	return syms
}

// Run polls on the configured interval until the context is cancelled. The
// first cycle starts immediately.
func (e *Engine) Run(ctx context.Context) {
	if err := e.RunCycle(ctx); err != nil {
		e.logger.Error("poll cycle failed", "error", err)
	}

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.RunCycle(ctx); err != nil {
				e.logger.Error("poll cycle failed", "error", err)
			}
		}
	}
}

type tokenResult struct {
	obs      SupplyObservation
	velocity VelocityMetric
	ok       bool
}

// RunCycle executes one poll cycle. Per-token fetch failures degrade to
// forward-filled observations; only a report publish failure fails the cycle.
func (e *Engine) RunCycle(ctx context.Context) error {
	start := time.Now()
	cycleID := uuid.NewString()
	e.logger.Info("poll cycle starting", "cycle_id", cycleID, "tokens", len(e.tokens))

	results := make([]tokenResult, len(e.tokens))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, tok := range e.tokens {
		i, tok := i, tok
		g.Go(func() error {
			results[i] = e.fetchToken(gctx, tok)
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{
		CycleID:     cycleID,
		GeneratedAt: start,
		ByToken:     make(map[string]TokenReport, len(e.tokens)),
	}
	var observations []SupplyObservation
	for i, tok := range e.tokens {
		res := results[i]
		if !res.ok {
			continue
		}
		report.Tokens = append(report.Tokens, tok.Symbol)
		series := e.recordHistory(tok.Symbol, res.obs)
		report.ByToken[tok.Symbol] = TokenReport{
			Supply:   res.obs,
			Velocity: res.velocity,
			Windows:  GroupByWindow(series, e.cfg.ReportWindow),
		}
		observations = append(observations, res.obs)

		metrics.TokenSupply.WithLabelValues(tok.Symbol).Set(res.obs.Supply)
		metrics.TokenPrice.WithLabelValues(tok.Symbol).Set(res.obs.Price)
		metrics.TokenVelocityRatio.WithLabelValues(tok.Symbol).Set(res.velocity.Ratio)
	}

	report.Flagged = DetectChanges(observations, e.cfg.ChangeThresholdPct)
	for _, c := range report.Flagged {
		metrics.FlaggedChangesTotal.WithLabelValues(c.Token).Inc()
	}

	e.persist(ctx, report, observations)
	e.maybeCleanup(ctx)
	e.alert(ctx, report)

	e.mu.Lock()
	e.lastReport = report
	e.mu.Unlock()

	if e.publisher != nil {
		if err := e.publisher.Publish(ctx, report); err != nil {
			metrics.ReportWriteFailuresTotal.Inc()
			return fmt.Errorf("publish report: %w", err)
		}
	}

	metrics.CycleDuration.Observe(time.Since(start).Seconds())
	metrics.CycleLastSuccess.SetToCurrentTime()
	e.logger.Info("poll cycle complete",
		"cycle_id", cycleID,
		"tokens", len(report.Tokens),
		"flagged", len(report.Flagged),
		"duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// fetchToken collects one token's supply reading and chain activity. A failed
// supply fetch falls back to the last known value; a token that has never
// been fetched successfully is skipped for the cycle.
func (e *Engine) fetchToken(ctx context.Context, tok config.Token) tokenResult {
	now := time.Now()

	fetchStart := time.Now()
	supply, price, err := e.supply.FetchSupply(ctx, tok)
	metrics.FetchDuration.WithLabelValues(tok.Symbol, e.supply.Name()).Observe(time.Since(fetchStart).Seconds())

	var obs SupplyObservation
	if err != nil {
		metrics.FetchTotal.WithLabelValues(tok.Symbol, e.supply.Name(), "error").Inc()
		e.logger.Warn("supply fetch failed, forward-filling", "token", tok.Symbol, "error", err)

		filled, ok := e.fill.Fill(tok.Symbol, now)
		if !ok {
			e.logger.Warn("no prior observation to fill from, skipping token", "token", tok.Symbol)
			return tokenResult{}
		}
		metrics.ForwardFillsTotal.WithLabelValues(tok.Symbol).Inc()
		obs = filled
	} else {
		metrics.FetchTotal.WithLabelValues(tok.Symbol, e.supply.Name(), "ok").Inc()
		obs = e.fill.Observe(tok.Symbol, now, supply, price)
	}

	velocity := VelocityMetric{Supply: obs.Supply}
	if e.chain != nil && tok.Contract != "" {
		actStart := time.Now()
		act, err := e.chain.FetchActivity(ctx, tok)
		metrics.FetchDuration.WithLabelValues(tok.Symbol, e.chain.Name()).Observe(time.Since(actStart).Seconds())
		if err != nil {
			metrics.FetchTotal.WithLabelValues(tok.Symbol, e.chain.Name(), "error").Inc()
			e.logger.Warn("chain activity fetch failed", "token", tok.Symbol, "error", err)
		} else {
			metrics.FetchTotal.WithLabelValues(tok.Symbol, e.chain.Name(), "ok").Inc()
			velocity = ComputeVelocity(act.Transfers, act.Supply)
		}
	}

	return tokenResult{obs: obs, velocity: velocity, ok: true}
}

// persist writes the cycle's data through the store. Storage errors are
// logged but do not fail the cycle; the in-memory snapshot still serves.
func (e *Engine) persist(ctx context.Context, r *Report, observations []SupplyObservation) {
	if e.store == nil {
		return
	}
	if err := e.store.InsertObservations(ctx, observations); err != nil {
		e.logger.Error("store observations failed", "error", err)
	}
	for _, sym := range r.Tokens {
		tr := r.ByToken[sym]
		if err := e.store.InsertVelocityStat(ctx, sym, r.GeneratedAt, tr.Velocity); err != nil {
			e.logger.Error("store velocity stat failed", "token", sym, "error", err)
		}
	}
	if err := e.store.InsertFlaggedChanges(ctx, r.Flagged); err != nil {
		e.logger.Error("store flagged changes failed", "error", err)
	}
}

// recordHistory appends an observation to the token's in-memory series and
// drops entries that fell out of the trailing velocity window.
func (e *Engine) recordHistory(token string, obs SupplyObservation) []SupplyObservation {
	keep := e.cfg.VelocityWindow
	if keep <= 0 {
		keep = 24 * time.Hour
	}
	series := append(e.history[token], obs)
	cutoff := obs.Timestamp.Add(-keep)
	for len(series) > 0 && series[0].Timestamp.Before(cutoff) {
		series = series[1:]
	}
	e.history[token] = series
	return series
}

// maybeCleanup prunes stored velocity stats past their retention, at most
// once per cleanupInterval.
func (e *Engine) maybeCleanup(ctx context.Context) {
	if e.store == nil || e.cfg.StatsRetention <= 0 {
		return
	}
	if time.Since(e.lastCleanup) < cleanupInterval {
		return
	}
	e.lastCleanup = time.Now()
	n, err := e.store.CleanupOldVelocityStats(ctx, e.cfg.StatsRetention)
	if err != nil {
		e.logger.Error("velocity stats cleanup failed", "error", err)
		return
	}
	if n > 0 {
		e.logger.Info("pruned old velocity stats", "rows", n, "max_age", e.cfg.StatsRetention)
	}
}

func (e *Engine) alert(ctx context.Context, r *Report) {
	if e.alertFn == nil || e.store == nil {
		return
	}

	for _, c := range r.Flagged {
		key := fmt.Sprintf("alert:supply_change:%s:%d", c.Token, c.Timestamp.Unix())
		msg := fmt.Sprintf("🚨 %s SUPPLY ALERT\n\n"+
			"Supply changed by %+.4f%%\n"+
			"Current Supply: %s\n"+
			"Current Price:  $%.4f",
			strings.ToUpper(c.Token), c.ChangePct, formatNum(c.Supply), c.Price)
		e.sendAlert(ctx, c.Token, "supply_change", key, e.cfg.ReportWindow, msg)
	}

	for _, sym := range r.Tokens {
		tr := r.ByToken[sym]

		velocityKey := fmt.Sprintf("alert:velocity:%s", sym)
		if tr.Velocity.Ratio >= e.cfg.VelocityAlertRatio {
			msg := fmt.Sprintf("⚡ %s VELOCITY ALERT\n\n"+
				"24h velocity ratio hit %.4f (threshold %.4f)\n"+
				"Volume: %s across %d transfers",
				strings.ToUpper(sym), tr.Velocity.Ratio, e.cfg.VelocityAlertRatio,
				formatNum(tr.Velocity.Volume), tr.Velocity.TxCount)
			e.sendAlert(ctx, sym, "velocity", velocityKey, e.cfg.VelocityWindow, msg)
		} else if e.dedup != nil && tr.Velocity.TxCount > 0 {
			// Ratio dropped back under the threshold; the next breach alerts.
			e.dedup.Clear(ctx, velocityKey)
		}

		if peg := e.pegValue(sym); peg > 0 && tr.Supply.Price > 0 {
			devPct := (tr.Supply.Price - peg) / peg * 100
			direction := "below"
			if devPct > 0 {
				direction = "above"
			}
			if math.Abs(devPct) >= e.cfg.DepegThresholdPct {
				// Keyed per direction so a flip from above-peg to
				// below-peg alerts again without waiting out the TTL.
				key := fmt.Sprintf("alert:depeg:%s:%s", sym, direction)
				msg := fmt.Sprintf("📉 %s DEPEG ALERT\n\n"+
					"Price $%.4f is %+.2f%% off its %.2f peg",
					strings.ToUpper(sym), tr.Supply.Price, devPct, peg)
				e.sendAlert(ctx, sym, "depeg", key, e.cfg.ReportWindow, msg)
			} else if e.dedup != nil {
				// Price is back inside the band; both directions may fire again.
				e.dedup.ClearByPattern(ctx, fmt.Sprintf("alert:depeg:%s:*", sym))
			}
		}
	}
}

func (e *Engine) sendAlert(ctx context.Context, token, kind, dedupKey string, ttl time.Duration, msg string) {
	if e.dedup != nil && e.dedup.AlreadySent(ctx, dedupKey) {
		metrics.AlertsDeduplicatedTotal.WithLabelValues(token, kind).Inc()
		return
	}

	eventName := token + "_" + kind
	chatIDs, err := e.store.GetSubscriberChatIDs(ctx, eventName)
	if err != nil {
		e.logger.Error("get subscribers failed", "event", eventName, "error", err)
		return
	}
	if len(chatIDs) == 0 {
		return
	}

	sent := false
	for _, chatID := range chatIDs {
		if err := e.alertFn(chatID, msg); err != nil {
			metrics.AlertsFailedTotal.WithLabelValues(token, kind).Inc()
			e.logger.Error("send alert failed", "chat_id", chatID, "event", eventName, "error", err)
			continue
		}
		sent = true
		metrics.AlertsSentTotal.WithLabelValues(token, kind).Inc()
	}
	if sent && e.dedup != nil {
		e.dedup.Record(ctx, dedupKey, ttl)
	}
}

func (e *Engine) pegValue(symbol string) float64 {
	for _, t := range e.tokens {
		if t.Symbol == symbol {
			return t.PegValue
		}
	}
	return 0
}

func formatNum(v float64) string {
	if v >= 1_000_000 {
		return fmt.Sprintf("%.2fM", v/1_000_000)
	}
	return fmt.Sprintf("%.2f", math.Round(v*100)/100)
}
