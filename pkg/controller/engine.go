package controller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/airepert/airepert/pkg/forecast"
	"github.com/airepert/airepert/pkg/log"
	"github.com/airepert/airepert/pkg/metrics"
	"github.com/airepert/airepert/pkg/types"
	"github.com/google/uuid"
)

// ForecastSource provides tomorrow's forecast.
type ForecastSource interface {
	GetForecast(ctx context.Context, now time.Time) (types.ForecastResult, error)
}

// AuditStore persists decision audit records.
type AuditStore interface {
	InsertAudit(ctx context.Context, rec types.AuditRecord) error
}

// Actuator pushes decisions to the relay board.
type Actuator interface {
	Publish(ctx context.Context, decisions []types.Decision) error
}

// Controller runs the dispatch decision for a set of loads.
type Controller struct {
	forecasts ForecastSource
	audit     AuditStore
	actuator  Actuator
	metrics   *metrics.Metrics
	newID     func() string

	publishTimeout time.Duration
}

// DefaultPublishTimeout bounds how long a dispatch waits on the actuator.
const DefaultPublishTimeout = 10 * time.Second

// NewController creates a new Controller. forecasts may be nil, in which case
// every decision is made without a forecast.
func NewController(forecasts ForecastSource, audit AuditStore) *Controller {
	return &Controller{
		forecasts: forecasts,
		audit:     audit,
		newID:     uuid.NewString,

		publishTimeout: DefaultPublishTimeout,
	}
}

// SetActuator attaches an actuator that receives every decision set.
func (c *Controller) SetActuator(a Actuator) {
	c.actuator = a
}

// SetMetrics attaches a metrics recorder.
func (c *Controller) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// Run computes the dispatch decision for loads in the current context. It
// never fails: forecast failures are absorbed and any other error or panic
// produces the fallback result that routes every load to the grid.
func (c *Controller) Run(ctx context.Context, loads []types.Load, cur types.Context, now time.Time) types.DispatchResult {
	res := c.runOrFallback(ctx, loads, cur, now)
	if res.Fallback {
		c.metrics.Fallback()
	} else {
		c.metrics.Decision(string(res.Strategy.Name))
	}
	c.publish(ctx, res.Decisions)
	return res
}

func (c *Controller) runOrFallback(ctx context.Context, loads []types.Load, cur types.Context, now time.Time) (res types.DispatchResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Ctx(ctx).ErrorContext(ctx, "panic while deciding dispatch", slog.Any("panic", r))
			res = c.fallback(ctx, loads, cur, now)
		}
	}()

	var err error
	res, err = c.run(ctx, loads, cur, now)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to decide dispatch", slog.Any("error", err))
		return c.fallback(ctx, loads, cur, now)
	}
	return res
}

func (c *Controller) run(ctx context.Context, loads []types.Load, cur types.Context, now time.Time) (types.DispatchResult, error) {
	fr, err := c.getForecast(ctx, now)
	if err != nil {
		return types.DispatchResult{}, err
	}

	ca := AnalyzeContext(cur, now)
	strategy, err := ScoreStrategy(ca, fr.Analysis)
	if err != nil {
		return types.DispatchResult{}, fmt.Errorf("failed to score strategy: %w", err)
	}

	decisions := Decide(loads, strategy)
	alert := AlertText(strategy, decisions)

	log.Ctx(ctx).InfoContext(
		ctx,
		"dispatch decided",
		slog.String("strategy", string(strategy.Name)),
		slog.Float64("score", strategy.Score),
		slog.String("production", string(ca.Production)),
		slog.String("battery", string(ca.Battery)),
		slog.String("period", string(ca.Period)),
		slog.String("forecastRisk", string(strategy.Factors.ForecastRisk)),
		slog.Int("loads", len(loads)),
	)

	rec := types.AuditRecord{
		ID:        c.newID(),
		Timestamp: now,
		Action:    "Stratégie: " + string(strategy.Name),
		Target:    fmt.Sprintf("Score: %.1f", strategy.Score),
		Reason:    fmt.Sprintf("Optimisation robuste avec %d charges", len(decisions)),
		ActorID:   types.AuditActorSystem,
	}
	c.persistAudit(ctx, rec)

	return types.DispatchResult{
		Timestamp:      now,
		Strategy:       strategy,
		Decisions:      decisions,
		AlertText:      alert,
		Context:        cur,
		Forecast:       fr.Analysis,
		ForecastSource: fr.Source,
		CallsRemaining: fr.CallsRemaining,
		Audit:          &rec,
	}, nil
}

// getForecast absorbs forecast failures into an empty result. Only errors
// outside of the forecast taxonomy are returned.
func (c *Controller) getForecast(ctx context.Context, now time.Time) (types.ForecastResult, error) {
	if c.forecasts == nil {
		return types.ForecastResult{Source: types.ForecastSourceNone}, nil
	}
	fr, err := c.forecasts.GetForecast(ctx, now)
	if err == nil {
		return fr, nil
	}
	if !forecast.IsForecastError(err) {
		return types.ForecastResult{}, fmt.Errorf("failed to get forecast: %w", err)
	}
	log.Ctx(ctx).WarnContext(ctx, "continuing without forecast", slog.Any("error", err))
	if fr.Source == "" {
		fr.Source = types.ForecastSourceNone
	}
	fr.Analysis = nil
	return fr, nil
}

// Decide maps every load to the action of its class under the strategy.
func Decide(loads []types.Load, s types.Strategy) []types.Decision {
	decisions := make([]types.Decision, 0, len(loads))
	for _, l := range loads {
		action := s.Priorities.ActionFor(l.Class)
		decisions = append(decisions, types.Decision{
			LoadID:      l.ID,
			LoadName:    l.Name,
			LoadClass:   l.Class,
			Action:      action,
			Reason:      fmt.Sprintf("Strategy %s - %s", s.Name, action),
			RatedPowerW: l.RatedPowerW,
		})
	}
	return decisions
}

// fallback routes every load to the grid. With no loads a single catch-all
// decision is returned so callers always get something to act on.
func (c *Controller) fallback(ctx context.Context, loads []types.Load, cur types.Context, now time.Time) types.DispatchResult {
	log.Ctx(ctx).WarnContext(ctx, "using fallback dispatch", slog.Int("loads", len(loads)))

	res := FallbackResult(loads, cur, now)

	rec := types.AuditRecord{
		Timestamp: now,
		Action:    "Stratégie: " + string(types.StrategyFallback),
		Target:    "Score: 0.0",
		Reason:    fmt.Sprintf("Mode secours avec %d charges", len(res.Decisions)),
		ActorID:   types.AuditActorSystem,
	}
	if id, ok := c.safeID(); ok {
		rec.ID = id
		c.persistAudit(ctx, rec)
		res.Audit = &rec
	}
	return res
}

// FallbackResult is the safe decision set. It depends only on its inputs and
// cannot fail.
func FallbackResult(loads []types.Load, cur types.Context, now time.Time) types.DispatchResult {
	policy := types.PriorityPolicy{
		Priority:     types.ActionGrid,
		SemiPriority: types.ActionGrid,
		NonPriority:  types.ActionGrid,
		BatteryMode:  types.BatteryChargeNormal,
	}
	decisions := make([]types.Decision, 0, max(1, len(loads)))
	for _, l := range loads {
		decisions = append(decisions, types.Decision{
			LoadID:      l.ID,
			LoadName:    l.Name,
			LoadClass:   l.Class,
			Action:      types.ActionGrid,
			Reason:      "Mode secours",
			RatedPowerW: l.RatedPowerW,
		})
	}
	if len(decisions) == 0 {
		decisions = append(decisions, types.Decision{
			Action: types.ActionGrid,
			Reason: "Mode secours",
		})
	}
	return types.DispatchResult{
		Timestamp: now,
		Strategy: types.Strategy{
			Name:       types.StrategyFallback,
			Score:      0,
			Priorities: policy,
		},
		Decisions:      decisions,
		AlertText:      fallbackAlert,
		Context:        cur,
		ForecastSource: types.ForecastSourceNone,
		Fallback:       true,
	}
}

func (c *Controller) safeID() (id string, ok bool) {
	defer func() {
		if recover() != nil {
			id, ok = "", false
		}
	}()
	return c.newID(), true
}

// persistAudit writes the audit record. Failures never change the result.
func (c *Controller) persistAudit(ctx context.Context, rec types.AuditRecord) {
	if c.audit == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Ctx(ctx).ErrorContext(ctx, "panic while persisting audit record", slog.Any("panic", r))
		}
	}()
	if err := c.audit.InsertAudit(ctx, rec); err != nil {
		log.Ctx(ctx).ErrorContext(
			ctx,
			"failed to persist audit record",
			slog.String("auditID", rec.ID),
			slog.Any("error", err),
		)
	}
}

func (c *Controller) publish(ctx context.Context, decisions []types.Decision) {
	if c.actuator == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.publishTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			log.Ctx(ctx).ErrorContext(ctx, "panic while publishing decisions", slog.Any("panic", r))
		}
	}()
	if err := c.actuator.Publish(ctx, decisions); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to publish decisions", slog.Any("error", err))
	}
}
