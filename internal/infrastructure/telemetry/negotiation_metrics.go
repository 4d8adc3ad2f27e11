package telemetry

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when NewNegotiationMetrics gets no meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// NegotiationMetrics records loan and quote action activity.
// A nil *NegotiationMetrics is valid and records nothing.
type NegotiationMetrics struct {
	transitions      *Counter
	confirmations    *Counter
	cacheLookups     *Counter
	upstreamDuration *Histogram
	watched          *Gauge
}

// NewNegotiationMetrics registers the negotiation instruments on meter.
func NewNegotiationMetrics(meter metric.Meter) (*NegotiationMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	transitions, err := NewCounter(meter, "negotiation_transitions_total", "Executed loan and quote actions", "{action}")
	if err != nil {
		return nil, err
	}
	confirmations, err := NewCounter(meter, "negotiation_confirmations_total", "Confirmation tokens issued for danger actions", "{token}")
	if err != nil {
		return nil, err
	}
	cacheLookups, err := NewCounter(meter, "negotiation_cache_lookups_total", "Response cache lookups", "{lookup}")
	if err != nil {
		return nil, err
	}
	upstreamDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "negotiation_upstream_duration_seconds",
		Description: "Latency of calls to the financing backend",
		Unit:        "s",
		Boundaries:  UpstreamDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	watched, err := NewGauge(meter, "negotiation_watched_entities", "Entities kept fresh by the poller", "{entity}")
	if err != nil {
		return nil, err
	}
	return &NegotiationMetrics{
		transitions:      transitions,
		confirmations:    confirmations,
		cacheLookups:     cacheLookups,
		upstreamDuration: upstreamDuration,
		watched:          watched,
	}, nil
}

// RecordTransition counts one executed action.
func (m *NegotiationMetrics) RecordTransition(ctx context.Context, kind, action, outcome string) {
	if m == nil {
		return
	}
	m.transitions.Inc(ctx, AttrEntityKind.String(kind), AttrAction.String(action), AttrOutcome.String(outcome))
}

// RecordConfirmationIssued counts one issued confirmation token.
func (m *NegotiationMetrics) RecordConfirmationIssued(ctx context.Context, kind, action string) {
	if m == nil {
		return
	}
	m.confirmations.Inc(ctx, AttrEntityKind.String(kind), AttrAction.String(action))
}

// RecordCacheLookup counts one response cache lookup.
func (m *NegotiationMetrics) RecordCacheLookup(ctx context.Context, scope string, hit bool) {
	if m == nil {
		return
	}
	m.cacheLookups.Inc(ctx, AttrCacheScope.String(scope), AttrCacheHit.Bool(hit))
}

// RecordUpstreamCall records the latency of one upstream request.
func (m *NegotiationMetrics) RecordUpstreamCall(ctx context.Context, operation string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamDuration.RecordDuration(ctx, d, AttrUpstreamOp.String(operation), AttrStatusCode.String(strconv.Itoa(status)))
}

// RecordWatched reports the current size of the watch set.
func (m *NegotiationMetrics) RecordWatched(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.watched.Record(ctx, int64(n))
}
