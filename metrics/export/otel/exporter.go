package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// MetricsSource is satisfied by *authcore.Engine.
type MetricsSource interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

const (
	instIssue     = "authcore.token.issue"
	instValidate  = "authcore.token.validate"
	instRefresh   = "authcore.token.refresh"
	instRevoke    = "authcore.token.revoke"
	instLogin     = "authcore.login"
	instExistence = "authcore.existence_cache.lookup"
	instRetry     = "authcore.store.retry"

	instLatencyBucket = "authcore.token.validate.duration.bucket"
	instLatencyCount  = "authcore.token.validate.duration.count"
	instAuditDropped  = "authcore.audit.dropped"
)

var descriptions = map[string]string{
	instIssue:     "Token pair issuances by outcome.",
	instValidate:  "Token validations by outcome.",
	instRefresh:   "Refresh exchanges by outcome.",
	instRevoke:    "Revocations by outcome.",
	instLogin:     "Password logins by outcome.",
	instExistence: "Existence cache lookups by result.",
	instRetry:     "Store calls retried after a failure.",
}

// series maps one engine counter onto an instrument and an optional attribute.
type series struct {
	id         authcore.MetricID
	instrument string
	key        string
	value      string
}

var counterSeries = []series{
	{authcore.MetricIssueSuccess, instIssue, "outcome", "success"},
	{authcore.MetricIssueFailure, instIssue, "outcome", "failure"},
	{authcore.MetricValidateSuccess, instValidate, "outcome", "success"},
	{authcore.MetricValidateExpired, instValidate, "outcome", "expired"},
	{authcore.MetricValidateMalformed, instValidate, "outcome", "malformed"},
	{authcore.MetricValidateRevoked, instValidate, "outcome", "revoked"},
	{authcore.MetricValidatePrincipalNotFound, instValidate, "outcome", "principal_not_found"},
	{authcore.MetricValidatePrincipalInactive, instValidate, "outcome", "principal_inactive"},
	{authcore.MetricValidateTypeMismatch, instValidate, "outcome", "type_mismatch"},
	{authcore.MetricValidateStoreUnavailable, instValidate, "outcome", "store_unavailable"},
	{authcore.MetricRefreshSuccess, instRefresh, "outcome", "success"},
	{authcore.MetricRefreshFailure, instRefresh, "outcome", "failure"},
	{authcore.MetricRevokeSuccess, instRevoke, "outcome", "success"},
	{authcore.MetricRevokeFailure, instRevoke, "outcome", "failure"},
	{authcore.MetricLoginSuccess, instLogin, "outcome", "success"},
	{authcore.MetricLoginFailure, instLogin, "outcome", "failure"},
	{authcore.MetricExistenceHit, instExistence, "result", "hit"},
	{authcore.MetricExistenceMiss, instExistence, "result", "miss"},
	{authcore.MetricStoreRetry, instRetry, "", ""},
}

type boundCounter struct {
	id   authcore.MetricID
	inst metric.Int64ObservableCounter
	opt  metric.MeasurementOption
}

// Exporter publishes engine metrics as OpenTelemetry observable instruments.
// Counters that describe outcomes of one operation share an instrument and
// differ by attribute. Values are read from the engine snapshot on every
// collection.
type Exporter struct {
	source       MetricsSource
	registration metric.Registration

	counters      []boundCounter
	latencyBucket metric.Int64ObservableGauge
	latencyCount  metric.Int64ObservableGauge
	bucketOpts    []metric.MeasurementOption
	auditDropped  metric.Int64ObservableCounter
}

func NewExporter(meter metric.Meter, engine *authcore.Engine) (*Exporter, error) {
	return NewExporterFromSource(meter, engine)
}

func NewExporterFromSource(meter metric.Meter, source MetricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source, counters: make([]boundCounter, 0, len(counterSeries))}
	created := make(map[string]metric.Int64ObservableCounter, len(descriptions))
	var observables []metric.Observable

	for _, s := range counterSeries {
		inst, ok := created[s.instrument]
		if !ok {
			var err error
			inst, err = meter.Int64ObservableCounter(s.instrument,
				metric.WithDescription(descriptions[s.instrument]),
				metric.WithUnit("{event}"),
			)
			if err != nil {
				return nil, fmt.Errorf("create counter %s: %w", s.instrument, err)
			}
			created[s.instrument] = inst
			observables = append(observables, inst)
		}

		var attrs []attribute.KeyValue
		if s.key != "" {
			attrs = append(attrs, attribute.String(s.key, s.value))
		}
		e.counters = append(e.counters, boundCounter{id: s.id, inst: inst, opt: metric.WithAttributes(attrs...)})
	}

	var err error
	e.latencyBucket, err = meter.Int64ObservableGauge(instLatencyBucket,
		metric.WithDescription("Validations that completed within le seconds."),
		metric.WithUnit("{validation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create gauge %s: %w", instLatencyBucket, err)
	}
	e.latencyCount, err = meter.Int64ObservableGauge(instLatencyCount,
		metric.WithDescription("Validations sampled by the latency histogram."),
		metric.WithUnit("{validation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create gauge %s: %w", instLatencyCount, err)
	}
	for _, bound := range internaldefs.HistogramUpperBounds {
		le := strconv.FormatFloat(bound, 'g', -1, 64)
		e.bucketOpts = append(e.bucketOpts, metric.WithAttributes(attribute.String("le", le)))
	}
	e.bucketOpts = append(e.bucketOpts, metric.WithAttributes(attribute.String("le", "+Inf")))

	e.auditDropped, err = meter.Int64ObservableCounter(instAuditDropped,
		metric.WithDescription("Audit events dropped by the dispatcher."),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create counter %s: %w", instAuditDropped, err)
	}
	observables = append(observables, e.latencyBucket, e.latencyCount, e.auditDropped)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		o.ObserveInt64(c.inst, int64(snapshot.Counters[c.id]), c.opt)
	}

	// Latency is only present when the engine samples it.
	if raw, ok := snapshot.Histograms[authcore.MetricValidateLatency]; ok {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, n := range cumulative {
			if i < len(e.bucketOpts) {
				o.ObserveInt64(e.latencyBucket, int64(n), e.bucketOpts[i])
			}
		}
		o.ObserveInt64(e.latencyCount, int64(cumulative[len(cumulative)-1]))
	}

	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback. The MeterProvider stays with the caller.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
