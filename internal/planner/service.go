// Package planner implements the ownership-scoped goal, milestone and task
// operations, including quota gating and change notification.
package planner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nhle/career-planner/internal/auth"
	"github.com/nhle/career-planner/internal/model"
	"github.com/nhle/career-planner/internal/notify"
	"github.com/nhle/career-planner/internal/quota"
	"github.com/nhle/career-planner/internal/store"
	"github.com/nhle/career-planner/internal/summary"
)

var tracer = otel.Tracer("github.com/nhle/career-planner/internal/planner")

// Gate decides whether a create may proceed.
type Gate interface {
	CheckLimit(ctx context.Context, userID string, r quota.Resource) (quota.Decision, error)
}

// invalidator is implemented by summarizers that cache per user.
type invalidator interface {
	Invalidate(userID string)
}

// Metrics holds the planner's Prometheus collectors.
type Metrics struct {
	operations *prometheus.CounterVec
}

// NewMetrics registers the planner collectors with reg. A nil reg yields
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		operations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "careerplanner_planner_operations_total",
			Help: "Planner operations by name and result",
		}, []string{"op", "result"}),
	}
}

type nopNotifier struct{}

func (nopNotifier) NotifySummary(model.SummaryNotice) {}
func (nopNotifier) NotifyEvent(model.EventNotice)     {}

// Service is the hierarchical CRUD engine. It is stateless between calls;
// the acting user always comes from the context.
type Service struct {
	store      store.Store
	gate       Gate
	summarizer summary.Summarizer
	notifier   notify.Notifier
	now        func() time.Time
	logger     *slog.Logger
	metrics    *Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source. Times are stored in UTC.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithNotifier sets where notices are sent. Defaults to discarding them.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithSummarizer replaces the default store-backed summary engine,
// typically with a summary.Cache.
func WithSummarizer(sm summary.Summarizer) Option {
	return func(s *Service) { s.summarizer = sm }
}

// WithMetrics sets the planner collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a Service over st, gated by gate.
func NewService(st store.Store, gate Gate, opts ...Option) *Service {
	s := &Service{
		store:    st,
		gate:     gate,
		notifier: nopNotifier{},
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.summarizer == nil {
		s.summarizer = summary.NewEngine(st, s.clock)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	return s
}

func (s *Service) clock() time.Time { return s.now().UTC() }

// begin resolves the principal and opens the operation span. The span
// is returned even on failure so callers can always defer end.
func (s *Service) begin(ctx context.Context, op string) (context.Context, trace.Span, auth.Principal, error) {
	ctx, span := tracer.Start(ctx, "planner."+op)
	p, ok := auth.FromContext(ctx)
	if !ok {
		return ctx, span, auth.Principal{}, ErrUnauthorized
	}
	span.SetAttributes(attribute.String("user.id", p.UserID))
	return ctx, span, p, nil
}

// end records the outcome of op on the span and the operation counter.
func (s *Service) end(span trace.Span, op string, err error) {
	result := "ok"
	if err != nil {
		result = resultLabel(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.metrics.operations.WithLabelValues(op, result).Inc()
	span.End()
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	}
	return "error"
}

// checkQuota turns a denial into a *QuotaError unless the principal is
// on the paid plan.
func (s *Service) checkQuota(ctx context.Context, p auth.Principal, r quota.Resource) error {
	d, err := s.gate.CheckLimit(ctx, p.UserID, r)
	if err != nil {
		return err
	}
	if d.Allowed || p.Pro {
		return nil
	}
	return &QuotaError{Resource: r, Limit: d.Limit}
}

// changed invalidates cached summaries, recomputes the user's summary and
// hands it to the notifier. Failures are logged, never returned.
func (s *Service) changed(ctx context.Context, userID string, event model.EventType) {
	if inv, ok := s.summarizer.(invalidator); ok {
		inv.Invalidate(userID)
	}

	sum, err := s.summarizer.Summary(ctx, userID)
	if err != nil {
		s.logger.Warn("planner.summary.failed", "user_id", userID, "event_type", event, "error", err)
		return
	}

	s.notifier.NotifySummary(model.SummaryNotice{
		UserID:         userID,
		EventType:      event,
		SummaryVersion: model.SummaryVersion,
		Summary:        sum,
	})
}

// announce forwards a user-facing notice to the parent system.
func (s *Service) announce(userID string, n model.Notice, level string, meta map[string]string) {
	if meta == nil {
		meta = map[string]string{}
	}
	meta["url"] = n.URL
	s.notifier.NotifyEvent(model.EventNotice{
		UserID:    userID,
		EventType: n.EventType,
		Title:     n.Title,
		Message:   n.Title,
		Level:     level,
		Meta:      meta,
		CreatedAt: s.clock(),
	})
}

// Summary returns the caller's current progress summary.
func (s *Service) Summary(ctx context.Context) (_ model.ProgressSummary, err error) {
	ctx, span, p, err := s.begin(ctx, "Summary")
	defer func() { s.end(span, "summary", err) }()
	if err != nil {
		return model.ProgressSummary{}, err
	}
	return s.summarizer.Summary(ctx, p.UserID)
}
