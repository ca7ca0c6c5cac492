package observability

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"trialviz/internal/core"
)

// SpanRecord is a finished span retained by ZapTracer.
type SpanRecord struct {
	Operation string
	Status    string
	Duration  time.Duration
	Error     string
	StartedAt time.Time
	EndedAt   time.Time
}

// ZapTracer logs every finished span at debug level, or warn on failure,
// and keeps the records for inspection.
type ZapTracer struct {
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	records []SpanRecord
}

// NewZapTracer returns a tracer writing to logger; nil discards output.
func NewZapTracer(logger *zap.Logger) *ZapTracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapTracer{logger: logger.Named("trace"), now: func() time.Time { return time.Now().UTC() }}
}

// Records returns a copy of all finished spans.
func (t *ZapTracer) Records() []SpanRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]SpanRecord, len(t.records))
	copy(out, t.records)
	return out
}

// Start implements core.Tracer.
func (t *ZapTracer) Start(ctx context.Context, operation string) (context.Context, core.TraceSpan) {
	return ctx, &zapSpan{tracer: t, operation: operation, started: t.now()}
}

type zapSpan struct {
	tracer    *ZapTracer
	operation string
	started   time.Time
	once      sync.Once
}

func (s *zapSpan) End(err error) {
	s.once.Do(func() {
		ended := s.tracer.now()
		rec := SpanRecord{
			Operation: s.operation,
			Status:    "success",
			Duration:  ended.Sub(s.started),
			StartedAt: s.started,
			EndedAt:   ended,
		}
		fields := []zap.Field{zap.String("operation", s.operation), zap.Duration("duration", rec.Duration)}
		if err != nil {
			rec.Status = "error"
			rec.Error = err.Error()
			s.tracer.logger.Warn("span failed", append(fields, zap.Error(err))...)
		} else {
			s.tracer.logger.Debug("span finished", fields...)
		}
		s.tracer.mu.Lock()
		s.tracer.records = append(s.tracer.records, rec)
		s.tracer.mu.Unlock()
	})
}
