package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/liliang-cn/anonqa/internal/domain"
	"github.com/liliang-cn/anonqa/internal/metrics"
	"go.uber.org/zap"
)

// UsageCounter counts persisted usage records
type UsageCounter interface {
	Count(ctx context.Context, filter domain.UsageFilter) (int, error)
}

// QuotaCheck describes one quota lookup. A zero Window counts all history;
// a non-positive Limit means the action is not capped.
type QuotaCheck struct {
	ActorID    string
	Action     domain.UsageAction
	QuestionID string
	Window     time.Duration
	Limit      int
}

// QuotaDecision is the outcome of a quota lookup
type QuotaDecision struct {
	Allowed bool
	Count   int
	Limit   int
}

// UsageGate rejects AI invocations once an actor's usage reaches its quota.
// Usage counts both persisted records and admitted calls that have not finished yet,
// so concurrent requests cannot all pass on the same stored count.
type UsageGate struct {
	counter UsageCounter
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	inflight map[quotaKey]int
}

// quotaKey scopes in-flight reservations the same way records are counted
type quotaKey struct {
	actorID    string
	action     domain.UsageAction
	questionID string
}

func (q QuotaCheck) key() quotaKey {
	return quotaKey{actorID: q.ActorID, action: q.Action, questionID: q.QuestionID}
}

// NewUsageGate creates a gate counting records through counter
func NewUsageGate(counter UsageCounter, logger *zap.Logger) *UsageGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UsageGate{
		counter:  counter,
		logger:   logger,
		now:      time.Now,
		inflight: make(map[quotaKey]int),
	}
}

// Check counts the usage matching q, in-flight calls included, and reports
// whether one more invocation is allowed. It reserves nothing.
func (g *UsageGate) Check(ctx context.Context, q QuotaCheck) (QuotaDecision, error) {
	if q.Limit <= 0 {
		return QuotaDecision{Allowed: true}, nil
	}

	stored, err := g.count(ctx, q)
	if err != nil {
		return QuotaDecision{}, err
	}

	g.mu.Lock()
	count := stored + g.inflight[q.key()]
	g.mu.Unlock()

	return QuotaDecision{Allowed: count < q.Limit, Count: count, Limit: q.Limit}, nil
}

// Enforce admits one invocation or returns ErrQuotaExceeded. An admitted call holds
// a reservation until release is called, which must happen after its usage record
// is written (or once it ends without one). release is safe to call more than once.
func (g *UsageGate) Enforce(ctx context.Context, q QuotaCheck) (release func(), err error) {
	if q.Limit <= 0 {
		return func() {}, nil
	}

	// reserve before counting: a later caller always sees this one as in flight
	key := q.key()
	g.mu.Lock()
	ahead := g.inflight[key]
	g.inflight[key]++
	g.mu.Unlock()
	release = sync.OnceFunc(func() { g.release(key) })

	stored, err := g.count(ctx, q)
	if err != nil {
		release()
		return nil, err
	}

	count := stored + ahead
	if count < q.Limit {
		return release, nil
	}
	release()

	metrics.QuotaRejections.WithLabelValues(string(q.Action)).Inc()
	g.logger.Info("usage quota exceeded",
		zap.String("actor", q.ActorID),
		zap.String("action", string(q.Action)),
		zap.String("question_id", q.QuestionID),
		zap.Int("count", count),
		zap.Int("in_flight", ahead),
		zap.Int("limit", q.Limit),
	)
	return nil, fmt.Errorf("%w: %d of %d %s requests used", domain.ErrQuotaExceeded,
		count, q.Limit, q.Action)
}

// InFlight returns the number of admitted calls for q that have not been released
func (g *UsageGate) InFlight(q QuotaCheck) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inflight[q.key()]
}

func (g *UsageGate) release(key quotaKey) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inflight[key] <= 1 {
		delete(g.inflight, key)
		return
	}
	g.inflight[key]--
}

func (g *UsageGate) count(ctx context.Context, q QuotaCheck) (int, error) {
	filter := domain.UsageFilter{
		ActorID:    q.ActorID,
		Action:     q.Action,
		QuestionID: q.QuestionID,
	}
	if q.Window > 0 {
		filter.Since = g.now().Add(-q.Window)
	}

	count, err := g.counter.Count(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count usage: %w", err)
	}
	return count, nil
}
