// Package mapping infers a CRM contact field for every header of an
// ingested file by asking a text-completion service, then recovers,
// validates and summarises the structured answer.
package mapping

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/sells-group/header-mapper/internal/model"
	"github.com/sells-group/header-mapper/pkg/anthropic"
)

const defaultTimeout = 60 * time.Second

// ClientFactory builds a service client for a credential.
type ClientFactory func(apiKey string) anthropic.Client

// KeySource returns the service credential. It is consulted on every call
// so a rotated or newly set credential takes effect without a restart.
type KeySource func() string

// Observer is told the outcome and duration of every service round trip.
type Observer interface {
	Observe(outcome string, elapsed time.Duration)
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithTimeout bounds each service call. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(m *Mapper) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithRateLimit caps service calls per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(m *Mapper) {
		if rps > 0 {
			m.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// WithObserver registers an Observer.
func WithObserver(o Observer) Option {
	return func(m *Mapper) {
		m.observer = o
	}
}

// Mapper runs the request, extract and validate steps against the service.
// Concurrent calls for the same header list share one service call.
type Mapper struct {
	builder   *RequestBuilder
	newClient ClientFactory
	key       KeySource
	timeout   time.Duration
	limiter   *rate.Limiter
	observer  Observer

	group   singleflight.Group
	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the shared context of one deduplicated service call. It is
// canceled once every caller waiting on it has gone.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewMapper creates a Mapper.
func NewMapper(builder *RequestBuilder, newClient ClientFactory, key KeySource, opts ...Option) *Mapper {
	m := &Mapper{
		builder:   builder,
		newClient: newClient,
		key:       key,
		timeout:   defaultTimeout,
		flights:   make(map[string]*flight),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Map infers a mapping for headers. Concurrent calls share a service call
// only when both the headers and the resolved key match. Canceling ctx abandons the call for this
// caller and, if no other caller shares it, aborts the service request.
func (m *Mapper) Map(ctx context.Context, headers []string) (*model.MappingResult, error) {
	if len(headers) == 0 {
		return nil, ErrNoHeaders
	}

	apiKey := ""
	if m.key != nil {
		apiKey = strings.TrimSpace(m.key())
	}
	if apiKey == "" {
		return nil, ErrMissingConfiguration
	}

	hash := contentHash(apiKey, headers)
	f := m.join(ctx, hash)
	defer m.leave(hash, f)

	ch := m.group.DoChan(hash, func() (any, error) {
		return m.invoke(f.ctx, apiKey, headers)
	})

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, eris.Wrap(ErrTimeout, "caller deadline exceeded")
		}
		return nil, ErrCanceled
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			zap.L().Debug("mapping: shared in-flight request", zap.Int("headers", len(headers)))
		}
		return res.Val.(*model.MappingResult), nil
	}
}

// MapTable maps the headers of an ingested table and summarises the result.
func (m *Mapper) MapTable(ctx context.Context, table *model.RawTable) (*model.MappingResult, model.Stats, error) {
	result, err := m.Map(ctx, table.Headers)
	if err != nil {
		return nil, model.Stats{}, err
	}
	return result, Summarize(result), nil
}

func (m *Mapper) invoke(ctx context.Context, apiKey string, headers []string) (*model.MappingResult, error) {
	requestID := uuid.NewString()
	start := time.Now()
	log := zap.L().With(zap.String("request_id", requestID), zap.Int("headers", len(headers)))

	result, err := m.call(ctx, apiKey, headers, requestID)
	elapsed := time.Since(start)
	if m.observer != nil {
		m.observer.Observe(Outcome(err), elapsed)
	}

	if err != nil {
		log.Warn("mapping: request failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return nil, err
	}

	stats := Summarize(result)
	log.Info("mapping: request complete",
		zap.Duration("elapsed", elapsed),
		zap.Int("total", stats.Total),
		zap.Int("high_confidence", stats.HighConfidence),
		zap.Int("custom_fields", stats.CustomFields),
		zap.Int("unmapped", len(result.UnmappedHeaders)),
	)
	return result, nil
}

func (m *Mapper) call(ctx context.Context, apiKey string, headers []string, requestID string) (*model.MappingResult, error) {
	req, err := m.builder.Build(headers)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if m.limiter != nil {
		if err := m.limiter.Wait(callCtx); err != nil {
			if ctx.Err() != nil {
				return nil, ErrCanceled
			}
			return nil, eris.Wrapf(ErrTimeout, "waiting for rate limiter after %s", m.timeout)
		}
	}

	resp, err := m.newClient(apiKey).CreateMessage(callCtx, req)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, ErrCanceled
		case errors.Is(callCtx.Err(), context.DeadlineExceeded):
			return nil, eris.Wrapf(ErrTimeout, "no response after %s", m.timeout)
		default:
			return nil, &ServiceInvocationError{StatusCode: anthropic.StatusCode(err), Err: err}
		}
	}
	resp.Usage.LogCost(m.builder.Model(), requestID)

	if resp.StopReason == "max_tokens" {
		zap.L().Warn("mapping: response truncated at max tokens", zap.String("request_id", requestID))
	}

	doc, err := Extract(resp.Text())
	if err != nil {
		return nil, err
	}
	return Validate(doc, headers)
}

func (m *Mapper) join(ctx context.Context, hash string) *flight {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.flights[hash]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		m.flights[hash] = f
	}
	f.waiters++
	return f
}

func (m *Mapper) leave(hash string, f *flight) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f.waiters--
	if f.waiters == 0 {
		f.cancel()
		delete(m.flights, hash)
		m.group.Forget(hash)
	}
}

// contentHash identifies a header list by content and order under one
// credential. Calls made with different keys are never shared.
func contentHash(apiKey string, headers []string) string {
	h := sha256.New()
	h.Write([]byte(apiKey))
	h.Write([]byte{0})
	for _, s := range headers {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Outcome classifies an error from Map for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoHeaders):
		return "no_headers"
	case errors.Is(err, ErrMissingConfiguration):
		return "missing_config"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrCanceled):
		return "canceled"
	case errors.Is(err, ErrServiceInvocation):
		return "service_error"
	case errors.Is(err, ErrResponseParse):
		return "parse_error"
	case errors.Is(err, ErrSchemaValidation):
		return "schema_error"
	default:
		return "error"
	}
}
