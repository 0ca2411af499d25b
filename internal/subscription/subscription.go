// Package subscription delivers normalized ledger events to sinks. Each
// Subscription is a small state machine over one Source; delivery is gated
// on the subscription's state so nothing reaches a sink once Stop begins.
package subscription

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LeJamon/goRLUSD/internal/ledgererr"
	"github.com/LeJamon/goRLUSD/internal/metrics"
)

type State int

const (
	StateIdle State = iota
	StateSubscribing
	StateActive
	StateUnsubscribing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubscribing:
		return "subscribing"
	case StateActive:
		return "active"
	case StateUnsubscribing:
		return "unsubscribing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Feed is handed to a Source on Start. Emit forwards one raw event in
// connection order; Fail reports that the source can no longer deliver.
type Feed struct {
	Emit func(Event)
	Fail func(error)
}

// Source produces events from one ledger connection.
type Source interface {
	// Start registers for events and returns once the node has confirmed.
	Start(ctx context.Context, f Filter, feed Feed) error
	// Stop unregisters every listener Start installed.
	Stop(ctx context.Context) error
}

var ErrAlreadyStarted = errors.New("subscription already started")

// Subscription forwards matching events from a Source to a Sink.
type Subscription struct {
	id      string
	filter  Filter
	source  Source
	sink    Sink
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	state     State
	err       error
	started   time.Time
	delivered uint64
	done      chan struct{}
	closeOnce sync.Once
}

type Option func(*Subscription)

func WithLogger(l *zap.Logger) Option {
	return func(s *Subscription) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Subscription) { s.metrics = m }
}

// New validates f and returns an idle subscription.
func New(source Source, f Filter, sink Sink, opts ...Option) (*Subscription, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, errors.New("subscription needs a sink")
	}
	s := &Subscription{
		id:     uuid.NewString(),
		filter: f,
		source: source,
		sink:   sink,
		logger: zap.NewNop(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("subscription", s.id), zap.String("kind", string(f.Kind)))
	return s, nil
}

func (s *Subscription) ID() string     { return s.id }
func (s *Subscription) Filter() Filter { return s.filter }

func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure that closed the subscription, if any.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Delivered counts events handed to the sink without error.
func (s *Subscription) Delivered() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delivered
}

// Done is closed when the subscription reaches StateClosed.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Start moves Idle to Subscribing, starts the source and moves to Active
// once the source confirms. A Stop issued while subscribing wins: the
// source is stopped again and Start returns nil.
func (s *Subscription) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateSubscribing
	s.mu.Unlock()
	s.logger.Debug("subscribing")

	err := s.source.Start(ctx, s.filter, Feed{Emit: s.deliver, Fail: s.fail})

	s.mu.Lock()
	if err != nil {
		s.err = ledgererr.Wrap(ledgererr.KindSubscriptionFailed, err, "start %s subscription", s.filter.Kind)
		s.state = StateClosed
		s.mu.Unlock()
		s.closeDone()
		s.logger.Warn("subscribe failed", zap.Error(err))
		return s.err
	}
	if s.state != StateSubscribing {
		s.mu.Unlock()
		s.logger.Debug("stopped while subscribing")
		return s.source.Stop(context.WithoutCancel(ctx))
	}
	s.state = StateActive
	s.started = time.Now()
	s.mu.Unlock()
	s.logger.Info("subscription active")
	return nil
}

// Stop unregisters the source and closes the subscription. It is safe to
// call more than once and from any state. Sinks must not call Stop from
// inside Deliver.
func (s *Subscription) Stop(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return nil
	case StateUnsubscribing:
		s.mu.Unlock()
		select {
		case <-s.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	case StateIdle, StateSubscribing:
		s.state = StateClosed
		s.mu.Unlock()
		s.closeDone()
		return nil
	}
	s.state = StateUnsubscribing
	s.mu.Unlock()

	err := s.source.Stop(ctx)

	s.mu.Lock()
	s.state = StateClosed
	delivered := s.delivered
	s.mu.Unlock()
	s.closeDone()

	s.logger.Info("subscription closed", zap.Uint64("delivered", delivered), zap.Error(err))
	return err
}

// deliver runs on the source's notification path. The state check and the
// sink call happen under one lock so Stop cannot interleave between them.
func (s *Subscription) deliver(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		s.metrics.EventDropped("inactive")
		return
	}
	if !s.filter.Match(ev) {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.SubscriptionID = s.id
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	if err := s.sink.Deliver(ev); err != nil {
		s.logger.Warn("sink rejected event", zap.String("event", ev.ID), zap.Error(err))
		s.metrics.EventDropped("sink")
		return
	}
	s.delivered++
	s.metrics.EventDelivered(string(ev.Type))
}

func (s *Subscription) fail(err error) {
	s.mu.Lock()
	if s.state != StateActive && s.state != StateSubscribing {
		s.mu.Unlock()
		return
	}
	s.err = ledgererr.Wrap(ledgererr.KindSubscriptionFailed, err, "%s subscription", s.filter.Kind)
	s.state = StateUnsubscribing
	s.mu.Unlock()
	s.logger.Warn("subscription failed", zap.Error(err))

	// Fail may be called from a source goroutine that Stop waits on.
	go func() {
		if err := s.source.Stop(context.Background()); err != nil {
			s.logger.Debug("stop after failure", zap.Error(err))
		}
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
		s.closeDone()
	}()
}

func (s *Subscription) closeDone() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Info is a snapshot for listings.
type Info struct {
	ID        string    `json:"id"`
	Filter    Filter    `json:"filter"`
	State     State     `json:"state"`
	Delivered uint64    `json:"delivered"`
	Since     time.Time `json:"since,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func (s *Subscription) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := Info{ID: s.id, Filter: s.filter, State: s.state, Delivered: s.delivered, Since: s.started}
	if s.err != nil {
		info.Error = s.err.Error()
	}
	return info
}

// Group tracks the live subscriptions of one client so they can all be
// stopped before its connection is torn down.
type Group struct {
	mu   sync.Mutex
	subs map[string]*Subscription
}

func NewGroup() *Group {
	return &Group{subs: make(map[string]*Subscription)}
}

// Add tracks s until it closes.
func (g *Group) Add(s *Subscription) {
	g.mu.Lock()
	g.subs[s.id] = s
	g.mu.Unlock()
	go func() {
		<-s.Done()
		g.mu.Lock()
		delete(g.subs, s.id)
		g.mu.Unlock()
	}()
}

func (g *Group) Get(id string) (*Subscription, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.subs[id]
	return s, ok
}

// List returns a snapshot of every tracked subscription.
func (g *Group) List() []Info {
	g.mu.Lock()
	subs := make([]*Subscription, 0, len(g.subs))
	for _, s := range g.subs {
		subs = append(subs, s)
	}
	g.mu.Unlock()

	out := make([]Info, 0, len(subs))
	for _, s := range subs {
		out = append(out, s.Info())
	}
	return out
}

func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}

// StopAll stops every tracked subscription and returns the first error.
func (g *Group) StopAll(ctx context.Context) error {
	g.mu.Lock()
	subs := make([]*Subscription, 0, len(g.subs))
	for _, s := range g.subs {
		subs = append(subs, s)
	}
	g.mu.Unlock()

	var first error
	for _, s := range subs {
		if err := s.Stop(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
