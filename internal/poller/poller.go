package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"obdboard/internal/models"
	"obdboard/internal/obd"
	"obdboard/pkg/log"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// DefaultInterval is the pause between the end of one tick and the next.
const DefaultInterval = 1000 * time.Millisecond

const (
	StatusNotConnected = "Not Connected"
	StatusConnecting   = "Connecting..."
	StatusStopped      = "Stopped"
)

// View receives what the loop produces. Implementations must not block:
// they are called from the loop goroutine and from Start/Stop.
type View interface {
	SetCard(key Key, text string)
	SetRunning(running bool)
	SetStatus(status string)
	SetTroubleCodes(codes []models.DTCEntry)
}

// Sink gets every completed tick's readings.
type Sink interface {
	Publish(ctx context.Context, readings []models.Reading) error
}

// Poller owns the adapter connection and the one-second query loop.
// At most one run is active; each run acquires its own connection and
// releases it on every exit path.
type Poller struct {
	connect  obd.Connector
	view     View
	sinks    []Sink
	clock    clockwork.Clock
	interval time.Duration
	params   []Parameter

	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64
	done   chan struct{} // closed once the latest run released its connection
	wg     sync.WaitGroup

	dtcRequested atomic.Bool
}

// Option configures a Poller.
type Option func(*Poller)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(p *Poller) {
		p.clock = c
	}
}

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		p.interval = d
	}
}

// WithSinks adds receivers for every completed tick.
func WithSinks(sinks ...Sink) Option {
	return func(p *Poller) {
		p.sinks = append(p.sinks, sinks...)
	}
}

// New returns a stopped Poller that acquires connections through connect.
func New(connect obd.Connector, view View, opts ...Option) *Poller {
	p := &Poller{
		connect:  connect,
		view:     view,
		clock:    clockwork.NewRealClock(),
		interval: DefaultInterval,
		params:   Parameters,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins a run unless one is active. It reports whether a run was
// started.
func (p *Poller) Start() bool {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.gen++
	gen := p.gen
	prev := p.done
	done := make(chan struct{})
	p.done = done
	p.wg.Add(1)
	p.mu.Unlock()

	p.view.SetRunning(true)
	p.view.SetStatus(StatusConnecting)
	log.Info("polling started", zap.Duration("interval", p.interval))

	go p.run(ctx, gen, prev, done)
	return true
}

// Stop ends the active run. No further tick is scheduled; a tick already
// querying the adapter is discarded and the connection is released once the
// query returns.
func (p *Poller) Stop() bool {
	p.mu.Lock()
	if p.cancel == nil {
		p.mu.Unlock()
		return false
	}
	p.cancel()
	p.cancel = nil
	p.mu.Unlock()

	p.view.SetRunning(false)
	p.view.SetStatus(StatusStopped)
	log.Info("polling stopped")
	return true
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// RefreshTroubleCodes asks the active run to read stored DTCs before its
// next tick.
func (p *Poller) RefreshTroubleCodes() {
	p.dtcRequested.Store(true)
}

// Close stops the active run and waits until its connection is released.
func (p *Poller) Close() {
	p.Stop()
	p.wg.Wait()
}

// run owns one adapter session. It waits for the previous run to release
// its connection first, so at most one session is open at a time.
func (p *Poller) run(ctx context.Context, gen uint64, prev <-chan struct{}, done chan<- struct{}) {
	defer p.wg.Done()
	defer close(done)

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			return
		}
	}

	conn, err := p.connect(ctx)
	if err != nil {
		p.fail(gen, fmt.Errorf("connect: %w", err))
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Warn("failed to release adapter", zap.Error(err))
		}
	}()

	info := conn.Info()
	log.Info("adapter connected", zap.String("adapter", info.String()))
	p.whileActive(gen, func() {
		p.view.SetStatus("Connected: " + info.String())
	})

	p.dtcRequested.Store(false)
	p.readTroubleCodes(ctx, gen, conn)

	for {
		if ctx.Err() != nil {
			return
		}
		if p.dtcRequested.CompareAndSwap(true, false) {
			p.readTroubleCodes(ctx, gen, conn)
		}

		start := p.clock.Now()
		if err := p.tick(ctx, gen, conn); err != nil {
			p.fail(gen, err)
			return
		}
		log.Debug("tick complete", zap.Duration("took", p.clock.Since(start)))

		select {
		case <-ctx.Done():
			return
		case <-p.clock.After(p.interval):
		}
	}
}

// tick queries every distinct command once, then renders all cards. A tick
// whose run was stopped while querying writes nothing.
func (p *Poller) tick(ctx context.Context, gen uint64, conn obd.Connection) error {
	responses := make(map[string]obd.Response, len(p.params))
	for _, param := range p.params {
		wire := param.Command.String()
		if _, ok := responses[wire]; ok {
			continue
		}
		resp, err := conn.Query(ctx, param.Command)
		if err != nil {
			return err
		}
		responses[wire] = resp
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	readings := make([]models.Reading, 0, len(p.params))
	for _, param := range p.params {
		readings = append(readings, param.Reading(responses[param.Command.String()].Value))
	}
	written := p.whileActive(gen, func() {
		for i, param := range p.params {
			p.view.SetCard(param.Key, readings[i].Text)
		}
	})
	if !written {
		return context.Canceled
	}

	for _, s := range p.sinks {
		if err := s.Publish(ctx, readings); err != nil {
			log.Warn("failed to publish readings", zap.Error(err))
		}
	}
	return nil
}

func (p *Poller) readTroubleCodes(ctx context.Context, gen uint64, conn obd.Connection) {
	codes, err := conn.TroubleCodes(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn("failed to read trouble codes", zap.Error(err))
		}
		return
	}
	p.whileActive(gen, func() {
		log.Info("trouble codes read", zap.Int("count", len(codes)))
		p.view.SetTroubleCodes(codes)
	})
}

// whileActive runs fn only if gen is still the active run. fn runs under mu,
// so it lands before the view updates of a concurrent Stop.
func (p *Poller) whileActive(gen uint64, fn func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen || p.cancel == nil {
		return false
	}
	fn()
	return true
}

// fail ends run gen after an error unless it was already stopped or
// replaced by a newer run.
func (p *Poller) fail(gen uint64, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}

	p.mu.Lock()
	if p.gen != gen || p.cancel == nil {
		p.mu.Unlock()
		return
	}
	p.cancel()
	p.cancel = nil
	p.mu.Unlock()

	log.Error("polling failed", zap.Error(err))
	p.view.SetRunning(false)
	p.view.SetStatus("Error: " + err.Error())
}
