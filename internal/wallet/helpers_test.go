package wallet

import (
	"errors"
	"sync"
	"time"

	"github.com/borderlesspay/bpay/internal/connector"
	"github.com/borderlesspay/bpay/internal/connector/connectortest"
	"github.com/borderlesspay/bpay/internal/environment"
	"github.com/borderlesspay/bpay/internal/events"
	"github.com/borderlesspay/bpay/internal/metrics"
)

type recordingPresenter struct {
	mu      sync.Mutex
	uris    []string
	links   []string
	cleared int
}

func (p *recordingPresenter) Present(uri, deepLink string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uris = append(p.uris, uri)
	p.links = append(p.links, deepLink)
}

func (p *recordingPresenter) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared++
}

func (p *recordingPresenter) snapshot() ([]string, []string, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.uris...), append([]string(nil), p.links...), p.cleared
}

type recordingOpener struct {
	mu      sync.Mutex
	opened  []string
	failFor string
}

func (o *recordingOpener) OpenURL(u string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, u)
	if o.failFor != "" && len(u) >= len(o.failFor) && u[:len(o.failFor)] == o.failFor {
		return errors.New("no handler for scheme")
	}
	return nil
}

func (o *recordingOpener) urls() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}

// harness wires a controller to a fake connector.
type harness struct {
	fake      *connectortest.Fake
	provider  *connector.Provider
	bus       *events.Bus
	state     *State
	metrics   *metrics.Metrics
	presenter *recordingPresenter
	opener    *recordingOpener
	ctrl      *Controller
}

func newHarness(env environment.Environment, timeout time.Duration) *harness {
	h := &harness{
		fake:      connectortest.New(),
		provider:  connector.NewProvider(),
		bus:       events.NewBus(),
		metrics:   &metrics.Metrics{},
		presenter: &recordingPresenter{},
		opener:    &recordingOpener{},
	}
	h.state = NewState(h.bus)
	_ = h.provider.Set(h.fake)
	h.ctrl = NewController(ControllerOptions{
		Provider:     h.provider,
		State:        h.state,
		Bus:          h.bus,
		Environment:  env,
		Presenter:    h.presenter,
		Opener:       h.opener,
		Metrics:      h.metrics,
		Timeout:      timeout,
		PollInterval: 10 * time.Millisecond,
	})
	return h
}

func accountSession(topic, account string) connector.Session {
	return connector.Session{
		Topic:    topic,
		Accounts: []string{"hedera:testnet:" + account},
		Expiry:   time.Now().Add(time.Hour),
	}
}

// drain returns every event currently buffered on ch.
func drain(ch <-chan events.Event) []events.Event {
	var out []events.Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func count(evs []events.Event, kind events.Kind) int {
	n := 0
	for _, ev := range evs {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}
