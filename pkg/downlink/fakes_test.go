package downlink

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/modelstore"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/session"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/wire"
)

// fakeSender answers with respond, or waits for ctx when respond is nil.
type fakeSender struct {
	mu      sync.Mutex
	respond func(req wire.Request) (wire.Response, error)
	sent    []wire.Request
}

func (s *fakeSender) Send(ctx context.Context, _ *session.Registration, req wire.Request) (wire.Response, error) {
	s.mu.Lock()
	s.sent = append(s.sent, req)
	respond := s.respond
	s.mu.Unlock()

	if respond == nil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return respond(req)
}

func (s *fakeSender) requests() []wire.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]wire.Request(nil), s.sent...)
}

type fakeSink struct {
	mu       sync.Mutex
	messages []string
}

func (s *fakeSink) Emit(_ string, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
}

func (s *fakeSink) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

type ingested struct {
	path    model.Address
	content wire.Content
	write   *wire.WriteRequest
}

type fakeIngestor struct {
	mu    sync.Mutex
	calls []ingested
}

func (f *fakeIngestor) Observation(_ *session.Client, path model.Address, content wire.Content) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ingested{path: path, content: content})
}

func (f *fakeIngestor) AttributeUpdateOK(_ *session.Client, path model.Address, req wire.WriteRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ingested{path: path, write: &req})
}

func (f *fakeIngestor) all() []ingested {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ingested(nil), f.calls...)
}

func newTestClient() *session.Client {
	reg := session.NewRegistration("urn:dev:test", "127.0.0.1:5683", model.InstanceAddress(3, 0))
	return session.NewClient(reg, model.LoadDefault()...)
}

func newTestBuilder() *Builder {
	return NewBuilder(modelstore.NewStaticProvider(model.LoadDefault()))
}

type harness struct {
	sender     *fakeSender
	sink       *fakeSink
	ingest     *fakeIngestor
	pool       *Pool
	dispatcher *Dispatcher
	service    *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		sender: &fakeSender{},
		sink:   &fakeSink{},
		ingest: &fakeIngestor{},
		pool:   NewPool(2, 8, nil),
	}
	h.dispatcher = NewDispatcher(h.sender, h.pool, NewRouter(h.ingest), h.sink)
	h.service = NewService(newTestBuilder(), h.dispatcher)
	t.Cleanup(h.pool.Close)
	return h
}

// collect returns a done callback and a function waiting for n outcomes.
func collect(t *testing.T) (func(Outcome), func(n int) []Outcome) {
	t.Helper()
	ch := make(chan Outcome, 16)
	wait := func(n int) []Outcome {
		var outs []Outcome
		for len(outs) < n {
			select {
			case out := <-ch:
				outs = append(outs, out)
			case <-time.After(5 * time.Second):
				t.Fatalf("got %d outcomes, want %d", len(outs), n)
			}
		}
		return outs
	}
	return func(out Outcome) { ch <- out }, wait
}
