package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
)

// Registry errors.
var (
	ErrUnknownRegistration = errors.New("unknown registration")
	ErrRegistryRunning     = errors.New("registry sweeper already running")
)

// DefaultSweepSpec is the cron spec used when Start is given none.
const DefaultSweepSpec = "@every 1s"

// Registry tracks the clients of all live registrations.
type Registry struct {
	mu         sync.RWMutex
	clients    map[string]*Client
	byEndpoint map[string]string

	sweeper *cron.Cron
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		clients:    make(map[string]*Client),
		byEndpoint: make(map[string]string),
	}
}

// SetLogger sets the logger used by the sweeper.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register adds a client for reg. A previous registration of the same
// endpoint is replaced and its pending requests are canceled.
func (r *Registry) Register(reg *Registration, models ...*model.ObjectModel) *Client {
	c := NewClient(reg, models...)

	r.mu.Lock()
	var replaced *Client
	if oldID, ok := r.byEndpoint[reg.Endpoint]; ok {
		replaced = r.clients[oldID]
		delete(r.clients, oldID)
	}
	r.clients[reg.ID] = c
	r.byEndpoint[reg.Endpoint] = reg.ID
	r.mu.Unlock()

	if replaced != nil {
		replaced.CancelPending()
	}
	return c
}

// Deregister removes the registration and cancels its pending requests.
func (r *Registry) Deregister(id string) error {
	r.mu.Lock()
	c, ok := r.clients[id]
	if ok {
		delete(r.clients, id)
		if r.byEndpoint[c.Endpoint()] == id {
			delete(r.byEndpoint, c.Endpoint())
		}
	}
	r.mu.Unlock()

	if !ok {
		return ErrUnknownRegistration
	}
	c.CancelPending()
	return nil
}

// Client returns the client of registration id.
func (r *Registry) Client(id string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

// ClientByEndpoint returns the client registered under endpoint.
func (r *Registry) ClientByEndpoint(endpoint string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEndpoint[endpoint]
	if !ok {
		return nil, false
	}
	c, ok := r.clients[id]
	return c, ok
}

// Registrations lists live registrations ordered by endpoint.
func (r *Registry) Registrations() []*Registration {
	r.mu.RLock()
	regs := make([]*Registration, 0, len(r.clients))
	for _, c := range r.clients {
		regs = append(regs, c.Registration())
	}
	r.mu.RUnlock()

	sort.Slice(regs, func(i, j int) bool {
		return regs[i].Endpoint < regs[j].Endpoint
	})
	return regs
}

// Len returns the number of live registrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Sweep expires overdue pending requests on every client.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.RLock()
	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	logger := r.logger
	r.mu.RUnlock()

	total := 0
	for _, c := range clients {
		if n := c.ExpirePending(now); n > 0 {
			total += n
			if logger != nil {
				logger.Debug("expired pending requests", "endpoint", c.Endpoint(), "count", n)
			}
		}
	}
	return total
}

// Start runs Sweep on the given cron schedule. An empty spec uses
// DefaultSweepSpec.
func (r *Registry) Start(spec string) error {
	if spec == "" {
		spec = DefaultSweepSpec
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sweeper != nil {
		return ErrRegistryRunning
	}

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(spec, func() { r.Sweep(time.Now()) }); err != nil {
		return err
	}
	sweeper.Start()
	r.sweeper = sweeper
	return nil
}

// Stop halts the sweeper and waits for a running sweep to finish or ctx to end.
func (r *Registry) Stop(ctx context.Context) error {
	r.mu.Lock()
	sweeper := r.sweeper
	r.sweeper = nil
	r.mu.Unlock()

	if sweeper == nil {
		return nil
	}
	select {
	case <-sweeper.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
