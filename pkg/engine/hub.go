package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	plog "github.com/lwm2m-bridge/lwm2m-go/pkg/log"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/session"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/wire"
)

// ErrNotConnected is returned by Send when the registration has no live connection.
var ErrNotConnected = errors.New("device not connected")

// Hub holds one Client per connected registration.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	capture plog.Logger
	logger  *slog.Logger
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		capture: plog.NoopLogger{},
		logger:  slog.Default(),
	}
}

// SetLogger sets the logger handed to new clients.
func (h *Hub) SetLogger(logger *slog.Logger) {
	h.logger = logger
}

// SetProtocolLogger sets the capture logger handed to new clients.
func (h *Hub) SetProtocolLogger(l plog.Logger) {
	h.capture = plog.OrNoop(l)
}

// Attach binds conn to reg, closing any previous connection of reg. The
// client is removed again when the connection ends.
func (h *Hub) Attach(reg *session.Registration, conn io.ReadWriteCloser) *Client {
	c := NewClient(conn, reg.ID, reg.Endpoint)
	c.SetLogger(h.logger)
	c.SetProtocolLogger(h.capture)

	h.mu.Lock()
	old := h.clients[reg.ID]
	h.clients[reg.ID] = c
	h.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	h.logger.Info("device connected", "endpoint", reg.Endpoint, "registration", reg.ID)

	go func() {
		<-c.Done()
		h.mu.Lock()
		if h.clients[reg.ID] == c {
			delete(h.clients, reg.ID)
		}
		h.mu.Unlock()
		h.logger.Info("device disconnected", "endpoint", reg.Endpoint, "registration", reg.ID, "reason", c.Err())
	}()
	return c
}

// Detach closes the connection of registration id.
func (h *Hub) Detach(id string) error {
	h.mu.Lock()
	c, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotConnected, id)
	}
	return c.Close()
}

// Connected returns true if reg has a live connection.
func (h *Hub) Connected(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[id]
	return ok
}

// Len returns the number of live connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Send forwards req to the connection of reg.
func (h *Hub) Send(ctx context.Context, reg *session.Registration, req wire.Request) (wire.Response, error) {
	h.mu.RLock()
	c, ok := h.clients[reg.ID]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, reg.Endpoint)
	}
	return c.Send(ctx, req)
}

// Close closes every connection.
func (h *Hub) Close() error {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.Close()
	}
	return nil
}
