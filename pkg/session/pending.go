package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/wire"
)

// Pending request errors.
var (
	ErrPendingExists   = errors.New("pending request already exists for path")
	ErrPendingExpired  = errors.New("pending request expired")
	ErrPendingCanceled = errors.New("pending request canceled")
)

// PendingRequest is a response awaited for a path.
type PendingRequest struct {
	Path     model.Address
	Created  time.Time
	Deadline time.Time

	once    sync.Once
	done    chan struct{}
	content wire.Content
	err     error
}

func newPendingRequest(path model.Address, timeout time.Duration) *PendingRequest {
	now := time.Now()
	p := &PendingRequest{
		Path:    path,
		Created: now,
		done:    make(chan struct{}),
	}
	if timeout > 0 {
		p.Deadline = now.Add(timeout)
	}
	return p
}

// Done is closed when the request is satisfied, expired or canceled.
func (p *PendingRequest) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the request completes or ctx ends.
func (p *PendingRequest) Wait(ctx context.Context) (wire.Content, error) {
	select {
	case <-p.done:
		return p.content, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the outcome of a completed request. It must only be called
// after Done is closed.
func (p *PendingRequest) Result() (wire.Content, error) {
	return p.content, p.err
}

func (p *PendingRequest) expired(now time.Time) bool {
	return !p.Deadline.IsZero() && now.After(p.Deadline)
}

// complete returns false if the request was already completed.
func (p *PendingRequest) complete(content wire.Content, err error) bool {
	completed := false
	p.once.Do(func() {
		p.content = content
		p.err = err
		close(p.done)
		completed = true
	})
	return completed
}
