package downlink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/session"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/wire"
)

// ErrRequestFailed completes a pending read whose request failed.
var ErrRequestFailed = errors.New("request failed")

// Service builds and dispatches operations for callers.
type Service struct {
	builder        *Builder
	dispatcher     *Dispatcher
	logger         *slog.Logger
	pendingTimeout time.Duration
}

// NewService creates a service.
func NewService(builder *Builder, dispatcher *Dispatcher) *Service {
	return &Service{
		builder:        builder,
		dispatcher:     dispatcher,
		logger:         slog.Default(),
		pendingTimeout: DefaultTimeout,
	}
}

// SetLogger sets the logger.
func (s *Service) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// SetPendingTimeout sets how long ReadInitial waits before the registry
// sweeper may expire the pending request. Non-positive values never expire.
func (s *Service) SetPendingTimeout(timeout time.Duration) {
	s.pendingTimeout = timeout
}

// Send builds and dispatches in. A build failure is logged and returned;
// nothing is sent and done is not called. Otherwise done, if not nil, is
// called exactly once with the outcome.
func (s *Service) Send(ctx context.Context, c *session.Client, in Input, timeout time.Duration, done func(Outcome)) error {
	req, err := s.builder.Build(ctx, c, in)
	if err != nil {
		return err
	}
	s.dispatcher.Dispatch(c, req, timeout, func(out Outcome) {
		if cancel, ok := req.(wire.CancelObserveRequest); ok && out.Kind == OutcomeSuccess {
			c.RemoveObservation(cancel.Observation.Path)
		}
		if done != nil {
			done(out)
		}
	})
	return nil
}

// ReadInitial reads path for first-contact bookkeeping. The returned pending
// request completes with the read content once the response was cached on
// the session, or with an error when the read fails or expires.
func (s *Service) ReadInitial(ctx context.Context, c *session.Client, path string, timeout time.Duration) (*session.PendingRequest, error) {
	addr, err := model.ParseAddressStrict(path)
	if err != nil {
		return nil, &BuildError{Op: wire.OpRead, Path: path, Err: fmt.Errorf("%w: %v", ErrInvalidAddress, err)}
	}
	pending, err := c.AddPending(addr, s.pendingTimeout)
	if err != nil {
		return nil, err
	}

	err = s.Send(ctx, c, Input{Op: wire.OpRead, Path: path}, timeout, func(out Outcome) {
		switch out.Kind {
		case OutcomeSuccess:
			// The router resolves it; anything left was not routed.
			c.FailPending(addr, fmt.Errorf("%w: response not routed", ErrRequestFailed))
		case OutcomeProtocolFailure:
			c.FailPending(addr, fmt.Errorf("%w: %s %s", ErrRequestFailed, out.Code(), out.Code().Name()))
		default:
			c.FailPending(addr, fmt.Errorf("%w: %v", ErrRequestFailed, out.Err))
		}
	})
	if err != nil {
		c.FailPending(addr, err)
		return nil, err
	}
	return pending, nil
}

// Bootstrap reads every object instance the device announced, one at a
// time, waiting for each read to complete before issuing the next. It
// returns how many reads were satisfied.
func (s *Service) Bootstrap(ctx context.Context, c *session.Client, timeout time.Duration) (int, error) {
	satisfied := 0
	for _, link := range c.Registration().ObjectLinks {
		pending, err := s.ReadInitial(ctx, c, link.String(), timeout)
		if err != nil {
			s.logger.Warn("bootstrap read not sent", "endpoint", c.Endpoint(), "path", link, "error", err)
			continue
		}
		if _, err := pending.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return satisfied, ctx.Err()
			}
			s.logger.Warn("bootstrap read failed", "endpoint", c.Endpoint(), "path", link, "error", err)
			continue
		}
		satisfied++
	}
	return satisfied, nil
}
