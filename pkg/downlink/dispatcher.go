package downlink

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/coerce"
	plog "github.com/lwm2m-bridge/lwm2m-go/pkg/log"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/session"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/telemetry"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/wire"
)

// DefaultTimeout applies when Dispatch is given a non-positive timeout.
const DefaultTimeout = 2 * time.Minute

// Sender is the protocol engine boundary. Send blocks until the device
// answers, the engine fails or ctx ends.
type Sender interface {
	Send(ctx context.Context, reg *session.Registration, req wire.Request) (wire.Response, error)
}

// Dispatcher sends requests and hands each outcome to the worker pool.
type Dispatcher struct {
	sender  Sender
	pool    *Pool
	router  *Router
	sink    telemetry.Sink
	capture plog.Logger
	logger  *slog.Logger
	timeout time.Duration
}

// NewDispatcher creates a dispatcher. Successful responses go to router;
// failure lines go to sink.
func NewDispatcher(sender Sender, pool *Pool, router *Router, sink telemetry.Sink) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		pool:    pool,
		router:  router,
		sink:    sink,
		capture: plog.NoopLogger{},
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// SetLogger sets the operational logger.
func (d *Dispatcher) SetLogger(logger *slog.Logger) {
	d.logger = logger
}

// SetProtocolLogger sets the protocol capture logger.
func (d *Dispatcher) SetProtocolLogger(l plog.Logger) {
	d.capture = plog.OrNoop(l)
}

// SetDefaultTimeout sets the timeout used when Dispatch gets a non-positive one.
func (d *Dispatcher) SetDefaultTimeout(timeout time.Duration) {
	if timeout > 0 {
		d.timeout = timeout
	}
}

// Dispatch sends req to the device of c without blocking. done, if not nil,
// is called exactly once on a pool worker after the outcome was logged and
// routed, also when routing panicked.
func (d *Dispatcher) Dispatch(c *session.Client, req wire.Request, timeout time.Duration, done func(Outcome)) {
	if timeout <= 0 {
		timeout = d.timeout
	}
	d.capture.Log(plog.NewRequestEvent(c.ID(), c.Endpoint(), req, requestPayload(req)))

	var once sync.Once
	complete := func(out Outcome) {
		once.Do(func() {
			task := func() {
				d.route(c, out)
				if done != nil {
					done(out)
				}
			}
			if err := d.pool.Submit(task); err != nil {
				d.logger.Warn("worker pool closed, completing inline", "path", req.Path(), "error", err)
				d.pool.run(task)
			}
		})
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		start := time.Now()

		type result struct {
			resp wire.Response
			err  error
		}
		results := make(chan result, 1)
		go func() {
			resp, err := d.sender.Send(ctx, c.Registration(), req)
			results <- result{resp: resp, err: err}
		}()

		select {
		case r := <-results:
			if r.err != nil && ctx.Err() != nil {
				r.err = fmt.Errorf("%w after %s: %v", ErrTimeout, timeout, r.err)
			}
			complete(newOutcome(req, r.resp, r.err, time.Since(start)))
		case <-ctx.Done():
			complete(newOutcome(req, nil, fmt.Errorf("%w after %s", ErrTimeout, timeout), time.Since(start)))
		}
	}()
}

// route runs handle and contains a panic from the router or its ingestor.
func (d *Dispatcher) route(c *session.Client, out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			if debugBuild {
				panic(r)
			}
			d.logger.Error("response routing panicked",
				"endpoint", c.Endpoint(),
				"path", out.Request.Path(),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	d.handle(c, out)
}

// handle logs the outcome and routes successful responses.
func (d *Dispatcher) handle(c *session.Client, out Outcome) {
	req := out.Request
	path := req.Path()

	switch out.Kind {
	case OutcomeSuccess:
		d.capture.Log(plog.NewResponseEvent(c.ID(), c.Endpoint(), req, out.Response, out.Elapsed))
		if w, ok := req.(wire.WriteRequest); ok && w.IsReplace() {
			code := out.Response.ResponseCode()
			d.sink.Emit(c.ID(), telemetry.Info("sendRequest Replace: CoapCde - %s Lwm2m code - %d name - %s Resource path - %s value - %s",
				code, code.Number(), code.Name(), path, coerce.Format(w.Value)))
		}
		d.router.Route(c, path, out.Response, req)

	case OutcomeProtocolFailure:
		d.capture.Log(plog.NewResponseEvent(c.ID(), c.Endpoint(), req, out.Response, out.Elapsed))
		code := out.Response.ResponseCode()
		msg := telemetry.Error("sendRequest: CoapCde - %s Lwm2m code - %d name - %s Resource path - %s",
			code, code.Number(), code.Name(), path)
		if text := out.Response.Message(); text != "" {
			msg += " msg - " + text
		}
		d.sink.Emit(c.ID(), msg)
		d.logger.Error("request failed", "endpoint", c.Endpoint(), "path", path, "code", code.String(), "name", code.Name())

	case OutcomeTransportError:
		d.capture.Log(plog.NewErrorEvent(c.ID(), c.Endpoint(), path.String(), plog.LayerDispatch, "dispatch", out.Err))
		d.sink.Emit(c.ID(), telemetry.Error("sendRequest: Resource path - %s msg error - %v", path, out.Err))
		d.logger.Error("request not delivered", "endpoint", c.Endpoint(), "path", path, "error", out.Err)
	}
}

func requestPayload(req wire.Request) any {
	switch r := req.(type) {
	case wire.WriteRequest:
		return coerce.Format(r.Value)
	case wire.ExecuteRequest:
		if r.HasArguments() {
			return r.Arguments
		}
	case wire.WriteAttributesRequest:
		return r.Attributes.String()
	}
	return nil
}
