package downlink

import (
	"fmt"
	"log/slog"
	"time"

	plog "github.com/lwm2m-bridge/lwm2m-go/pkg/log"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/session"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/telemetry"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/wire"
)

// Router forwards successful responses to their consumer.
type Router struct {
	ingest  telemetry.Ingestor
	capture plog.Logger
	logger  *slog.Logger
}

// NewRouter creates a router delivering device data to ingest.
func NewRouter(ingest telemetry.Ingestor) *Router {
	return &Router{
		ingest:  ingest,
		capture: plog.NoopLogger{},
		logger:  slog.Default(),
	}
}

// SetLogger sets the operational logger.
func (r *Router) SetLogger(logger *slog.Logger) {
	r.logger = logger
}

// SetProtocolLogger sets the protocol capture logger.
func (r *Router) SetProtocolLogger(l plog.Logger) {
	r.capture = plog.OrNoop(l)
}

// Route handles resp, the answer to req for path.
//
// A read satisfies the session's pending request for path when there is one
// and is otherwise ingested as unsolicited data, never both.
func (r *Router) Route(c *session.Client, path model.Address, resp wire.Response, req wire.Request) {
	switch resp.Kind() {
	case wire.KindObserve:
		obs, ok := resp.(wire.ObserveResponse)
		if !ok {
			r.unknownKind(c, path, resp)
			return
		}
		if obs.Observation != nil {
			handle := *obs.Observation
			handle.RegistrationID = c.ID()
			c.AddObservation(handle)
			r.state(c, path, plog.StateEntityObservation, "ACTIVE", handle.ID)
		}
		r.ingest.Observation(c, path, obs.Content)

	case wire.KindCancelObserve:
		r.logger.Info("observation canceled", "endpoint", c.Endpoint(), "path", path)

	case wire.KindRead:
		read, ok := resp.(wire.ReadResponse)
		if !ok {
			r.unknownKind(c, path, resp)
			return
		}
		if c.ResolvePending(path, read.Content) {
			r.state(c, path, plog.StateEntityPending, "SATISFIED", "")
			r.logger.Debug("pending read satisfied", "endpoint", c.Endpoint(), "path", path)
			return
		}
		r.ingest.Observation(c, path, read.Content)

	case wire.KindDelete:
		r.logger.Info("delete acknowledged", "endpoint", c.Endpoint(), "path", path)

	case wire.KindDiscover:
		links := 0
		if d, ok := resp.(wire.DiscoverResponse); ok {
			links = len(d.Links)
		}
		r.logger.Info("discover answered", "endpoint", c.Endpoint(), "path", path, "links", links)

	case wire.KindExecute:
		r.logger.Info("execute acknowledged", "endpoint", c.Endpoint(), "path", path)

	case wire.KindWriteAttributes:
		r.logger.Info("write-attributes acknowledged", "endpoint", c.Endpoint(), "path", path)

	case wire.KindWrite:
		w, ok := req.(wire.WriteRequest)
		if !ok {
			r.logger.Error("write acknowledged for non-write request", "endpoint", c.Endpoint(), "path", path, "op", req.Operation())
			return
		}
		r.ingest.AttributeUpdateOK(c, path, w)

	default:
		r.unknownKind(c, path, resp)
	}
}

func (r *Router) unknownKind(c *session.Client, path model.Address, resp wire.Response) {
	msg := fmt.Sprintf("unhandled response kind %d (%T)", resp.Kind(), resp)
	if debugBuild {
		panic(msg)
	}
	r.capture.Log(plog.NewErrorEvent(c.ID(), c.Endpoint(), path.String(), plog.LayerRouting, "route", fmt.Errorf("%s", msg)))
	r.logger.Error("response dropped", "endpoint", c.Endpoint(), "path", path, "reason", msg)
}

func (r *Router) state(c *session.Client, path model.Address, entity plog.StateEntity, state, reason string) {
	r.capture.Log(plog.Event{
		Timestamp: time.Now(),
		SessionID: c.ID(),
		Endpoint:  c.Endpoint(),
		Direction: plog.DirectionIn,
		Layer:     plog.LayerRouting,
		Category:  plog.CategoryState,
		Path:      path.String(),
		StateChange: &plog.StateChangeEvent{
			Entity:   entity,
			NewState: state,
			Reason:   reason,
		},
	})
}
