package devicesim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/coerce"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/engine"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/wire"
)

// Execution records one executed resource.
type Execution struct {
	Path      model.Address
	Arguments string
	At        time.Time
}

// Device is a simulated LwM2M client.
type Device struct {
	endpoint string
	models   map[int]*model.ObjectModel
	logger   *slog.Logger

	mu           sync.Mutex
	values       wire.Content
	observations map[string]wire.Observation
	attributes   map[string]wire.AttributeSet
	executed     []Execution
}

// New creates a device with the given object models and no values.
func New(endpoint string, models ...*model.ObjectModel) *Device {
	d := &Device{
		endpoint:     endpoint,
		models:       make(map[int]*model.ObjectModel, len(models)),
		logger:       slog.Default(),
		values:       make(wire.Content),
		observations: make(map[string]wire.Observation),
		attributes:   make(map[string]wire.AttributeSet),
	}
	for _, m := range models {
		d.models[m.ID] = m
	}
	return d
}

// NewDefault creates a device populated with server and device object values.
func NewDefault(endpoint string) *Device {
	d := New(endpoint, model.LoadDefault()...)
	d.Set(model.ResourceAddress(1, 0, 0), uint64(1))
	d.Set(model.ResourceAddress(1, 0, 1), uint64(300))
	d.Set(model.ResourceAddress(1, 0, 7), "U")
	d.Set(model.ResourceAddress(3, 0, 0), "Open Mobile Alliance")
	d.Set(model.ResourceAddress(3, 0, 1), "Lightweight M2M Client")
	d.Set(model.ResourceAddress(3, 0, 2), "345000123")
	d.Set(model.ResourceAddress(3, 0, 3), "1.0")
	d.Set(model.ResourceAddress(3, 0, 9), uint64(100))
	d.Set(model.ResourceAddress(3, 0, 13), uint64(time.Now().Unix()))
	d.Set(model.ResourceAddress(3, 0, 16), "U")
	return d
}

func (d *Device) objectModels() []*model.ObjectModel {
	ids := make([]int, 0, len(d.models))
	for id := range d.models {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]*model.ObjectModel, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.models[id])
	}
	return out
}

// SetLogger sets the logger.
func (d *Device) SetLogger(logger *slog.Logger) {
	d.logger = logger
}

// Endpoint returns the endpoint name.
func (d *Device) Endpoint() string {
	return d.endpoint
}

// Set stores a resource value.
func (d *Device) Set(addr model.Address, v any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values.Set(addr, v)
}

// Value returns a resource value.
func (d *Device) Value(addr model.Address) (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.values.Value(addr)
}

// Links returns the object instances holding values, in path order.
func (d *Device) Links() []model.Address {
	d.mu.Lock()
	defer d.mu.Unlock()
	seen := make(map[model.Address]bool)
	var links []model.Address
	for p := range d.values {
		a := model.ParseAddress(p)
		inst := model.InstanceAddress(a.ObjectID, a.InstanceID)
		if !seen[inst] {
			seen[inst] = true
			links = append(links, inst)
		}
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].ObjectID != links[j].ObjectID {
			return links[i].ObjectID < links[j].ObjectID
		}
		return links[i].InstanceID < links[j].InstanceID
	})
	return links
}

// Executed returns the executions so far.
func (d *Device) Executed() []Execution {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Execution(nil), d.executed...)
}

// Attributes returns the notification attributes written to addr.
func (d *Device) Attributes(addr model.Address) (wire.AttributeSet, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.attributes[addr.String()]
	return a, ok
}

// Observations returns the active observations.
func (d *Device) Observations() []wire.Observation {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]wire.Observation, 0, len(d.observations))
	for _, o := range d.observations {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Serve answers request frames on conn until it closes or ctx ends.
func (d *Device) Serve(ctx context.Context, conn io.ReadWriteCloser) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	framer := engine.NewFramer(conn)
	for {
		data, err := framer.ReadFrame()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return err
		}

		msgID, req, err := wire.DecodeRequest(data)
		if err != nil {
			d.logger.Warn("bad request frame", "endpoint", d.endpoint, "msgID", msgID, "error", err)
			continue
		}
		resp := d.Handle(req)
		out, err := wire.EncodeResponse(msgID, req.Path(), resp)
		if err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
		if err := framer.WriteFrame(out); err != nil {
			return err
		}
	}
}

// Handle answers one request.
func (d *Device) Handle(req wire.Request) wire.Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch r := req.(type) {
	case wire.ReadRequest:
		content, code := d.read(r.Target)
		return wire.ReadResponse{Status: status(code), Content: content}

	case wire.DiscoverRequest:
		links, code := d.discover(r.Target)
		return wire.DiscoverResponse{Status: status(code), Links: links}

	case wire.ObserveRequest:
		content, code := d.read(r.Target)
		resp := wire.ObserveResponse{Status: status(code), Content: content}
		if code.IsSuccess() {
			obs := wire.Observation{ID: uuid.NewString(), Path: r.Target, Format: r.Format}
			d.observations[obs.ID] = obs
			resp.Observation = &obs
		}
		return resp

	case wire.CancelObserveRequest:
		obs, ok := d.observations[r.Observation.ID]
		if !ok {
			return wire.CancelObserveResponse{Status: wire.Status{Code: wire.CodeNotFound, ErrorMessage: "no such observation"}}
		}
		delete(d.observations, obs.ID)
		content, code := d.read(obs.Path)
		return wire.CancelObserveResponse{Status: status(code), Content: content}

	case wire.ExecuteRequest:
		res, code := d.resource(r.Target)
		if code == 0 && !res.Operations.CanExecute() {
			code = wire.CodeMethodNotAllowed
		}
		if code != 0 {
			return wire.ExecuteResponse{Status: status(code)}
		}
		d.executed = append(d.executed, Execution{Path: r.Target, Arguments: r.Arguments, At: time.Now()})
		return wire.ExecuteResponse{Status: status(wire.CodeChanged)}

	case wire.WriteRequest:
		res, code := d.resource(r.Target)
		if code == 0 && !res.Operations.CanWrite() {
			code = wire.CodeMethodNotAllowed
		}
		if code != 0 {
			return wire.WriteResponse{Status: status(code)}
		}
		v, err := coerce.FromWire(coerce.Format(r.Value), res.Type)
		if err != nil {
			return wire.WriteResponse{Status: wire.Status{Code: wire.CodeBadRequest, ErrorMessage: err.Error()}}
		}
		d.values.Set(r.Target, v)
		return wire.WriteResponse{Status: status(wire.CodeChanged)}

	case wire.WriteAttributesRequest:
		if _, ok := d.models[r.Target.ObjectID]; !ok {
			return wire.WriteAttributesResponse{Status: status(wire.CodeNotFound)}
		}
		if err := r.Attributes.Validate(); err != nil {
			return wire.WriteAttributesResponse{Status: wire.Status{Code: wire.CodeBadRequest, ErrorMessage: err.Error()}}
		}
		d.attributes[r.Target.String()] = r.Attributes.Merge(nil)
		return wire.WriteAttributesResponse{Status: status(wire.CodeChanged)}
	}

	return wire.ExecuteResponse{Status: status(wire.CodeMethodNotAllowed)}
}

func status(code wire.Code) wire.Status {
	return wire.Status{Code: code}
}

func (d *Device) read(addr model.Address) (wire.Content, wire.Code) {
	content := d.values.Within(addr)
	if len(content) == 0 {
		return nil, wire.CodeNotFound
	}
	return content, wire.CodeContent
}

// resource returns the model of a resource-level address, or a non-zero
// error code.
func (d *Device) resource(addr model.Address) (*model.ResourceModel, wire.Code) {
	if !addr.IsResource() {
		return nil, wire.CodeMethodNotAllowed
	}
	res := d.models[addr.ObjectID].Resource(addr.ResourceID)
	if res == nil {
		return nil, wire.CodeNotFound
	}
	return res, 0
}

func (d *Device) discover(addr model.Address) ([]string, wire.Code) {
	m, ok := d.models[addr.ObjectID]
	if !ok {
		return nil, wire.CodeNotFound
	}
	var links []string
	for _, p := range d.values.Within(addr).Paths() {
		a := model.ParseAddress(p)
		if m.Resource(a.ResourceID) == nil {
			continue
		}
		link := "<" + p + ">"
		if attrs, ok := d.attributes[p]; ok {
			link += ";" + strings.ReplaceAll(attrs.String(), "&", ";")
		}
		links = append(links, link)
	}
	if len(links) == 0 {
		return nil, wire.CodeNotFound
	}
	return links, wire.CodeContent
}
