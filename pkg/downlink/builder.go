package downlink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/coerce"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/modelstore"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/session"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/wire"
)

// Input describes one requested operation.
type Input struct {
	Op   wire.Operation
	Path string

	// Format is an optional content-format name ("TLV", "text", ...).
	// Unknown names are treated as absent.
	Format string

	// Value is the raw value for writes and execute arguments. Nil means
	// no value was supplied.
	Value any

	// Attributes and AttributeQuery override the default write-attributes
	// set. AttributeQuery is applied after Attributes.
	Attributes     wire.AttributeSet
	AttributeQuery string

	// Observation is the handle to cancel. When nil the observation
	// recorded on the session for Path is used.
	Observation *wire.Observation
}

// Builder builds downlink requests.
type Builder struct {
	models modelstore.Provider
	logger *slog.Logger
}

// NewBuilder creates a builder. models is the live object-model source used
// by write-update.
func NewBuilder(models modelstore.Provider) *Builder {
	return &Builder{
		models: models,
		logger: slog.Default(),
	}
}

// SetLogger sets the logger.
func (b *Builder) SetLogger(logger *slog.Logger) {
	b.logger = logger
}

// Build returns the request for in, or a *BuildError when no request can be
// built. Callers log and skip on error.
func (b *Builder) Build(ctx context.Context, c *session.Client, in Input) (wire.Request, error) {
	addr, err := model.ParseAddressStrict(in.Path)
	if err != nil {
		return nil, b.fail(in, fmt.Errorf("%w: %v", ErrInvalidAddress, err))
	}
	format := b.contentFormat(in)

	switch in.Op {
	case wire.OpRead:
		return wire.ReadRequest{Target: addr, Format: format}, nil

	case wire.OpDiscover:
		return wire.DiscoverRequest{Target: addr}, nil

	case wire.OpObserve:
		return wire.ObserveRequest{Target: scope(addr), Format: format}, nil

	case wire.OpCancelObserve:
		if in.Observation != nil {
			return wire.CancelObserveRequest{Observation: *in.Observation}, nil
		}
		obs, ok := c.Observation(addr)
		if !ok {
			return nil, b.fail(in, ErrNoObservation)
		}
		return wire.CancelObserveRequest{Observation: obs}, nil

	case wire.OpExecute:
		return b.execute(c, in, addr)

	case wire.OpWriteReplace:
		desc, ok := c.ResourceDescriptor(addr)
		if !ok {
			return nil, b.fail(in, ErrUnknownResource)
		}
		return b.write(in, addr, desc, wire.WriteReplace, format)

	case wire.OpWriteUpdate:
		if !addr.IsResource() {
			return nil, b.fail(in, ErrUnbuildable)
		}
		desc, err := modelstore.ResourceDescriptor(ctx, b.models, c.Registration(), addr)
		if err != nil {
			return nil, b.fail(in, fmt.Errorf("%w: %v", ErrUnknownResource, err))
		}
		return b.write(in, addr, desc, wire.WriteUpdate, format)

	case wire.OpWriteAttributes:
		attrs, err := b.attributes(in)
		if err != nil {
			return nil, b.fail(in, err)
		}
		return wire.WriteAttributesRequest{Target: scope(addr), Attributes: attrs}, nil
	}

	return nil, b.fail(in, ErrUnbuildable)
}

// execute includes an argument only when a value is given and the resource
// is not multi-instance.
func (b *Builder) execute(c *session.Client, in Input, addr model.Address) (wire.Request, error) {
	req := wire.ExecuteRequest{Target: addr}
	if in.Value == nil {
		return req, nil
	}
	desc, known := c.ResourceDescriptor(addr)
	if known && desc.Multiple {
		return req, nil
	}
	if !known || desc.Type == model.TypeNone {
		req.Arguments = coerce.Format(in.Value)
		return req, nil
	}
	v, err := coerce.Coerce(in.Value, desc.Type)
	if err != nil {
		return nil, b.fail(in, err)
	}
	req.Arguments = coerce.Format(v)
	return req, nil
}

// write builds a single-instance resource write. TLV is the default
// encoding for such writes, so an explicit TLV hint is left to the engine.
func (b *Builder) write(in Input, addr model.Address, desc model.ResourceDescriptor, mode wire.WriteMode, format wire.ContentFormat) (wire.Request, error) {
	if !addr.IsResource() || desc.Multiple {
		return nil, b.fail(in, ErrUnbuildable)
	}
	v, err := coerce.Coerce(in.Value, desc.Type)
	if err != nil {
		return nil, b.fail(in, err)
	}
	if format == wire.FormatTLV {
		format = wire.FormatDefault
	}
	return wire.WriteRequest{
		Target: addr,
		Mode:   mode,
		Format: format,
		Type:   desc.Type,
		Value:  v,
	}, nil
}

func (b *Builder) attributes(in Input) (wire.AttributeSet, error) {
	attrs := wire.DefaultAttributes().Merge(in.Attributes)
	if in.AttributeQuery != "" {
		q, err := wire.ParseAttributeSet(in.AttributeQuery)
		if err != nil {
			return nil, err
		}
		attrs = attrs.Merge(q)
	}
	if err := attrs.Validate(); err != nil {
		return nil, err
	}
	return attrs, nil
}

func (b *Builder) contentFormat(in Input) wire.ContentFormat {
	f, ok := wire.ParseContentFormat(in.Format)
	if !ok {
		b.logger.Warn("unknown content format, using default", "format", in.Format, "path", in.Path, "op", in.Op)
	}
	return f
}

func (b *Builder) fail(in Input, err error) error {
	be := &BuildError{Op: in.Op, Path: in.Path, Err: err}
	attrs := []any{"op", in.Op, "path", in.Path, "error", err}
	var ce *coerce.CoercionError
	if errors.As(err, &ce) {
		if ce.Path == "" {
			ce.Path = in.Path
		}
		attrs = append(attrs, "type", ce.Type, "value", ce.Value)
	}
	b.logger.Warn("request not built", attrs...)
	return be
}

// scope returns addr at its most specific present level.
func scope(addr model.Address) model.Address {
	switch {
	case addr.ResourceID >= 0:
		return model.ResourceAddress(addr.ObjectID, addr.InstanceID, addr.ResourceID)
	case addr.InstanceID >= 0:
		return model.InstanceAddress(addr.ObjectID, addr.InstanceID)
	default:
		return model.ObjectAddress(addr.ObjectID)
	}
}
