package modelstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/session"
)

// Store errors.
var (
	ErrUnknownObject   = errors.New("unknown object")
	ErrUnknownResource = errors.New("unknown resource")
)

// Provider returns the object model a registration currently uses.
type Provider interface {
	ObjectModel(ctx context.Context, reg *session.Registration, objectID int) (*model.ObjectModel, error)
}

// ResourceDescriptor looks up the declared type of a resource-level address
// through p.
func ResourceDescriptor(ctx context.Context, p Provider, reg *session.Registration, addr model.Address) (model.ResourceDescriptor, error) {
	if !addr.IsResource() {
		return model.ResourceDescriptor{}, fmt.Errorf("%w: %s is not a resource path", ErrUnknownResource, addr)
	}
	obj, err := p.ObjectModel(ctx, reg, addr.ObjectID)
	if err != nil {
		return model.ResourceDescriptor{}, err
	}
	res := obj.Resource(addr.ResourceID)
	if res == nil {
		return model.ResourceDescriptor{}, fmt.Errorf("%w: %s", ErrUnknownResource, addr)
	}
	return res.Descriptor(), nil
}

// StaticProvider serves the same models to every registration.
type StaticProvider struct {
	mu     sync.RWMutex
	models map[int]*model.ObjectModel
}

// NewStaticProvider creates a provider over models.
func NewStaticProvider(models []*model.ObjectModel) *StaticProvider {
	p := &StaticProvider{models: make(map[int]*model.ObjectModel, len(models))}
	for _, m := range models {
		p.models[m.ID] = m
	}
	return p
}

// ObjectModel returns the model for objectID regardless of reg.
func (p *StaticProvider) ObjectModel(_ context.Context, _ *session.Registration, objectID int) (*model.ObjectModel, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	m, ok := p.models[objectID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownObject, objectID)
	}
	return m, nil
}

// Put adds or replaces a model.
func (p *StaticProvider) Put(m *model.ObjectModel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.models[m.ID] = m
}

// Models returns all models ordered by ID.
func (p *StaticProvider) Models() []*model.ObjectModel {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*model.ObjectModel, 0, len(p.models))
	for _, m := range p.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ModelsFor returns the models of the objects reg announced, ordered by ID.
// Objects the provider does not know are skipped.
func (p *StaticProvider) ModelsFor(reg *session.Registration) []*model.ObjectModel {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []*model.ObjectModel
	for _, id := range reg.ObjectIDs() {
		if m, ok := p.models[id]; ok {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
