package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
)

// Registration identifies one registered device.
type Registration struct {
	ID           string
	Endpoint     string
	Address      string
	ObjectLinks  []model.Address
	RegisteredAt time.Time
}

// NewRegistration creates a registration with a fresh ID.
func NewRegistration(endpoint, address string, links ...model.Address) *Registration {
	return &Registration{
		ID:           uuid.NewString(),
		Endpoint:     endpoint,
		Address:      address,
		ObjectLinks:  links,
		RegisteredAt: time.Now(),
	}
}

// SupportsObject returns true if the device announced objectID.
func (r *Registration) SupportsObject(objectID int) bool {
	for _, l := range r.ObjectLinks {
		if l.ObjectID == objectID {
			return true
		}
	}
	return false
}

// ObjectIDs returns the distinct announced object IDs in announcement order.
func (r *Registration) ObjectIDs() []int {
	seen := make(map[int]bool)
	var ids []int
	for _, l := range r.ObjectLinks {
		if !seen[l.ObjectID] {
			seen[l.ObjectID] = true
			ids = append(ids, l.ObjectID)
		}
	}
	return ids
}
