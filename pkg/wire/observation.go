package wire

import "github.com/lwm2m-bridge/lwm2m-go/pkg/model"

// Observation is the engine-issued handle for an active observation.
type Observation struct {
	ID             string
	RegistrationID string
	Path           model.Address
	Format         ContentFormat
}
