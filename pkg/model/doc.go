// Package model implements the LwM2M resource addressing and object model.
//
// # Addressing
//
// Resources are addressed by a strictly nested path:
//
//	/{objectId}[/{instanceId}[/{resourceId}]]
//
// An Address always carries an object ID. Instance and resource IDs are
// optional and use NoID (-1) when absent. A resource ID is only present when
// the instance ID is present.
//
// # Object Model
//
// An ObjectModel describes one object class (e.g. 3 = Device) and the
// resources it defines. Each ResourceModel has a ResourceType tag and a
// multiplicity flag; the pair is exposed to request building as a
// ResourceDescriptor.
//
// # Loading Definitions
//
// LoadDefault returns the built-in core objects. LoadDir reads a directory of
// DDF XML files (*.xml) and YAML definition files (*.yaml, *.yml).
package model
