package devicesim

import (
	"context"
	"net"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/engine"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/session"
)

// Connect attaches d to hub as the connection of reg over an in-memory
// pipe. The device serves until ctx ends or the hub drops the connection.
func Connect(ctx context.Context, hub *engine.Hub, reg *session.Registration, d *Device) *engine.Client {
	server, device := net.Pipe()
	c := hub.Attach(reg, server)
	go func() {
		if err := d.Serve(ctx, device); err != nil {
			d.logger.Warn("device stopped", "endpoint", d.endpoint, "error", err)
		}
		_ = device.Close()
	}()
	return c
}

// Register registers d with registry under its own endpoint and object
// links and connects it to hub.
func Register(ctx context.Context, registry *session.Registry, hub *engine.Hub, d *Device, address string) *session.Client {
	reg := session.NewRegistration(d.Endpoint(), address, d.Links()...)
	c := registry.Register(reg, d.objectModels()...)
	Connect(ctx, hub, reg, d)
	return c
}
