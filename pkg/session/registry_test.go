package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
)

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	a := r.Register(NewRegistration("dev-b", "10.0.0.2:5683"))
	b := r.Register(NewRegistration("dev-a", "10.0.0.1:5683"))
	assert.Equal(t, 2, r.Len())

	got, ok := r.Client(a.ID())
	require.True(t, ok)
	assert.Same(t, a, got)

	got, ok = r.ClientByEndpoint("dev-a")
	require.True(t, ok)
	assert.Same(t, b, got)

	regs := r.Registrations()
	require.Len(t, regs, 2)
	assert.Equal(t, "dev-a", regs[0].Endpoint)
	assert.Equal(t, "dev-b", regs[1].Endpoint)
}

func TestRegistryReRegisterCancelsPending(t *testing.T) {
	r := NewRegistry()
	old := r.Register(NewRegistration("dev", "10.0.0.1:5683"))
	p, err := old.AddPending(model.ResourceAddress(3, 0, 0), 0)
	require.NoError(t, err)

	fresh := r.Register(NewRegistration("dev", "10.0.0.1:5684"))
	assert.NotEqual(t, old.ID(), fresh.ID())
	assert.Equal(t, 1, r.Len())

	_, err = p.Wait(context.Background())
	assert.ErrorIs(t, err, ErrPendingCanceled)

	_, ok := r.Client(old.ID())
	assert.False(t, ok)
}

func TestRegistryDeregister(t *testing.T) {
	r := NewRegistry()
	c := r.Register(NewRegistration("dev", "10.0.0.1:5683"))

	require.NoError(t, r.Deregister(c.ID()))
	assert.ErrorIs(t, r.Deregister(c.ID()), ErrUnknownRegistration)
	_, ok := r.ClientByEndpoint("dev")
	assert.False(t, ok)
}

func TestRegistrySweeper(t *testing.T) {
	r := NewRegistry()
	c := r.Register(NewRegistration("dev", "10.0.0.1:5683"))
	p, err := c.AddPending(model.ResourceAddress(3, 0, 0), time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, r.Start(""))
	assert.ErrorIs(t, r.Start(""), ErrRegistryRunning)

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not expire pending request")
	}
	_, err = p.Result()
	assert.ErrorIs(t, err, ErrPendingExpired)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))
	require.NoError(t, r.Stop(ctx))
}

func TestRegistrationObjects(t *testing.T) {
	reg := NewRegistration("dev", "", model.InstanceAddress(3, 0), model.InstanceAddress(3303, 0), model.InstanceAddress(3303, 1))
	assert.True(t, reg.SupportsObject(3303))
	assert.False(t, reg.SupportsObject(5))
	assert.Equal(t, []int{3, 3303}, reg.ObjectIDs())
	assert.NotEmpty(t, reg.ID)
}
