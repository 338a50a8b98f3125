package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/wire"
)

func newTestClient() *Client {
	reg := NewRegistration("urn:dev:1", "127.0.0.1:5683", model.InstanceAddress(3, 0))
	return NewClient(reg, model.LoadDefault()...)
}

func TestClientResourceDescriptor(t *testing.T) {
	c := newTestClient()

	d, ok := c.ResourceDescriptor(model.ResourceAddress(3, 0, 9))
	require.True(t, ok)
	assert.Equal(t, model.TypeInteger, d.Type)
	assert.False(t, d.Multiple)

	d, ok = c.ResourceDescriptor(model.ResourceAddress(3, 0, 6))
	require.True(t, ok)
	assert.True(t, d.Multiple)

	_, ok = c.ResourceDescriptor(model.InstanceAddress(3, 0))
	assert.False(t, ok, "instance address has no descriptor")

	_, ok = c.ResourceDescriptor(model.ResourceAddress(3303, 0, 5700))
	assert.False(t, ok, "object not cached")
}

func TestClientResolvePending(t *testing.T) {
	c := newTestClient()
	path := model.ResourceAddress(3, 0, 0)

	p, err := c.AddPending(path, time.Minute)
	require.NoError(t, err)
	assert.True(t, c.HasPending(path))

	_, err = c.AddPending(path, time.Minute)
	assert.ErrorIs(t, err, ErrPendingExists)

	content := wire.Content{"/3/0/0": "ACME"}
	assert.True(t, c.ResolvePending(path, content))
	assert.False(t, c.HasPending(path))

	got, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, content, got)

	v, ok := c.Value(path)
	assert.True(t, ok)
	assert.Equal(t, "ACME", v)

	// A second resolve finds nothing and changes nothing.
	assert.False(t, c.ResolvePending(path, wire.Content{"/3/0/0": "other"}))
	v, _ = c.Value(path)
	assert.Equal(t, "ACME", v)
}

func TestClientExpirePending(t *testing.T) {
	c := newTestClient()

	short, err := c.AddPending(model.ResourceAddress(3, 0, 0), time.Millisecond)
	require.NoError(t, err)
	forever, err := c.AddPending(model.ResourceAddress(3, 0, 1), 0)
	require.NoError(t, err)

	n := c.ExpirePending(time.Now().Add(time.Second))
	assert.Equal(t, 1, n)

	_, err = short.Wait(context.Background())
	assert.ErrorIs(t, err, ErrPendingExpired)

	select {
	case <-forever.Done():
		t.Fatal("request without deadline must not expire")
	default:
	}
	assert.Equal(t, 1, c.PendingCount())

	c.CancelPending()
	_, err = forever.Wait(context.Background())
	assert.ErrorIs(t, err, ErrPendingCanceled)
	assert.Equal(t, 0, c.PendingCount())
}

func TestPendingWaitContext(t *testing.T) {
	c := newTestClient()
	p, err := c.AddPending(model.ResourceAddress(3, 0, 2), 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = p.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientObservations(t *testing.T) {
	c := newTestClient()
	path := model.ResourceAddress(3, 0, 9)

	c.AddObservation(wire.Observation{ID: "a", RegistrationID: c.ID(), Path: path})
	c.AddObservation(wire.Observation{ID: "b", RegistrationID: c.ID(), Path: model.InstanceAddress(3, 0)})

	obs, ok := c.Observation(path)
	require.True(t, ok)
	assert.Equal(t, "a", obs.ID)

	all := c.Observations()
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)

	c.RemoveObservation(path)
	_, ok = c.Observation(path)
	assert.False(t, ok)
}

func TestClientConcurrentCompletions(t *testing.T) {
	c := newTestClient()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		path := model.ResourceAddress(3, 0, i)
		_, err := c.AddPending(path, time.Minute)
		require.NoError(t, err)

		wg.Add(1)
		go func() {
			defer wg.Done()
			c.ResolvePending(path, wire.Content{path.String(): uint64(1)})
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, c.PendingCount())
	assert.Len(t, c.Values(), 50)
}
