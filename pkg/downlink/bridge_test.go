package downlink_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/devicesim"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/downlink"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/engine"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/modelstore"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/session"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/wire"
)

type recorder struct {
	mu       sync.Mutex
	messages []string
	ingested []model.Address
}

func (r *recorder) Emit(_ string, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func (r *recorder) Observation(_ *session.Client, path model.Address, _ wire.Content) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ingested = append(r.ingested, path)
}

func (r *recorder) AttributeUpdateOK(_ *session.Client, path model.Address, _ wire.WriteRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ingested = append(r.ingested, path)
}

func (r *recorder) snapshot() ([]string, []model.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...), append([]model.Address(nil), r.ingested...)
}

type bridge struct {
	rec     *recorder
	service *downlink.Service
	client  *session.Client
	device  *devicesim.Device
}

func newBridge(t *testing.T) *bridge {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	rec := &recorder{}
	hub := engine.NewHub()
	t.Cleanup(func() { _ = hub.Close() })
	pool := downlink.NewPool(2, 16, nil)
	t.Cleanup(pool.Close)

	registry := session.NewRegistry()
	device := devicesim.NewDefault("urn:dev:e2e")
	client := devicesim.Register(ctx, registry, hub, device, "pipe")

	dispatcher := downlink.NewDispatcher(hub, pool, downlink.NewRouter(rec), rec)
	builder := downlink.NewBuilder(modelstore.NewStaticProvider(model.LoadDefault()))
	return &bridge{
		rec:     rec,
		service: downlink.NewService(builder, dispatcher),
		client:  client,
		device:  device,
	}
}

func TestBootstrapOverEngine(t *testing.T) {
	b := newBridge(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := b.service.Bootstrap(ctx, b.client, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	v, ok := b.client.Value(model.ResourceAddress(3, 0, 0))
	assert.True(t, ok)
	assert.Equal(t, "Open Mobile Alliance", v)

	messages, ingested := b.rec.snapshot()
	assert.Empty(t, messages)
	assert.Empty(t, ingested, "initial reads are not telemetry")
}

func TestWriteReplaceOverEngine(t *testing.T) {
	b := newBridge(t)
	outcomes := make(chan downlink.Outcome, 1)

	err := b.service.Send(context.Background(), b.client, downlink.Input{
		Op:    wire.OpWriteReplace,
		Path:  "/1/0/1",
		Value: "120",
	}, time.Second, func(out downlink.Outcome) { outcomes <- out })
	require.NoError(t, err)

	out := <-outcomes
	assert.Equal(t, downlink.OutcomeSuccess, out.Kind)
	v, _ := b.device.Value(model.ResourceAddress(1, 0, 1))
	assert.EqualValues(t, 120, v)

	messages, ingested := b.rec.snapshot()
	assert.Equal(t, []string{
		"LWM2M_INFO: sendRequest Replace: CoapCde - 2.04 Lwm2m code - 204 name - CHANGED Resource path - /1/0/1 value - 120",
	}, messages)
	assert.Equal(t, []model.Address{model.ResourceAddress(1, 0, 1)}, ingested)
}

func TestWriteReplaceNegativeIntegerOverEngine(t *testing.T) {
	b := newBridge(t)
	outcomes := make(chan downlink.Outcome, 1)

	err := b.service.Send(context.Background(), b.client, downlink.Input{
		Op:    wire.OpWriteReplace,
		Path:  "/1/0/1",
		Value: "-1",
	}, time.Second, func(out downlink.Outcome) { outcomes <- out })
	require.NoError(t, err)

	select {
	case out := <-outcomes:
		require.Equal(t, downlink.OutcomeSuccess, out.Kind, "err: %v", out.Err)
	case <-time.After(3 * time.Second):
		t.Fatal("write was not answered")
	}
	v, _ := b.device.Value(model.ResourceAddress(1, 0, 1))
	assert.Equal(t, uint64(4294967295), v)

	messages, _ := b.rec.snapshot()
	assert.Equal(t, []string{
		"LWM2M_INFO: sendRequest Replace: CoapCde - 2.04 Lwm2m code - 204 name - CHANGED Resource path - /1/0/1 value - 4294967295",
	}, messages)
}

func TestObserveThenCancelOverEngine(t *testing.T) {
	b := newBridge(t)
	path := model.ResourceAddress(3, 0, 9)
	outcomes := make(chan downlink.Outcome, 1)
	done := func(out downlink.Outcome) { outcomes <- out }

	require.NoError(t, b.service.Send(context.Background(), b.client, downlink.Input{Op: wire.OpObserve, Path: "/3/0/9"}, time.Second, done))
	require.Equal(t, downlink.OutcomeSuccess, (<-outcomes).Kind)

	obs, ok := b.client.Observation(path)
	require.True(t, ok)
	assert.Len(t, b.device.Observations(), 1)
	assert.Equal(t, b.device.Observations()[0].ID, obs.ID)

	require.NoError(t, b.service.Send(context.Background(), b.client, downlink.Input{Op: wire.OpCancelObserve, Path: "/3/0/9"}, time.Second, done))
	require.Equal(t, downlink.OutcomeSuccess, (<-outcomes).Kind)
	_, ok = b.client.Observation(path)
	assert.False(t, ok)
	assert.Empty(t, b.device.Observations())
}

func TestProtocolFailureOverEngine(t *testing.T) {
	b := newBridge(t)
	outcomes := make(chan downlink.Outcome, 1)

	require.NoError(t, b.service.Send(context.Background(), b.client, downlink.Input{Op: wire.OpRead, Path: "/3/0/20"}, time.Second,
		func(out downlink.Outcome) { outcomes <- out }))

	out := <-outcomes
	assert.Equal(t, downlink.OutcomeProtocolFailure, out.Kind)
	messages, ingested := b.rec.snapshot()
	assert.Equal(t, []string{
		"LWM2M_ERROR: sendRequest: CoapCde - 4.04 Lwm2m code - 404 name - NOT_FOUND Resource path - /3/0/20",
	}, messages)
	assert.Empty(t, ingested)
}
