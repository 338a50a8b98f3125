package downlink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/wire"
)

func sampleContent() wire.Content {
	return wire.Content{"/3/0/0": "ACME"}
}

func readOK() wire.ReadResponse {
	return wire.ReadResponse{Status: wire.Status{Code: wire.CodeContent}, Content: sampleContent()}
}

func TestRouteReadWithPendingRequest(t *testing.T) {
	ingest := &fakeIngestor{}
	r := NewRouter(ingest)
	c := newTestClient()
	path := model.ResourceAddress(3, 0, 0)

	pending, err := c.AddPending(path, time.Minute)
	require.NoError(t, err)

	r.Route(c, path, readOK(), wire.ReadRequest{Target: path})

	select {
	case <-pending.Done():
	default:
		t.Fatal("pending request not satisfied")
	}
	got, err := pending.Result()
	require.NoError(t, err)
	assert.Equal(t, sampleContent(), got)

	v, ok := c.Value(path)
	assert.True(t, ok)
	assert.Equal(t, "ACME", v)
	assert.Empty(t, ingest.all(), "satisfied read must not be ingested")
}

func TestRouteReadWithoutPendingRequest(t *testing.T) {
	ingest := &fakeIngestor{}
	r := NewRouter(ingest)
	c := newTestClient()
	path := model.ResourceAddress(3, 0, 0)

	r.Route(c, path, readOK(), wire.ReadRequest{Target: path})

	calls := ingest.all()
	require.Len(t, calls, 1)
	assert.Equal(t, path, calls[0].path)
	assert.Equal(t, sampleContent(), calls[0].content)

	_, cached := c.Value(path)
	assert.False(t, cached, "unsolicited read must not update the cache")
}

func TestRouteObserveRecordsHandle(t *testing.T) {
	ingest := &fakeIngestor{}
	r := NewRouter(ingest)
	c := newTestClient()
	path := model.ResourceAddress(3, 0, 9)

	r.Route(c, path, wire.ObserveResponse{
		Status:      wire.Status{Code: wire.CodeContent},
		Content:     wire.Content{"/3/0/9": uint64(87)},
		Observation: &wire.Observation{ID: "obs-1", Path: path},
	}, wire.ObserveRequest{Target: path})

	obs, ok := c.Observation(path)
	require.True(t, ok)
	assert.Equal(t, "obs-1", obs.ID)
	assert.Equal(t, c.ID(), obs.RegistrationID)
	require.Len(t, ingest.all(), 1)
}

func TestRouteWriteAcknowledgment(t *testing.T) {
	ingest := &fakeIngestor{}
	r := NewRouter(ingest)
	c := newTestClient()
	path := model.ResourceAddress(1, 0, 1)
	req := wire.WriteRequest{Target: path, Type: model.TypeInteger, Value: uint64(60)}

	r.Route(c, path, wire.WriteResponse{Status: wire.Status{Code: wire.CodeChanged}}, req)
	calls := ingest.all()
	require.Len(t, calls, 1)
	assert.Equal(t, req, *calls[0].write)

	// A write acknowledgment for something that was not a write is dropped.
	r.Route(c, path, wire.WriteResponse{Status: wire.Status{Code: wire.CodeChanged}}, wire.ReadRequest{Target: path})
	assert.Len(t, ingest.all(), 1)
}

func TestRouteLogOnlyKinds(t *testing.T) {
	ingest := &fakeIngestor{}
	r := NewRouter(ingest)
	c := newTestClient()
	path := model.ResourceAddress(3, 0, 4)
	ok := wire.Status{Code: wire.CodeChanged}

	responses := []wire.Response{
		wire.CancelObserveResponse{Status: ok},
		wire.DeleteResponse{Status: ok},
		wire.DiscoverResponse{Status: ok, Links: []string{"</3/0/4>"}},
		wire.ExecuteResponse{Status: ok},
		wire.WriteAttributesResponse{Status: ok},
	}
	for _, resp := range responses {
		r.Route(c, path, resp, wire.ExecuteRequest{Target: path})
	}
	assert.Empty(t, ingest.all())
	assert.Empty(t, c.Values())
}

// bogusResponse reports a kind outside the known set.
type bogusResponse struct {
	wire.ReadResponse
}

func (bogusResponse) Kind() wire.ResponseKind { return wire.ResponseKind(99) }

func TestRouteUnknownKindIsDropped(t *testing.T) {
	if debugBuild {
		t.Skip("debug builds panic on unknown kinds")
	}
	ingest := &fakeIngestor{}
	r := NewRouter(ingest)
	c := newTestClient()
	path := model.ResourceAddress(3, 0, 0)
	_, err := c.AddPending(path, time.Minute)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		r.Route(c, path, bogusResponse{readOK()}, wire.ReadRequest{Target: path})
	})
	assert.Empty(t, ingest.all())
	assert.True(t, c.HasPending(path))
}
