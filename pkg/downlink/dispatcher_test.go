package downlink

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	plog "github.com/lwm2m-bridge/lwm2m-go/pkg/log"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/session"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/wire"
)

func TestDispatchTimeoutProducesOneTransportError(t *testing.T) {
	h := newHarness(t) // sender never answers
	c := newTestClient()
	done, wait := collect(t)

	var calls atomic.Int32
	h.dispatcher.Dispatch(c, wire.ReadRequest{Target: model.ResourceAddress(3, 0, 0)}, time.Millisecond, func(out Outcome) {
		calls.Add(1)
		done(out)
	})

	outs := wait(1)
	assert.Equal(t, OutcomeTransportError, outs[0].Kind)
	assert.ErrorIs(t, outs[0].Err, ErrTimeout)
	assert.Nil(t, outs[0].Response)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	msgs := h.sink.all()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "LWM2M_ERROR: sendRequest: Resource path - /3/0/0 msg error - ")
	assert.Empty(t, h.ingest.all())
}

func TestDispatchTimeoutWithUnresponsiveEngine(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	defer close(release)
	h.sender.respond = func(wire.Request) (wire.Response, error) {
		<-release // ignores cancellation
		return wire.ReadResponse{Status: wire.Status{Code: wire.CodeContent}}, nil
	}
	done, wait := collect(t)

	h.dispatcher.SetDefaultTimeout(5 * time.Millisecond)
	h.dispatcher.Dispatch(newTestClient(), wire.ReadRequest{Target: model.ResourceAddress(3, 0, 1)}, 0, done)

	outs := wait(1)
	assert.Equal(t, OutcomeTransportError, outs[0].Kind)
}

func TestDispatchProtocolFailure(t *testing.T) {
	h := newHarness(t)
	h.sender.respond = func(wire.Request) (wire.Response, error) {
		return wire.ReadResponse{Status: wire.Status{Code: wire.CodeNotFound, ErrorMessage: "no such resource"}}, nil
	}
	c := newTestClient()
	path := model.ResourceAddress(3, 0, 0)
	_, err := c.AddPending(path, time.Minute)
	require.NoError(t, err)
	done, wait := collect(t)

	h.dispatcher.Dispatch(c, wire.ReadRequest{Target: path}, time.Second, done)

	out := wait(1)[0]
	assert.Equal(t, OutcomeProtocolFailure, out.Kind)
	assert.Equal(t, wire.CodeNotFound, out.Code())

	msgs := h.sink.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, "LWM2M_ERROR: sendRequest: CoapCde - 4.04 Lwm2m code - 404 name - NOT_FOUND Resource path - /3/0/0 msg - no such resource", msgs[0])

	assert.True(t, c.HasPending(path), "failure must not touch session state")
	_, cached := c.Value(path)
	assert.False(t, cached)
	assert.Empty(t, h.ingest.all())
}

func TestDispatchEngineError(t *testing.T) {
	h := newHarness(t)
	h.sender.respond = func(wire.Request) (wire.Response, error) {
		return nil, errors.New("connection reset")
	}
	done, wait := collect(t)

	h.dispatcher.Dispatch(newTestClient(), wire.ExecuteRequest{Target: model.ResourceAddress(3, 0, 4)}, time.Second, done)

	out := wait(1)[0]
	assert.Equal(t, OutcomeTransportError, out.Kind)
	assert.EqualError(t, out.Err, "connection reset")
	assert.Equal(t, []string{"LWM2M_ERROR: sendRequest: Resource path - /3/0/4 msg error - connection reset"}, h.sink.all())
}

func TestDispatchNilResponseIsTransportError(t *testing.T) {
	h := newHarness(t)
	h.sender.respond = func(wire.Request) (wire.Response, error) { return nil, nil }
	done, wait := collect(t)

	h.dispatcher.Dispatch(newTestClient(), wire.DiscoverRequest{Target: model.ObjectAddress(3)}, time.Second, done)
	out := wait(1)[0]
	assert.Equal(t, OutcomeTransportError, out.Kind)
	assert.ErrorIs(t, out.Err, ErrNilResponse)
}

func TestDispatchWriteReplaceAudit(t *testing.T) {
	h := newHarness(t)
	h.sender.respond = func(wire.Request) (wire.Response, error) {
		return wire.WriteResponse{Status: wire.Status{Code: wire.CodeChanged}}, nil
	}
	done, wait := collect(t)
	path := model.ResourceAddress(3, 0, 13)
	req := wire.WriteRequest{Target: path, Type: model.TypeTime, Value: time.Unix(1700000000, 0).UTC()}

	h.dispatcher.Dispatch(newTestClient(), req, time.Second, done)

	out := wait(1)[0]
	assert.Equal(t, OutcomeSuccess, out.Kind)
	assert.Equal(t, []string{
		"LWM2M_INFO: sendRequest Replace: CoapCde - 2.04 Lwm2m code - 204 name - CHANGED Resource path - /3/0/13 value - 1700000000",
	}, h.sink.all())

	calls := h.ingest.all()
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].write)
	assert.Equal(t, req, *calls[0].write)
}

func TestDispatchWriteUpdateHasNoAudit(t *testing.T) {
	h := newHarness(t)
	h.sender.respond = func(wire.Request) (wire.Response, error) {
		return wire.WriteResponse{Status: wire.Status{Code: wire.CodeChanged}}, nil
	}
	done, wait := collect(t)

	req := wire.WriteRequest{Target: model.ResourceAddress(1, 0, 1), Mode: wire.WriteUpdate, Type: model.TypeInteger, Value: uint64(300)}
	h.dispatcher.Dispatch(newTestClient(), req, time.Second, done)

	wait(1)
	assert.Empty(t, h.sink.all())
	assert.Len(t, h.ingest.all(), 1)
}

func TestDispatchAfterPoolCloseCompletesInline(t *testing.T) {
	h := newHarness(t)
	h.sender.respond = func(wire.Request) (wire.Response, error) {
		return wire.ExecuteResponse{Status: wire.Status{Code: wire.CodeChanged}}, nil
	}
	h.pool.Close()
	done, wait := collect(t)

	h.dispatcher.Dispatch(newTestClient(), wire.ExecuteRequest{Target: model.ResourceAddress(3, 0, 4)}, time.Second, done)
	assert.Equal(t, OutcomeSuccess, wait(1)[0].Kind)
}

func TestOutcomeKindString(t *testing.T) {
	assert.Equal(t, "SUCCESS", OutcomeSuccess.String())
	assert.Equal(t, "PROTOCOL_FAILURE", OutcomeProtocolFailure.String())
	assert.Equal(t, "TRANSPORT_ERROR", OutcomeTransportError.String())
	assert.Equal(t, wire.Code(0), Outcome{Kind: OutcomeTransportError}.Code())
}

type panickingIngestor struct{}

func (panickingIngestor) Observation(*session.Client, model.Address, wire.Content) {
	panic("ingest boom")
}

func (panickingIngestor) AttributeUpdateOK(*session.Client, model.Address, wire.WriteRequest) {
	panic("ack boom")
}

func TestDispatchCompletesWhenRoutingPanics(t *testing.T) {
	if debugBuild {
		t.Skip("debug builds re-panic")
	}
	sender := &fakeSender{respond: func(wire.Request) (wire.Response, error) { return readOK(), nil }}
	pool := NewPool(1, 4, nil)
	t.Cleanup(pool.Close)

	var logs bytes.Buffer
	d := NewDispatcher(sender, pool, NewRouter(panickingIngestor{}), &fakeSink{})
	d.SetLogger(slog.New(slog.NewTextHandler(&logs, nil)))

	done, wait := collect(t)
	d.Dispatch(newTestClient(), wire.ReadRequest{Target: model.ResourceAddress(3, 0, 0)}, time.Second, done)

	outs := wait(1)
	assert.Equal(t, OutcomeSuccess, outs[0].Kind)
	assert.Contains(t, logs.String(), "response routing panicked")
	assert.Contains(t, logs.String(), "endpoint="+newTestClient().Endpoint())
	assert.Contains(t, logs.String(), "path=/3/0/0")
	assert.Contains(t, logs.String(), "ingest boom")

	// The worker is still usable.
	d.Dispatch(newTestClient(), wire.ReadRequest{Target: model.ResourceAddress(3, 0, 1)}, time.Second, done)
	wait(1)
}

// panicOnResponse panics while capturing an incoming response.
type panicOnResponse struct{}

func (panicOnResponse) Log(event plog.Event) {
	if event.Direction == plog.DirectionIn {
		panic("capture boom")
	}
}

func TestReadInitialFailsPendingWhenRoutingPanics(t *testing.T) {
	if debugBuild {
		t.Skip("debug builds re-panic")
	}
	h := newHarness(t)
	h.sender.respond = func(wire.Request) (wire.Response, error) { return readOK(), nil }
	h.dispatcher.SetLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	h.dispatcher.SetProtocolLogger(panicOnResponse{})

	c := newTestClient()
	pending, err := h.service.ReadInitial(context.Background(), c, "/3/0/0", time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = pending.Wait(ctx)
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Equal(t, 0, c.PendingCount())
	_, cached := c.Value(model.ResourceAddress(3, 0, 0))
	assert.False(t, cached)
}
