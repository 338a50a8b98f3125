package downlink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/coerce"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/session"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/wire"
)

func build(t *testing.T, c *session.Client, in Input) (wire.Request, error) {
	t.Helper()
	return newTestBuilder().Build(context.Background(), c, in)
}

func TestBuildReadAndDiscover(t *testing.T) {
	c := newTestClient()

	req, err := build(t, c, Input{Op: wire.OpRead, Path: "/3/0/0", Format: "tlv"})
	require.NoError(t, err)
	assert.Equal(t, wire.ReadRequest{Target: model.ResourceAddress(3, 0, 0), Format: wire.FormatTLV}, req)

	req, err = build(t, c, Input{Op: wire.OpRead, Path: "/3", Format: "XML"})
	require.NoError(t, err)
	assert.Equal(t, wire.ReadRequest{Target: model.ObjectAddress(3)}, req, "unknown format is treated as absent")

	req, err = build(t, c, Input{Op: wire.OpDiscover, Path: "/3/0", Format: "JSON"})
	require.NoError(t, err)
	assert.Equal(t, wire.DiscoverRequest{Target: model.InstanceAddress(3, 0)}, req)
}

func TestBuildInvalidAddress(t *testing.T) {
	c := newTestClient()
	for _, path := range []string{"", "/a/0", "/3/0/9/1", "/-1"} {
		req, err := build(t, c, Input{Op: wire.OpRead, Path: path})
		assert.Nil(t, req, path)
		assert.ErrorIs(t, err, ErrInvalidAddress, path)

		var be *BuildError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, wire.OpRead, be.Op)
	}
}

func TestBuildObserveMostSpecificLevel(t *testing.T) {
	c := newTestClient()
	tests := []struct {
		path string
		want model.Address
	}{
		{"/3/0/9", model.ResourceAddress(3, 0, 9)},
		{"/3/0", model.InstanceAddress(3, 0)},
		{"/3", model.ObjectAddress(3)},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req, err := build(t, c, Input{Op: wire.OpObserve, Path: tt.path})
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Path())
			assert.Equal(t, tt.want.Depth(), req.Path().Depth())
		})
	}
}

func TestBuildCancelObserve(t *testing.T) {
	c := newTestClient()
	path := model.ResourceAddress(3, 0, 9)

	_, err := build(t, c, Input{Op: wire.OpCancelObserve, Path: "/3/0/9"})
	assert.ErrorIs(t, err, ErrNoObservation)

	supplied := wire.Observation{ID: "given", Path: path}
	req, err := build(t, c, Input{Op: wire.OpCancelObserve, Path: "/3/0/9", Observation: &supplied})
	require.NoError(t, err)
	assert.Equal(t, wire.CancelObserveRequest{Observation: supplied}, req)

	c.AddObservation(wire.Observation{ID: "recorded", Path: path})
	req, err = build(t, c, Input{Op: wire.OpCancelObserve, Path: "/3/0/9"})
	require.NoError(t, err)
	assert.Equal(t, "recorded", req.(wire.CancelObserveRequest).Observation.ID)
}

func TestBuildExecuteOnMultiInstanceIgnoresValue(t *testing.T) {
	c := newTestClient()
	c.SetObjectModel(&model.ObjectModel{ID: 9000, Resources: map[int]*model.ResourceModel{
		1: {ID: 1, Operations: model.OpsExecute, Multiple: true, Type: model.TypeString},
	}})

	for _, value := range []any{"5", 42, true, "not-even-valid"} {
		req, err := build(t, c, Input{Op: wire.OpExecute, Path: "/9000/0/1", Value: value})
		require.NoError(t, err)
		assert.Equal(t, wire.ExecuteRequest{Target: model.ResourceAddress(9000, 0, 1)}, req)
		assert.False(t, req.(wire.ExecuteRequest).HasArguments())
	}
}

func TestBuildExecuteArguments(t *testing.T) {
	c := newTestClient()
	c.SetObjectModel(&model.ObjectModel{ID: 9001, Resources: map[int]*model.ResourceModel{
		1: {ID: 1, Operations: model.OpsExecute, Type: model.TypeInteger},
	}})

	req, err := build(t, c, Input{Op: wire.OpExecute, Path: "/3/0/4"})
	require.NoError(t, err)
	assert.False(t, req.(wire.ExecuteRequest).HasArguments(), "missing value builds a bare execute")

	req, err = build(t, c, Input{Op: wire.OpExecute, Path: "/3/0/4", Value: "5"})
	require.NoError(t, err)
	assert.Equal(t, "5", req.(wire.ExecuteRequest).Arguments)

	req, err = build(t, c, Input{Op: wire.OpExecute, Path: "/9001/0/1", Value: "-1"})
	require.NoError(t, err)
	assert.Equal(t, "4294967295", req.(wire.ExecuteRequest).Arguments)

	_, err = build(t, c, Input{Op: wire.OpExecute, Path: "/9001/0/1", Value: "abc"})
	var ce *coerce.CoercionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "/9001/0/1", ce.Path)
	assert.Contains(t, err.Error(), "at /9001/0/1")
}

func TestBuildWriteAttributesDefault(t *testing.T) {
	c := newTestClient()

	req, err := build(t, c, Input{Op: wire.OpWriteAttributes, Path: "/3/0/9"})
	require.NoError(t, err)
	wa, ok := req.(wire.WriteAttributesRequest)
	require.True(t, ok)

	assert.Equal(t, 3, wa.Target.ObjectID)
	assert.Equal(t, 0, wa.Target.InstanceID)
	assert.Equal(t, 9, wa.Target.ResourceID)
	pmin, ok := wa.Attributes.Get(wire.AttrMinPeriod)
	assert.True(t, ok)
	assert.Equal(t, 1.0, pmin)
	assert.Len(t, wa.Attributes, 1)
}

func TestBuildWriteAttributesOverrides(t *testing.T) {
	c := newTestClient()

	req, err := build(t, c, Input{
		Op:             wire.OpWriteAttributes,
		Path:           "/3/0",
		Attributes:     wire.AttributeSet{wire.AttrMaxPeriod: 60},
		AttributeQuery: "pmin=10&st=0.5",
	})
	require.NoError(t, err)
	wa := req.(wire.WriteAttributesRequest)
	assert.Equal(t, model.InstanceAddress(3, 0), wa.Target)
	assert.Equal(t, "pmin=10&pmax=60&st=0.5", wa.Attributes.String())

	_, err = build(t, c, Input{Op: wire.OpWriteAttributes, Path: "/3", AttributeQuery: "pmin=90&pmax=60"})
	assert.ErrorIs(t, err, wire.ErrInvalidAttribute)
}

func TestBuildWriteReplace(t *testing.T) {
	c := newTestClient()

	req, err := build(t, c, Input{Op: wire.OpWriteReplace, Path: "/1/0/1", Value: "42", Format: "TLV"})
	require.NoError(t, err)
	assert.Equal(t, wire.WriteRequest{
		Target: model.ResourceAddress(1, 0, 1),
		Mode:   wire.WriteReplace,
		Format: wire.FormatDefault,
		Type:   model.TypeInteger,
		Value:  uint64(42),
	}, req)

	req, err = build(t, c, Input{Op: wire.OpWriteReplace, Path: "/3/0/13", Value: "1700000000", Format: "json"})
	require.NoError(t, err)
	w := req.(wire.WriteRequest)
	assert.Equal(t, wire.FormatJSON, w.Format)
	assert.Equal(t, "1700000000", coerce.Format(w.Value))
}

func TestBuildWriteReplaceSkips(t *testing.T) {
	c := newTestClient()
	tests := []struct {
		name string
		in   Input
		want error
	}{
		{"multi-instance resource", Input{Path: "/3/0/6", Value: "1"}, ErrUnbuildable},
		{"instance address", Input{Path: "/3/0", Value: "1"}, ErrUnknownResource},
		{"uncached object", Input{Path: "/3303/0/5700", Value: "1"}, ErrUnknownResource},
		{"non-numeric integer", Input{Path: "/1/0/1", Value: "abc"}, coerce.ErrNotNumeric},
		{"missing value", Input{Path: "/1/0/1"}, coerce.ErrNilValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Op = wire.OpWriteReplace
			req, err := build(t, c, tt.in)
			assert.Nil(t, req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// Write-update resolves the live model and then follows the write-replace
// construction rule; the request shape is an assumption, not a recovered
// contract.
func TestBuildWriteUpdateUsesLiveModel(t *testing.T) {
	reg := session.NewRegistration("urn:dev:bare", "")
	c := session.NewClient(reg) // nothing cached

	_, err := build(t, c, Input{Op: wire.OpWriteReplace, Path: "/3/0/13", Value: "1700000000"})
	assert.ErrorIs(t, err, ErrUnknownResource)

	req, err := build(t, c, Input{Op: wire.OpWriteUpdate, Path: "/3/0/13", Value: "1700000000"})
	require.NoError(t, err)
	w, ok := req.(wire.WriteRequest)
	require.True(t, ok)
	assert.Equal(t, wire.OpWriteUpdate, w.Operation())
	assert.Equal(t, model.TypeTime, w.Type)

	_, err = build(t, c, Input{Op: wire.OpWriteUpdate, Path: "/3/0", Value: "1"})
	assert.ErrorIs(t, err, ErrUnbuildable)

	_, err = build(t, c, Input{Op: wire.OpWriteUpdate, Path: "/3/0/6", Value: "1"})
	assert.ErrorIs(t, err, ErrUnbuildable)
}

func TestBuildUnknownOperation(t *testing.T) {
	_, err := build(t, newTestClient(), Input{Op: wire.Operation(0), Path: "/3/0/0"})
	assert.ErrorIs(t, err, ErrUnbuildable)
	assert.Contains(t, err.Error(), "/3/0/0")
}
