package interactive

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/downlink"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/wire"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"read dev1 /3/0/0", Command{"dev1", downlink.Input{Op: wire.OpRead, Path: "/3/0/0"}}},
		{"read dev1 /3/0 senml-json", Command{"dev1", downlink.Input{Op: wire.OpRead, Path: "/3/0", Format: "senml-json"}}},
		{"observe dev1 /3/0/9", Command{"dev1", downlink.Input{Op: wire.OpObserve, Path: "/3/0/9"}}},
		{"cancel dev1 /3/0/9", Command{"dev1", downlink.Input{Op: wire.OpCancelObserve, Path: "/3/0/9"}}},
		{"execute dev1 /3/0/4", Command{"dev1", downlink.Input{Op: wire.OpExecute, Path: "/3/0/4"}}},
		{"execute dev1 /3/0/4 0='a'", Command{"dev1", downlink.Input{Op: wire.OpExecute, Path: "/3/0/4", Value: "0='a'"}}},
		{"write dev1 /1/0/1 60", Command{"dev1", downlink.Input{Op: wire.OpWriteReplace, Path: "/1/0/1", Value: "60"}}},
		{"update dev1 /1/0/1 60 tlv", Command{"dev1", downlink.Input{Op: wire.OpWriteUpdate, Path: "/1/0/1", Value: "60", Format: "tlv"}}},
		{"attrs dev1 /3/0/9 pmax=60", Command{"dev1", downlink.Input{Op: wire.OpWriteAttributes, Path: "/3/0/9", AttributeQuery: "pmax=60"}}},
		{"write-update dev1 /1/0/1 30", Command{"dev1", downlink.Input{Op: wire.OpWriteUpdate, Path: "/1/0/1", Value: "30"}}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseCommand(strings.Fields(tt.line))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommandErrors(t *testing.T) {
	_, err := ParseCommand(nil)
	assert.ErrorIs(t, err, ErrUsage)

	_, err = ParseCommand([]string{"read", "dev1"})
	assert.ErrorIs(t, err, ErrUsage)

	_, err = ParseCommand([]string{"write", "dev1", "/1/0/1"})
	assert.ErrorIs(t, err, ErrUsage)

	_, err = ParseCommand([]string{"reboot", "dev1", "/3/0/4"})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrUsage))
}

func TestFormatOutcome(t *testing.T) {
	read := downlink.Outcome{
		Kind:    downlink.OutcomeSuccess,
		Request: wire.ReadRequest{Target: model.ResourceAddress(3, 0, 0)},
		Response: wire.ReadResponse{
			Status:  wire.Status{Code: wire.CodeContent},
			Content: wire.Content{"/3/0/0": "ACME"},
		},
		Elapsed: 2 * time.Millisecond,
	}
	assert.Equal(t, "dev1 read /3/0/0: 2.05 CONTENT (2ms)\n  /3/0/0 = ACME", FormatOutcome("dev1", read))

	failed := downlink.Outcome{
		Kind:     downlink.OutcomeProtocolFailure,
		Request:  wire.ReadRequest{Target: model.ResourceAddress(3, 0, 20)},
		Response: wire.ReadResponse{Status: wire.Status{Code: wire.CodeNotFound}},
	}
	assert.Equal(t, "dev1 read /3/0/20: 4.04 NOT_FOUND", FormatOutcome("dev1", failed))

	lost := downlink.Outcome{
		Kind:    downlink.OutcomeTransportError,
		Request: wire.ExecuteRequest{Target: model.ResourceAddress(3, 0, 4)},
		Err:     errors.New("timeout"),
	}
	assert.Equal(t, "dev1 execute /3/0/4: TRANSPORT_ERROR (timeout)", FormatOutcome("dev1", lost))
}
