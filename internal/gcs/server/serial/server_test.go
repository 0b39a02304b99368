package serial

import (
	"context"
	"testing"

	"github.com/autopeer-io/paramsync/pkg/mavlink"
)

func TestMarkHighLatency(t *testing.T) {
	var got []*mavlink.Message
	h := MarkHighLatency(func(_ context.Context, msg *mavlink.Message) { got = append(got, msg) })

	h(context.Background(), &mavlink.Message{SystemID: 1, Payload: &mavlink.Heartbeat{Autopilot: mavlink.AutopilotPX4}})
	h(context.Background(), &mavlink.Message{SystemID: 1, Payload: &mavlink.ParamValue{ParamID: "A"}})

	if len(got) != 2 {
		t.Fatalf("delivered %d messages, want 2", len(got))
	}
	if hb := got[0].Payload.(*mavlink.Heartbeat); !hb.HighLatency {
		t.Error("heartbeat not marked high latency")
	}
	if got[1].Type() != mavlink.MsgParamValue {
		t.Errorf("second message type = %v, want PARAM_VALUE", got[1].Type())
	}
}
