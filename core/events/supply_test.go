package events

import (
	"testing"

	"cosmossdk.io/math"
)

func TestTokenSupplyEvent(t *testing.T) {
	evt := TokenSupply{
		Token:   "wbluna",
		Account: "terra1holder",
		Total:   math.NewInt(5000),
		Delta:   math.NewInt(250),
		Reason:  SupplyReasonMint,
	}.Event()
	if evt == nil {
		t.Fatalf("expected event")
	}
	if evt.Type != TypeTokenSupply {
		t.Fatalf("unexpected type: %s", evt.Type)
	}
	if evt.Attributes["token"] != "WBLUNA" {
		t.Fatalf("unexpected token attr: %s", evt.Attributes["token"])
	}
	if evt.Attributes["total"] != "5000" || evt.Attributes["delta"] != "250" {
		t.Fatalf("unexpected attrs: %+v", evt.Attributes)
	}
	if evt.Attributes["reason"] != SupplyReasonMint {
		t.Fatalf("unexpected reason: %s", evt.Attributes["reason"])
	}
}

func TestTokenSupplyDefaults(t *testing.T) {
	evt := TokenSupply{}.Event()
	if evt.Attributes["token"] != "UNKNOWN" {
		t.Fatalf("expected placeholder token, got %q", evt.Attributes["token"])
	}
	if evt.Attributes["total"] != "0" {
		t.Fatalf("expected zero total, got %q", evt.Attributes["total"])
	}
	if _, ok := evt.Attributes["delta"]; ok {
		t.Fatalf("nil delta should be omitted")
	}
}

func TestBufferCollectsInOrder(t *testing.T) {
	buf := &Buffer{}
	emitter := Fanout{NoopEmitter{}, buf}
	emitter.Emit(Transfer{Token: "w", From: "a", To: "b", Amount: math.NewInt(1)})
	emitter.Emit(TokenSupply{Token: "w", Total: math.NewInt(1), Reason: SupplyReasonBurn})

	got := buf.Events()
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Type != TypeTransfer || got[1].Type != TypeTokenSupply {
		t.Fatalf("unexpected order: %s, %s", got[0].Type, got[1].Type)
	}
	if got[0].Attributes["from"] != "a" || got[0].Attributes["amount"] != "1" {
		t.Fatalf("unexpected transfer attrs: %+v", got[0].Attributes)
	}
}
