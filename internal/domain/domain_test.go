package domain

import (
	"encoding/json"
	"testing"
)

func TestParseCondition(t *testing.T) {
	valid := []string{"New", "LikeNew", "Good", "Fair", "Used"}
	for _, s := range valid {
		c, err := ParseCondition(s)
		if err != nil {
			t.Errorf("ParseCondition(%q) failed: %v", s, err)
		}
		if string(c) != s {
			t.Errorf("ParseCondition(%q) = %q", s, c)
		}
	}

	invalid := []string{"", "new", "NEW", "Mint", "like new"}
	for _, s := range invalid {
		if _, err := ParseCondition(s); err == nil {
			t.Errorf("ParseCondition(%q) should fail", s)
		}
	}
}

func TestLockStateTerminal(t *testing.T) {
	tests := []struct {
		state    LockState
		valid    bool
		terminal bool
	}{
		{LockStateLocked, true, false},
		{LockStateReleased, true, true},
		{LockStateRefunded, true, true},
		{LockState("Available"), false, false},
		{LockState(""), false, false},
	}

	for _, tt := range tests {
		if got := tt.state.Valid(); got != tt.valid {
			t.Errorf("%q.Valid() = %v, want %v", tt.state, got, tt.valid)
		}
		if got := tt.state.Terminal(); got != tt.terminal {
			t.Errorf("%q.Terminal() = %v, want %v", tt.state, got, tt.terminal)
		}
	}
}

func TestLedgerEventPayloadRoundTrip(t *testing.T) {
	id := uint64(7)
	evt, err := NewLedgerEvent(EventProductPurchased, &id, "0xbuyer", ProductPurchasedPayload{
		ID:    7,
		Buyer: "0xbuyer",
		Price: 1200,
	})
	if err != nil {
		t.Fatalf("NewLedgerEvent failed: %v", err)
	}
	if evt.Type != EventProductPurchased || *evt.ProductID != 7 {
		t.Errorf("unexpected event: %+v", evt)
	}

	var payload ProductPurchasedPayload
	if err := evt.UnmarshalPayload(&payload); err != nil {
		t.Fatalf("UnmarshalPayload failed: %v", err)
	}
	if payload.Price != 1200 || payload.Buyer != "0xbuyer" {
		t.Errorf("unexpected payload: %+v", payload)
	}

	if !json.Valid(evt.Payload) {
		t.Error("payload is not valid JSON")
	}
}
