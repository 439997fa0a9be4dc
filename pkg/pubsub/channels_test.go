package pubsub

import "testing"

func TestChannelNaming(t *testing.T) {
	if got := ProductChannel(42); got != "product:42:events" {
		t.Errorf("ProductChannel(42) = %q", got)
	}
	if got := UserChannel("0xabc"); got != "user:0xabc:events" {
		t.Errorf("UserChannel(0xabc) = %q", got)
	}
}

func TestChannelToTopicAndKey(t *testing.T) {
	tests := []struct {
		channel   string
		wantTopic string
		wantKey   string
		wantErr   bool
	}{
		{"product:42:events", "product-events", "42", false},
		{"user:0xabc:events", "user-events", "0xabc", false},
		{"product:42", "", "", true},
		{"product:42:updates", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		topic, key, err := channelToTopicAndKey(tt.channel)
		if (err != nil) != tt.wantErr {
			t.Errorf("channelToTopicAndKey(%q) error = %v, wantErr %v", tt.channel, err, tt.wantErr)
			continue
		}
		if topic != tt.wantTopic || key != tt.wantKey {
			t.Errorf("channelToTopicAndKey(%q) = (%q, %q), want (%q, %q)",
				tt.channel, topic, key, tt.wantTopic, tt.wantKey)
		}
	}
}

func TestPatternToTopic(t *testing.T) {
	topic, err := patternToTopic(ProductPattern())
	if err != nil {
		t.Fatalf("patternToTopic failed: %v", err)
	}
	if topic != "product-events" {
		t.Errorf("patternToTopic = %q", topic)
	}
}

func TestEventPayloadRoundTrip(t *testing.T) {
	type payload struct {
		ID int `json:"id"`
	}

	evt, err := NewEvent("product.listed", "42", payload{ID: 42})
	if err != nil {
		t.Fatalf("NewEvent failed: %v", err)
	}

	var out payload
	if err := evt.UnmarshalPayload(&out); err != nil {
		t.Fatalf("UnmarshalPayload failed: %v", err)
	}
	if out.ID != 42 {
		t.Errorf("round trip lost data: %+v", out)
	}
}
