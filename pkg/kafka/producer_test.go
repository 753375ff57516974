package kafka

import (
	"encoding/json"
	"testing"
)

func TestMessagesEncodeKeyAndValue(t *testing.T) {
	msgs, err := Messages([]Event{
		{Key: "run-1", Value: map[string]int{"frame": 1}},
		{Key: "run-1", Value: map[string]int{"frame": 2}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages", len(msgs))
	}
	for i, msg := range msgs {
		if string(msg.Key) != "run-1" {
			t.Errorf("msg %d key = %q", i, msg.Key)
		}
		var v map[string]int
		if err := json.Unmarshal(msg.Value, &v); err != nil {
			t.Fatal(err)
		}
		if v["frame"] != i+1 {
			t.Errorf("msg %d frame = %d", i, v["frame"])
		}
	}
}

func TestMessagesRejectUnencodable(t *testing.T) {
	if _, err := Messages([]Event{{Key: "k", Value: make(chan int)}}); err == nil {
		t.Error("expected marshal error")
	}
}
