package mqtt

import "testing"

func TestTopicsMatch(t *testing.T) {
	tests := []struct {
		filter string
		topic  string
		want   bool
	}{
		{"paramsync/v1/param/up/1_1", "paramsync/v1/param/up/1_1", true},
		{"paramsync/v1/param/up/+", "paramsync/v1/param/up/1_1", true},
		{"paramsync/v1/param/up/+", "paramsync/v1/param/down/1_1", false},
		{"paramsync/v1/param/up/+", "paramsync/v1/param/up/1_1/extra", false},
		{"paramsync/v1/#", "paramsync/v1/param/up/1_1", true},
		{"paramsync/v1/param/+/1_1", "paramsync/v1/param/down/1_1", true},
		{"paramsync/v1/param/up", "paramsync/v1/param/up/1_1", false},
	}

	for _, tt := range tests {
		t.Run(tt.filter+"->"+tt.topic, func(t *testing.T) {
			if got := topicsMatch(tt.filter, tt.topic); got != tt.want {
				t.Errorf("topicsMatch(%q, %q) = %v, want %v", tt.filter, tt.topic, got, tt.want)
			}
		})
	}
}

func TestTopicFilterStripsSharedPrefix(t *testing.T) {
	if got := topicFilter("$share/gcs/paramsync/v1/param/up/+"); got != "paramsync/v1/param/up/+" {
		t.Fatalf("unexpected filter %q", got)
	}
	if got := topicFilter("paramsync/v1/param/up/+"); got != "paramsync/v1/param/up/+" {
		t.Fatalf("unexpected filter %q", got)
	}
}

func TestClientConfigValidate(t *testing.T) {
	cfg := &ClientConfig{BrokerURL: "tcp://localhost:1883", ClientID: "gcs"}
	setDefaultConfig(cfg)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.KeepAlive != 60 {
		t.Fatalf("keep alive default not applied: %d", cfg.KeepAlive)
	}

	if err := (&ClientConfig{ClientID: "gcs"}).Validate(); err == nil {
		t.Fatal("expected error for missing broker url")
	}
	if err := (&ClientConfig{BrokerURL: "tcp://localhost:1883"}).Validate(); err == nil {
		t.Fatal("expected error for missing client id")
	}
}
