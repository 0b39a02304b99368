package topic

import "testing"

func TestBuilder(t *testing.T) {
	b := NewBuilder("paramsync/v1/")

	if got := b.Build("param/up", "1_1"); got != "paramsync/v1/param/up/1_1" {
		t.Fatalf("Build = %q", got)
	}
	if got := b.BuildWildcard("param/up"); got != "paramsync/v1/param/up/+" {
		t.Fatalf("BuildWildcard = %q", got)
	}
	if got := b.Shared("gcs").BuildWildcard("param/up"); got != "$share/gcs/paramsync/v1/param/up/+" {
		t.Fatalf("Shared = %q", got)
	}
}

func TestParseID(t *testing.T) {
	b := NewBuilder("paramsync/v1")

	tests := []struct {
		topic  string
		wantID string
		wantOK bool
	}{
		{"paramsync/v1/param/up/1_1", "1_1", true},
		{"paramsync/v1/param/down/1_1", "", false},
		{"paramsync/v1/param/up/", "", false},
		{"paramsync/v1/param/up/1_1/x", "", false},
		{"other/param/up/1_1", "", false},
	}
	for _, tt := range tests {
		id, ok := b.ParseID("param/up", tt.topic)
		if id != tt.wantID || ok != tt.wantOK {
			t.Errorf("ParseID(%q) = (%q, %v), want (%q, %v)", tt.topic, id, ok, tt.wantID, tt.wantOK)
		}
	}
}
