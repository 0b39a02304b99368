package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/autopeer-io/paramsync/pkg/mavlink"
)

var testKey = VehicleKey{SystemID: 1, ComponentID: 1, Autopilot: mavlink.AutopilotPX4}

func testEntry() *Entry {
	return &Entry{
		Hash:      0x1234,
		Params:    map[string]float64{"MC_ROLL_P": 6.5, "SYS_AUTOSTART": 4001},
		UpdatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestParseVehicleKey(t *testing.T) {
	tests := []struct {
		in      string
		want    VehicleKey
		wantErr bool
	}{
		{in: "1_1_12", want: testKey},
		{in: "1_1_12.v2", want: testKey},
		{in: "42_190_3", want: VehicleKey{SystemID: 42, ComponentID: 190, Autopilot: mavlink.AutopilotArduPilot}},
		{in: "1_1", wantErr: true},
		{in: "1_1_x", wantErr: true},
		{in: "300_1_12", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVehicleKey(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVehicleKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseVehicleKey() = %v, want %v", got, tt.want)
			}
		})
	}
	if got := testKey.FileName(); got != "1_1_12.v2" {
		t.Errorf("FileName() = %q", got)
	}
}

func TestDecodeRejects(t *testing.T) {
	good, err := Encode(&Entry{Key: testKey, Hash: 1})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		key  VehicleKey
		data []byte
	}{
		{"garbage", testKey, []byte("not cbor at all")},
		{"truncated", testKey, good[:len(good)/2]},
		{"wrong key", VehicleKey{SystemID: 2, ComponentID: 1, Autopilot: mavlink.AutopilotPX4}, good},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.key, tt.data); !errors.Is(err, ErrCorrupt) {
				t.Errorf("Decode() error = %v, want ErrCorrupt", err)
			}
		})
	}
}

// storeContract exercises the behaviour every Store must share.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Load(ctx, testKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() on empty store error = %v, want ErrNotFound", err)
	}

	if err := s.Save(ctx, testKey, testEntry()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := s.Load(ctx, testKey)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Hash != 0x1234 || got.Key != testKey || len(got.Params) != 2 || got.Params["MC_ROLL_P"] != 6.5 {
		t.Errorf("Load() = %+v", got)
	}
	if !got.UpdatedAt.Equal(testEntry().UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, testEntry().UpdatedAt)
	}

	replacement := testEntry()
	replacement.Hash = 0x5678
	if err := s.Save(ctx, testKey, replacement); err != nil {
		t.Fatalf("Save() replace error = %v", err)
	}
	if got, _ := s.Load(ctx, testKey); got == nil || got.Hash != 0x5678 {
		t.Errorf("Load() after replace = %+v, want hash 0x5678", got)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 || list[0].Key != testKey {
		t.Errorf("List() = %+v", list)
	}

	if err := s.Delete(ctx, testKey); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, testKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
	if _, err := s.Load(ctx, testKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() after Delete error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestMemoryStoreCorrupt(t *testing.T) {
	s := NewMemoryStore()
	s.PutRaw(testKey, []byte{0xff, 0x00})
	if _, err := s.Load(context.Background(), testKey); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Load() error = %v, want ErrCorrupt", err)
	}
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "params"))
	if err != nil {
		t.Fatal(err)
	}
	storeContract(t, s)
}

func TestFileStoreLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(context.Background(), testKey, testEntry()); err != nil {
		t.Fatal(err)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Name() != "1_1_12.v2" {
		names := make([]string, 0, len(files))
		for _, f := range files {
			names = append(names, f.Name())
		}
		t.Errorf("cache dir holds %v, want only 1_1_12.v2", names)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.Path(testKey), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Load(context.Background(), testKey); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Load() error = %v, want ErrCorrupt", err)
	}

	list, err := s.List(context.Background())
	if err == nil {
		t.Error("List() error = nil, want the corrupt file reported")
	}
	if len(list) != 0 {
		t.Errorf("List() = %+v, want no entries", list)
	}
}

func TestObjectKey(t *testing.T) {
	if got := ObjectKey(testKey); got != "params/1_1_12.v2" {
		t.Errorf("ObjectKey() = %q", got)
	}
}
