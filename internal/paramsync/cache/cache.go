// Package cache persists per-vehicle parameter sets together with the
// _HASH_CHECK digest they were fetched under.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/autopeer-io/paramsync/pkg/mavlink"
)

var (
	// ErrNotFound is returned when no entry exists for a key.
	ErrNotFound = errors.New("cache entry not found")
	// ErrCorrupt is returned when an entry exists but cannot be decoded.
	ErrCorrupt = errors.New("cache entry corrupt")
)

// FileExtension marks the current on-disk format.
const FileExtension = ".v2"

const formatVersion = 2

// Store persists one Entry per VehicleKey. Implementations must be safe for
// concurrent use across distinct keys.
type Store interface {
	Load(ctx context.Context, key VehicleKey) (*Entry, error)
	Save(ctx context.Context, key VehicleKey, entry *Entry) error
	Delete(ctx context.Context, key VehicleKey) error
	List(ctx context.Context) ([]Entry, error)
}

// VehicleKey identifies a vehicle's parameter set.
type VehicleKey struct {
	SystemID    uint8             `cbor:"1,keyasint" json:"systemID"`
	ComponentID uint8             `cbor:"2,keyasint" json:"componentID"`
	Autopilot   mavlink.Autopilot `cbor:"3,keyasint" json:"autopilot"`
}

// String renders the key as "<sys>_<comp>_<autopilot>", the cache file stem.
func (k VehicleKey) String() string {
	return fmt.Sprintf("%d_%d_%d", k.SystemID, k.ComponentID, k.Autopilot)
}

// FileName returns the cache file name for k.
func (k VehicleKey) FileName() string {
	return k.String() + FileExtension
}

// ParseVehicleKey parses the output of VehicleKey.String. A trailing
// FileExtension is accepted.
func ParseVehicleKey(s string) (VehicleKey, error) {
	parts := strings.Split(strings.TrimSuffix(s, FileExtension), "_")
	if len(parts) != 3 {
		return VehicleKey{}, fmt.Errorf("invalid vehicle key %q: want <sys>_<comp>_<autopilot>", s)
	}

	var vals [3]uint8
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return VehicleKey{}, fmt.Errorf("invalid vehicle key %q: %w", s, err)
		}
		vals[i] = uint8(n)
	}

	return VehicleKey{SystemID: vals[0], ComponentID: vals[1], Autopilot: mavlink.Autopilot(vals[2])}, nil
}

// Entry is a stored parameter set.
type Entry struct {
	Key       VehicleKey         `cbor:"1,keyasint" json:"key"`
	Hash      uint64             `cbor:"2,keyasint" json:"hash"`
	Params    map[string]float64 `cbor:"3,keyasint" json:"params"`
	UpdatedAt time.Time          `cbor:"4,keyasint" json:"updatedAt"`
}

type envelope struct {
	_       struct{} `cbor:",toarray"`
	Version uint
	Entry   Entry
}

var encMode cbor.EncMode

func init() {
	opts := cbor.CanonicalEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	var err error
	if encMode, err = opts.EncMode(); err != nil {
		panic(fmt.Sprintf("cache: cbor enc mode: %v", err))
	}
}

// Encode serialises an entry in the versioned cache format.
func Encode(e *Entry) ([]byte, error) {
	return encMode.Marshal(envelope{Version: formatVersion, Entry: *e})
}

// Decode parses data written by Encode and checks that it belongs to key.
// Any mismatch is reported as ErrCorrupt.
func Decode(key VehicleKey, data []byte) (*Entry, error) {
	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	if env.Version != formatVersion {
		return nil, fmt.Errorf("%w: %s: format version %d", ErrCorrupt, key, env.Version)
	}
	if env.Entry.Key != key {
		return nil, fmt.Errorf("%w: %s: entry belongs to %s", ErrCorrupt, key, env.Entry.Key)
	}
	if env.Entry.Params == nil {
		env.Entry.Params = map[string]float64{}
	}
	return &env.Entry, nil
}
