package paramsync

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// HashParams digests a parameter set independently of iteration order. Both
// the vehicle and the ground station compute it, so it is part of the protocol.
func HashParams(params map[string]float64) uint64 {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	d := xxhash.New()
	var buf [8]byte
	for _, name := range names {
		_, _ = d.WriteString(name)
		_, _ = d.Write([]byte{0})
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(params[name]))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}
