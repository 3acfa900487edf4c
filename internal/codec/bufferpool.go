package codec

import (
	"bytes"
	"sync"

	"github.com/harliandi/go-sizefit/pkg/metrics"
)

// Tiered pools of encode buffers. The search re-encodes the same image many
// times per request, so reusing output buffers saves a burst of allocations
// on every iteration.
const (
	smallCap  = 64 * 1024
	mediumCap = 512 * 1024
	largeCap  = 5 * 1024 * 1024
)

var encodePools = map[string]*sync.Pool{
	"small":  {},
	"medium": {},
	"large":  {},
}

func tierFor(size int) string {
	switch {
	case size <= smallCap:
		return "small"
	case size <= mediumCap:
		return "medium"
	default:
		return "large"
	}
}

func tierCap(tier string) int {
	switch tier {
	case "small":
		return smallCap
	case "medium":
		return mediumCap
	}
	return largeCap
}

// getBuffer returns an empty buffer sized for roughly `size` output bytes
func getBuffer(size int) *bytes.Buffer {
	tier := tierFor(size)
	if v := encodePools[tier].Get(); v != nil {
		metrics.RecordBufferPoolHit(tier)
		return v.(*bytes.Buffer)
	}
	metrics.RecordBufferPoolMiss(tier)
	return bytes.NewBuffer(make([]byte, 0, tierCap(tier)))
}

// putBuffer resets b and returns it to the tier matching its capacity.
// Buffers that grew past the largest tier are left to the GC.
func putBuffer(b *bytes.Buffer) {
	b.Reset()
	switch {
	case b.Cap() <= smallCap:
		encodePools["small"].Put(b)
	case b.Cap() <= mediumCap:
		encodePools["medium"].Put(b)
	case b.Cap() <= largeCap:
		encodePools["large"].Put(b)
	}
}
