package tlsf

import (
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/tlsfkit/internal/format"
)

// counters holds internal allocator statistics.
type counters struct {
	allocCalls       int
	allocFailures    int
	freeCalls        int
	reallocCalls     int
	reallocInPlace   int
	reallocMoved     int
	splitCount       int
	coalesceForward  int
	coalesceBackward int

	freeBytes  int // Bytes in free blocks, headers included
	freeBlocks int
}

// Stats is a snapshot of allocator state and call counters.
type Stats struct {
	Config string

	Pools      int // Registered pool chunks
	PoolBytes  int // Bytes spanned by pools, sentinels included
	UsedBytes  int // Bytes in used blocks, headers and padding included
	FreeBytes  int // Bytes in free blocks
	FreeBlocks int

	AllocCalls       int
	AllocFailures    int
	FreeCalls        int
	ReallocCalls     int
	ReallocInPlace   int
	ReallocMoved     int
	SplitCount       int
	CoalesceForward  int
	CoalesceBackward int
}

// Stats returns a snapshot of the allocator statistics.
func (t *TLSF[FL, SL]) Stats() Stats {
	s := Stats{
		Config:           t.cfg.Name,
		Pools:            len(t.pools),
		FreeBytes:        t.stats.freeBytes,
		FreeBlocks:       t.stats.freeBlocks,
		AllocCalls:       t.stats.allocCalls,
		AllocFailures:    t.stats.allocFailures,
		FreeCalls:        t.stats.freeCalls,
		ReallocCalls:     t.stats.reallocCalls,
		ReallocInPlace:   t.stats.reallocInPlace,
		ReallocMoved:     t.stats.reallocMoved,
		SplitCount:       t.stats.splitCount,
		CoalesceForward:  t.stats.coalesceForward,
		CoalesceBackward: t.stats.coalesceBackward,
	}
	for _, p := range t.pools {
		s.PoolBytes += p.Len
		s.UsedBytes += p.Len - format.SentinelSize
	}
	s.UsedBytes -= s.FreeBytes
	return s
}

// PrintStats writes the allocator statistics to w.
func (t *TLSF[FL, SL]) PrintStats(w io.Writer) {
	t.Stats().Print(w)
}

// Print writes s to w with grouped digits.
func (s Stats) Print(w io.Writer) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "\n=== TLSF STATISTICS (%s) ===\n", s.Config)
	p.Fprintf(w, "Pools:              %d (%d bytes)\n", s.Pools, s.PoolBytes)
	p.Fprintf(w, "Used bytes:         %d\n", s.UsedBytes)
	p.Fprintf(w, "Free bytes:         %d in %d blocks\n", s.FreeBytes, s.FreeBlocks)
	p.Fprintf(w, "Alloc calls:        %d (failed: %d)\n", s.AllocCalls, s.AllocFailures)
	p.Fprintf(w, "Free calls:         %d\n", s.FreeCalls)
	p.Fprintf(w, "Realloc calls:      %d (in place: %d, moved: %d)\n", s.ReallocCalls, s.ReallocInPlace, s.ReallocMoved)
	p.Fprintf(w, "Block splits:       %d\n", s.SplitCount)
	p.Fprintf(w, "Coalesce fwd:       %d\n", s.CoalesceForward)
	p.Fprintf(w, "Coalesce back:      %d\n", s.CoalesceBackward)
	if s.PoolBytes > 0 {
		p.Fprintf(w, "Utilization:        %.1f%%\n", 100*float64(s.UsedBytes)/float64(s.PoolBytes))
	}
	p.Fprintf(w, "============================\n\n")
}
