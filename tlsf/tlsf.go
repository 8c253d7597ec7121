package tlsf

import (
	"io"
	"log/slog"
	"os"
	"unsafe"

	"github.com/joshuapare/tlsfkit/internal/format"
)

// Runtime debug logging for pool and allocation events - controlled by the
// TLSF_LOG_ALLOC env var. SetLogger replaces it.
var logger = newDefaultLogger()

func newDefaultLogger() *slog.Logger {
	if os.Getenv("TLSF_LOG_ALLOC") != "" {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SetLogger sets the logger used by every allocator. nil discards output.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = l
}

// TLSF is a two-level segregated fit allocator over a caller supplied arena.
//
// All block metadata lives inside the arena and every link is stored
// relative to the arena start. The control block (bitmaps, bucket heads and
// the pool list) lives in the TLSF value and can be carried to another
// process with MarshalBinary and Restore.
//
// FL and SL are the first and second level bitmap words; their widths bound
// Config.FLLen and Config.SLLen.
//
// NOT thread-safe. Wrap with NewLocked for shared use.
type TLSF[FL, SL BitmapWord] struct {
	mem  []byte
	base uintptr
	dt   DirtyTracker // Notified of every header write (nil to disable)

	cfg   Config
	cls   classes
	idx   index[FL, SL]
	heads []RelPtr // FLLen*SLLen bucket heads, row major by fl
	pools []Pool

	// Largest alignment handed out. A relocated arena must keep its base
	// congruent modulo this value.
	maxAlign int

	stats counters
}

// Default is the allocator with the bitmap widths of DefaultConfig.
type Default = TLSF[uint32, uint16]

// New creates an allocator over arena with no pools.
//
// Parameters:
//   - arena: the memory the allocator may address; pools are sub-slices of it
//   - dt: dirty tracker notified of metadata writes (can be nil)
//   - cfg: size class configuration (use nil for DefaultConfig)
func New[FL, SL BitmapWord](arena []byte, dt DirtyTracker, cfg *Config) (*TLSF[FL, SL], error) {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	if err := cfg.validate(bitWidth[FL](), bitWidth[SL]()); err != nil {
		return nil, err
	}
	return &TLSF[FL, SL]{
		mem:      arena,
		base:     addrOf(arena),
		dt:       dt,
		cfg:      *cfg,
		cls:      newClasses(*cfg),
		idx:      newIndex[FL, SL](cfg.FLLen),
		heads:    make([]RelPtr, cfg.FLLen*cfg.SLLen),
		maxAlign: format.Granularity,
	}, nil
}

// NewDefault creates a Default allocator and registers the whole arena as pools.
func NewDefault(arena []byte, dt DirtyTracker) (*Default, error) {
	t, err := New[uint32, uint16](arena, dt, nil)
	if err != nil {
		return nil, err
	}
	if _, err := t.AddPool(arena); err != nil {
		return nil, err
	}
	return t, nil
}

// Config returns the size class configuration.
func (t *TLSF[FL, SL]) Config() Config { return t.cfg }

// Arena returns the arena the allocator currently addresses.
func (t *TLSF[FL, SL]) Arena() []byte { return t.mem }

// Bytes returns n bytes of the arena starting at ref.
func (t *TLSF[FL, SL]) Bytes(ref Ref, n int) []byte {
	return t.mem[ref : ref+n : ref+n]
}

// MaxAlign returns the largest alignment served so far, at least
// Granularity. Rebase and Restore need a base address with the same
// remainder modulo this value.
func (t *TLSF[FL, SL]) MaxAlign() int { return t.maxAlign }

// Pools returns a copy of the registered pools in registration order.
func (t *TLSF[FL, SL]) Pools() []Pool {
	out := make([]Pool, len(t.pools))
	copy(out, t.pools)
	return out
}

func (t *TLSF[FL, SL]) touch(off, n int) {
	if t.dt != nil {
		t.dt.Add(off, n)
	}
}

// abs returns the address of arena offset off.
func (t *TLSF[FL, SL]) abs(off int) uintptr { return t.base + uintptr(off) }

func addrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}
