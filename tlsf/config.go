package tlsf

import "fmt"

// Config selects the number of size classes.
//
// FLLen is the number of first-level classes, one per power of two starting
// at Granularity. SLLen is the number of linear subdivisions of each
// first-level class and must be a power of two. The bitmap word types passed
// to New must be at least FLLen and SLLen bits wide.
type Config struct {
	// Name for this configuration (for logs and stats)
	Name string

	FLLen int
	SLLen int
}

// Predefined configurations.
var (
	// ConfigTiny fits in uint8 bitmaps. Blocks are capped at 4 KiB - 32.
	ConfigTiny = Config{Name: "Tiny", FLLen: 7, SLLen: 4}

	// ConfigCompact fits in uint16 bitmaps. Pools up to 2 MiB.
	ConfigCompact = Config{Name: "Compact", FLLen: 16, SLLen: 8}

	// ConfigBalanced fits in uint32/uint16 bitmaps. Pools up to 8 GiB.
	ConfigBalanced = Config{Name: "Balanced", FLLen: 28, SLLen: 16}

	// ConfigWide fits in uint64 bitmaps and covers the whole address space.
	ConfigWide = Config{Name: "Wide", FLLen: 59, SLLen: 64}

	// DefaultConfig is used when New is given a nil config.
	DefaultConfig = ConfigBalanced
)

// String implements fmt.Stringer.
func (c Config) String() string {
	return fmt.Sprintf("%s(fl=%d, sl=%d)", c.Name, c.FLLen, c.SLLen)
}

func (c Config) validate(flBits, slBits int) error {
	if c.FLLen < 1 || c.FLLen > flBits {
		return fmt.Errorf("%w: FLLen %d not in [1, %d]", ErrBadConfig, c.FLLen, flBits)
	}
	if c.SLLen < 1 || c.SLLen > slBits {
		return fmt.Errorf("%w: SLLen %d not in [1, %d]", ErrBadConfig, c.SLLen, slBits)
	}
	if c.SLLen&(c.SLLen-1) != 0 {
		return fmt.Errorf("%w: SLLen %d is not a power of two", ErrBadConfig, c.SLLen)
	}
	return nil
}
