package flags

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Hook permission bits. The pool manager reads them from the lowest 14 bits
// of the hook address.
const (
	BeforeInitialize                uint16 = 1 << 13
	AfterInitialize                 uint16 = 1 << 12
	BeforeAddLiquidity              uint16 = 1 << 11
	AfterAddLiquidity               uint16 = 1 << 10
	BeforeRemoveLiquidity           uint16 = 1 << 9
	AfterRemoveLiquidity            uint16 = 1 << 8
	BeforeSwap                      uint16 = 1 << 7
	AfterSwap                       uint16 = 1 << 6
	BeforeDonate                    uint16 = 1 << 5
	AfterDonate                     uint16 = 1 << 4
	BeforeSwapReturnDelta           uint16 = 1 << 3
	AfterSwapReturnDelta            uint16 = 1 << 2
	AfterAddLiquidityReturnDelta    uint16 = 1 << 1
	AfterRemoveLiquidityReturnDelta uint16 = 1 << 0

	// Mask covers every permission bit.
	Mask uint16 = 0x3FFF

	// Count is the number of permission bits.
	Count = 14
)

// ErrUnknownFlag is returned by Parse for names outside the permission set.
var ErrUnknownFlag = errors.New("unknown hook flag")

// flag names ordered from most to least significant bit
var names = [Count]string{
	"beforeInitialize",
	"afterInitialize",
	"beforeAddLiquidity",
	"afterAddLiquidity",
	"beforeRemoveLiquidity",
	"afterRemoveLiquidity",
	"beforeSwap",
	"afterSwap",
	"beforeDonate",
	"afterDonate",
	"beforeSwapReturnDelta",
	"afterSwapReturnDelta",
	"afterAddLiquidityReturnDelta",
	"afterRemoveLiquidityReturnDelta",
}

var bits = func() map[string]uint16 {
	m := make(map[string]uint16, Count)
	for i, name := range names {
		m[name] = 1 << (Count - 1 - i)
	}
	return m
}()

var assignment = regexp.MustCompile(`(\w+):\s*(?i:(true|false))`)

// Bit returns the bit for a flag name and whether the name is known.
func Bit(name string) (uint16, bool) {
	b, ok := bits[name]
	return b, ok
}

// Encode ORs together the bits of every flag whose state is true.
// Names that are not hook flags are ignored.
func Encode(states map[string]bool) uint16 {
	var mask uint16
	for name, bit := range bits {
		if states[name] {
			mask |= bit
		}
	}
	return mask
}

// Extract scans source text for `name: true` / `name: false` pairs.
// It is a textual scan, not a parser: any identifier followed by a boolean
// literal is reported, and a later occurrence overwrites an earlier one.
func Extract(source string) map[string]bool {
	states := make(map[string]bool)
	for _, m := range assignment.FindAllStringSubmatch(source, -1) {
		states[m[1]] = strings.EqualFold(m[2], "true")
	}
	return states
}

// FromSource extracts the flag states from source text and encodes them.
func FromSource(source string) uint16 {
	return Encode(Extract(source))
}

// Parse reads a comma separated list of flag names.
func Parse(list string) (uint16, error) {
	var mask uint16
	for _, field := range strings.Split(list, ",") {
		name := strings.TrimSpace(field)
		if name == "" {
			continue
		}
		bit, ok := bits[name]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownFlag, name)
		}
		mask |= bit
	}
	return mask, nil
}

// Names lists the flags set in mask, most significant first.
func Names(mask uint16) []string {
	var out []string
	for i, name := range names {
		if mask&(1<<(Count-1-i)) != 0 {
			out = append(out, name)
		}
	}
	return out
}

// FromAddress returns the permission bits carried by a 20-byte address.
func FromAddress(addr [20]byte) uint16 {
	return (uint16(addr[18])<<8 | uint16(addr[19])) & Mask
}
