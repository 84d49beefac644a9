// Package config builds and validates the immutable run configuration:
// deployer address, init code hash, predicate, device selection, and
// output path. Hex parsing/padding rules follow spec section 6; the
// overall validate-then-freeze shape follows original_source's
// Config::new (lib.rs), generalized from positional args to named flags.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/create2gpu/miner/internal/predicate"
)

// ErrConfigInvalid wraps every input-validation failure (spec section 7).
var ErrConfigInvalid = errors.New("config invalid")

// DeviceMode selects how the Orchestrator picks devices (spec section 4.5).
type DeviceMode int

const (
	// ModeSingle runs exactly one device: (PlatformID, GPUDevice).
	ModeSingle DeviceMode = iota
	// ModeAllGPUs enumerates every GPU device across every platform.
	ModeAllGPUs
)

// Config is the fully validated, immutable configuration for a run. It is
// built once by Parse and cloned per Device Session by the Orchestrator
// (mirroring original_source main.rs's per-GPU base_config.clone()).
type Config struct {
	Deployer     [20]byte
	Caller       [20]byte // accepted for input compatibility; unused by the hash (spec section 6)
	InitCodeHash [32]byte
	Predicate    predicate.Predicate

	Mode       DeviceMode
	PlatformID uint32
	GPUDevice  uint32

	OutputFile string
	Verbose    bool
}

// RawArgs mirrors the CLI flags from spec section 6, pre-validation.
type RawArgs struct {
	StartsWith string
	EndsWith   string
	Deployer   string
	Caller     string
	InitHash   string
	GPU        uint
	AllGPUs    bool
	Output     string
	Verbose    bool

	// Only meaningful when StartsWith and EndsWith are both empty.
	MinLeading  uint
	MinTrailing uint
}

// Parse validates RawArgs and produces a frozen Config, or a wrapped
// ErrConfigInvalid describing the first problem found.
func Parse(a RawArgs) (Config, error) {
	if a.EndsWith != "" {
		// spec section 9: --ends-with is declared for input compatibility
		// but not propagated into any predicate; a first-class suffix
		// predicate would need a kernel message reshape this program does
		// not carry, so it is rejected outright rather than silently
		// ignored.
		return Config{}, fmt.Errorf("%w: --ends-with is not implemented", ErrConfigInvalid)
	}

	deployer, err := parseAddress(a.Deployer)
	if err != nil {
		return Config{}, fmt.Errorf("%w: deployer: %v", ErrConfigInvalid, err)
	}

	var caller [20]byte
	if a.Caller != "" {
		caller, err = parseAddress(a.Caller)
		if err != nil {
			return Config{}, fmt.Errorf("%w: caller: %v", ErrConfigInvalid, err)
		}
	}

	initHash, err := parseHash32(a.InitHash)
	if err != nil {
		return Config{}, fmt.Errorf("%w: init-code-hash: %v", ErrConfigInvalid, err)
	}

	pred, err := parsePredicate(a)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	if err := pred.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	output := a.Output
	if output == "" {
		output = "results.csv"
	}

	mode := ModeSingle
	if a.AllGPUs {
		mode = ModeAllGPUs
	}

	return Config{
		Deployer:     deployer,
		Caller:       caller,
		InitCodeHash: initHash,
		Predicate:    pred,
		Mode:         mode,
		PlatformID:   0,
		GPUDevice:    uint32(a.GPU),
		OutputFile:   output,
		Verbose:      a.Verbose,
	}, nil
}

func parsePredicate(a RawArgs) (predicate.Predicate, error) {
	if a.StartsWith != "" {
		prefix := strings.ToLower(stripHexPrefix(a.StartsWith))
		for _, c := range prefix {
			if !strings.ContainsRune("0123456789abcdef", c) {
				return predicate.Predicate{}, fmt.Errorf("starts-with: non-hex character %q", c)
			}
		}
		return predicate.PrefixMatch(prefix), nil
	}

	minLeading := a.MinLeading
	minTrailing := a.MinTrailing
	return predicate.VanityOnes(uint8(minLeading), uint8(minTrailing)), nil
}

// parseAddress parses a 20-byte address: accepts an optional "0x" prefix,
// left-pads with a zero nibble if odd-length, then left-pads/right-
// truncates to exactly 20 bytes (spec section 6).
func parseAddress(s string) ([20]byte, error) {
	var out [20]byte
	b, err := decodeHexPadded(s)
	if err != nil {
		return out, err
	}
	fitBytes(out[:], b)
	return out, nil
}

// parseHash32 parses a 32-byte hash with the same padding rules.
func parseHash32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := decodeHexPadded(s)
	if err != nil {
		return out, err
	}
	fitBytes(out[:], b)
	return out, nil
}

func decodeHexPadded(s string) ([]byte, error) {
	s = stripHexPrefix(s)
	if s == "" {
		return nil, errors.New("empty hex value")
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}

// fitBytes copies src into dst, left-padding with zero bytes if src is
// shorter than dst, or keeping only the first len(dst) bytes of src (a
// right truncation that drops src's tail) if src is longer.
func fitBytes(dst, src []byte) {
	if len(src) >= len(dst) {
		copy(dst, src[:len(dst)])
		return
	}
	copy(dst[len(dst)-len(src):], src)
}

func stripHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
