package config

import (
	"strings"
	"testing"

	"github.com/create2gpu/miner/internal/predicate"
)

func validArgs() RawArgs {
	return RawArgs{
		Deployer:    "0x4e59b44847b379578588920cA78FbF26c0B4956C",
		InitHash:    "0x" + strings.Repeat("ab", 32),
		MinLeading:  4,
		MinTrailing: 4,
	}
}

func TestParseValidVanity(t *testing.T) {
	cfg, err := Parse(validArgs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Predicate.Kind != predicate.KindVanityOnes {
		t.Error("expected vanity-ones predicate")
	}
	if cfg.OutputFile != "results.csv" {
		t.Errorf("default output = %q, want results.csv", cfg.OutputFile)
	}
	if cfg.Mode != ModeSingle {
		t.Error("expected single-device mode by default")
	}
}

func TestParsePrefixPredicateIgnoresThresholds(t *testing.T) {
	a := validArgs()
	a.StartsWith = "0xDEAD"
	cfg, err := Parse(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Predicate.Kind != predicate.KindPrefixMatch {
		t.Fatal("expected prefix predicate")
	}
	if cfg.Predicate.PrefixHex != "dead" {
		t.Errorf("prefix = %q, want lowercase dead", cfg.Predicate.PrefixHex)
	}
}

func TestParseRejectsEndsWith(t *testing.T) {
	a := validArgs()
	a.EndsWith = "beef"
	if _, err := Parse(a); err == nil {
		t.Error("expected error: --ends-with is not implemented")
	}
}

func TestParseRejectsBadHex(t *testing.T) {
	a := validArgs()
	a.Deployer = "0xnotHex"
	if _, err := Parse(a); err == nil {
		t.Error("expected error for non-hex deployer")
	}
}

func TestParseRejectsNonHexPrefix(t *testing.T) {
	a := validArgs()
	a.StartsWith = "zz"
	if _, err := Parse(a); err == nil {
		t.Error("expected error for non-hex starts-with value")
	}
}

func TestParseAllGPUsMode(t *testing.T) {
	a := validArgs()
	a.AllGPUs = true
	cfg, err := Parse(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Mode != ModeAllGPUs {
		t.Error("expected all-GPUs mode")
	}
}

func TestParseAddressPaddingAndTruncation(t *testing.T) {
	// Odd-length hex gets a leading zero nibble; short values get
	// left-padded to 20 bytes; oversized values are right-truncated
	// to their first 20 bytes.
	a := validArgs()
	a.Deployer = "0xabc" // odd length: "abc" -> "0abc" -> 2 bytes -> padded to 20
	cfg, err := Parse(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [20]byte{}
	want[18] = 0x0a
	want[19] = 0xbc
	if cfg.Deployer != want {
		t.Errorf("Deployer = %x, want %x", cfg.Deployer, want)
	}

	a.Deployer = "0x" + strings.Repeat("11", 20) + "2233" // 22 bytes -> first 20 kept
	cfg, err = Parse(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range want {
		want[i] = 0x11
	}
	if cfg.Deployer != want {
		t.Errorf("truncated Deployer = %x, want %x", cfg.Deployer, want)
	}
}

func TestParseCallerOptional(t *testing.T) {
	cfg, err := Parse(validArgs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var zero [20]byte
	if cfg.Caller != zero {
		t.Error("expected zero caller when not supplied")
	}
}
