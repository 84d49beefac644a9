// Package verifier re-derives a candidate address on the host and checks
// it against both the kernel's reported digest and the active predicate
// before a Device Session is allowed to hand a Hit to the Result Sink.
// Grounded on original_source gpu.rs's verification block (the
// Keccak::new_keccak256 / hasher.update / to_checksum_address sequence
// that runs right after a kernel dispatch reports has_solution).
package verifier

import (
	"errors"
	"fmt"

	"github.com/create2gpu/miner/internal/hashing"
	"github.com/create2gpu/miner/internal/predicate"
)

// ErrMismatchRejected is returned when the host's own Keccak-256
// recomputation disagrees with the digest the kernel reported for the
// same (deployer, salt, init code hash) triple. A real device returning a
// mismatching digest indicates a driver bug or memory corruption; the
// candidate is discarded rather than trusted.
var ErrMismatchRejected = errors.New("verifier: kernel digest mismatch")

// Result is a verified, scored candidate ready for the Result Sink.
type Result struct {
	Address      [20]byte
	ChecksumHex  string
	Salt         [32]byte
	Score        uint32
	LeadingOnes  uint8
	TrailingOnes uint8
}

// Verify recomputes address = low20(keccak256(0xff || deployer || salt ||
// initCodeHash)) on the host, confirms it matches kernelDigest (the full
// 32-byte digest the device reported), and evaluates pred against the
// candidate using bestKnownScore as the improvement floor. It returns
// ErrMismatchRejected if the host and kernel disagree, or the zero Result
// with ok=false if the address simply doesn't satisfy pred.
func Verify(deployer [20]byte, salt [32]byte, initCodeHash [32]byte, kernelDigest [32]byte, pred predicate.Predicate, bestKnownScore uint32) (Result, bool, error) {
	preimage := make([]byte, 0, 1+20+32+32)
	preimage = append(preimage, 0xff)
	preimage = append(preimage, deployer[:]...)
	preimage = append(preimage, salt[:]...)
	preimage = append(preimage, initCodeHash[:]...)
	digest := hashing.Sum256(preimage)

	if digest != kernelDigest {
		return Result{}, false, fmt.Errorf("%w: host=%x kernel=%x", ErrMismatchRejected, digest, kernelDigest)
	}

	var addr [20]byte
	copy(addr[:], digest[12:32])
	lowerHex := hashing.ToHex(addr)

	ok, leading, trailing := pred.Evaluate(lowerHex, bestKnownScore)
	if !ok {
		return Result{}, false, nil
	}

	return Result{
		Address:      addr,
		ChecksumHex:  hashing.ChecksumAddress(lowerHex),
		Salt:         salt,
		Score:        uint32(leading) + uint32(trailing),
		LeadingOnes:  leading,
		TrailingOnes: trailing,
	}, true, nil
}

// VerifyDigestOnly recomputes the address for (deployer, salt,
// initCodeHash) without consulting kernelDigest, for code paths — such as
// the CPU fallback Session — that never produced a separate device-side
// digest to cross-check in the first place.
func VerifyDigestOnly(deployer [20]byte, salt [32]byte, initCodeHash [32]byte, pred predicate.Predicate, bestKnownScore uint32) (Result, bool) {
	addr := hashing.Create2Address(deployer, salt, initCodeHash)
	lowerHex := hashing.ToHex(addr)

	ok, leading, trailing := pred.Evaluate(lowerHex, bestKnownScore)
	if !ok {
		return Result{}, false
	}

	return Result{
		Address:      addr,
		ChecksumHex:  hashing.ChecksumAddress(lowerHex),
		Salt:         salt,
		Score:        uint32(leading) + uint32(trailing),
		LeadingOnes:  leading,
		TrailingOnes: trailing,
	}, true
}
