// Package message builds the fixed 55-byte buffer the Keccak Kernel reads
// on every dispatch, and derives the 8-byte salt tail from a batch nonce
// and a work-item index. Layout is pinned exactly as spec section 6 and
// must stay byte-for-byte stable: the kernel depends on these offsets.
package message

import "encoding/binary"

// Size is the fixed length of the kernel message buffer.
const Size = 55

const (
	offDeployer     = 0  // 20 bytes
	offInitCodeHash = 20 // 32 bytes
	offMinLeading   = 52 // 1 byte
	offMinTrailing  = 53 // 1 byte
	offBestScore    = 54 // 1 byte
)

// Build assembles the immutable 55-byte message prefix: deployer address,
// init code hash, and the predicate's kernel-filter thresholds. bestScore
// seeds byte 54; callers refresh it in place via SetBestScore as the
// Result Sink's best_known_score advances.
func Build(deployer [20]byte, initCodeHash [32]byte, minLeading, minTrailing uint8, bestScore uint8) [Size]byte {
	var m [Size]byte
	copy(m[offDeployer:offDeployer+20], deployer[:])
	copy(m[offInitCodeHash:offInitCodeHash+32], initCodeHash[:])
	m[offMinLeading] = minLeading
	m[offMinTrailing] = minTrailing
	m[offBestScore] = bestScore
	return m
}

// SetBestScore overwrites byte 54 in place, the "zero-copy way to
// parameterize the kernel without rebuilding it" from spec section 9.
// Scores above 255 saturate at 255; the filter only needs to distinguish
// "worse than" from "at least as good as", and no supported predicate can
// produce a score above 80 (40 leading + 40 trailing hex digits).
func SetBestScore(m *[Size]byte, bestScore uint32) {
	if bestScore > 255 {
		bestScore = 255
	}
	m[offBestScore] = byte(bestScore)
}

// SaltTail derives the 8-byte salt tail from a batch nonce N and a
// work-item index g, per spec section 4.1: salt_tail =
// bswap64((uint64(N) << 32) | uint64(g)). Every (N, g) pair in a dispatch
// maps to a unique tail (TestSaltTailUniqueWithinDispatch checks the
// injectivity this relies on), and the tail is near-uniform over 2^64 for a uniformly
// random N since N occupies the high 32 bits of the pre-swap value.
func SaltTail(n uint32, g uint32) [8]byte {
	combined := (uint64(n) << 32) | uint64(g)
	var tail [8]byte
	binary.BigEndian.PutUint64(tail[:], bswap64(combined))
	return tail
}

func bswap64(x uint64) uint64 {
	return (x&0x00000000000000ff)<<56 |
		(x&0x000000000000ff00)<<40 |
		(x&0x0000000000ff0000)<<24 |
		(x&0x00000000ff000000)<<8 |
		(x&0x000000ff00000000)>>8 |
		(x&0x0000ff0000000000)>>24 |
		(x&0x00ff000000000000)>>40 |
		(x&0xff00000000000000)>>56
}

// Salt builds the full 32-byte candidate salt: 24 zero bytes followed by
// the 8-byte tail, per spec section 3.
func Salt(tail [8]byte) [32]byte {
	var s [32]byte
	copy(s[24:32], tail[:])
	return s
}
