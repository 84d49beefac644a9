// Package hashing provides the host-side Keccak-256 the Verifier uses to
// re-derive a CREATE2 address and to compute EIP-55 checksums. This is the
// one real keccak implementation in the program; the GPU kernel carries its
// own from-scratch sponge and is checked against this package, never the
// other way around.
package hashing

import (
	"golang.org/x/crypto/sha3"
)

// Sum256 returns the Keccak-256 (not SHA3-256 — Ethereum's pre-standard
// padding) digest of data.
func Sum256(data []byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// Create2Address computes the low 20 bytes of
// keccak256(0xff || deployer || salt || initCodeHash), per spec section 3
// and the CREATE2 preimage layout pinned in spec section 6.
func Create2Address(deployer [20]byte, salt [32]byte, initCodeHash [32]byte) [20]byte {
	preimage := make([]byte, 0, 85)
	preimage = append(preimage, 0xff)
	preimage = append(preimage, deployer[:]...)
	preimage = append(preimage, salt[:]...)
	preimage = append(preimage, initCodeHash[:]...)

	digest := Sum256(preimage)

	var addr [20]byte
	copy(addr[:], digest[12:32])
	return addr
}

const hexDigits = "0123456789abcdef"

// ToHex renders a 20-byte address as 40 lowercase hex digits, no "0x".
func ToHex(addr [20]byte) string {
	out := make([]byte, 40)
	for i, b := range addr {
		out[2*i] = hexDigits[b>>4]
		out[2*i+1] = hexDigits[b&0xf]
	}
	return string(out)
}

// ChecksumAddress applies the EIP-55 mixed-case checksum to a lowercase
// 40-hex-digit address: hash the ASCII bytes of the lowercase hex string
// with Keccak-256, then upper-case each letter digit whose corresponding
// nibble of the hash is >= 8. Returns the checksummed string prefixed with
// "0x". Callers must pass an already-lowercase address — checksumming an
// address that is already mixed-case silently produces garbage (spec
// section 9's explicit warning).
func ChecksumAddress(lowerHex string) string {
	digest := Sum256([]byte(lowerHex))

	out := make([]byte, 0, 42)
	out = append(out, '0', 'x')
	for i := 0; i < len(lowerHex); i++ {
		c := lowerHex[i]
		if c >= '0' && c <= '9' {
			out = append(out, c)
			continue
		}
		var nibble byte
		if i%2 == 0 {
			nibble = digest[i/2] >> 4
		} else {
			nibble = digest[i/2] & 0xf
		}
		if nibble >= 8 {
			out = append(out, upper(c))
		} else {
			out = append(out, c)
		}
	}
	return string(out)
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}
