package verifier

import (
	"errors"
	"testing"

	"github.com/create2gpu/miner/internal/hashing"
	"github.com/create2gpu/miner/internal/predicate"
)

func TestVerifyAcceptsMatchingDigest(t *testing.T) {
	var deployer [20]byte
	deployer[0] = 0x4e
	var initHash [32]byte
	for i := range initHash {
		initHash[i] = byte(i)
	}
	var salt [32]byte
	salt[31] = 7

	addr := hashing.Create2Address(deployer, salt, initHash)
	preimage := append([]byte{0xff}, deployer[:]...)
	preimage = append(preimage, salt[:]...)
	preimage = append(preimage, initHash[:]...)
	digest := hashing.Sum256(preimage)

	pred := predicate.VanityOnes(0, 0)
	res, ok, err := Verify(deployer, salt, initHash, digest, pred, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected acceptance with a zero-threshold predicate")
	}
	if res.Address != addr {
		t.Errorf("verified address = %x, want %x", res.Address, addr)
	}
}

func TestVerifyRejectsDigestMismatch(t *testing.T) {
	var deployer [20]byte
	var initHash [32]byte
	var salt [32]byte
	var wrongDigest [32]byte
	wrongDigest[0] = 0xFF

	pred := predicate.VanityOnes(0, 0)
	_, ok, err := Verify(deployer, salt, initHash, wrongDigest, pred, 0)
	if ok {
		t.Fatal("expected rejection on digest mismatch")
	}
	if !errors.Is(err, ErrMismatchRejected) {
		t.Errorf("expected ErrMismatchRejected, got %v", err)
	}
}

func TestVerifyRejectsBelowThreshold(t *testing.T) {
	var deployer [20]byte
	var initHash [32]byte
	var salt [32]byte

	preimage := append([]byte{0xff}, deployer[:]...)
	preimage = append(preimage, salt[:]...)
	preimage = append(preimage, initHash[:]...)
	digest := hashing.Sum256(preimage)

	pred := predicate.VanityOnes(40, 40) // impossible to satisfy in general
	_, ok, err := Verify(deployer, salt, initHash, digest, pred, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected rejection: predicate should not be satisfied")
	}
}

func TestVerifyDigestOnlyMatchesVerify(t *testing.T) {
	var deployer [20]byte
	deployer[5] = 0x11
	var initHash [32]byte
	initHash[0] = 0x22
	var salt [32]byte
	salt[31] = 3

	pred := predicate.VanityOnes(0, 0)
	preimage := append([]byte{0xff}, deployer[:]...)
	preimage = append(preimage, salt[:]...)
	preimage = append(preimage, initHash[:]...)
	digest := hashing.Sum256(preimage)

	want, ok1, err := Verify(deployer, salt, initHash, digest, pred, 0)
	if err != nil || !ok1 {
		t.Fatalf("Verify setup failed: ok=%v err=%v", ok1, err)
	}
	got, ok2 := VerifyDigestOnly(deployer, salt, initHash, pred, 0)
	if !ok2 {
		t.Fatal("VerifyDigestOnly unexpectedly rejected")
	}
	if got != want {
		t.Errorf("VerifyDigestOnly = %+v, want %+v", got, want)
	}
}
