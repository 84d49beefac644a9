package message

import (
	"bytes"
	"testing"
)

func TestBuildLayout(t *testing.T) {
	var deployer [20]byte
	for i := range deployer {
		deployer[i] = byte(i + 1)
	}
	var initHash [32]byte
	for i := range initHash {
		initHash[i] = byte(0xA0 + i)
	}

	m := Build(deployer, initHash, 4, 6, 0)

	if len(m) != Size {
		t.Fatalf("message size = %d, want %d", len(m), Size)
	}
	if !bytes.Equal(m[0:20], deployer[:]) {
		t.Error("deployer bytes misplaced")
	}
	if !bytes.Equal(m[20:52], initHash[:]) {
		t.Error("init code hash bytes misplaced")
	}
	if m[52] != 4 {
		t.Errorf("min_leading = %d, want 4", m[52])
	}
	if m[53] != 6 {
		t.Errorf("min_trailing = %d, want 6", m[53])
	}
	if m[54] != 0 {
		t.Errorf("best_score = %d, want 0", m[54])
	}
}

func TestSetBestScoreOnlyTouchesByte54(t *testing.T) {
	var deployer [20]byte
	var initHash [32]byte
	m := Build(deployer, initHash, 1, 2, 0)

	before := m
	SetBestScore(&m, 17)

	if m[54] != 17 {
		t.Errorf("byte 54 = %d, want 17", m[54])
	}
	before[54] = 17
	if m != before {
		t.Error("SetBestScore mutated a byte other than offset 54")
	}
}

func TestSetBestScoreSaturates(t *testing.T) {
	var deployer [20]byte
	var initHash [32]byte
	m := Build(deployer, initHash, 0, 0, 0)
	SetBestScore(&m, 1000)
	if m[54] != 255 {
		t.Errorf("byte 54 = %d, want saturated 255", m[54])
	}
}

func TestSaltTailUniqueWithinDispatch(t *testing.T) {
	const n = uint32(0xDEADBEEF)
	const w = 1 << 16 // keep the test fast; injectivity holds for any W <= 2^32

	seen := make(map[[8]byte]bool, w)
	for g := uint32(0); g < w; g++ {
		tail := SaltTail(n, g)
		if seen[tail] {
			t.Fatalf("salt tail collision at g=%d", g)
		}
		seen[tail] = true
	}
}

func TestSaltTailDiffersAcrossNonces(t *testing.T) {
	t1 := SaltTail(1, 42)
	t2 := SaltTail(2, 42)
	if t1 == t2 {
		t.Error("expected different salt tails for different base nonces at the same index")
	}
}

func TestSaltLayout(t *testing.T) {
	tail := SaltTail(7, 9)
	salt := Salt(tail)

	for i := 0; i < 24; i++ {
		if salt[i] != 0 {
			t.Fatalf("salt[%d] = %d, want 0 (leading zero region)", i, salt[i])
		}
	}
	if !bytes.Equal(salt[24:32], tail[:]) {
		t.Error("salt tail not placed at offset 24")
	}
}
