package crypto

import "testing"

func TestNewServerSeed(t *testing.T) {
	seed, hash, err := NewServerSeed()
	if err != nil {
		t.Fatalf("NewServerSeed: %v", err)
	}
	if len(seed) != 64 || len(hash) != 64 {
		t.Errorf("seed len %d, hash len %d, want 64", len(seed), len(hash))
	}
	if !VerifySeed(seed, hash) {
		t.Error("seed does not verify against its own hash")
	}

	other, _, _ := NewServerSeed()
	if other == seed {
		t.Error("two generated seeds are equal")
	}
}

func TestVerifySeed(t *testing.T) {
	// sha256("abc")
	const abcHash = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"

	if got := HashSeed("abc"); got != abcHash {
		t.Errorf("HashSeed(abc) = %s", got)
	}
	if !VerifySeed("abc", abcHash) {
		t.Error("valid seed rejected")
	}
	if VerifySeed("abd", abcHash) {
		t.Error("wrong seed accepted")
	}
	if VerifySeed("abc", abcHash[:10]) {
		t.Error("truncated hash accepted")
	}
}
