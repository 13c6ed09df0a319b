package security

import "testing"

func TestHasherRoundTrip(t *testing.T) {
	h := NewHasher(4) // min cost, tests only
	hash, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if err := h.Compare(hash, "correct horse battery staple"); err != nil {
		t.Errorf("Compare with right password: %v", err)
	}
	if err := h.Compare(hash, "wrong password"); err == nil {
		t.Error("Compare with wrong password succeeded")
	}
}

func TestNewJTI(t *testing.T) {
	a, err := NewJTI()
	if err != nil {
		t.Fatalf("NewJTI: %v", err)
	}
	b, err := NewJTI()
	if err != nil {
		t.Fatalf("NewJTI: %v", err)
	}
	if len(a) != 32 {
		t.Errorf("jti length = %d, want 32 hex chars", len(a))
	}
	if a == b {
		t.Error("two jtis collided")
	}
}

func TestSecretHashEqual(t *testing.T) {
	h := HashSecret("ABCD-EF01-2345-6789")
	if !SecretHashEqual("ABCD-EF01-2345-6789", h) {
		t.Error("matching secret rejected")
	}
	if SecretHashEqual("ABCD-EF01-2345-0000", h) {
		t.Error("non-matching secret accepted")
	}
}
