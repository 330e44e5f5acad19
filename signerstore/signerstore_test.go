package signerstore

import "testing"

func TestGenerateAndSignRoundTrip(t *testing.T) {
	s, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	msg := []byte("tower-file-contents")
	sig := s.Sign(msg)

	if !Verify(s.Pubkey(), msg, sig) {
		t.Fatal("Verify() rejected a signature produced by the same store")
	}
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	s, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	sig := s.Sign([]byte("original"))
	if Verify(s.Pubkey(), []byte("tampered"), sig) {
		t.Fatal("Verify() accepted a signature over a different message")
	}
}

func TestVerifyRejectsWrongPubkey(t *testing.T) {
	a, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	b, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	msg := []byte("message")
	sig := a.Sign(msg)
	if Verify(b.Pubkey(), msg, sig) {
		t.Fatal("Verify() accepted a signature under the wrong pubkey")
	}
}
