package types

import "testing"

func TestBytesToHash(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want Hash
	}{
		{"empty", nil, Hash{}},
		{"short left-pads", []byte{0x01, 0x02}, func() Hash {
			var h Hash
			h[30] = 0x01
			h[31] = 0x02
			return h
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BytesToHash(tt.in)
			if got != tt.want {
				t.Errorf("BytesToHash(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestHashIsZero(t *testing.T) {
	var h Hash
	if !h.IsZero() {
		t.Fatal("zero-value Hash should report IsZero")
	}
	h[0] = 1
	if h.IsZero() {
		t.Fatal("non-zero Hash should not report IsZero")
	}
}

func TestPubkeyRoundTrip(t *testing.T) {
	raw := make([]byte, PubkeyLength)
	for i := range raw {
		raw[i] = byte(i)
	}
	p := BytesToPubkey(raw)
	if got := p.Bytes(); len(got) != PubkeyLength {
		t.Fatalf("Bytes() length = %d, want %d", len(got), PubkeyLength)
	}
	for i, b := range p.Bytes() {
		if b != raw[i] {
			t.Fatalf("byte %d = %d, want %d", i, b, raw[i])
		}
	}
}
