package idcodec

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"
)

var testSecret = []byte("0123456789abcdef-test-secret")

func newTestCodec(t *testing.T, opts ...Option) *Codec {
	t.Helper()

	c, err := New(testSecret, opts...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return c
}

func TestNew_RejectsShortSecret(t *testing.T) {
	if _, err := New([]byte("short")); !errors.Is(err, ErrWeakSecret) {
		t.Fatalf("expected ErrWeakSecret, got %v", err)
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	c := newTestCodec(t)

	ids := []int64{1, 2, 42, 1 << 31, math.MaxInt64}
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		ids = append(ids, r.Int63n(math.MaxInt64-1)+1)
	}

	for _, id := range ids {
		token := c.Encode(id)
		got, err := c.Decode(token)
		if err != nil {
			t.Fatalf("Decode(Encode(%d)) failed: %v", id, err)
		}
		if got != id {
			t.Fatalf("Decode(Encode(%d)) = %d", id, got)
		}
	}
}

func TestEncode_DoesNotLeakID(t *testing.T) {
	c := newTestCodec(t)

	token := c.Encode(42)
	if token == "42" || len(token) != encoding.EncodedLen(tokenSize) {
		t.Fatalf("unexpected token shape: %q", token)
	}
	if token == c.Encode(43) {
		t.Fatal("different ids produced the same token")
	}
}

func TestEncode_Deterministic(t *testing.T) {
	c := newTestCodec(t)

	if c.Encode(42) != c.Encode(42) {
		t.Fatal("expected stable tokens for the same id")
	}
}

func TestDecode_Garbage(t *testing.T) {
	c := newTestCodec(t)

	inputs := []string{
		"",
		"garbage",
		"!!!not-base64!!!",
		strings.Repeat("A", 64),
		c.Encode(42) + "A",
	}

	for _, in := range inputs {
		if _, err := c.Decode(in); !errors.Is(err, ErrInvalidIdentifier) {
			t.Errorf("Decode(%q) expected ErrInvalidIdentifier, got %v", in, err)
		}
	}
}

func TestDecode_TamperedToken(t *testing.T) {
	c := newTestCodec(t)
	raw, err := encoding.DecodeString(c.Encode(42))
	if err != nil {
		t.Fatalf("decode token: %v", err)
	}

	for i := range raw {
		tampered := append([]byte(nil), raw...)
		tampered[i] ^= 0x01
		if _, err := c.Decode(encoding.EncodeToString(tampered)); !errors.Is(err, ErrInvalidIdentifier) {
			t.Fatalf("flipping byte %d was not detected: %v", i, err)
		}
	}
}

func TestDecode_WrongSecretOrLabel(t *testing.T) {
	c := newTestCodec(t)
	token := c.Encode(42)

	other, err := New([]byte("another-secret-of-enough-length"))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if _, err := other.Decode(token); !errors.Is(err, ErrInvalidIdentifier) {
		t.Errorf("expected ErrInvalidIdentifier under a different secret, got %v", err)
	}

	posting := newTestCodec(t, WithLabel("posting"))
	if _, err := posting.Decode(token); !errors.Is(err, ErrInvalidIdentifier) {
		t.Errorf("expected ErrInvalidIdentifier under a different label, got %v", err)
	}
}

func TestDecode_RejectsNonPositiveIDs(t *testing.T) {
	c := newTestCodec(t)

	for _, id := range []int64{0, -1, math.MinInt64} {
		if _, err := c.Decode(c.Encode(id)); !errors.Is(err, ErrInvalidIdentifier) {
			t.Errorf("Decode(Encode(%d)) expected ErrInvalidIdentifier, got %v", id, err)
		}
	}
}
