package codec

import (
	"bytes"
	"errors"
	"testing"

	"subtitle-burner/internal/domain"
)

// TestEncodeDecodeRoundTrip verifies exact round-trips for binary inputs.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	inputs := [][]byte{
		nil,
		{},
		[]byte("a"),
		[]byte("ab"),
		[]byte("abc"),
		[]byte("1\n00:00:00,000 --> 00:00:01,000\nHello\n"),
		{0x00, 0xff, 0x10, 0x80, 0x7f},
	}

	for _, input := range inputs {
		payload := Encode(input)
		decoded, err := Decode(payload)
		if err != nil {
			t.Fatalf("Decode(Encode(%q)) error = %v", input, err)
		}
		if !bytes.Equal(decoded, input) {
			t.Fatalf("round-trip mismatch: got %v, want %v", decoded, input)
		}
	}
}

// TestEncodeLengthMultipleOfFour verifies the padding invariant.
func TestEncodeLengthMultipleOfFour(t *testing.T) {
	for size := 0; size < 16; size++ {
		input := bytes.Repeat([]byte{0xA5}, size)
		payload := Encode(input)
		if len(payload)%4 != 0 {
			t.Fatalf("len(Encode(%d bytes)) = %d, want multiple of 4", size, len(payload))
		}
	}
}

// TestDecodeRejectsBadLength verifies the length check.
func TestDecodeRejectsBadLength(t *testing.T) {
	_, err := Decode(domain.EncodedPayload("abc"))
	if err == nil {
		t.Fatal("expected error")
	}

	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("error type = %T, want *EncodingError", err)
	}
}

// TestDecodeRejectsBadAlphabet verifies the alphabet check.
func TestDecodeRejectsBadAlphabet(t *testing.T) {
	_, err := Decode(domain.EncodedPayload("ab!("))
	if err == nil {
		t.Fatal("expected error")
	}

	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("error type = %T, want *EncodingError", err)
	}
}

// TestDecodeEmptyPayload verifies empty input decodes to empty bytes.
func TestDecodeEmptyPayload(t *testing.T) {
	decoded, err := Decode("")
	if err != nil {
		t.Fatalf("Decode(\"\") error = %v", err)
	}
	if len(decoded) != 0 {
		t.Fatalf("decoded length = %d, want 0", len(decoded))
	}
}
