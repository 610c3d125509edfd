// Package codec converts raw binary payloads to and from the transport-safe
// text encoding used on the transcription wire (padded standard base64).
package codec

import (
	"encoding/base64"
	"fmt"

	"subtitle-burner/internal/domain"
)

// EncodingError reports a payload that violates the transport encoding.
type EncodingError struct {
	Message string
	Err     error
}

// Error formats the encoding failure.
func (e *EncodingError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("encoding: %s", e.Message)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *EncodingError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Encode converts bytes into an EncodedPayload. Total and deterministic;
// output length is always a multiple of four.
func Encode(data []byte) domain.EncodedPayload {
	return domain.EncodedPayload(base64.StdEncoding.EncodeToString(data))
}

// Decode converts an EncodedPayload back into the exact original bytes.
// Fails with *EncodingError when the length is not a multiple of four or a
// character falls outside the encoding alphabet.
func Decode(payload domain.EncodedPayload) ([]byte, error) {
	if len(payload)%4 != 0 {
		return nil, &EncodingError{
			Message: fmt.Sprintf("payload length %d is not a multiple of 4", len(payload)),
		}
	}

	data, err := base64.StdEncoding.Strict().DecodeString(string(payload))
	if err != nil {
		return nil, &EncodingError{
			Message: "payload contains characters outside the transport alphabet",
			Err:     err,
		}
	}
	return data, nil
}
