package transcription

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"subtitle-burner/internal/domain"
)

// TestTranscribeSuccess checks the request shape and decoded result.
func TestTranscribeSuccess(t *testing.T) {
	subtitleText := "1\n00:00:00,000 --> 00:00:01,000\nHello\n"
	encodedSubtitles := base64.StdEncoding.EncodeToString([]byte(subtitleText))

	var received transcribeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"subtitles": encodedSubtitles})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.Transcribe(context.Background(), domain.EncodedPayload("YXVkaW8="), Options{
		SampleRateHint:   "16000",
		OutputFolderHint: "transcriptions",
	})
	if err != nil {
		t.Fatalf("Transcribe error = %v", err)
	}

	if received.Audio != "YXVkaW8=" {
		t.Fatalf("audio field = %q", received.Audio)
	}
	if received.SampleRate != "16000" {
		t.Fatalf("sample_rate field = %q", received.SampleRate)
	}
	if received.OutputFolder != "transcriptions" {
		t.Fatalf("output_folder field = %q", received.OutputFolder)
	}
	if string(result.SubtitlePayload) != encodedSubtitles {
		t.Fatalf("subtitle payload = %q", result.SubtitlePayload)
	}
}

// TestTranscribeMissingSubtitlesField checks the incomplete-response outcome.
func TestTranscribeMissingSubtitlesField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Transcribe(context.Background(), "YXVkaW8=", Options{})
	if !errors.Is(err, ErrIncompleteResponse) {
		t.Fatalf("error = %v, want ErrIncompleteResponse", err)
	}
}

// TestTranscribeMalformedBody checks non-JSON replies map to incomplete.
func TestTranscribeMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Transcribe(context.Background(), "YXVkaW8=", Options{})
	if !errors.Is(err, ErrIncompleteResponse) {
		t.Fatalf("error = %v, want ErrIncompleteResponse", err)
	}
}

// TestTranscribeServerErrorCarriesDetail checks error-body propagation.
func TestTranscribeServerErrorCarriesDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "model overloaded"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Transcribe(context.Background(), "YXVkaW8=", Options{})

	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("error type = %T, want *ServerError", err)
	}
	if serverErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", serverErr.StatusCode)
	}
	if serverErr.Detail != "model overloaded" {
		t.Fatalf("detail = %q", serverErr.Detail)
	}
}

// TestTranscribeUnreachableEndpoint checks the network failure outcome.
func TestTranscribeUnreachableEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL)
	_, err := client.Transcribe(context.Background(), "YXVkaW8=", Options{})

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("error type = %T, want *NetworkError", err)
	}
}

// TestTranscribeEmptyEndpoint checks misconfiguration mapping.
func TestTranscribeEmptyEndpoint(t *testing.T) {
	client := NewClient("  ")
	_, err := client.Transcribe(context.Background(), "YXVkaW8=", Options{})

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("error type = %T, want *NetworkError", err)
	}
}
