package domain

// JobStatus tracks each pipeline stage for a single subtitling job.
type JobStatus string

const (
	JobStatusIdle                  JobStatus = "idle"
	JobStatusExtractingAudio       JobStatus = "extracting_audio"
	JobStatusAwaitingTranscription JobStatus = "awaiting_transcription"
	JobStatusMuxingSubtitles       JobStatus = "muxing_subtitles"
	JobStatusReady                 JobStatus = "ready"
	JobStatusFailed                JobStatus = "failed"
)

// EncodedPayload is a transport-safe text representation of binary data.
// Valid payloads decode back to the exact original bytes.
type EncodedPayload string

// MediaAsset is one in-memory media artifact. Immutable once created.
type MediaAsset struct {
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Bytes    []byte `json:"-"`
}

// Empty reports whether the asset carries no bytes.
func (a MediaAsset) Empty() bool {
	return len(a.Bytes) == 0
}

// Settings contains user-selectable runtime configuration.
type Settings struct {
	Endpoint     string `toml:"endpoint" json:"endpoint"`
	OutputDir    string `toml:"output_dir" json:"outputDir"`
	SampleRate   string `toml:"sample_rate" json:"sampleRate"`
	RemoteFolder string `toml:"remote_folder" json:"remoteFolder"`
	FFmpegPath   string `toml:"ffmpeg_path" json:"ffmpegPath"`
	WorkDir      string `toml:"work_dir" json:"workDir"`
}

// Job stores identity, lifecycle status, and terminal payloads for one
// submission. FailedStage and Error are set only in failed status; ResultRef
// and ResultPath only in ready status.
type Job struct {
	ID          string    `json:"id"`
	InputPath   string    `json:"inputPath"`
	Status      JobStatus `json:"status"`
	FailedStage string    `json:"failedStage,omitempty"`
	Error       string    `json:"error,omitempty"`
	ResultRef   string    `json:"resultRef,omitempty"`
	ResultPath  string    `json:"resultPath,omitempty"`
}
