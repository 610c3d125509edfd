package domain

// EngineBuildOption describes one downloadable static ffmpeg build preset.
type EngineBuildOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	OS          string `json:"os"`
	FileName    string `json:"fileName"`
	URL         string `json:"url"`
	SizeLabel   string `json:"sizeLabel,omitempty"`
	Description string `json:"description,omitempty"`
	Downloaded  bool   `json:"downloaded"`
	LocalPath   string `json:"localPath,omitempty"`
}
