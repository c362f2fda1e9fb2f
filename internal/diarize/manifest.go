package diarize

import (
	"encoding/json"
	"os"
)

type manifestEntry struct {
	AudioFilepath string   `json:"audio_filepath"`
	Offset        float64  `json:"offset"`
	Duration      *float64 `json:"duration"`
	Label         string   `json:"label"`
	Text          string   `json:"text"`
	RTTMFilepath  string   `json:"rttm_filepath"`
	UEMFilepath   string   `json:"uem_filepath"`
}

// WriteManifest writes a single-entry inference manifest for audioPath.
func WriteManifest(path, audioPath string) error {
	line, err := json.Marshal(manifestEntry{
		AudioFilepath: audioPath,
		Label:         "infer",
		Text:          "-",
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(line, '\n'), 0o644)
}
