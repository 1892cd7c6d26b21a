package recognize

import (
	"os"
	"path/filepath"
)

// ModelOption describes one downloadable whisper.cpp model.
type ModelOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	FileName    string `json:"fileName"`
	URL         string `json:"url"`
	SizeLabel   string `json:"sizeLabel,omitempty"`
	Description string `json:"description,omitempty"`
	Downloaded  bool   `json:"downloaded"`
	LocalPath   string `json:"localPath,omitempty"`
}

const ggmlBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

var catalog = []ModelOption{
	{ID: "tiny", Name: "Tiny", FileName: "ggml-tiny.bin", SizeLabel: "~75 MB", Description: "Fastest multilingual model."},
	{ID: "tiny.en", Name: "Tiny (English)", FileName: "ggml-tiny.en.bin", SizeLabel: "~75 MB", Description: "Fastest, English-only model."},
	{ID: "base", Name: "Base", FileName: "ggml-base.bin", SizeLabel: "~142 MB", Description: "Balanced speed/quality, multilingual."},
	{ID: "base.en", Name: "Base (English)", FileName: "ggml-base.en.bin", SizeLabel: "~142 MB", Description: "Balanced speed/quality, English-only."},
	{ID: "small", Name: "Small", FileName: "ggml-small.bin", SizeLabel: "~466 MB", Description: "Higher quality multilingual model."},
	{ID: "small.en", Name: "Small (English)", FileName: "ggml-small.en.bin", SizeLabel: "~466 MB", Description: "Higher quality, English-only."},
	{ID: "medium", Name: "Medium", FileName: "ggml-medium.bin", SizeLabel: "~1.5 GB", Description: "High quality multilingual model."},
	{ID: "medium.en", Name: "Medium (English)", FileName: "ggml-medium.en.bin", SizeLabel: "~1.5 GB", Description: "High quality, English-only."},
	{ID: "large", Name: "Large", FileName: "ggml-large-v3.bin", SizeLabel: "~2.9 GB", Description: "Latest large multilingual model."},
	{ID: "large-v2", Name: "Large v2", FileName: "ggml-large-v2.bin", SizeLabel: "~2.9 GB", Description: "Very high quality multilingual model."},
	{ID: "large-v3", Name: "Large v3", FileName: "ggml-large-v3.bin", SizeLabel: "~2.9 GB", Description: "Latest large multilingual model."},
	{ID: "large-v3-turbo", Name: "Large v3 Turbo", FileName: "ggml-large-v3-turbo.bin", SizeLabel: "~1.6 GB", Description: "Faster large-v3 variant."},
}

// LookupModel returns the catalog entry for id.
func LookupModel(id string) (ModelOption, bool) {
	for _, m := range catalog {
		if m.ID == id {
			m.URL = ggmlBaseURL + m.FileName
			return m, true
		}
	}
	return ModelOption{}, false
}

// Models returns catalog entries for ids, in order, marking the ones
// already present in modelDir. Unknown ids are skipped.
func Models(ids []string, modelDir string) []ModelOption {
	out := make([]ModelOption, 0, len(ids))
	for _, id := range ids {
		m, ok := LookupModel(id)
		if !ok {
			continue
		}
		candidate := filepath.Join(modelDir, m.FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			m.Downloaded = true
			m.LocalPath = candidate
		}
		out = append(out, m)
	}
	return out
}
