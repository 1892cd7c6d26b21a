package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"multi-transcriber/internal/domain"
)

// InstallOrFixDiagnostic applies the automatic fix for one diagnostic
// item and returns the refreshed report. Tools cannot be installed from
// here; their items return the checker hint as an error.
func (a *App) InstallOrFixDiagnostic(itemID string) (domain.DiagnosticReport, error) {
	id := strings.TrimSpace(itemID)
	if id == "" {
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostic item id is required")
	}

	settings := a.GetSettings()
	var fixErr error

	switch id {
	case "model":
		_, fixErr = a.DownloadModel(modelOrDefault(settings.Model, a.Config.DefaultModel))
	case "output_dir":
		fixErr = ensureDir(settings.OutputDir)
	case "scratch_dir":
		fixErr = ensureDir(a.Config.ScratchDir)
	case "tool_ffmpeg", "tool_yt-dlp", "recognizer":
		fixErr = a.manualFix(id)
	default:
		return domain.DiagnosticReport{}, fmt.Errorf("unsupported diagnostic item id: %s", id)
	}

	report := a.refreshDiagnostics(settings)
	return report, fixErr
}

// manualFix returns the item's hint so the UI can show what to install.
func (a *App) manualFix(id string) error {
	for _, item := range a.GetDiagnostics().Items {
		if item.ID == id && item.Hint != "" {
			return fmt.Errorf("%s cannot be fixed automatically: %s", item.Name, item.Hint)
		}
	}
	return fmt.Errorf("%s cannot be fixed automatically", id)
}

func modelOrDefault(model, fallback string) string {
	if strings.TrimSpace(model) == "" {
		return fallback
	}
	return model
}

func ensureDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("directory is not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return nil
}

// ensureLocalBinOnPATH prepends the per-user bin directory so tools
// dropped there by the user are found by the checker and the runners.
func ensureLocalBinOnPATH(dataDir string) error {
	binDir := localBinDir(dataDir)
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return err
	}

	current := os.Getenv("PATH")
	for _, entry := range filepath.SplitList(current) {
		if filepath.Clean(entry) == filepath.Clean(binDir) {
			return nil
		}
	}

	if current == "" {
		return os.Setenv("PATH", binDir)
	}
	return os.Setenv("PATH", binDir+string(os.PathListSeparator)+current)
}

func localBinDir(dataDir string) string {
	return filepath.Join(dataDir, "bin")
}
