package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
)

const logoResource = "resources/logo.png"

// ResourcePath resolves a bundled resource. It looks under
// TRANSCRIBER_RESOURCE_DIR, next to the executable (and the macOS bundle
// Resources dir), then the working directory.
func ResourcePath(rel string) (string, error) {
	candidates := make([]string, 0, 4)
	if dir := os.Getenv("TRANSCRIBER_RESOURCE_DIR"); dir != "" {
		candidates = append(candidates, filepath.Join(dir, rel))
	}
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(exeDir, rel),
			filepath.Join(exeDir, "..", "Resources", rel),
		)
	}
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(wd, rel))
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("resource not found: %s", rel)
}
