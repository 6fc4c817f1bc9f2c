package env

import (
	"os"
	"path/filepath"
)

// WorkDir returns the user-scoped working directory for redundans
// (synced tool sources, shared alignment indexes).
func WorkDir() (string, error) {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userCacheDir, ".redundans"), nil
}
