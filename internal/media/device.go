package media

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// InstallationID returns the stable per-installation identifier, generating
// and persisting a fresh UUID on first use. The id file lives outside the
// database so a restore (which replaces database files wholesale) never
// changes the current device's identity.
func InstallationID(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if id != "" {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("media: failed to read installation id: %w", err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("media: failed to create id directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("media: failed to persist installation id: %w", err)
	}

	log.Printf("media: generated new installation identifier %s", id)
	return id, nil
}
