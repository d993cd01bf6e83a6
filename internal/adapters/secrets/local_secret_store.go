package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kevin07696/clientledger/internal/adapters/ports"
)

// localSecretStore reads secrets from files under a base directory.
// For development only.
type localSecretStore struct {
	basePath string
	logger   *zap.Logger
}

// NewLocalSecretStore creates a filesystem-backed secret store
func NewLocalSecretStore(basePath string, logger *zap.Logger) ports.SecretStore {
	return &localSecretStore{
		basePath: basePath,
		logger:   logger,
	}
}

// GetSecret reads the file at path. Files may be plain text or JSON with a
// "value" key.
func (s *localSecretStore) GetSecret(ctx context.Context, secretPath string) (*ports.Secret, error) {
	filePath := filepath.Join(s.basePath, filepath.Clean("/"+secretPath))

	s.logger.Debug("Reading secret from filesystem", zap.String("path", secretPath))

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("secret not found: %s", secretPath)
		}
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	var secretData struct {
		Value     string `json:"value"`
		CreatedAt string `json:"created_at"`
	}
	if err := json.Unmarshal(data, &secretData); err == nil && secretData.Value != "" {
		return &ports.Secret{
			Value:     secretData.Value,
			Version:   "v1",
			CreatedAt: secretData.CreatedAt,
		}, nil
	}

	return &ports.Secret{
		Value:   strings.TrimRight(string(data), "\r\n"),
		Version: "v1",
	}, nil
}
