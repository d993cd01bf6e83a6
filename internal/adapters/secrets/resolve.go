package secrets

import (
	"context"
	"fmt"

	"github.com/kevin07696/clientledger/internal/adapters/ports"
)

// Resolve returns the secret at path, or fallback when path is empty
func Resolve(ctx context.Context, store ports.SecretStore, path, fallback string) (string, error) {
	if path == "" || store == nil {
		return fallback, nil
	}

	secret, err := store.GetSecret(ctx, path)
	if err != nil {
		return "", err
	}
	if secret.Value == "" {
		return "", fmt.Errorf("secret %s is empty", path)
	}
	return secret.Value, nil
}
