package ports

import (
	"context"
)

// Secret is a resolved secret value
type Secret struct {
	Value     string
	Version   string
	CreatedAt string
}

// SecretStore reads secrets from a secret management backend.
// Path format depends on the backend:
//   - local: file path relative to the base directory
//   - vault: key under the KV mount, e.g. "clientledger/database"
//   - aws:   secret name or ARN, e.g. "clientledger/cron-secret"
//
// Implementations cache values for a short TTL.
type SecretStore interface {
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
