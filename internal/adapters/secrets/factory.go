package secrets

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kevin07696/clientledger/internal/adapters/ports"
	"github.com/kevin07696/clientledger/internal/config"
)

// NewStore builds the backend selected by cfg.Backend. An empty backend
// returns a nil store, so every secret falls back to its plain env value.
func NewStore(ctx context.Context, cfg config.SecretsConfig, logger *zap.Logger) (ports.SecretStore, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "local":
		return NewLocalSecretStore(cfg.LocalPath, logger), nil
	case "vault":
		vc := DefaultVaultConfig(cfg.VaultAddress)
		vc.Token = cfg.VaultToken
		if cfg.VaultMount != "" {
			vc.MountPath = cfg.VaultMount
		}
		vc.CacheTTL = cfg.CacheTTL
		return NewVaultSecretStore(ctx, vc, logger)
	case "aws":
		ac := DefaultAWSSecretsManagerConfig(cfg.AWSRegion)
		ac.Endpoint = cfg.AWSEndpoint
		ac.CacheTTL = cfg.CacheTTL
		return NewAWSSecretStore(ctx, ac, logger)
	default:
		return nil, fmt.Errorf("unknown secrets backend %q", cfg.Backend)
	}
}

// ResolveConfig replaces the DB password and cron secret with their values
// from store when a secret path is configured for them
func ResolveConfig(ctx context.Context, store ports.SecretStore, cfg *config.Config) error {
	password, err := Resolve(ctx, store, cfg.Database.PasswordSecretPath, cfg.Database.Password)
	if err != nil {
		return fmt.Errorf("resolve database password: %w", err)
	}
	cfg.Database.Password = password

	cronSecret, err := Resolve(ctx, store, cfg.Cron.SecretPath, cfg.Cron.Secret)
	if err != nil {
		return fmt.Errorf("resolve cron secret: %w", err)
	}
	cfg.Cron.Secret = cronSecret
	return nil
}
