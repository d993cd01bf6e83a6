package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"

	"github.com/kevin07696/clientledger/internal/adapters/ports"
)

// VaultConfig contains configuration for the HashiCorp Vault store
type VaultConfig struct {
	// Vault server address (e.g., "https://vault.example.com:8200")
	Address string

	// Authentication method: "token" or "approle"
	AuthMethod string
	Token      string
	RoleID     string
	SecretID   string

	// Vault Enterprise namespace
	Namespace string

	// KV secrets engine mount path and version ("v1" or "v2")
	MountPath string
	KVVersion string

	CacheTTL time.Duration
}

// DefaultVaultConfig returns default configuration for the Vault store
func DefaultVaultConfig(address string) *VaultConfig {
	return &VaultConfig{
		Address:    address,
		AuthMethod: "token",
		MountPath:  "secret",
		KVVersion:  "v2",
		CacheTTL:   5 * time.Minute,
	}
}

type vaultSecretStore struct {
	client *vault.Client
	config *VaultConfig
	logger *zap.Logger
	cache  *secretCache
}

// NewVaultSecretStore creates and authenticates a Vault-backed store
func NewVaultSecretStore(ctx context.Context, cfg *VaultConfig, logger *zap.Logger) (ports.SecretStore, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	if err := authenticateVault(ctx, client, cfg); err != nil {
		return nil, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	logger.Info("Vault secret store initialized",
		zap.String("address", cfg.Address),
		zap.String("auth_method", cfg.AuthMethod),
		zap.String("mount_path", cfg.MountPath),
		zap.String("kv_version", cfg.KVVersion),
	)

	return &vaultSecretStore{
		client: client,
		config: cfg,
		logger: logger,
		cache:  newSecretCache(cfg.CacheTTL),
	}, nil
}

func authenticateVault(ctx context.Context, client *vault.Client, cfg *VaultConfig) error {
	switch cfg.AuthMethod {
	case "token":
		if cfg.Token == "" {
			return fmt.Errorf("token is required for token auth")
		}
		client.SetToken(cfg.Token)
		return nil

	case "approle":
		if cfg.RoleID == "" || cfg.SecretID == "" {
			return fmt.Errorf("role_id and secret_id are required for AppRole auth")
		}
		resp, err := client.Logical().WriteWithContext(ctx, "auth/approle/login", map[string]interface{}{
			"role_id":   cfg.RoleID,
			"secret_id": cfg.SecretID,
		})
		if err != nil {
			return fmt.Errorf("AppRole login failed: %w", err)
		}
		if resp == nil || resp.Auth == nil {
			return fmt.Errorf("AppRole login returned no auth info")
		}
		client.SetToken(resp.Auth.ClientToken)
		return nil

	default:
		return fmt.Errorf("unsupported auth method: %s", cfg.AuthMethod)
	}
}

// GetSecret reads the "value" key of the secret at path
func (s *vaultSecretStore) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if cached := s.cache.get(path); cached != nil {
		return cached, nil
	}

	fullPath := fmt.Sprintf("%s/%s", s.config.MountPath, path)
	if s.config.KVVersion == "v2" {
		fullPath = fmt.Sprintf("%s/data/%s", s.config.MountPath, path)
	}

	startTime := time.Now()
	raw, err := s.client.Logical().ReadWithContext(ctx, fullPath)
	if err != nil {
		s.logger.Error("Failed to retrieve secret from Vault",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to read secret from Vault: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("secret not found: %s", path)
	}

	secret, err := parseVaultSecret(raw.Data, s.config.KVVersion)
	if err != nil {
		return nil, fmt.Errorf("secret %s: %w", path, err)
	}

	s.logger.Debug("Secret retrieved from Vault",
		zap.String("path", path),
		zap.Duration("elapsed", time.Since(startTime)),
	)

	s.cache.set(path, secret)
	return secret, nil
}

// parseVaultSecret extracts the value and version from a KV response body
func parseVaultSecret(body map[string]interface{}, kvVersion string) (*ports.Secret, error) {
	data := body
	secret := &ports.Secret{Version: "1"}

	if kvVersion == "v2" {
		inner, ok := body["data"].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("invalid KV v2 secret format")
		}
		data = inner

		if metadata, ok := body["metadata"].(map[string]interface{}); ok {
			if v, ok := metadata["version"].(json.Number); ok {
				secret.Version = v.String()
			}
			if ct, ok := metadata["created_time"].(string); ok {
				secret.CreatedAt = ct
			}
		}
	}

	value, ok := data["value"].(string)
	if !ok {
		return nil, fmt.Errorf("secret has no string \"value\" key")
	}
	secret.Value = value
	return secret, nil
}
