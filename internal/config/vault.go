package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/vault/api"

	"cvforge/internal/errors"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets names the KV v2 data paths secrets are read from. Empty
// paths are skipped.
type VaultSecrets struct {
	// APIKeys holds the server API keys as a comma-separated "keys" value.
	APIKeys string `mapstructure:"apiKeys"`
	// AIKey and TailorKey hold an "api_key" value.
	AIKey     string `mapstructure:"aiKey"`
	TailorKey string `mapstructure:"tailorKey"`
}

// VaultSecret is one version of a KV v2 secret.
type VaultSecret struct {
	Path    string
	Data    map[string]any
	Version int64
}

// String returns the string stored under key.
func (s *VaultSecret) String(key string) (string, error) {
	v, ok := s.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, s.Path)
	}
	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("key '%s' in secret %s holds %T, not a string", key, s.Path, v)
	}
	return str, nil
}

// List returns the comma-separated list stored under key, without blanks.
func (s *VaultSecret) List(key string) ([]string, error) {
	v, err := s.String(key)
	if err != nil {
		return nil, err
	}
	return splitKeys(v), nil
}

// SecretReader reads KV v2 secrets.
type SecretReader interface {
	ReadSecret(path string) (*VaultSecret, error)
}

var _ SecretReader = (*VaultClient)(nil)

// VaultClient reads secrets through the Vault HTTP API.
type VaultClient struct {
	client *api.Client
	logger *errors.Logger
}

// NewVaultClient connects to Vault and checks its health. It returns nil
// when Vault is disabled.
func NewVaultClient(cfg VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if logger == nil {
		logger = errors.Discard()
	}

	token, err := vaultToken(cfg)
	if err != nil {
		return nil, err
	}

	apiCfg := api.DefaultConfig()
	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}
	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(token)
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	health, err := client.Sys().Health()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vault at %s: %w", client.Address(), err)
	}
	logger.Info("Connected to Vault",
		"address", client.Address(),
		"namespace", cfg.Namespace,
		"version", health.Version,
		"sealed", health.Sealed)

	return &VaultClient{client: client, logger: logger}, nil
}

// vaultToken prefers the inline token over the token file.
func vaultToken(cfg VaultConfig) (string, error) {
	token := cfg.Token
	if token == "" && cfg.TokenFile != "" {
		data, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(data))
	}
	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// ReadSecret reads the latest version of the secret at path.
func (vc *VaultClient) ReadSecret(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}
	raw, err := vc.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if raw == nil || raw.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}
	secret, err := decodeKV2(path, raw.Data)
	if err != nil {
		return nil, err
	}
	vc.logger.Debug("Secret read from Vault", "path", path, "version", secret.Version, "keys", len(secret.Data))
	return secret, nil
}

// decodeKV2 unpacks the "data" and "metadata.version" fields of a KV v2
// read response.
func decodeKV2(path string, body map[string]any) (*VaultSecret, error) {
	data, ok := body["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	meta, ok := body["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	version, err := secretVersion(meta["version"])
	if err != nil {
		return nil, fmt.Errorf("secret at %s: %w", path, err)
	}
	return &VaultSecret{Path: path, Data: data, Version: version}, nil
}

// secretVersion accepts the number types the API client may decode into.
func secretVersion(v any) (int64, error) {
	switch v := v.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(v, 10, 64)
	case nil:
		return 0, fmt.Errorf("metadata has no version")
	default:
		return 0, fmt.Errorf("unexpected version type %T", v)
	}
}

// ApplyVaultSecrets overrides keys in cfg with the secrets configured under
// vault.secrets. It does nothing when Vault is disabled.
func ApplyVaultSecrets(cfg *Config, logger *errors.Logger) error {
	if !cfg.Vault.Enabled {
		return nil
	}
	client, err := NewVaultClient(cfg.Vault, logger)
	if err != nil {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "Failed to initialize Vault client", err)
	}
	return applySecrets(client, cfg, logger)
}

// applySecrets copies the configured secrets into cfg. The global AI key
// also reaches every operation that has no key of its own, through
// Config.Operation.
func applySecrets(r SecretReader, cfg *Config, logger *errors.Logger) error {
	if logger == nil {
		logger = errors.Discard()
	}
	paths := cfg.Vault.Secrets

	if paths.APIKeys != "" {
		secret, err := r.ReadSecret(paths.APIKeys)
		var keys []string
		if err == nil {
			keys, err = secret.List("keys")
		}
		if err != nil {
			return fmt.Errorf("failed to load API keys from vault: %w", err)
		}
		if len(keys) == 0 {
			logger.Warn("No API keys found in Vault", "path", paths.APIKeys)
		} else {
			cfg.Server.APIKeys = keys
			logger.Info("API keys loaded from Vault", "count", len(keys))
		}
	}

	modelKeys := []struct {
		name, path string
		dst        *string
	}{
		{"AI", paths.AIKey, &cfg.AI.APIKey},
		{"tailor", paths.TailorKey, &cfg.AI.Tailor.APIKey},
	}
	for _, k := range modelKeys {
		if k.path == "" {
			continue
		}
		secret, err := r.ReadSecret(k.path)
		var key string
		if err == nil {
			key, err = secret.String("api_key")
		}
		if err != nil {
			return fmt.Errorf("failed to load %s API key from vault: %w", k.name, err)
		}
		if key == "" {
			logger.Warn("Empty API key found in Vault", "key", k.name, "path", k.path)
			continue
		}
		*k.dst = key
		logger.Info("API key loaded from Vault", "key", k.name)
	}
	return nil
}
