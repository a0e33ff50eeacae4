// Package secrets loads process-wide credentials (database DSN, exchange
// API key/secret, broker/cache passwords) from HashiCorp Vault at startup,
// falling back to environment variables when Vault is disabled or
// unreachable. Nothing it loads is ever logged.
package secrets

import (
	"context"
	"fmt"
	"os"

	vault "github.com/hashicorp/vault/api"
	"github.com/rs/zerolog/log"
)

// Config configures the Vault connection and authentication method.
type Config struct {
	Enabled    bool
	Address    string
	Token      string
	AuthMethod string // "token", "kubernetes", "approle"
	MountPath  string
	SecretPath string
	Namespace  string
}

// FromEnv builds a Config from VAULT_* environment variables.
func FromEnv() Config {
	if os.Getenv("VAULT_ENABLED") != "true" {
		return Config{Enabled: false}
	}
	return Config{
		Enabled:    true,
		Address:    envOrDefault("VAULT_ADDR", "http://localhost:8200"),
		Token:      os.Getenv("VAULT_TOKEN"),
		AuthMethod: envOrDefault("VAULT_AUTH_METHOD", "token"),
		MountPath:  envOrDefault("VAULT_MOUNT_PATH", "secret"),
		SecretPath: envOrDefault("VAULT_SECRET_PATH", "tradingpipeline/production"),
		Namespace:  os.Getenv("VAULT_NAMESPACE"),
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Client wraps the official Vault SDK client, scoped to a single KV v2
// secret path.
type Client struct {
	api    *vault.Client
	config Config
}

// NewClient authenticates to Vault using cfg.AuthMethod and returns a ready
// Client.
func NewClient(cfg Config) (*Client, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("vault is not enabled in configuration")
	}

	vaultCfg := vault.DefaultConfig()
	vaultCfg.Address = cfg.Address

	apiClient, err := vault.NewClient(vaultCfg)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}
	if cfg.Namespace != "" {
		apiClient.SetNamespace(cfg.Namespace)
	}

	switch cfg.AuthMethod {
	case "token", "":
		token := cfg.Token
		if token == "" {
			token = os.Getenv("VAULT_TOKEN")
		}
		if token == "" {
			return nil, fmt.Errorf("VAULT_TOKEN not set for token authentication")
		}
		apiClient.SetToken(token)
	case "kubernetes":
		if err := authenticateKubernetes(apiClient, cfg); err != nil {
			return nil, fmt.Errorf("kubernetes authentication failed: %w", err)
		}
	case "approle":
		if err := authenticateAppRole(apiClient); err != nil {
			return nil, fmt.Errorf("approle authentication failed: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported vault auth method: %s", cfg.AuthMethod)
	}

	log.Info().
		Str("address", cfg.Address).
		Str("auth_method", cfg.AuthMethod).
		Str("mount_path", cfg.MountPath).
		Msg("vault client initialized")

	return &Client{api: apiClient, config: cfg}, nil
}

// Get reads a KV v2 secret at path (relative to config.SecretPath).
func (c *Client) Get(ctx context.Context, path string) (map[string]interface{}, error) {
	fullPath := fmt.Sprintf("%s/data/%s/%s", c.config.MountPath, c.config.SecretPath, path)

	secret, err := c.api.Logical().ReadWithContext(ctx, fullPath)
	if err != nil {
		return nil, fmt.Errorf("read secret from vault: %w", err)
	}
	if secret == nil {
		return nil, fmt.Errorf("secret not found at path: %s", fullPath)
	}
	if data, ok := secret.Data["data"].(map[string]interface{}); ok {
		return data, nil
	}
	return secret.Data, nil
}

// GetString reads a single string field of a KV v2 secret.
func (c *Client) GetString(ctx context.Context, path, key string) (string, error) {
	data, err := c.Get(ctx, path)
	if err != nil {
		return "", err
	}
	v, ok := data[key].(string)
	if !ok {
		return "", fmt.Errorf("secret key %q not found or not a string at path %q", key, path)
	}
	return v, nil
}

func authenticateKubernetes(client *vault.Client, cfg Config) error {
	jwt, err := os.ReadFile("/var/run/secrets/kubernetes.io/serviceaccount/token")
	if err != nil {
		return fmt.Errorf("read service account token: %w", err)
	}

	role := os.Getenv("VAULT_K8S_ROLE")
	if role == "" {
		role = "tradingpipeline"
	}

	secret, err := client.Logical().Write("auth/kubernetes/login", map[string]interface{}{
		"jwt":  string(jwt),
		"role": role,
	})
	if err != nil {
		return fmt.Errorf("kubernetes login: %w", err)
	}
	if secret == nil || secret.Auth == nil {
		return fmt.Errorf("kubernetes authentication returned no token")
	}
	client.SetToken(secret.Auth.ClientToken)
	return nil
}

func authenticateAppRole(client *vault.Client) error {
	roleID := os.Getenv("VAULT_ROLE_ID")
	secretID := os.Getenv("VAULT_SECRET_ID")
	if roleID == "" || secretID == "" {
		return fmt.Errorf("VAULT_ROLE_ID and VAULT_SECRET_ID must be set for approle authentication")
	}

	secret, err := client.Logical().Write("auth/approle/login", map[string]interface{}{
		"role_id":   roleID,
		"secret_id": secretID,
	})
	if err != nil {
		return fmt.Errorf("approle login: %w", err)
	}
	if secret == nil || secret.Auth == nil {
		return fmt.Errorf("approle authentication returned no token")
	}
	client.SetToken(secret.Auth.ClientToken)
	return nil
}
