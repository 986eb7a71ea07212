// Package keyvault supplies API secrets from Azure Key Vault with local
// fallbacks for development.
package keyvault

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

const (
	// Azure Key Vault naming constraints
	minVaultNameLength = 3
	maxVaultNameLength = 24

	vaultDomainSuffix = ".vault.azure.net"

	// envPrefix is prepended to secret names for the environment fallback,
	// e.g. GOOGLE-API-KEY -> YTSUM_GOOGLE_API_KEY.
	envPrefix = "YTSUM_"
)

// Source supplies named secrets to API clients. Implementations must be
// safe for concurrent use.
type Source interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// SecretSource fetches secrets from a single Azure Key Vault using
// DefaultAzureCredential and caches retrieved values for the lifetime of
// the process. Credentials are resolved once at construction so callers
// hold an explicit client object instead of global state.
type SecretSource struct {
	vaultURL string
	client   *azsecrets.Client
	mu       sync.RWMutex
	values   map[string]string
}

// NewSecretSource builds a SecretSource for the given vault URL.
func NewSecretSource(vaultURL string) (*SecretSource, error) {
	if err := validateVaultURL(vaultURL); err != nil {
		return nil, err
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create DefaultAzureCredential: %w", err)
	}

	client, err := azsecrets.NewClient(vaultURL, cred, &azsecrets.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{MaxRetries: 3},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}

	return &SecretSource{
		vaultURL: vaultURL,
		client:   client,
		values:   make(map[string]string),
	}, nil
}

// GetSecret returns the named secret, fetching it from the vault on first
// use and serving the cached value afterwards.
func (s *SecretSource) GetSecret(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("secret name cannot be empty")
	}

	s.mu.RLock()
	if value, ok := s.values[name]; ok {
		s.mu.RUnlock()
		return value, nil
	}
	s.mu.RUnlock()

	resp, err := s.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		// Don't include the vault URL in the error to avoid information
		// disclosure in logs. The az login hint is the common fix locally.
		return "", fmt.Errorf("failed to get secret %q from Key Vault (check 'az login' or Managed Identity): %w", name, err)
	}
	if resp.Value == nil || *resp.Value == "" {
		return "", fmt.Errorf("secret %q has no value", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = *resp.Value
	return *resp.Value, nil
}

// EnvSource resolves secrets from environment variables, mapping the
// vault-style name to YTSUM_<NAME> with hyphens replaced by underscores.
// Used when no vault is configured (local development).
type EnvSource struct{}

// GetSecret looks up the mapped environment variable.
func (EnvSource) GetSecret(_ context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("secret name cannot be empty")
	}
	key := envPrefix + strings.ReplaceAll(strings.ToUpper(name), "-", "_")
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("secret %q not set (expected environment variable %s)", name, key)
	}
	return value, nil
}

// StaticSource serves secrets from a fixed map. Useful in tests and for
// one-shot CLI runs where the key was prompted interactively.
type StaticSource map[string]string

// GetSecret returns the mapped value.
func (s StaticSource) GetSecret(_ context.Context, name string) (string, error) {
	value, ok := s[name]
	if !ok || value == "" {
		return "", fmt.Errorf("secret %q not available", name)
	}
	return value, nil
}

// Chain tries each source in order and returns the first secret found.
type Chain []Source

// GetSecret returns the first successful lookup, or the last error when
// every source fails.
func (c Chain) GetSecret(ctx context.Context, name string) (string, error) {
	var lastErr error
	for _, source := range c {
		value, err := source.GetSecret(ctx, name)
		if err == nil {
			return value, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("secret %q not available", name)
	}
	return "", lastErr
}

func validateVaultURL(vaultURL string) error {
	if !strings.HasPrefix(vaultURL, "https://") {
		return fmt.Errorf("vault URL must use https scheme")
	}
	if !strings.HasSuffix(vaultURL, vaultDomainSuffix) {
		return fmt.Errorf("vault URL must be in *%s domain", vaultDomainSuffix)
	}

	vaultName := strings.TrimPrefix(vaultURL, "https://")
	vaultName = strings.TrimSuffix(vaultName, vaultDomainSuffix)
	return validateVaultName(vaultName)
}

func validateVaultName(vaultName string) error {
	if len(vaultName) < minVaultNameLength || len(vaultName) > maxVaultNameLength {
		return fmt.Errorf("vault name must be %d-%d characters, got %d", minVaultNameLength, maxVaultNameLength, len(vaultName))
	}

	for i, ch := range vaultName {
		if (ch < 'a' || ch > 'z') && (ch < 'A' || ch > 'Z') && (ch < '0' || ch > '9') && ch != '-' {
			return fmt.Errorf("vault name contains invalid character: %c", ch)
		}
		if i == 0 && ch >= '0' && ch <= '9' {
			return fmt.Errorf("vault name cannot start with a number")
		}
	}

	return nil
}
