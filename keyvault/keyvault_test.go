package keyvault

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateVaultURL(t *testing.T) {
	tests := []struct {
		name     string
		vaultURL string
		wantErr  string
	}{
		{
			name:     "valid vault URL",
			vaultURL: "https://my-vault.vault.azure.net",
		},
		{
			name:     "http scheme rejected",
			vaultURL: "http://my-vault.vault.azure.net",
			wantErr:  "https scheme",
		},
		{
			name:     "wrong domain rejected",
			vaultURL: "https://my-vault.vault.evil.net",
			wantErr:  "domain",
		},
		{
			name:     "vault name too short",
			vaultURL: "https://ab.vault.azure.net",
			wantErr:  "3-24 characters",
		},
		{
			name:     "vault name with invalid character",
			vaultURL: "https://my_vault.vault.azure.net",
			wantErr:  "invalid character",
		},
		{
			name:     "vault name starting with number",
			vaultURL: "https://1vault.vault.azure.net",
			wantErr:  "cannot start with a number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateVaultURL(tt.vaultURL)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvSource(t *testing.T) {
	t.Setenv("YTSUM_GOOGLE_API_KEY", "test-key-123")

	value, err := EnvSource{}.GetSecret(context.Background(), "GOOGLE-API-KEY")
	require.NoError(t, err)
	assert.Equal(t, "test-key-123", value)

	_, err = EnvSource{}.GetSecret(context.Background(), "NOTION-API-KEY")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YTSUM_NOTION_API_KEY")

	_, err = EnvSource{}.GetSecret(context.Background(), "")
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	chain := Chain{
		StaticSource{"GOOGLE-API-KEY": "from-static"},
		StaticSource{"NOTION-API-KEY": "from-fallback"},
	}

	value, err := chain.GetSecret(context.Background(), "GOOGLE-API-KEY")
	require.NoError(t, err)
	assert.Equal(t, "from-static", value)

	value, err = chain.GetSecret(context.Background(), "NOTION-API-KEY")
	require.NoError(t, err)
	assert.Equal(t, "from-fallback", value)

	_, err = chain.GetSecret(context.Background(), "MISSING")
	assert.Error(t, err)

	_, err = Chain{}.GetSecret(context.Background(), "ANY")
	assert.Error(t, err)
}

func TestStaticSource(t *testing.T) {
	source := StaticSource{"GOOGLE-API-KEY": "abc"}

	value, err := source.GetSecret(context.Background(), "GOOGLE-API-KEY")
	require.NoError(t, err)
	assert.Equal(t, "abc", value)

	_, err = source.GetSecret(context.Background(), "MISSING")
	assert.Error(t, err)
}
