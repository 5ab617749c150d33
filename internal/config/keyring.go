package config

import (
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const keyringService = "edgargraph"

// KeyringManager stores LLM API keys in the OS credential store so they
// never have to live in config files or shell history.
type KeyringManager struct {
	service string
}

func NewKeyringManager() *KeyringManager {
	return &KeyringManager{service: keyringService}
}

// IsAvailable reports whether the OS keychain can be used at all. On
// headless Linux there may be no secret service running.
func (km *KeyringManager) IsAvailable() bool {
	const probe = "__edgargraph_probe__"
	if err := keyring.Set(km.service, probe, "ok"); err != nil {
		return false
	}
	_ = keyring.Delete(km.service, probe)
	return true
}

// SaveAPIKey stores an API key for a provider ("anthropic" or "openai").
func (km *KeyringManager) SaveAPIKey(provider, key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("API key cannot be empty")
	}
	if err := keyring.Set(km.service, keyringAccount(provider), key); err != nil {
		return fmt.Errorf("save %s key to keychain: %w", provider, err)
	}
	return nil
}

// GetAPIKey retrieves a provider's API key. Returns empty string with no
// error when the key is simply not present.
func (km *KeyringManager) GetAPIKey(provider string) (string, error) {
	key, err := keyring.Get(km.service, keyringAccount(provider))
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s key from keychain: %w", provider, err)
	}
	return key, nil
}

// DeleteAPIKey removes a provider's key. Deleting a missing key is not an
// error.
func (km *KeyringManager) DeleteAPIKey(provider string) error {
	err := keyring.Delete(km.service, keyringAccount(provider))
	if err != nil && err != keyring.ErrNotFound {
		return fmt.Errorf("delete %s key from keychain: %w", provider, err)
	}
	return nil
}

func keyringAccount(provider string) string {
	return provider + "_api_key"
}

// ResolveAPIKeys fills in missing LLM keys from the keychain when the
// config opts in. Environment and config file values win over the
// keychain so CI overrides still work.
func ResolveAPIKeys(cfg *Config) {
	if !cfg.LLM.UseKeychain {
		return
	}
	km := NewKeyringManager()
	if cfg.LLM.AnthropicKey == "" {
		if key, err := km.GetAPIKey("anthropic"); err == nil && key != "" {
			cfg.LLM.AnthropicKey = key
		}
	}
	if cfg.LLM.OpenAIKey == "" {
		if key, err := km.GetAPIKey("openai"); err == nil && key != "" {
			cfg.LLM.OpenAIKey = key
		}
	}
}

// MaskAPIKey renders a key safe for display, keeping only enough of the
// tail to identify it.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
