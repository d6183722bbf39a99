package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "careerplanner"

// WebhookSecretKey is the keyring entry holding the HMAC key used to sign
// outgoing webhooks.
const WebhookSecretKey = "webhook_secret"

// WebhookSecretEnv overrides the keyring entry when set.
const WebhookSecretEnv = "CAREERPLANNER_WEBHOOK_SECRET"

// Opener opens the keyring. Tests replace it with an in-memory ring.
var Opener = openKeyring

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/careerplanner/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("careerplanner-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get reads key from the keyring.
func Get(key string) (string, error) {
	ring, err := Opener()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set writes key to the keyring, replacing any previous value.
func Set(key string, value string) error {
	ring, err := Opener()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "Career planner " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes key from the keyring.
func Delete(key string) error {
	ring, err := Opener()
	if err != nil {
		return err
	}

	if err := ring.Remove(key); err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// WebhookSecret resolves the webhook signing key: the environment first,
// then the keyring. A missing secret is not an error; webhooks are then
// sent unsigned.
func WebhookSecret() (string, error) {
	if v := strings.TrimSpace(os.Getenv(WebhookSecretEnv)); v != "" {
		return v, nil
	}

	secret, err := Get(WebhookSecretKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	return secret, err
}
