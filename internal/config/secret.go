package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/99designs/keyring"
	"golang.org/x/term"
)

const keyringService = "mailbak"

// SecretRing is the slice of the OS keyring the secret lookup uses.
type SecretRing interface {
	Get(key string) (keyring.Item, error)
	Set(item keyring.Item) error
}

// OpenRing opens the platform keyring under the mailbak service name.
func OpenRing() (SecretRing, error) {
	ring, err := keyring.Open(keyring.Config{ServiceName: keyringService})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// PromptSecret reads a secret from the terminal without echo.
func PromptSecret(username string) (string, error) {
	fmt.Fprintf(os.Stderr, "secret for %s: ", username)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return string(secret), nil
}

// Secret resolves the account secret: an inline config value wins,
// then the keyring, then the prompt. A prompted secret is persisted
// to the keyring so the next run is non-interactive.
func (c *Config) Secret(ring SecretRing, prompt func(username string) (string, error), logger *slog.Logger) (string, error) {
	if c.JMAP.Secret != "" {
		logger.Warn("using secret from config file; prefer the keyring", "account", c.Name)
		return c.JMAP.Secret, nil
	}

	key := c.Name + "/" + c.JMAP.Username
	item, err := ring.Get(key)
	if err == nil {
		return string(item.Data), nil
	}
	if !errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("reading keyring: %w", err)
	}

	secret, err := prompt(c.JMAP.Username)
	if err != nil {
		return "", err
	}
	if secret == "" {
		return "", fmt.Errorf("%w: empty secret", ErrInvalid)
	}
	if err := ring.Set(keyring.Item{Key: key, Data: []byte(secret), Label: "mailbak " + key}); err != nil {
		// The secret still works for this run.
		logger.Warn("could not persist secret to keyring", "error", err)
	}
	return secret, nil
}
