package config

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/99designs/keyring"
)

// fakeRing is an in-memory SecretRing.
type fakeRing struct {
	items  map[string]keyring.Item
	setErr error
}

func newFakeRing() *fakeRing {
	return &fakeRing{items: map[string]keyring.Item{}}
}

func (r *fakeRing) Get(key string) (keyring.Item, error) {
	item, ok := r.items[key]
	if !ok {
		return keyring.Item{}, keyring.ErrKeyNotFound
	}
	return item, nil
}

func (r *fakeRing) Set(item keyring.Item) error {
	if r.setErr != nil {
		return r.setErr
	}
	r.items[item.Key] = item
	return nil
}

func testConfig() *Config {
	return &Config{
		Name: "personal",
		JMAP: JMAP{Username: "me@example.com"},
	}
}

func noPrompt(t *testing.T) func(string) (string, error) {
	return func(string) (string, error) {
		t.Error("prompt called unexpectedly")
		return "", nil
	}
}

func TestSecretFromConfigWins(t *testing.T) {
	cfg := testConfig()
	cfg.JMAP.Secret = "inline"
	ring := newFakeRing()
	ring.items["personal/me@example.com"] = keyring.Item{Data: []byte("stored")}

	secret, err := cfg.Secret(ring, noPrompt(t), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("Secret() error = %v", err)
	}
	if secret != "inline" {
		t.Errorf("Secret() = %q, want the inline value", secret)
	}
}

func TestSecretFromKeyring(t *testing.T) {
	cfg := testConfig()
	ring := newFakeRing()
	ring.items["personal/me@example.com"] = keyring.Item{Data: []byte("stored")}

	secret, err := cfg.Secret(ring, noPrompt(t), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("Secret() error = %v", err)
	}
	if secret != "stored" {
		t.Errorf("Secret() = %q, want %q", secret, "stored")
	}
}

func TestSecretPromptPersists(t *testing.T) {
	cfg := testConfig()
	ring := newFakeRing()
	prompt := func(username string) (string, error) {
		if username != "me@example.com" {
			t.Errorf("prompted for %q, want the account username", username)
		}
		return "typed", nil
	}

	secret, err := cfg.Secret(ring, prompt, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("Secret() error = %v", err)
	}
	if secret != "typed" {
		t.Errorf("Secret() = %q, want %q", secret, "typed")
	}
	if got := string(ring.items["personal/me@example.com"].Data); got != "typed" {
		t.Errorf("keyring now holds %q, want the typed secret", got)
	}
}

func TestSecretEmptyPromptFails(t *testing.T) {
	cfg := testConfig()
	prompt := func(string) (string, error) { return "", nil }

	if _, err := cfg.Secret(newFakeRing(), prompt, slog.New(slog.DiscardHandler)); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Secret() error = %v, want ErrInvalid", err)
	}
}

func TestSecretPersistFailureIsNotFatal(t *testing.T) {
	cfg := testConfig()
	ring := newFakeRing()
	ring.setErr = errors.New("locked")
	prompt := func(string) (string, error) { return "typed", nil }

	secret, err := cfg.Secret(ring, prompt, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("Secret() error = %v", err)
	}
	if secret != "typed" {
		t.Errorf("Secret() = %q, want the prompted secret despite keyring failure", secret)
	}
}
