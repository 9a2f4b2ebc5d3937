package server

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"cvforge/internal/config"
)

// MockVaultClient is a mock implementation for testing
type MockVaultClient struct {
	mu      sync.Mutex
	secrets map[string]*config.VaultSecret
}

func (m *MockVaultClient) set(path string, secret *config.VaultSecret) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[path] = secret
}

func (m *MockVaultClient) ReadSecret(path string) (*config.VaultSecret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if secret, exists := m.secrets[path]; exists {
		return secret, nil
	}
	return nil, fmt.Errorf("no secret at %s", path)
}

const keysPath = "secret/data/cvforge/api-keys"

func newMockVault(version int64, keys string) *MockVaultClient {
	return &MockVaultClient{secrets: map[string]*config.VaultSecret{
		keysPath: {Data: map[string]any{"keys": keys}, Version: version},
	}}
}

func TestVaultWatcherCheckForUpdates(t *testing.T) {
	vw := NewVaultWatcher(newMockVault(2, "a"), keysPath, time.Minute, func([]string) {}, nil)

	_, changed, err := vw.checkForUpdates()
	if err != nil {
		t.Fatalf("checkForUpdates failed: %v", err)
	}
	if !changed {
		t.Error("Expected change to be detected")
	}

	_, changed, err = vw.checkForUpdates()
	if err != nil {
		t.Fatalf("checkForUpdates failed: %v", err)
	}
	if changed {
		t.Error("Expected no change to be detected")
	}
}

func TestVaultWatcherMissingSecret(t *testing.T) {
	vw := NewVaultWatcher(&MockVaultClient{secrets: map[string]*config.VaultSecret{}}, keysPath, time.Minute, func([]string) {}, nil)

	if _, _, err := vw.checkForUpdates(); err == nil {
		t.Fatal("expected an error for a missing secret")
	}
}

func TestVaultWatcherPollRotatesKeys(t *testing.T) {
	vault := newMockVault(1, "old-key")
	var got []string
	vw := NewVaultWatcher(vault, keysPath, time.Minute, func(keys []string) { got = keys }, nil)
	vw.lastVersion = 1

	vw.poll()
	if got != nil {
		t.Fatalf("unchanged version must not reload, got %v", got)
	}

	vault.set(keysPath, &config.VaultSecret{Data: map[string]any{"keys": "new-1, new-2"}, Version: 2})
	vw.poll()
	if len(got) != 2 || got[0] != "new-1" || got[1] != "new-2" {
		t.Fatalf("unexpected keys after rotation: %v", got)
	}

	status := vw.Status()
	if status["reloads"] != 1 || status["last_version"] != int64(2) {
		t.Errorf("unexpected status: %v", status)
	}
}

func TestVaultWatcherIgnoresEmptyKeyList(t *testing.T) {
	vault := newMockVault(1, "")
	called := false
	vw := NewVaultWatcher(vault, keysPath, time.Minute, func([]string) { called = true }, nil)

	vw.poll()
	if called {
		t.Fatal("an empty key list must not be applied")
	}
	if _, ok := vw.Status()["last_error"]; !ok {
		t.Error("expected the failure to be reported in status")
	}
}

func TestVaultWatcherStartStop(t *testing.T) {
	vault := newMockVault(3, "k")
	rotated := make(chan []string, 1)
	vw := NewVaultWatcher(vault, keysPath, 10*time.Millisecond, func(keys []string) { rotated <- keys }, nil)

	if err := vw.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := vw.Start(); err == nil {
		t.Error("expected second Start to fail")
	}

	vault.set(keysPath, &config.VaultSecret{Data: map[string]any{"keys": "rotated"}, Version: 4})

	select {
	case keys := <-rotated:
		if len(keys) != 1 || keys[0] != "rotated" {
			t.Errorf("unexpected keys: %v", keys)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not pick up the new version")
	}

	if err := vw.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := vw.Stop(); err != nil {
		t.Errorf("second Stop should be a no-op, got %v", err)
	}
}
