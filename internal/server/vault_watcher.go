package server

import (
	"fmt"
	"sync"
	"time"

	"cvforge/internal/config"
	"cvforge/internal/errors"
)

// KeysReloadCallback receives the new API key list after a Vault change.
type KeysReloadCallback func(keys []string)

// VaultWatcher polls a KVv2 secret holding the server API keys and hands
// the new list to its callback whenever the secret version increases.
type VaultWatcher struct {
	mu sync.RWMutex

	client         config.SecretReader
	secretPath     string
	pollInterval   time.Duration
	reloadCallback KeysReloadCallback
	logger         *errors.Logger

	stopChan    chan struct{}
	running     bool
	lastVersion int64
	reloads     int
	lastError   string
}

// NewVaultWatcher creates a new VaultWatcher
func NewVaultWatcher(client config.SecretReader, secretPath string, pollInterval time.Duration, reloadCallback KeysReloadCallback, logger *errors.Logger) *VaultWatcher {
	return &VaultWatcher{
		client:         client,
		secretPath:     secretPath,
		pollInterval:   pollInterval,
		reloadCallback: reloadCallback,
		logger:         logger,
		stopChan:       make(chan struct{}),
	}
}

// Start records the current secret version and begins polling. The keys
// in effect at startup were loaded with the configuration, so the current
// version does not trigger a reload.
func (vw *VaultWatcher) Start() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()
	if vw.running {
		return fmt.Errorf("vault watcher is already running")
	}
	if vw.pollInterval <= 0 {
		return fmt.Errorf("vault watcher poll interval must be positive, got %s", vw.pollInterval)
	}

	if secret, err := vw.client.ReadSecret(vw.secretPath); err == nil {
		vw.lastVersion = secret.Version
	} else if vw.logger != nil {
		vw.logger.Warn("Could not read initial API key version from Vault", "secret_path", vw.secretPath, "error", err)
	}

	vw.running = true
	go vw.pollLoop()
	if vw.logger != nil {
		vw.logger.Info("Vault API key watcher started", "secret_path", vw.secretPath, "poll_interval", vw.pollInterval)
	}
	return nil
}

// Stop stops the Vault watcher
func (vw *VaultWatcher) Stop() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()
	if !vw.running {
		return nil
	}
	close(vw.stopChan)
	vw.running = false
	if vw.logger != nil {
		vw.logger.Info("Vault API key watcher stopped")
	}
	return nil
}

func (vw *VaultWatcher) pollLoop() {
	ticker := time.NewTicker(vw.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			vw.poll()
		case <-vw.stopChan:
			return
		}
	}
}

// poll reads the secret once and, on a new version, applies its keys.
func (vw *VaultWatcher) poll() {
	secret, changed, err := vw.checkForUpdates()
	if err != nil {
		vw.recordError(err, "Failed to check Vault for API key updates")
		return
	}
	if !changed {
		return
	}

	keys, err := secret.List("keys")
	if err != nil {
		vw.recordError(err, "Failed to fetch API keys from Vault")
		return
	}
	if len(keys) == 0 {
		// An empty list would switch authentication off.
		vw.recordError(fmt.Errorf("secret %s holds no keys", vw.secretPath), "Ignoring empty API key list from Vault")
		return
	}

	vw.reloadCallback(keys)

	vw.mu.Lock()
	vw.reloads++
	vw.lastError = ""
	vw.mu.Unlock()
	if vw.logger != nil {
		vw.logger.Info("API keys rotated from Vault", "count", len(keys), "version", secret.Version)
	}
}

func (vw *VaultWatcher) recordError(err error, message string) {
	vw.mu.Lock()
	vw.lastError = err.Error()
	vw.mu.Unlock()
	if vw.logger != nil {
		vw.logger.LogError(err, message, "secret_path", vw.secretPath)
	}
}

// checkForUpdates reads the secret and reports whether its version is newer
// than the last one seen.
func (vw *VaultWatcher) checkForUpdates() (*config.VaultSecret, bool, error) {
	secret, err := vw.client.ReadSecret(vw.secretPath)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read secret: %w", err)
	}

	vw.mu.Lock()
	defer vw.mu.Unlock()
	if secret.Version > vw.lastVersion {
		vw.lastVersion = secret.Version
		return secret, true, nil
	}
	return secret, false, nil
}

// Status returns the current status of the VaultWatcher for health reporting
func (vw *VaultWatcher) Status() map[string]any {
	vw.mu.RLock()
	defer vw.mu.RUnlock()
	status := map[string]any{
		"running":       vw.running,
		"poll_interval": vw.pollInterval.String(),
		"secret_path":   vw.secretPath,
		"last_version":  vw.lastVersion,
		"reloads":       vw.reloads,
	}
	if vw.lastError != "" {
		status["last_error"] = vw.lastError
	}
	return status
}
