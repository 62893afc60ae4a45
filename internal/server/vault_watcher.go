package server

import (
	"fmt"
	"sync"
	"time"

	"atscore/internal/config"
	"atscore/internal/errors"
)

// APIKeysReloadCallback is called with the new key list when the Vault
// secret version changes.
type APIKeysReloadCallback func(keys []string, err error)

// VaultWatcher polls the API keys secret in Vault and triggers a reload when
// its KVv2 version increases.
type VaultWatcher struct {
	mu sync.RWMutex

	client         config.SecretReader
	secretPath     string
	pollInterval   time.Duration
	reloadCallback APIKeysReloadCallback
	logger         *errors.Logger

	stopChan    chan struct{}
	running     bool
	lastVersion int64
	lastRotated time.Time
}

// NewVaultWatcher creates a new VaultWatcher
func NewVaultWatcher(client config.SecretReader, secretPath string, pollInterval time.Duration, reloadCallback APIKeysReloadCallback, logger *errors.Logger) *VaultWatcher {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Minute
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &VaultWatcher{
		client:         client,
		secretPath:     secretPath,
		pollInterval:   pollInterval,
		reloadCallback: reloadCallback,
		logger:         logger,
		stopChan:       make(chan struct{}),
	}
}

// Start records the current secret version and begins polling.
func (vw *VaultWatcher) Start() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()
	if vw.running {
		return fmt.Errorf("vault watcher is already running")
	}

	// Keys at the current version were applied at startup.
	if secret, err := vw.client.GetSecretV2(vw.secretPath); err == nil && secret != nil {
		vw.lastVersion = secret.Version
	} else if err != nil {
		vw.logger.Warn("Failed to read initial API keys version", "secret_path", vw.secretPath, "error", err.Error())
	}

	vw.running = true
	go vw.pollLoop()
	vw.logger.Info("Vault watcher started", "secret_path", vw.secretPath, "poll_interval", vw.pollInterval)
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
	vw.logger.Info("Vault watcher stopped")
	return nil
}

// pollLoop polls Vault for secret changes
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

// poll runs one check and calls the callback when the version changed.
func (vw *VaultWatcher) poll() {
	changed, err := vw.checkForUpdates()
	if err != nil {
		vw.logger.LogError(err, "Failed to check Vault for updates")
		return
	}
	if !changed {
		return
	}

	vw.logger.Info("Vault secret changed, fetching new API keys")
	keys, err := vw.client.GetStringSliceSecret(vw.secretPath, "keys")
	if err != nil {
		err = fmt.Errorf("failed to fetch API keys from vault: %w", err)
		vw.logger.LogError(err, "API key rotation failed")
		vw.reloadCallback(nil, err)
		return
	}

	vw.mu.Lock()
	vw.lastRotated = time.Now()
	vw.mu.Unlock()
	vw.reloadCallback(keys, nil)
}

// checkForUpdates checks if the Vault secret version has changed
func (vw *VaultWatcher) checkForUpdates() (bool, error) {
	secret, err := vw.client.GetSecretV2(vw.secretPath)
	if err != nil {
		return false, fmt.Errorf("failed to read secret: %w", err)
	}
	if secret == nil {
		return false, nil
	}

	vw.mu.Lock()
	defer vw.mu.Unlock()
	if secret.Version > vw.lastVersion {
		vw.lastVersion = secret.Version
		return true, nil
	}
	return false, nil
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
	}
	if !vw.lastRotated.IsZero() {
		status["last_rotated"] = vw.lastRotated
	}
	return status
}
