package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"intranet-lending/internal/domain"
	"intranet-lending/internal/logger"
	"intranet-lending/internal/storage"
)

// TokenSettingKey is the settings-store key holding the current bearer token.
const TokenSettingKey = "inventory_api_token"

// DefaultMemoryTTL bounds how long a token held in memory is trusted before
// the settings store is read again.
const DefaultMemoryTTL = 30 * time.Second

// SettingsStore is the durable key-value store the token is persisted to.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (value string, found bool, err error)
	SetSetting(ctx context.Context, key, value string) error
}

// TokenSource hands out a fresh bearer token.
type TokenSource interface {
	FetchRefreshedToken(ctx context.Context) (string, error)
}

// Credentials resolves the bearer token from memory, then the settings
// store, then the static configuration value. The memory copy expires after
// memoryTTL so a token rotated by another process is picked up. A refresh
// replaces the memory copy and persists to the settings store, falling back
// to one line of the token file.
type Credentials struct {
	settings     SettingsStore
	staticToken  string
	tokenFile    string
	tokenFileKey string
	memoryTTL    time.Duration
	now          func() time.Time

	mu       sync.RWMutex
	token    string
	loadedAt time.Time

	refreshing atomic.Bool
}

func NewCredentials(settings SettingsStore, staticToken, tokenFile, tokenFileKey string) *Credentials {
	if tokenFileKey == "" {
		tokenFileKey = "INVENTORY_API_TOKEN"
	}
	return &Credentials{
		settings:     settings,
		staticToken:  staticToken,
		tokenFile:    tokenFile,
		tokenFileKey: tokenFileKey,
		memoryTTL:    DefaultMemoryTTL,
		now:          time.Now,
	}
}

// SetMemoryTTL changes how long the memory copy is used without consulting
// the settings store. Non-positive values keep the default.
func (c *Credentials) SetMemoryTTL(ttl time.Duration) {
	if ttl > 0 {
		c.memoryTTL = ttl
	}
}

// ResolveToken returns the current token or a not_configured error.
func (c *Credentials) ResolveToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	token, loadedAt := c.token, c.loadedAt
	c.mu.RUnlock()
	if token != "" && c.now().Sub(loadedAt) < c.memoryTTL {
		return token, nil
	}

	if c.settings != nil {
		stored, found, err := c.settings.GetSetting(ctx, TokenSettingKey)
		if err != nil {
			if token != "" {
				logger.Warn("Failed to re-read inventory token from settings store, keeping the one in memory", "error", err)
				return token, nil
			}
			logger.Warn("Failed to read inventory token from settings store, using static token", "error", err)
		} else if found && stored != "" {
			if token != "" && stored != token {
				logger.Info("Inventory token changed in settings store, switching")
			}
			c.remember(stored)
			return stored, nil
		}
	}

	// a refreshed token that only reached the token file stays in memory
	if token != "" {
		c.remember(token)
		return token, nil
	}

	if c.staticToken != "" {
		c.remember(c.staticToken)
		return c.staticToken, nil
	}

	return "", domain.E(domain.KindNotConfigured, "inventory.resolve_token",
		"Die Verbindung zum Inventarsystem ist nicht konfiguriert.", errors.New("no inventory API token configured"))
}

// Reload drops the memory copy and resolves the token again. The client uses
// it when the remote side rejects the current token.
func (c *Credentials) Reload(ctx context.Context) (string, error) {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	return c.ResolveToken(ctx)
}

// Refresh fetches a new token from src and stores it. A refresh already in
// flight makes this call a no-op, so a refresh can never trigger another.
func (c *Credentials) Refresh(ctx context.Context, src TokenSource) error {
	if !c.refreshing.CompareAndSwap(false, true) {
		logger.Debug("Inventory token refresh already in progress, skipping")
		return nil
	}
	defer c.refreshing.Store(false)

	token, err := src.FetchRefreshedToken(ctx)
	if err != nil {
		return domain.E(domain.KindRefreshFailed, "inventory.refresh_token", "", err)
	}
	if token == "" {
		return domain.E(domain.KindRefreshFailed, "inventory.refresh_token", "", errors.New("refresh response carried no token"))
	}
	return c.Store(ctx, token)
}

// Refreshing reports whether a refresh is currently running.
func (c *Credentials) Refreshing() bool {
	return c.refreshing.Load()
}

// Store replaces the in-memory token and persists it. The memory copy is
// always updated; an error means neither durable layer accepted the value.
func (c *Credentials) Store(ctx context.Context, token string) error {
	c.remember(token)

	var settingsErr error
	if c.settings != nil {
		settingsErr = c.settings.SetSetting(ctx, TokenSettingKey, token)
		if settingsErr == nil {
			logger.Info("Inventory token refreshed and persisted to settings store")
			return nil
		}
		logger.Warn("Failed to persist inventory token to settings store, trying token file", "error", settingsErr)
	}

	if c.tokenFile == "" {
		return domain.E(domain.KindRefreshFailed, "inventory.store_token", "",
			fmt.Errorf("settings store: %v; no token file configured", settingsErr))
	}
	if err := storage.ReplaceLine(c.tokenFile, c.tokenFileKey, token); err != nil {
		return domain.E(domain.KindRefreshFailed, "inventory.store_token", "",
			fmt.Errorf("settings store: %v; token file: %w", settingsErr, err))
	}
	logger.Info("Inventory token refreshed and persisted to token file", "file", c.tokenFile)
	return nil
}

func (c *Credentials) remember(token string) {
	c.mu.Lock()
	c.token = token
	c.loadedAt = c.now()
	c.mu.Unlock()
}
