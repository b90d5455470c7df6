package backend

import (
	"errors"
	"fmt"

	"ledgerdash/internal/config"
)

// FromAppConfig builds the configuration for the dashboard's data backend.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	return fromAppConfig(appConfig, BackendType(appConfig.DataBackend))
}

// SyncSourceFromAppConfig builds the configuration for the sync worker's source.
func SyncSourceFromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	return fromAppConfig(appConfig, BackendType(appConfig.SyncSource))
}

func fromAppConfig(appConfig *config.Config, backendType BackendType) (Config, error) {
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", backendType)
	}
	return Config{
		Type:          backendType,
		LedgerFile:    appConfig.LedgerFile,
		LedgerSheet:   appConfig.LedgerSheet,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		DataDirectory: appConfig.SeedDir,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case CSVBackend, XLSXBackend:
		if c.LedgerFile == "" {
			return fmt.Errorf("ledger file is required for %s backend", c.Type)
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, CSVBackend, XLSXBackend, SQLiteBackend, SheetsBackend}
}
