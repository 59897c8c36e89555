package backend

import (
	"fmt"

	"sitebook/internal/config"
	gsheet "sitebook/internal/sheets/google"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	t := Type(appConfig.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         t,
		DataDir:      appConfig.DataDir,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		Google: gsheet.Options{
			SpreadsheetID:      appConfig.GoogleSpreadsheetID,
			DataSheet:          appConfig.GoogleSheetName,
			SettingsSheet:      appConfig.GoogleSettingsSheetName,
			ServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
			ServiceAccountFile: appConfig.GoogleServiceAccountFile,
			OAuthClientJSON:    appConfig.GoogleOAuthClientJSON,
			OAuthClientFile:    appConfig.GoogleOAuthClientFile,
			OAuthTokenJSON:     appConfig.GoogleOAuthTokenJSON,
			OAuthTokenFile:     appConfig.GoogleOAuthTokenFile,
		},
		ProbeTimeout: appConfig.StoreTimeout,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLite:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case File, Auto:
		if c.DataDir == "" {
			return fmt.Errorf("data directory is required for %s backend", c.Type)
		}
	case Sheets:
		if !c.Google.Configured() {
			return fmt.Errorf("spreadsheet id and credentials are required for sheets backend")
		}
	}

	return nil
}
