package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"sitebook/internal/config"
	gsheet "sitebook/internal/sheets/google"
	"sitebook/internal/sheets/memory"
)

type fakeRemote struct {
	*memory.Store
	pingErr error
}

func (f fakeRemote) Ping(context.Context) error { return f.pingErr }

func factoryWith(remoteErr, pingErr error) *DefaultFactory {
	f := NewFactory(nil)
	f.newSheets = func(context.Context, gsheet.Options) (remote, error) {
		if remoteErr != nil {
			return nil, remoteErr
		}
		return fakeRemote{Store: memory.New(), pingErr: pingErr}, nil
	}
	return f
}

var googleConfigured = gsheet.Options{SpreadsheetID: "sheet-id", ServiceAccountJSON: "{}"}

func TestCreateBackend(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		remoteErr error
		pingErr   error
		want      Type
		wantErr   bool
	}{
		{name: "auto without spreadsheet uses files", config: Config{Type: Auto}, want: File},
		{name: "auto with reachable spreadsheet", config: Config{Type: Auto, Google: googleConfigured}, want: Sheets},
		{name: "auto falls back when ping fails", config: Config{Type: Auto, Google: googleConfigured}, pingErr: errors.New("403"), want: File},
		{name: "auto falls back when client fails", config: Config{Type: Auto, Google: googleConfigured}, remoteErr: errors.New("bad creds"), want: File},
		{name: "sheets fails hard", config: Config{Type: Sheets, Google: googleConfigured}, pingErr: errors.New("403"), wantErr: true},
		{name: "sheets requires credentials", config: Config{Type: Sheets}, wantErr: true},
		{name: "file", config: Config{Type: File}, want: File},
		{name: "sqlite", config: Config{Type: SQLite}, want: SQLite},
		{name: "memory", config: Config{Type: Memory}, want: Memory},
		{name: "invalid", config: Config{Type: "cloud"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := tt.config
			cfg.DataDir = dir
			if cfg.Type == SQLite {
				cfg.SQLiteDBPath = filepath.Join(dir, "sitebook.db")
			}

			res, err := factoryWith(tt.remoteErr, tt.pingErr).CreateBackend(context.Background(), cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateBackend() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer res.Close()
			if res.Type != tt.want {
				t.Errorf("Type = %s, want %s", res.Type, tt.want)
			}
			if _, err := res.Backend.ReadAll(context.Background()); err != nil {
				t.Errorf("ReadAll on fresh backend: %v", err)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("nil config should fail")
	}

	app := &config.Config{
		DataBackend:             "sheets",
		GoogleSpreadsheetID:     "abc",
		GoogleSheetName:         "Data",
		GoogleSettingsSheetName: "Conf",
		GoogleOAuthClientJSON:   "{}",
		GoogleOAuthTokenJSON:    "{}",
	}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != Sheets || cfg.Google.DataSheet != "Data" || cfg.Google.SettingsSheet != "Conf" {
		t.Errorf("cfg = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	app.DataBackend = "cloud"
	if _, err := FromAppConfig(app); err == nil {
		t.Error("invalid backend should fail")
	}
}
