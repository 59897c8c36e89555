// Package google implements the sheets ports on top of the Google Sheets API.
// The ledger lives on one worksheet (header row plus data rows) and the
// settings document is a JSON string in A1 of a second worksheet.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"sitebook/internal/core"
	ports "sitebook/internal/sheets"

	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	DefaultDataSheet     = "Sheet1"
	DefaultSettingsSheet = "Settings"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	dataSheet     string
	settingsSheet string
}

var _ ports.Backend = (*Client)(nil)

// Options carries everything needed to reach the spreadsheet. Credentials
// may be given inline or as file paths; service account credentials win
// over an OAuth client/token pair.
type Options struct {
	SpreadsheetID      string
	DataSheet          string
	SettingsSheet      string
	ServiceAccountJSON string
	ServiceAccountFile string
	OAuthClientJSON    string
	OAuthClientFile    string
	OAuthTokenJSON     string
	OAuthTokenFile     string
	// Extra client options, e.g. a test endpoint.
	ClientOptions []goption.ClientOption
}

// Configured reports whether enough is set to attempt a connection.
func (o Options) Configured() bool {
	if strings.TrimSpace(o.SpreadsheetID) == "" {
		return false
	}
	if len(o.ClientOptions) > 0 {
		return true
	}
	return o.ServiceAccountJSON != "" || o.ServiceAccountFile != "" ||
		((o.OAuthClientJSON != "" || o.OAuthClientFile != "") && (o.OAuthTokenJSON != "" || o.OAuthTokenFile != ""))
}

// New builds a client from opts.
func New(ctx context.Context, opts Options) (*Client, error) {
	id := strings.TrimSpace(opts.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, id, opts.DataSheet, opts.SettingsSheet), nil
}

// NewWithService wraps an existing service. Blank sheet names fall back to defaults.
func NewWithService(svc *gsheet.Service, spreadsheetID, dataSheet, settingsSheet string) *Client {
	if strings.TrimSpace(dataSheet) == "" {
		dataSheet = DefaultDataSheet
	}
	if strings.TrimSpace(settingsSheet) == "" {
		settingsSheet = DefaultSettingsSheet
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		dataSheet:     dataSheet,
		settingsSheet: settingsSheet,
	}
}

func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	if len(opts.ClientOptions) > 0 {
		return gsheet.NewService(ctx, opts.ClientOptions...)
	}

	saJSON, err := readSecret(opts.ServiceAccountJSON, opts.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account: %w", err)
	}
	if len(saJSON) > 0 {
		return gsheet.NewService(ctx,
			goption.WithCredentialsJSON(saJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		)
	}

	clientJSON, err := readSecret(opts.OAuthClientJSON, opts.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client: %w", err)
	}
	tokenJSON, err := readSecret(opts.OAuthTokenJSON, opts.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	if len(clientJSON) == 0 || len(tokenJSON) == 0 {
		return nil, errors.New("missing credentials (set GOOGLE_SERVICE_ACCOUNT_JSON/_FILE, GOOGLE_APPLICATION_CREDENTIALS, or an OAuth client and token)")
	}

	httpClient, err := oauthHTTPClient(ctx, clientJSON, tokenJSON)
	if err != nil {
		return nil, err
	}
	return gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
}

func oauthHTTPClient(ctx context.Context, clientJSON, tokenJSON []byte) (*http.Client, error) {
	cfg, err := oauthgoogle.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}
	return cfg.Client(ctx, &tok), nil
}

func readSecret(inline, path string) ([]byte, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return []byte(s), nil
	}
	if p := strings.TrimSpace(path); p != "" {
		return os.ReadFile(p)
	}
	return nil, nil
}

// Ping checks that the spreadsheet is reachable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	return nil
}

func (c *Client) ReadAll(ctx context.Context) ([]map[string]string, error) {
	rng := quoteSheet(c.dataSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}

	header := toStrings(resp.Values[0])
	out := make([]map[string]string, 0, len(resp.Values)-1)
	for _, raw := range resp.Values[1:] {
		cells := toStrings(raw)
		if blank(cells) {
			continue
		}
		m := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(cells) {
				m[h] = cells[i]
			} else {
				m[h] = ""
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// WriteAll clears the worksheet and then writes header plus rows. The two
// calls are not atomic: if the update fails the sheet is left cleared.
func (c *Client) WriteAll(ctx context.Context, header []string, rows [][]string) error {
	rng := quoteSheet(c.dataSheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	values := make([][]interface{}, 0, len(rows)+1)
	values = append(values, headerValues(header))
	for _, r := range rows {
		values = append(values, rowValues(header, r))
	}
	target := rng + "!A1"
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, target, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s after clear: %w", target, err)
	}
	return nil
}

func (c *Client) AppendOne(ctx context.Context, header []string, row []string) error {
	rng := quoteSheet(c.dataSheet)
	first, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng+"!1:1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header %s: %w", rng, err)
	}

	var values [][]interface{}
	if len(first.Values) == 0 || blank(toStrings(first.Values[0])) {
		values = append(values, headerValues(header))
	}
	values = append(values, rowValues(header, row))

	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng+"!A1", &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append %s: %w", rng, err)
	}
	return nil
}

func (c *Client) ReadCell(ctx context.Context) (string, error) {
	rng := quoteSheet(c.settingsSheet) + "!A1"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		if missingSheet(err) {
			return "", fmt.Errorf("%w: %s", ports.ErrSettingsNotFound, c.settingsSheet)
		}
		return "", fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		return "", nil
	}
	return cellString(resp.Values[0][0]), nil
}

func (c *Client) WriteCell(ctx context.Context, value string) error {
	rng := quoteSheet(c.settingsSheet) + "!A1"
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{
		Values: [][]interface{}{{value}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		if missingSheet(err) {
			return fmt.Errorf("%w: %s", ports.ErrSettingsNotFound, c.settingsSheet)
		}
		return fmt.Errorf("write %s: %w", rng, err)
	}
	return nil
}

// missingSheet recognises the error Sheets returns for a range on a
// worksheet that does not exist.
func missingSheet(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	return gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Message, "Unable to parse range")
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func headerValues(header []string) []interface{} {
	out := make([]interface{}, len(header))
	for i, h := range header {
		out[i] = h
	}
	return out
}

// rowValues sends numeric columns as numbers so the sheet can sum them.
func rowValues(header, row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
		if i < len(header) && core.NumericColumn(header[i]) {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				out[i] = f
			}
		}
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = cellString(v)
	}
	return out
}

func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
