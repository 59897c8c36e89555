package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	ports "sitebook/internal/sheets"

	goption "google.golang.org/api/option"
)

// fakeSheets serves the handful of Sheets v4 endpoints the client uses.
type fakeSheets struct {
	mu          sync.Mutex
	data        [][]interface{}
	settings    string
	hasSettings bool
	failUpdate  bool
	calls       []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	idx := strings.Index(path, "/values/")
	if idx < 0 {
		f.calls = append(f.calls, "ping")
		writeJSON(w, map[string]any{"spreadsheetId": "sheet-id"})
		return
	}
	rng := path[idx+len("/values/"):]

	if strings.HasPrefix(rng, "'Settings'") {
		if !f.hasSettings {
			w.WriteHeader(http.StatusBadRequest)
			writeJSON(w, map[string]any{"error": map[string]any{
				"code": 400, "message": "Unable to parse range: 'Settings'!A1", "status": "INVALID_ARGUMENT",
			}})
			return
		}
		switch r.Method {
		case http.MethodGet:
			f.calls = append(f.calls, "get-settings")
			var values [][]interface{}
			if f.settings != "" {
				values = [][]interface{}{{f.settings}}
			}
			writeJSON(w, map[string]any{"range": rng, "values": values})
		case http.MethodPut:
			f.calls = append(f.calls, "put-settings")
			var body struct{ Values [][]interface{} }
			json.NewDecoder(r.Body).Decode(&body)
			f.settings = body.Values[0][0].(string)
			writeJSON(w, map[string]any{})
		}
		return
	}

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(rng, ":clear"):
		f.calls = append(f.calls, "clear")
		f.data = nil
		writeJSON(w, map[string]any{})
	case r.Method == http.MethodPost && strings.HasSuffix(rng, ":append"):
		f.calls = append(f.calls, "append")
		var body struct{ Values [][]interface{} }
		json.NewDecoder(r.Body).Decode(&body)
		f.data = append(f.data, body.Values...)
		writeJSON(w, map[string]any{})
	case r.Method == http.MethodPut:
		f.calls = append(f.calls, "update")
		if f.failUpdate {
			w.WriteHeader(http.StatusTooManyRequests)
			writeJSON(w, map[string]any{"error": map[string]any{"code": 429, "message": "quota"}})
			return
		}
		var body struct{ Values [][]interface{} }
		json.NewDecoder(r.Body).Decode(&body)
		f.data = body.Values
		writeJSON(w, map[string]any{})
	case r.Method == http.MethodGet && strings.HasSuffix(rng, "!1:1"):
		f.calls = append(f.calls, "get-header")
		var values [][]interface{}
		if len(f.data) > 0 {
			values = f.data[:1]
		}
		writeJSON(w, map[string]any{"range": rng, "values": values})
	case r.Method == http.MethodGet:
		f.calls = append(f.calls, "get")
		writeJSON(w, map[string]any{"range": rng, "values": f.data})
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotImplemented)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, f *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), Options{
		SpreadsheetID: "sheet-id",
		ClientOptions: []goption.ClientOption{
			goption.WithEndpoint(srv.URL + "/"),
			goption.WithoutAuthentication(),
			goption.WithHTTPClient(srv.Client()),
		},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_InvalidOAuthClient(t *testing.T) {
	_, err := New(context.Background(), Options{
		SpreadsheetID:   "id",
		OAuthClientJSON: "invalid-json",
		OAuthTokenJSON:  `{"access_token":"test"}`,
	})
	if err == nil || !strings.Contains(err.Error(), "oauth config") {
		t.Fatalf("expected oauth config error, got %v", err)
	}
}

func TestNew_NoCredentials(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "id"})
	if err == nil || !strings.Contains(err.Error(), "missing credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}

func TestOptionsConfigured(t *testing.T) {
	cases := []struct {
		opts Options
		want bool
	}{
		{Options{}, false},
		{Options{SpreadsheetID: "id"}, false},
		{Options{SpreadsheetID: "id", ServiceAccountFile: "sa.json"}, true},
		{Options{SpreadsheetID: "id", OAuthClientJSON: "{}"}, false},
		{Options{SpreadsheetID: "id", OAuthClientJSON: "{}", OAuthTokenFile: "tok.json"}, true},
	}
	for i, tc := range cases {
		if got := tc.opts.Configured(); got != tc.want {
			t.Fatalf("case %d: got %v, want %v", i, got, tc.want)
		}
	}
}

func TestAppendOneWritesHeaderIntoEmptySheet(t *testing.T) {
	f := &fakeSheets{hasSettings: true}
	c := newTestClient(t, f)
	ctx := context.Background()
	header := []string{"日期", "數量", "備註"}

	if err := c.AppendOne(ctx, header, []string{"2025-01-01", "2.5", "x"}); err != nil {
		t.Fatal(err)
	}
	if err := c.AppendOne(ctx, header, []string{"2025-01-02", "abc", "y"}); err != nil {
		t.Fatal(err)
	}

	if len(f.data) != 3 {
		t.Fatalf("expected header + 2 rows, got %v", f.data)
	}
	if f.data[1][1] != 2.5 {
		t.Fatalf("numeric column should be sent as a number, got %#v", f.data[1][1])
	}
	if f.data[2][1] != "abc" {
		t.Fatalf("unparseable numeric cell should stay text, got %#v", f.data[2][1])
	}

	rows, err := c.ReadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0]["數量"] != "2.5" || rows[1]["備註"] != "y" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestWriteAllClearsThenUpdates(t *testing.T) {
	f := &fakeSheets{hasSettings: true, data: [][]interface{}{{"a"}, {"old"}}}
	c := newTestClient(t, f)

	if err := c.WriteAll(context.Background(), []string{"a"}, [][]string{{"new"}}); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(f.calls, ","); got != "clear,update" {
		t.Fatalf("unexpected call order %s", got)
	}
	if len(f.data) != 2 || f.data[1][0] != "new" {
		t.Fatalf("unexpected data %v", f.data)
	}
}

func TestWriteAllFailureLeavesSheetCleared(t *testing.T) {
	f := &fakeSheets{hasSettings: true, failUpdate: true, data: [][]interface{}{{"a"}, {"old"}}}
	c := newTestClient(t, f)

	err := c.WriteAll(context.Background(), []string{"a"}, [][]string{{"new"}})
	if err == nil || !strings.Contains(err.Error(), "after clear") {
		t.Fatalf("expected update-after-clear error, got %v", err)
	}
	if len(f.data) != 0 {
		t.Fatalf("expected cleared sheet, got %v", f.data)
	}
}

func TestSettingsCell(t *testing.T) {
	f := &fakeSheets{hasSettings: true}
	c := newTestClient(t, f)
	ctx := context.Background()

	if v, err := c.ReadCell(ctx); err != nil || v != "" {
		t.Fatalf("expected blank, got %q %v", v, err)
	}
	if err := c.WriteCell(ctx, `{"version":2}`); err != nil {
		t.Fatal(err)
	}
	if v, _ := c.ReadCell(ctx); v != `{"version":2}` {
		t.Fatalf("got %q", v)
	}
}

func TestSettingsSheetMissing(t *testing.T) {
	c := newTestClient(t, &fakeSheets{})
	ctx := context.Background()

	if _, err := c.ReadCell(ctx); !errors.Is(err, ports.ErrSettingsNotFound) {
		t.Fatalf("expected ErrSettingsNotFound, got %v", err)
	}
	if err := c.WriteCell(ctx, "{}"); !errors.Is(err, ports.ErrSettingsNotFound) {
		t.Fatalf("expected ErrSettingsNotFound on write, got %v", err)
	}
}

func TestPing(t *testing.T) {
	f := &fakeSheets{}
	c := newTestClient(t, f)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestCellString(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{float64(5000), "5000"},
		{1.25, "1.25"},
		{true, "true"},
	}
	for _, tc := range cases {
		if got := cellString(tc.in); got != tc.want {
			t.Fatalf("%v: got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestQuoteSheet(t *testing.T) {
	if got := quoteSheet("Bob's"); got != "'Bob''s'" {
		t.Fatalf("got %q", got)
	}
}
