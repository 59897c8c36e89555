package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sitebook/internal/amqp"
	"sitebook/internal/core"
	"sitebook/internal/ledger"
	"sitebook/internal/settings"
	"sitebook/internal/sheets/memory"

	"github.com/shopspring/decimal"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.LedgerChanged
	err  error
}

func (p *fakePublisher) PublishLedgerChanged(_ context.Context, msg *amqp.LedgerChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *fakePublisher) ops() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, m := range p.msgs {
		out = append(out, m.Op)
	}
	return out
}

type fixture struct {
	svc    *LedgerService
	mem    *memory.Store
	events *fakePublisher
}

func newFixture(t *testing.T, doc settings.Document, records ...core.Record) fixture {
	t.Helper()
	mem := memory.New()
	mem.Seed(core.Header(), ledger.EncodeRows(records))
	raw, err := settings.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if err := mem.WriteCell(context.Background(), raw); err != nil {
		t.Fatal(err)
	}
	events := &fakePublisher{}
	svc := NewLedgerService(
		ledger.NewStore(mem, time.Minute, nil),
		settings.NewStore(mem, time.Minute, nil),
		events, nil, Config{})
	svc.now = func() time.Time { return time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC) }
	return fixture{svc: svc, mem: mem, events: events}
}

func twoProjectDoc(t *testing.T) settings.Document {
	t.Helper()
	doc := settings.Default()
	if err := doc.AddProject("B"); err != nil {
		t.Fatal(err)
	}
	if err := doc.AddSuggestion("B", "施工耗材", settings.ItemSuggestions, "水泥"); err != nil {
		t.Fatal(err)
	}
	if err := doc.AddSuggestion("B", "施工耗材", settings.LocationSuggestions, "五金行"); err != nil {
		t.Fatal(err)
	}
	return doc
}

func rec(project, category, date, item string, qty, price int64) core.Record {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	r := core.Record{
		Date:     d,
		Project:  project,
		Category: category,
		Item:     item,
		Unit:     "包",
		Quantity: decimal.NewFromInt(qty),
		Price:    decimal.NewFromInt(price),
		Location: "五金行",
		Voucher:  core.VoucherReceipt,
	}
	r.Normalize()
	return r
}

func records(t *testing.T, f fixture) []core.Record {
	t.Helper()
	snap, err := f.svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return snap.Records
}

func TestAddRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, twoProjectDoc(t))

	r := rec("B", "施工耗材", "2025-03-01", "水泥", 2, 300)
	if err := f.svc.AddRecord(ctx, r); err != nil {
		t.Fatalf("AddRecord: %v", err)
	}
	got := records(t, f)
	if len(got) != 1 || !got[0].Total.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("records = %+v", got)
	}
	if ops := f.events.ops(); len(ops) != 1 || ops[0] != amqp.OpAppend {
		t.Errorf("events = %v", ops)
	}
}

func TestAddRecordIncomeDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, settings.Default())

	r := rec(settings.DefaultProject, settings.IncomeKey, "2025-03-01", "零用金", 5, 10000)
	r.Unit = ""
	r.InvoiceNo = "XX"
	if err := f.svc.AddRecord(ctx, r); err != nil {
		t.Fatalf("AddRecord: %v", err)
	}
	got := records(t, f)[0]
	if got.Location != "" || got.Voucher != core.VoucherNone || got.Unit != "次" || got.InvoiceNo != "" {
		t.Errorf("income defaults not applied: %+v", got)
	}
	if !got.Total.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("total = %s", got.Total)
	}
}

func TestAddRecordRefusals(t *testing.T) {
	tests := []struct {
		name string
		r    core.Record
		want error
	}{
		{"unknown project", rec("Z", "施工耗材", "2025-03-01", "x", 1, 1), settings.ErrUnknownProject},
		{"unknown category", rec("B", "不存在", "2025-03-01", "x", 1, 1), settings.ErrUnknownCategory},
		{"empty item", rec("B", "施工耗材", "2025-03-01", "", 1, 1), core.ErrEmptyItem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, twoProjectDoc(t))
			err := f.svc.AddRecord(context.Background(), tt.r)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !IsUserError(err) {
				t.Errorf("IsUserError(%v) = false", err)
			}
			if n := f.mem.Calls(memory.OpAppend); n != 0 {
				t.Errorf("append calls = %d", n)
			}
		})
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture(t, twoProjectDoc(t))
	f.events.err = amqp.ErrCircuitOpen
	if err := f.svc.AddRecord(context.Background(), rec("B", "施工耗材", "2025-03-01", "砂", 1, 1)); err != nil {
		t.Fatalf("AddRecord: %v", err)
	}
}

func TestEditPartitionRefusesDuringSearch(t *testing.T) {
	f := newFixture(t, twoProjectDoc(t), rec("B", "施工耗材", "2025-03-01", "水泥", 1, 300))
	_, err := f.svc.EditPartition(context.Background(), ledger.Edit{
		Selection: ledger.Selection{Project: "B", Category: "施工耗材", Year: 2025, Month: 3},
		Search:    "水",
	})
	if !errors.Is(err, ledger.ErrSearchActive) {
		t.Fatalf("err = %v", err)
	}
	if f.mem.Calls(memory.OpRead) != 0 || f.mem.Calls(memory.OpWrite) != 0 {
		t.Errorf("store touched: read=%d write=%d", f.mem.Calls(memory.OpRead), f.mem.Calls(memory.OpWrite))
	}
	if len(f.events.ops()) != 0 {
		t.Errorf("events = %v", f.events.ops())
	}
}

func TestDeletePartition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, twoProjectDoc(t),
		rec("B", "施工耗材", "2025-03-01", "水泥", 1, 300),
		rec("B", "施工耗材", "2025-03-02", "砂", 1, 100),
		rec("B", "交通費", "2025-03-02", "油資", 1, 500),
	)
	sel := ledger.Selection{Project: "B", Category: "施工耗材", Year: 2025, Month: 3}
	ed, err := f.svc.Editor(ctx, Period{Project: "B", Year: 2025, Month: 3}, "")
	if err != nil {
		t.Fatal(err)
	}
	var rows []ledger.EditedRow
	for _, b := range ed.Blocks {
		if b.Category.Key == "施工耗材" {
			rows = b.Rows
		}
	}
	if len(rows) != 2 {
		t.Fatalf("editor rows = %d", len(rows))
	}

	if _, err := f.svc.DeletePartition(ctx, ledger.Edit{Selection: sel, Rows: rows}); !errors.Is(err, ledger.ErrNothingMarked) {
		t.Fatalf("err = %v, want ErrNothingMarked", err)
	}

	rows[0].Delete = true
	res, err := f.svc.DeletePartition(ctx, ledger.Edit{Selection: sel, Rows: rows})
	if err != nil {
		t.Fatalf("DeletePartition: %v", err)
	}
	if res.Removed() != 1 {
		t.Errorf("removed = %d", res.Removed())
	}
	if got := records(t, f); len(got) != 2 {
		t.Errorf("records = %+v", got)
	}
	if ops := f.events.ops(); len(ops) != 1 || ops[0] != amqp.OpDelete {
		t.Errorf("events = %v", ops)
	}
}

func TestRenameProjectCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, twoProjectDoc(t),
		rec("B", "施工耗材", "2025-03-01", "水泥", 1, 300),
		rec(settings.DefaultProject, "施工耗材", "2025-03-01", "水泥", 1, 300),
	)
	n, err := f.svc.RenameProject(ctx, "B", " C ")
	if err != nil {
		t.Fatalf("RenameProject: %v", err)
	}
	if n != 1 {
		t.Errorf("renamed = %d", n)
	}
	snap, err := f.svc.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Settings.HasProject("B") || !snap.Settings.HasProject("C") {
		t.Errorf("projects = %v", snap.Settings.Projects)
	}
	if got := snap.Settings.Suggestions("C", "施工耗材", settings.ItemSuggestions); len(got) != 1 {
		t.Errorf("suggestions not moved: %v", got)
	}
	for _, r := range snap.Records {
		if r.Project == "B" {
			t.Errorf("record still on old project: %+v", r)
		}
	}
}

func TestRenameProjectToExistingTouchesNothing(t *testing.T) {
	f := newFixture(t, twoProjectDoc(t), rec("B", "施工耗材", "2025-03-01", "水泥", 1, 300))
	_, err := f.svc.RenameProject(context.Background(), "B", settings.DefaultProject)
	if !errors.Is(err, settings.ErrProjectExists) {
		t.Fatalf("err = %v", err)
	}
	if f.mem.Calls(memory.OpWrite) != 0 || f.mem.Calls(memory.OpWriteCell) != 1 {
		t.Errorf("writes: table=%d cell=%d", f.mem.Calls(memory.OpWrite), f.mem.Calls(memory.OpWriteCell))
	}
}

func TestRenamePartialWhenSettingsWriteFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, twoProjectDoc(t), rec("B", "施工耗材", "2025-03-01", "水泥", 1, 300))
	f.mem.Fail(memory.OpWriteCell, errors.New("quota exceeded"))

	n, err := f.svc.RenameProject(ctx, "B", "C")
	if !errors.Is(err, ErrRenamePartial) {
		t.Fatalf("err = %v, want ErrRenamePartial", err)
	}
	if n != 1 {
		t.Errorf("renamed = %d", n)
	}
	snap, _ := f.svc.Snapshot(ctx)
	if snap.Records[0].Project != "C" {
		t.Errorf("ledger not renamed: %+v", snap.Records[0])
	}
	if !snap.Settings.HasProject("B") {
		t.Errorf("settings should still hold the old name: %v", snap.Settings.Projects)
	}
}

func TestRenameProjectLedgerFailureLeavesSettings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, twoProjectDoc(t), rec("B", "施工耗材", "2025-03-01", "水泥", 1, 300))
	f.mem.Fail(memory.OpWrite, errors.New("boom"))

	_, err := f.svc.RenameProject(ctx, "B", "C")
	if !errors.Is(err, ledger.ErrStoreInconsistent) {
		t.Fatalf("err = %v", err)
	}
	doc, err := f.svc.Settings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !doc.HasProject("B") || doc.HasProject("C") {
		t.Errorf("projects = %v", doc.Projects)
	}
}

func TestDeleteProject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, twoProjectDoc(t),
		rec("B", "施工耗材", "2025-03-01", "水泥", 1, 300),
		rec(settings.DefaultProject, "施工耗材", "2025-03-01", "砂", 1, 300),
	)
	n, err := f.svc.DeleteProject(ctx, "B")
	if err != nil || n != 1 {
		t.Fatalf("DeleteProject = %d, %v", n, err)
	}
	if _, err := f.svc.DeleteProject(ctx, settings.DefaultProject); !errors.Is(err, settings.ErrLastProject) {
		t.Fatalf("err = %v, want ErrLastProject", err)
	}
	if got := records(t, f); len(got) != 1 || got[0].Project != settings.DefaultProject {
		t.Errorf("records = %+v", got)
	}
}

func TestUpdateCategory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, twoProjectDoc(t),
		rec("B", "施工耗材", "2025-03-01", "水泥", 1, 300),
		rec(settings.DefaultProject, "施工耗材", "2025-03-01", "砂", 1, 300),
	)

	n, err := f.svc.UpdateCategory(ctx, "B", "施工耗材", core.Category{Key: "耗材", Display: "02. 耗材", Type: core.Expense})
	if err != nil || n != 1 {
		t.Fatalf("UpdateCategory = %d, %v", n, err)
	}
	snap, _ := f.svc.Snapshot(ctx)
	for _, r := range snap.Records {
		if r.Project == "B" && r.Category != "耗材" {
			t.Errorf("B record not re-keyed: %+v", r)
		}
		if r.Project == settings.DefaultProject && r.Category != "施工耗材" {
			t.Errorf("other project touched: %+v", r)
		}
	}
	if got := snap.Settings.Suggestions("B", "耗材", settings.ItemSuggestions); len(got) != 1 {
		t.Errorf("suggestions not re-keyed: %v", got)
	}

	writes := f.mem.Calls(memory.OpWrite)
	if _, err := f.svc.UpdateCategory(ctx, "B", "耗材", core.Category{Key: "耗材", Display: "耗材 (改)", Type: core.Expense}); err != nil {
		t.Fatal(err)
	}
	if f.mem.Calls(memory.OpWrite) != writes {
		t.Error("display-only change rewrote the ledger")
	}
}

func TestRemoveCategoryKeepsRecords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, twoProjectDoc(t), rec("B", "施工耗材", "2025-03-01", "水泥", 1, 300))
	if err := f.svc.RemoveCategory(ctx, "B", "施工耗材"); err != nil {
		t.Fatal(err)
	}
	if got := records(t, f); len(got) != 1 {
		t.Errorf("records = %+v", got)
	}
	doc, _ := f.svc.Settings(ctx)
	if _, ok := doc.Category("B", "施工耗材"); ok {
		t.Error("category still configured")
	}
}

func TestRenameSuggestionLocation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, twoProjectDoc(t),
		rec("B", "施工耗材", "2025-03-01", "水泥", 1, 300),
		rec("B", "交通費", "2025-03-01", "油資", 1, 300),
	)
	n, err := f.svc.RenameSuggestion(ctx, "B", "施工耗材", settings.LocationSuggestions, "五金行", "建材行")
	if err != nil || n != 1 {
		t.Fatalf("RenameSuggestion = %d, %v", n, err)
	}
	snap, _ := f.svc.Snapshot(ctx)
	for _, r := range snap.Records {
		want := "五金行"
		if r.Category == "施工耗材" {
			want = "建材行"
		}
		if r.Location != want {
			t.Errorf("%s location = %q, want %q", r.Category, r.Location, want)
		}
	}
	if got := snap.Settings.Suggestions("B", "施工耗材", settings.LocationSuggestions); len(got) != 1 || got[0] != "建材行" {
		t.Errorf("suggestions = %v", got)
	}
}

func TestSnapshotDegrades(t *testing.T) {
	f := newFixture(t, twoProjectDoc(t))
	f.mem.Fail(memory.OpRead, errors.New("unreachable"))

	snap, err := f.svc.Snapshot(context.Background())
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if !snap.Settings.HasProject("B") {
		t.Errorf("settings should still load: %v", snap.Settings.Projects)
	}
	if len(snap.Records) != 0 {
		t.Errorf("records = %v", snap.Records)
	}

	d, err := f.svc.Dashboard(context.Background(), Period{Project: "B"})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("dashboard err = %v", err)
	}
	if d.Selection.Year != 2025 || !d.Overview.Balance.IsZero() {
		t.Errorf("dashboard = %+v", d)
	}
}

func TestDashboardScenario(t *testing.T) {
	f := newFixture(t, twoProjectDoc(t),
		rec("B", settings.IncomeKey, "2025-03-01", "零用金", 1, 10000),
		rec("B", "施工耗材", "2025-03-02", "水泥", 2, 1500),
		rec("B", "交通費", "2025-03-05", "油資", 1, 1000),
		rec("B", "施工耗材", "2024-12-05", "砂", 1, 900),
	)
	d, err := f.svc.Dashboard(context.Background(), Period{Project: "B"})
	if err != nil {
		t.Fatal(err)
	}
	if d.Selection.Year != 2025 {
		t.Errorf("default year = %d", d.Selection.Year)
	}
	if len(d.Years) != 2 || d.Years[0] != 2025 {
		t.Errorf("years = %v", d.Years)
	}
	ov := d.Overview
	if !ov.Income.Equal(decimal.NewFromInt(10000)) || !ov.Expense.Equal(decimal.NewFromInt(4000)) || !ov.Balance.Equal(decimal.NewFromInt(6000)) {
		t.Errorf("overview = %+v", ov)
	}
	if len(ov.Expenses) != 2 || ov.Expenses[0].Key != "施工耗材" || ov.Expenses[0].Percent != 75 {
		t.Errorf("breakdown = %+v", ov.Expenses)
	}
}

func TestEditorSearchDisablesEditing(t *testing.T) {
	f := newFixture(t, twoProjectDoc(t),
		rec("B", "施工耗材", "2025-03-01", "水泥", 1, 300),
		rec("B", "施工耗材", "2025-03-02", "砂", 1, 100),
	)
	ed, err := f.svc.Editor(context.Background(), Period{Project: "B", Year: 2025, Month: 3}, "水泥")
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range ed.Blocks {
		if b.Editable {
			t.Errorf("block %s editable during search", b.Category.Key)
		}
		if b.Category.Key == "施工耗材" && len(b.Rows) != 1 {
			t.Errorf("search rows = %d", len(b.Rows))
		}
	}
}

func TestBackupAndRestore(t *testing.T) {
	ctx := context.Background()
	src := newFixture(t, twoProjectDoc(t),
		rec("B", "施工耗材", "2025-03-01", "水泥", 1, 300),
		rec(settings.DefaultProject, "施工耗材", "2025-03-01", "砂", 1, 300),
	)
	var buf bytes.Buffer
	if err := src.svc.WriteBackup(ctx, &buf, ""); err != nil {
		t.Fatalf("WriteBackup: %v", err)
	}

	t.Run("full", func(t *testing.T) {
		dst := newFixture(t, settings.Default(), rec(settings.DefaultProject, "雜貨類", "2024-01-01", "舊", 1, 1))
		res, err := dst.svc.Restore(ctx, buf.Bytes(), "")
		if err != nil {
			t.Fatalf("Restore: %v", err)
		}
		if res.Records != 2 {
			t.Errorf("restored = %d", res.Records)
		}
		snap, _ := dst.svc.Snapshot(ctx)
		if len(snap.Records) != 2 || !snap.Settings.HasProject("B") {
			t.Errorf("snapshot = %+v", snap)
		}
	})

	t.Run("single project", func(t *testing.T) {
		dst := newFixture(t, settings.Default(),
			rec(settings.DefaultProject, "雜貨類", "2024-01-01", "保留", 1, 1),
			rec("B", "雜貨類", "2024-01-01", "覆蓋", 1, 1),
		)
		if _, err := dst.svc.Restore(ctx, buf.Bytes(), "B"); err != nil {
			t.Fatalf("Restore: %v", err)
		}
		snap, _ := dst.svc.Snapshot(ctx)
		items := map[string]bool{}
		for _, r := range snap.Records {
			items[r.Item] = true
		}
		if !items["保留"] || items["覆蓋"] || !items["水泥"] || items["砂"] {
			t.Errorf("items = %v", items)
		}
		if !snap.Settings.HasProject("B") || !snap.Settings.HasProject(settings.DefaultProject) {
			t.Errorf("projects = %v", snap.Settings.Projects)
		}
	})

	t.Run("unknown project", func(t *testing.T) {
		dst := newFixture(t, settings.Default())
		if _, err := dst.svc.Restore(ctx, buf.Bytes(), "Z"); !errors.Is(err, settings.ErrUnknownProject) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		dst := newFixture(t, settings.Default())
		_, err := dst.svc.Restore(ctx, []byte("nope"), "")
		if !IsUserError(err) {
			t.Fatalf("err = %v should be a user error", err)
		}
	})
}

func TestWriteReports(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, twoProjectDoc(t), rec("B", "施工耗材", "2025-03-01", "水泥", 1, 300))
	f.svc.config.ReportFont = "/nonexistent/kaiu.ttf"

	var pdf bytes.Buffer
	if err := f.svc.WriteReportPDF(ctx, &pdf, Period{Project: "B", Year: 2025, Month: 3}); err != nil {
		t.Fatalf("WriteReportPDF: %v", err)
	}
	if !bytes.HasPrefix(pdf.Bytes(), []byte("%PDF")) {
		t.Error("not a pdf")
	}
	var xlsx bytes.Buffer
	if err := f.svc.WriteReportXLSX(ctx, &xlsx, Period{Project: "B", Year: 2025}); err != nil {
		t.Fatalf("WriteReportXLSX: %v", err)
	}
	if xlsx.Len() == 0 {
		t.Error("empty xlsx")
	}
}
