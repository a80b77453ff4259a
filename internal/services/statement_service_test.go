package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"spendlens/internal/cache"
	"spendlens/internal/core"
	"spendlens/internal/log"
	"spendlens/internal/report"
	"spendlens/internal/statement"
)

const sampleCSV = "Date,Narration,Debit Amount\n" +
	"2024-03-01,STARBUCKS COFFEE #123,150\n" +
	"2024-03-02,UPI-UBER TRIP-GPAY,80\n" +
	"2024-03-03,TAX PAYMENT,500\n" +
	"2024-03-04,LUNCH,0\n" +
	"2024-03-05,Mystery Vendor,1500\n"

type fakeRecorder struct {
	mu   sync.Mutex
	runs []core.RunSummary
	err  error
}

func (f *fakeRecorder) RecordRun(_ context.Context, run core.RunSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return f.err
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Level: slog.LevelError, Output: &bytes.Buffer{}})
}

func newTestService(opts ...ServiceOption) *StatementService {
	base := []ServiceOption{
		WithLogger(quietLogger()),
		WithClock(func() time.Time { return time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC) }),
	}
	return NewStatementService(statement.NewPipeline(statement.DefaultRules()), append(base, opts...)...)
}

func TestStatementService_Categorize(t *testing.T) {
	rec := &fakeRecorder{}
	svc := newTestService(WithRecorder(rec))

	got, err := svc.Categorize(context.Background(), Upload{Filename: "march.csv", Data: []byte(sampleCSV), Endpoint: core.EndpointUpload})
	if err != nil {
		t.Fatalf("Categorize() error = %v", err)
	}
	if got.RunID == "" || len(got.Digest) != 64 {
		t.Fatalf("expected run id and sha256 digest, got %q %q", got.RunID, got.Digest)
	}
	if got.RowsOut() != 3 {
		t.Fatalf("expected 3 rows out, got %d", got.RowsOut())
	}

	if len(rec.runs) != 1 {
		t.Fatalf("expected 1 recorded run, got %d", len(rec.runs))
	}
	run := rec.runs[0]
	if err := run.Validate(); err != nil {
		t.Fatalf("recorded run invalid: %v", err)
	}
	if run.RowsIn != 5 || run.DroppedTax != 1 || run.DroppedZeroDebit != 1 {
		t.Fatalf("unexpected run counters %+v", run)
	}
	if run.Categories["Transport"] != 1 || run.Categories[statement.FallbackCategory] != 1 {
		t.Fatalf("unexpected categories %v", run.Categories)
	}
	if run.Filename != "march.csv" || run.Endpoint != core.EndpointUpload {
		t.Fatalf("unexpected run metadata %+v", run)
	}
}

func TestStatementService_InputErrors(t *testing.T) {
	svc := newTestService()

	cases := []struct {
		name string
		data string
		want error
	}{
		{"empty", "", statement.ErrEmptyUpload},
		{"blank header", ",,\n1,2,3\n", statement.ErrMissingHeader},
		{"ragged", "narration\na,b\n", statement.ErrMalformedCSV},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Categorize(context.Background(), Upload{Data: []byte(tc.data)})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !statement.IsInputError(err) {
				t.Fatalf("expected input error, got %v", err)
			}
		})
	}
	if got := svc.Metrics().Failures; got != int64(len(cases)) {
		t.Fatalf("expected %d failures, got %d", len(cases), got)
	}
}

func TestStatementService_CacheByDigest(t *testing.T) {
	results := cache.NewLRUCache[*statement.Result](4, time.Minute)
	svc := newTestService(WithResultCache(results))
	up := Upload{Data: []byte(sampleCSV)}

	first, err := svc.Categorize(context.Background(), up)
	if err != nil {
		t.Fatalf("Categorize() error = %v", err)
	}
	second, err := svc.Categorize(context.Background(), up)
	if err != nil {
		t.Fatalf("Categorize() error = %v", err)
	}

	if first.CacheHit || !second.CacheHit {
		t.Fatalf("expected miss then hit, got %v then %v", first.CacheHit, second.CacheHit)
	}
	if first.RunID == second.RunID {
		t.Fatal("each call should get its own run id")
	}
	if first.Result != second.Result {
		t.Fatal("expected the cached result to be reused")
	}

	m := svc.Metrics()
	if m.Runs != 2 || m.Cache.Hits != 1 || m.Cache.Misses != 1 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestStatementService_RecorderFailureIsNotFatal(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("broker down")}
	svc := newTestService(WithRecorder(rec))

	if _, err := svc.Categorize(context.Background(), Upload{Data: []byte(sampleCSV)}); err != nil {
		t.Fatalf("recorder failure leaked: %v", err)
	}
	if got := svc.Metrics().RecordFails; got != 1 {
		t.Fatalf("expected 1 record failure, got %d", got)
	}
}

func TestStatementService_Page(t *testing.T) {
	svc := newTestService()
	c, err := svc.Categorize(context.Background(), Upload{Data: []byte(sampleCSV)})
	if err != nil {
		t.Fatalf("Categorize() error = %v", err)
	}

	tests := []struct {
		name       string
		limit      int
		offset     int
		wantLimit  int
		wantOffset int
		wantRows   int
	}{
		{"defaults", DefaultLimit, 0, 20, 0, 3},
		{"window", 1, 1, 1, 1, 1},
		{"limit clamped high", 500, 0, MaxLimit, 0, 3},
		{"limit clamped low", 0, 0, 1, 0, 1},
		{"negative offset", 2, -4, 2, 0, 2},
		{"offset past end", 10, 50, 10, 50, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := svc.Page(c, tt.limit, tt.offset, report.CategorySummary)
			if p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
				t.Fatalf("expected limit/offset %d/%d, got %d/%d", tt.wantLimit, tt.wantOffset, p.Limit, p.Offset)
			}
			if len(p.Transactions) != tt.wantRows {
				t.Fatalf("expected %d rows, got %d", tt.wantRows, len(p.Transactions))
			}
			if p.Total != 3 {
				t.Fatalf("expected total 3, got %d", p.Total)
			}
			if len(p.CategorySummary) != 3 {
				t.Fatalf("expected 3 summary rows, got %d", len(p.CategorySummary))
			}
		})
	}
}

func TestStatementService_Aggregate(t *testing.T) {
	svc := newTestService()
	data := "Date,Amount\n2024-03-01,100\n2024-03-20,-40\n"

	got, err := svc.Aggregate(context.Background(), Upload{Data: []byte(data)}, report.IncomeVsExpense)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 month, got %d", len(got))
	}
	incomeValue, _ := got[0].Get(report.FieldIncome)
	expenseValue, _ := got[0].Get(report.FieldExpense)
	income, _ := incomeValue.Number()
	expense, _ := expenseValue.Number()
	if income != 100 || expense != 40 {
		t.Fatalf("expected income 100 expense 40, got %v %v", income, expense)
	}
}
