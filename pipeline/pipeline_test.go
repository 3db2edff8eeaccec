package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"immo-scraper/models"
	"immo-scraper/notify"
	"immo-scraper/services"
	"immo-scraper/utils"
)

type fakeAssembler struct {
	result *models.ScrapeResult
	err    error
}

func (f *fakeAssembler) Assemble(ctx context.Context, startURL string) (*models.ScrapeResult, error) {
	return f.result, f.err
}

// memStore is an in-memory ListingStore.
type memStore struct {
	rows     []models.Row
	writes   int
	appends  int
	writeErr error
}

func (m *memStore) ReadRows(ctx context.Context) ([]models.Row, error) { return m.rows, nil }

func (m *memStore) WriteRows(ctx context.Context, rows []models.Row) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes++
	m.rows = append([]models.Row(nil), rows...)
	return nil
}

func (m *memStore) AppendRows(ctx context.Context, rows []models.Row) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.appends++
	m.rows = append(m.rows, rows...)
	return nil
}

func (m *memStore) Close() error { return nil }

type sent struct {
	text       string
	recipients []string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (f *fakeNotifier) Send(ctx context.Context, text string, recipients []string) []notify.Delivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{text: text, recipients: recipients})
	out := make([]notify.Delivery, len(recipients))
	for i, r := range recipients {
		out[i] = notify.Delivery{ChatID: r, OK: true, StatusCode: 200}
	}
	return out
}

func result(listings ...*models.Listing) *models.ScrapeResult {
	b := models.NewBatch()
	for _, l := range listings {
		b.Put(l)
	}
	return &models.ScrapeResult{
		Listings: b,
		Stats:    models.ScrapeStats{Success: len(listings), TotalListings: len(listings) + 1, ExchangeRejected: 1, PagesVisited: 1},
	}
}

func qualifying(id string) *models.Listing {
	return &models.Listing{ID: id, Score: 450, DistanceToReference: 2, HotRent: 1100, Quarter: "Mitte"}
}

func plain(id string) *models.Listing {
	return &models.Listing{ID: id, Score: 120, DistanceToReference: 8, HotRent: 900, Quarter: "Pankow"}
}

func newTestPipeline(a Assembler, s *memStore, n Notifier) *Pipeline {
	return New(a, s, n, Options{
		SearchURL:         "https://example.test/search",
		ApplicationState:  "Abierto",
		AlertRule:         services.DefaultAlertRule(),
		AlertRecipients:   []string{"100", "200"},
		SummaryRecipients: []string{"900"},
	}, utils.NewNopLogger())
}

func TestRunBootstrapReplaces(t *testing.T) {
	store := &memStore{}
	n := &fakeNotifier{}
	p := newTestPipeline(&fakeAssembler{result: result(qualifying("1"), plain("2"))}, store, n)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Mode != models.ModeReplace || summary.NewListings != 2 {
		t.Errorf("summary: mode %q, new %d", summary.Mode, summary.NewListings)
	}
	if store.writes != 1 || store.appends != 0 || len(store.rows) != 2 {
		t.Errorf("store: writes %d, appends %d, rows %d", store.writes, store.appends, len(store.rows))
	}
	if store.rows[0]["application_state"] != "Abierto" {
		t.Errorf("application_state: got %q", store.rows[0]["application_state"])
	}
	if len(summary.AlertIDs) != 1 || summary.AlertIDs[0] != "1" {
		t.Errorf("AlertIDs: got %v", summary.AlertIDs)
	}

	// one alert plus the summary
	if len(n.sent) != 2 {
		t.Fatalf("messages: got %d, want 2", len(n.sent))
	}
	if !strings.Contains(n.sent[0].text, "Apartment id: 1") || len(n.sent[0].recipients) != 2 {
		t.Errorf("alert: got %+v", n.sent[0])
	}
	if !strings.Contains(n.sent[1].text, "from a total of 3 entries") || n.sent[1].recipients[0] != "900" {
		t.Errorf("summary: got %+v", n.sent[1])
	}
	if len(summary.Notifications) != 3 {
		t.Errorf("Notifications: got %v", summary.Notifications)
	}
	if summary.RunID == "" {
		t.Error("RunID must be set")
	}
}

func TestRunAppendsOnlyNewIDs(t *testing.T) {
	store := &memStore{rows: []models.Row{{"id": "1"}}}
	p := newTestPipeline(&fakeAssembler{result: result(plain("1"), plain("2"))}, store, nil)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Mode != models.ModeAppend || summary.NewListings != 1 {
		t.Errorf("summary: mode %q, new %d", summary.Mode, summary.NewListings)
	}
	if store.appends != 1 || store.writes != 0 || len(store.rows) != 2 || store.rows[1]["id"] != "2" {
		t.Errorf("store: appends %d, writes %d, rows %v", store.appends, store.writes, store.rows)
	}
}

func TestRunNothingNew(t *testing.T) {
	store := &memStore{rows: []models.Row{{"id": "1"}}}
	n := &fakeNotifier{}
	p := newTestPipeline(&fakeAssembler{result: result(qualifying("1"))}, store, n)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if store.appends != 0 || store.writes != 0 {
		t.Errorf("store touched: appends %d, writes %d", store.appends, store.writes)
	}
	if len(summary.AlertIDs) != 0 {
		t.Errorf("known listings must not alert: %v", summary.AlertIDs)
	}
	if len(n.sent) != 1 {
		t.Errorf("messages: got %d, want only the summary", len(n.sent))
	}
}

func TestRunAssembleFailure(t *testing.T) {
	store := &memStore{}
	boom := &models.TransportError{URL: "https://example.test/search", Err: errors.New("connection refused")}
	p := newTestPipeline(&fakeAssembler{err: boom}, store, &fakeNotifier{})

	if p.LastRun() != nil {
		t.Fatal("LastRun must be nil before the first run")
	}

	summary, err := p.Run(context.Background())
	var tErr *models.TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("got %v, want TransportError", err)
	}
	if store.writes != 0 || store.appends != 0 {
		t.Error("store must not be written after a failed extraction")
	}
	if summary.Err == "" {
		t.Error("summary must carry the error")
	}
	if last := p.LastRun(); last == nil || last.RunID != summary.RunID {
		t.Errorf("LastRun: got %+v", last)
	}
}

func TestRunStoreFailure(t *testing.T) {
	store := &memStore{writeErr: errors.New("disk full")}
	n := &fakeNotifier{}
	p := newTestPipeline(&fakeAssembler{result: result(qualifying("1"))}, store, n)

	if _, err := p.Run(context.Background()); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("got %v, want store error", err)
	}
	if len(n.sent) != 0 {
		t.Errorf("no notification expected after a failed write, got %d", len(n.sent))
	}
}

func TestRunPrintsReport(t *testing.T) {
	var buf bytes.Buffer
	p := New(&fakeAssembler{result: result(plain("1"))}, &memStore{}, nil, Options{
		AlertRule: services.DefaultAlertRule(),
		Report:    &buf,
	}, utils.NewNopLogger())

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(buf.String(), "NEW LISTINGS THIS RUN") {
		t.Errorf("report not printed:\n%s", buf.String())
	}
}
