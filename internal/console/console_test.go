package console

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"item-console/internal/apiclient"
	"item-console/internal/logging"
	"item-console/internal/model"
)

type recordingView struct {
	mu sync.Mutex

	events  []string
	rows    []model.Row
	alerts  []string
	states  []SubmitState
	resets  int
	answer  bool
	prompts []string
}

func (v *recordingView) record(ev string) {
	v.mu.Lock()
	v.events = append(v.events, ev)
	v.mu.Unlock()
}

func (v *recordingView) ShowLoading() { v.record("loading") }
func (v *recordingView) ShowFailure() { v.record("failure") }

func (v *recordingView) ShowRows(rows []model.Row) {
	v.mu.Lock()
	v.rows = rows
	v.mu.Unlock()
	v.record("rows")
}

func (v *recordingView) Alert(msg string) {
	v.mu.Lock()
	v.alerts = append(v.alerts, msg)
	v.mu.Unlock()
	v.record("alert")
}

func (v *recordingView) Confirm(_ context.Context, msg string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.prompts = append(v.prompts, msg)
	return v.answer
}

func (v *recordingView) ResetForm() {
	v.mu.Lock()
	v.resets++
	v.mu.Unlock()
	v.record("reset")
}

func (v *recordingView) SetSubmitState(s SubmitState) {
	v.mu.Lock()
	v.states = append(v.states, s)
	v.mu.Unlock()
}

// fakeService is an in-memory items service that counts requests.
type fakeService struct {
	mu       sync.Mutex
	items    []model.StoredItem
	requests []string
	// failDelete makes DELETE of this id fail with 500.
	failDelete string
	// dropDelete makes DELETE of this id close the connection without a response.
	dropDelete string
	failList   bool
	nextID     int
}

func (s *fakeService) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)

		id := strings.TrimPrefix(r.URL.Path, "/items/")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/items/":
			if s.failList {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_ = json.NewEncoder(w).Encode(s.items)
		case r.Method == http.MethodPost && r.URL.Path == "/items/":
			var it model.Item
			if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
				t.Errorf("decode create: %v", err)
			}
			s.nextID++
			s.items = append(s.items, model.StoredItem{ItemID: model.ItemID(strings.Repeat("n", s.nextID)), Item: it})
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"message":"Item created"}`)
		case r.Method == http.MethodPut:
			var it model.Item
			if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
				t.Errorf("decode update: %v", err)
			}
			for i := range s.items {
				if s.items[i].ItemID.String() == id {
					s.items[i].Item = it
				}
			}
			_, _ = io.WriteString(w, `{"message":"Item updated"}`)
		case r.Method == http.MethodDelete:
			if id == s.failDelete {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			if id == s.dropDelete {
				conn, _, err := w.(http.Hijacker).Hijack()
				if err != nil {
					t.Errorf("hijack: %v", err)
					return
				}
				_ = conn.Close()
				return
			}
			for i := range s.items {
				if s.items[i].ItemID.String() == id {
					s.items = append(s.items[:i], s.items[i+1:]...)
					break
				}
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func (s *fakeService) countRequests(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

func newTestConsole(t *testing.T, svc *fakeService, view *recordingView) *Console {
	t.Helper()
	srv := httptest.NewServer(svc.handler(t))
	t.Cleanup(srv.Close)
	api := apiclient.New(apiclient.Options{BaseURL: srv.URL})
	return New(api, view, logging.Discard())
}

// newNoReuseConsole never reuses connections, so a dropped connection is not
// transparently retried by the transport.
func newNoReuseConsole(t *testing.T, svc *fakeService, view *recordingView) *Console {
	t.Helper()
	srv := httptest.NewServer(svc.handler(t))
	t.Cleanup(srv.Close)
	hc := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	api := apiclient.New(apiclient.Options{BaseURL: srv.URL, HTTPClient: hc})
	return New(api, view, logging.Discard())
}

func f64(v float64) *float64 { return &v }

func TestFetchAndRender_RowsMatchItems(t *testing.T) {
	t.Parallel()

	svc := &fakeService{items: []model.StoredItem{
		{ItemID: "1", Item: model.Item{Name: "Pen", Price: f64(1.5)}},
		{ItemID: "2", Item: model.Item{Name: "Ink", Price: f64(3), Tax: 0.25}},
	}}
	view := &recordingView{}
	c := newTestConsole(t, svc, view)

	rows, err := c.FetchAndRender(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 2 || len(view.rows) != 2 {
		t.Fatalf("expected 2 rows, got %d (view %d)", len(rows), len(view.rows))
	}
	if got := strings.Join(view.rows[0].Cells(), " | "); got != "1 | Pen | N/A | 1.50 | 0.00" {
		t.Fatalf("row 0: got %q", got)
	}
	if view.rows[1].Name != "Ink" || view.rows[1].Tax != "0.25" {
		t.Fatalf("row 1: got %#v", view.rows[1])
	}
	if strings.Join(view.events, ",") != "loading,rows" {
		t.Fatalf("events: got %v", view.events)
	}
}

func TestFetchAndRender_FailureShowsPlaceholderAndAlert(t *testing.T) {
	t.Parallel()

	svc := &fakeService{failList: true}
	view := &recordingView{}
	c := newTestConsole(t, svc, view)

	if _, err := c.FetchAndRender(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if strings.Join(view.events, ",") != "loading,alert,failure" {
		t.Fatalf("events: got %v", view.events)
	}
	if len(view.alerts) != 1 || !strings.HasPrefix(view.alerts[0], "Failed to fetch items: ") || !strings.Contains(view.alerts[0], "503") {
		t.Fatalf("alerts: got %v", view.alerts)
	}
}

func TestSubmitItem_ExistingNameUpdates(t *testing.T) {
	t.Parallel()

	svc := &fakeService{items: []model.StoredItem{
		{ItemID: "1", Item: model.Item{Name: "Pen", Price: f64(1.5)}},
	}}
	view := &recordingView{}
	c := newTestConsole(t, svc, view)

	if err := c.SubmitItem(context.Background(), model.FormValues{Name: "Pen", Price: "2", Tax: "0.1"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if n := svc.countRequests("PUT /items/1"); n != 1 {
		t.Fatalf("expected one PUT /items/1, got %d (requests=%v)", n, svc.requests)
	}
	if n := svc.countRequests("POST"); n != 0 {
		t.Fatalf("expected no POST, got %d", n)
	}
	if view.alerts[0] != "Item updated" {
		t.Fatalf("alert: got %q", view.alerts[0])
	}
	if view.resets != 1 {
		t.Fatalf("expected form reset, got %d", view.resets)
	}
	if len(view.rows) != 1 || view.rows[0].Price != "2.00" || view.rows[0].Tax != "0.10" {
		t.Fatalf("expected re-render with updated values, got %#v", view.rows)
	}
	if c.State() != Idle {
		t.Fatalf("expected idle, got %s", c.State())
	}
	if len(view.states) != 2 || view.states[0] != Submitting || view.states[1] != Idle {
		t.Fatalf("states: got %v", view.states)
	}
}

func TestSubmitItem_UnknownNameCreates(t *testing.T) {
	t.Parallel()

	svc := &fakeService{items: []model.StoredItem{
		{ItemID: "1", Item: model.Item{Name: "pen", Price: f64(1.5)}},
	}}
	view := &recordingView{}
	c := newTestConsole(t, svc, view)

	if err := c.SubmitItem(context.Background(), model.FormValues{Name: "Pen", Price: "2"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if n := svc.countRequests("POST /items/"); n != 1 {
		t.Fatalf("expected one POST, got %d", n)
	}
	if n := svc.countRequests("PUT"); n != 0 {
		t.Fatalf("expected no PUT, got %d", n)
	}
	if len(view.rows) != 2 {
		t.Fatalf("expected 2 rows after create, got %d", len(view.rows))
	}
}

func TestSubmitItem_SendsLeadingNumbers(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	view := &recordingView{}
	c := newTestConsole(t, svc, view)

	if err := c.SubmitItem(context.Background(), model.FormValues{Name: "Pen", Price: "12abc", Tax: "x"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(svc.items) != 1 {
		t.Fatalf("expected one created item, got %d", len(svc.items))
	}
	got := svc.items[0].Item
	if got.Price == nil || *got.Price != 12 || got.Tax != 0 {
		t.Fatalf("unexpected payload: %#v", got)
	}
	if len(view.rows) != 1 || view.rows[0].Price != "12.00" || view.rows[0].Tax != "0.00" {
		t.Fatalf("rows: got %#v", view.rows)
	}
}

func TestSubmitItem_FailureReturnsToIdleAndKeepsForm(t *testing.T) {
	t.Parallel()

	svc := &fakeService{failList: true}
	view := &recordingView{}
	c := newTestConsole(t, svc, view)

	err := c.SubmitItem(context.Background(), model.FormValues{Name: "Pen", Price: "2"})
	var se *apiclient.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if c.State() != Idle {
		t.Fatalf("expected idle after failure, got %s", c.State())
	}
	if view.resets != 0 {
		t.Fatalf("form must not be reset on failure")
	}
	if len(view.alerts) != 1 || !strings.HasPrefix(view.alerts[0], "An error occurred: ") {
		t.Fatalf("alerts: got %v", view.alerts)
	}
}

type blockingAPI struct {
	ItemsAPI
	started chan struct{}
	release chan struct{}
}

func (b *blockingAPI) List(ctx context.Context) ([]model.StoredItem, error) {
	close(b.started)
	<-b.release
	return nil, errors.New("gone")
}

func TestSubmitItem_RejectsReentry(t *testing.T) {
	t.Parallel()

	api := &blockingAPI{started: make(chan struct{}), release: make(chan struct{})}
	view := &recordingView{}
	c := New(api, view, logging.Discard())

	done := make(chan error, 1)
	go func() { done <- c.SubmitItem(context.Background(), model.FormValues{Name: "Pen"}) }()
	<-api.started

	if err := c.SubmitItem(context.Background(), model.FormValues{Name: "Pen"}); !errors.Is(err, ErrSubmitInProgress) {
		t.Fatalf("expected ErrSubmitInProgress, got %v", err)
	}
	close(api.release)
	if err := <-done; err == nil {
		t.Fatalf("expected first submit to fail")
	}
	if c.State() != Idle {
		t.Fatalf("expected idle, got %s", c.State())
	}
}

func TestDeleteSelected_EmptySendsNothing(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	view := &recordingView{answer: true}
	c := newTestConsole(t, svc, view)

	if err := c.DeleteSelected(context.Background(), nil); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
	if len(svc.requests) != 0 {
		t.Fatalf("expected no requests, got %v", svc.requests)
	}
	if len(view.prompts) != 0 {
		t.Fatalf("no confirmation expected for empty selection")
	}
	if len(view.alerts) != 1 || view.alerts[0] != NoSelectionText {
		t.Fatalf("alerts: got %v", view.alerts)
	}
}

func TestDeleteSelected_DeclinedSendsNothing(t *testing.T) {
	t.Parallel()

	svc := &fakeService{items: []model.StoredItem{{ItemID: "1", Item: model.Item{Name: "Pen"}}}}
	view := &recordingView{answer: false}
	c := newTestConsole(t, svc, view)

	if err := c.DeleteSelected(context.Background(), []model.ItemID{"1"}); !errors.Is(err, ErrDeleteDeclined) {
		t.Fatalf("expected ErrDeleteDeclined, got %v", err)
	}
	if len(svc.requests) != 0 {
		t.Fatalf("expected no requests, got %v", svc.requests)
	}
	if len(view.prompts) != 1 || view.prompts[0] != "Are you sure you want to delete 1 item(s)?" {
		t.Fatalf("prompts: got %v", view.prompts)
	}
}

func TestDeleteSelected_AllSucceed(t *testing.T) {
	t.Parallel()

	svc := &fakeService{items: []model.StoredItem{
		{ItemID: "1", Item: model.Item{Name: "A"}},
		{ItemID: "2", Item: model.Item{Name: "B"}},
		{ItemID: "3", Item: model.Item{Name: "C"}},
	}}
	view := &recordingView{answer: true}
	c := newTestConsole(t, svc, view)

	if err := c.DeleteSelected(context.Background(), []model.ItemID{"1", "3"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n := svc.countRequests("DELETE"); n != 2 {
		t.Fatalf("expected 2 DELETE requests, got %d", n)
	}
	if len(view.alerts) != 1 || view.alerts[0] != DeletedText {
		t.Fatalf("alerts: got %v", view.alerts)
	}
	if len(view.rows) != 1 || view.rows[0].ItemID != "2" {
		t.Fatalf("expected re-render with remaining item, got %#v", view.rows)
	}
}

func TestDeleteSelected_AnyFailureFailsBatch(t *testing.T) {
	t.Parallel()

	svc := &fakeService{
		items: []model.StoredItem{
			{ItemID: "1", Item: model.Item{Name: "A"}},
			{ItemID: "2", Item: model.Item{Name: "B"}},
			{ItemID: "3", Item: model.Item{Name: "C"}},
		},
		failDelete: "2",
	}
	view := &recordingView{answer: true}
	c := newTestConsole(t, svc, view)

	if err := c.DeleteSelected(context.Background(), []model.ItemID{"1", "2", "3"}); err == nil {
		t.Fatalf("expected batch failure")
	}
	if n := svc.countRequests("DELETE"); n != 3 {
		t.Fatalf("every delete should still be sent, got %d", n)
	}
	if len(view.alerts) != 1 || !strings.HasPrefix(view.alerts[0], "Failed to delete items: ") {
		t.Fatalf("alerts: got %v", view.alerts)
	}
	if n := svc.countRequests("GET"); n != 0 {
		t.Fatalf("failed batch must not re-render, got %d GETs", n)
	}
}

func TestDeleteSelected_DroppedConnectionFailsBatch(t *testing.T) {
	t.Parallel()

	svc := &fakeService{
		items: []model.StoredItem{
			{ItemID: "1", Item: model.Item{Name: "A"}},
			{ItemID: "2", Item: model.Item{Name: "B"}},
			{ItemID: "3", Item: model.Item{Name: "C"}},
		},
		dropDelete: "3",
	}
	view := &recordingView{answer: true}
	c := newNoReuseConsole(t, svc, view)

	err := c.DeleteSelected(context.Background(), []model.ItemID{"1", "2", "3"})
	var te *apiclient.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if n := svc.countRequests("DELETE"); n != 3 {
		t.Fatalf("every delete should be sent once, got %d (requests=%v)", n, svc.requests)
	}
	if len(view.alerts) != 1 || !strings.HasPrefix(view.alerts[0], "Failed to delete items: ") {
		t.Fatalf("alerts: got %v", view.alerts)
	}
	if n := svc.countRequests("GET"); n != 0 {
		t.Fatalf("failed batch must not re-render, got %d GETs", n)
	}
	if len(view.rows) != 0 {
		t.Fatalf("expected no render, got %#v", view.rows)
	}
}
