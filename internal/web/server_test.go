package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/example/padel-booking/internal/auth"
	"github.com/example/padel-booking/internal/booking"
	"github.com/example/padel-booking/internal/db"
	"github.com/example/padel-booking/internal/notify"
	"github.com/example/padel-booking/internal/slots"
	"github.com/example/padel-booking/internal/web"
	"go.uber.org/zap"
)

type memStore struct {
	mu    sync.Mutex
	next  int64
	slots map[int64]slots.Slot
}

func newMemStore() *memStore {
	return &memStore{slots: map[int64]slots.Slot{}}
}

func (m *memStore) Create(_ context.Context, date, start, end, court string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.slots[m.next] = slots.Slot{
		ID: m.next, Date: date, StartTime: start, EndTime: end,
		Status: slots.StatusAvailable, Court: court,
	}
	return m.next, nil
}

func (m *memStore) List(_ context.Context, onlyAvailable bool) ([]slots.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []slots.Slot
	for id := int64(1); id <= m.next; id++ {
		sl, ok := m.slots[id]
		if !ok {
			continue
		}
		if onlyAvailable && sl.Status != slots.StatusAvailable {
			continue
		}
		out = append(out, sl)
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id int64) (slots.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sl, ok := m.slots[id]
	if !ok {
		return slots.Slot{}, db.ErrNotFound
	}
	return sl, nil
}

func (m *memStore) SetBooked(_ context.Context, id int64, name, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sl, ok := m.slots[id]
	if !ok || sl.Status != slots.StatusAvailable {
		return false, nil
	}
	sl.Status = slots.StatusBooked
	sl.ClientName = &name
	sl.ClientEmail = &email
	m.slots[id] = sl
	return true, nil
}

func (m *memStore) SetAvailable(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sl, ok := m.slots[id]
	if !ok {
		return false, nil
	}
	sl.Status = slots.StatusAvailable
	sl.ClientName = nil
	sl.ClientEmail = nil
	m.slots[id] = sl
	return true, nil
}

func (m *memStore) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.slots[id]
	delete(m.slots, id)
	return ok, nil
}

type recordQueue struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (q *recordQueue) Enqueue(m notify.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs, m)
}

func (q *recordQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs)
}

func newTestHandler(t *testing.T) (http.Handler, *memStore, *recordQueue) {
	t.Helper()
	store := newMemStore()
	queue := &recordQueue{}
	svc := booking.NewService(store, queue, "coach@example.com", zap.NewNop())
	sessions := auth.NewSessions(
		bytes.Repeat([]byte{0x24}, 32),
		bytes.Repeat([]byte{0x42}, 32),
		"secret",
	)
	srv := &web.Server{Auth: sessions, Bookings: svc, Log: zap.NewNop()}
	return srv.Routes(), store, queue
}

func coachLogin(t *testing.T, h http.Handler) *http.Cookie {
	t.Helper()
	form := url.Values{"password": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, "/coach_login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("login status = %d, want 302", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("login did not set a session cookie")
	}
	return cookies[0]
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = strings.NewReader(string(b))
	} else {
		rd = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type apiResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) apiResult {
	t.Helper()
	var res apiResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return res
}

func decodeEvents(t *testing.T, rec *httptest.ResponseRecorder) []booking.Event {
	t.Helper()
	var events []booking.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode events %q: %v", rec.Body.String(), err)
	}
	return events
}

func TestEndToEndBookingFlow(t *testing.T) {
	h, _, queue := newTestHandler(t)
	cookie := coachLogin(t, h)

	// coach publishes a slot
	rec := doJSON(t, h, http.MethodPost, "/api/add_slot", map[string]string{
		"date": "2024-06-01", "start_time": "10:00", "end_time": "11:00",
	}, cookie)
	if rec.Code != http.StatusOK || !decodeResult(t, rec).Success {
		t.Fatalf("add_slot failed: %d %s", rec.Code, rec.Body.String())
	}

	// slot is listed as available
	rec = doJSON(t, h, http.MethodGet, "/api/slots?only_available=1", nil, nil)
	events := decodeEvents(t, rec)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Color != "#0091ad" || events[0].Title != "Available" {
		t.Fatalf("available slot rendered wrong: %+v", events[0])
	}

	// client books it
	rec = doJSON(t, h, http.MethodPost, "/api/book_slot", map[string]any{
		"id": events[0].ID, "name": "Ana", "email": "ana@example.com",
	}, nil)
	if rec.Code != http.StatusOK || !decodeResult(t, rec).Success {
		t.Fatalf("book_slot failed: %d %s", rec.Code, rec.Body.String())
	}
	if queue.count() != 2 {
		t.Fatalf("expected 2 notifications enqueued, got %d", queue.count())
	}

	// coach sees the client's name
	rec = doJSON(t, h, http.MethodGet, "/api/slots", nil, cookie)
	events = decodeEvents(t, rec)
	if events[0].Title != "Ana" {
		t.Fatalf("coach view title = %q, want Ana", events[0].Title)
	}

	// anonymous callers see the generic label
	rec = doJSON(t, h, http.MethodGet, "/api/slots", nil, nil)
	events = decodeEvents(t, rec)
	if events[0].Title != "Booked" || events[0].Color != "#ccc" {
		t.Fatalf("anonymous view rendered wrong: %+v", events[0])
	}

	// and the availability filter excludes it
	rec = doJSON(t, h, http.MethodGet, "/api/slots?only_available=1", nil, nil)
	if events := decodeEvents(t, rec); len(events) != 0 {
		t.Fatalf("booked slot leaked into only_available view: %+v", events)
	}
}

func TestAddSlotUnauthorized(t *testing.T) {
	h, store, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/api/add_slot", map[string]string{
		"date": "2024-06-01", "start_time": "10:00", "end_time": "11:00",
	}, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if res := decodeResult(t, rec); res.Success || res.Error != "Unauthorized" {
		t.Fatalf("unexpected body: %+v", res)
	}
	if len(store.slots) != 0 {
		t.Fatal("unauthorized add must not create a row")
	}
}

func TestAddSlotMissingFields(t *testing.T) {
	h, _, _ := newTestHandler(t)
	cookie := coachLogin(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/add_slot", map[string]string{
		"date": "2024-06-01",
	}, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if res := decodeResult(t, rec); res.Error != "Missing fields" {
		t.Fatalf("unexpected body: %+v", res)
	}
}

func TestBookSlotUnavailable(t *testing.T) {
	h, store, _ := newTestHandler(t)
	ctx := context.Background()

	id, _ := store.Create(ctx, "2024-06-01", "10:00", "11:00", "Court 1")
	if _, err := store.SetBooked(ctx, id, "Bob", "bob@example.com"); err != nil {
		t.Fatalf("SetBooked: %v", err)
	}

	rec := doJSON(t, h, http.MethodPost, "/api/book_slot", map[string]any{
		"id": id, "name": "Ana", "email": "ana@example.com",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (benign race, not an error)", rec.Code)
	}
	res := decodeResult(t, rec)
	if res.Success || res.Error != "Slot unavailable" {
		t.Fatalf("unexpected body: %+v", res)
	}

	sl, _ := store.Get(ctx, id)
	if *sl.ClientName != "Bob" {
		t.Fatal("losing booking attempt must not touch stored state")
	}
}

func TestBookSlotMissingInfo(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/api/book_slot", map[string]any{
		"id": 1, "name": "Ana",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if res := decodeResult(t, rec); res.Error != "Missing info" {
		t.Fatalf("unexpected body: %+v", res)
	}
}

func TestDeleteSlotIdempotent(t *testing.T) {
	h, _, _ := newTestHandler(t)
	cookie := coachLogin(t, h)

	rec := doJSON(t, h, http.MethodDelete, "/api/delete_slot/999", nil, cookie)
	if rec.Code != http.StatusOK || !decodeResult(t, rec).Success {
		t.Fatalf("delete of a missing id must succeed: %d %s", rec.Code, rec.Body.String())
	}
}

func TestUnbookSlotRequiresCoach(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/api/unbook_slot/1", nil, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	h, _, _ := newTestHandler(t)

	form := url.Values{"password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/coach_login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (login page re-rendered)", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Incorrect password.") {
		t.Fatal("login page must show the error")
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("wrong password must not set a session cookie")
	}
}

func TestCoachPageRedirectsWithoutSession(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/coach", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/coach_login" {
		t.Fatalf("expected redirect to /coach_login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestHealthz(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
