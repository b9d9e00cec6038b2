package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/tooknotes/internal/models"
	"github.com/starford/tooknotes/internal/notes"
	"github.com/starford/tooknotes/internal/sse"
	"github.com/starford/tooknotes/internal/testutil"
)

// testEnv starts a controller over a temp SQLite store and returns a router
// for it. An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*testutil.Env, http.Handler) {
	t.Helper()
	env := testutil.Start(t)
	sseHandler := sse.NewHandler("notes.state", env.Ctrl.Subscribe, time.Second, nil)
	router := NewRouter(env.Ctrl, env.UseCases, authToken != "", authToken, sseHandler)
	return env, router
}

func do(t *testing.T, router http.Handler, method, target string, body any, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createNote(t *testing.T, router http.Handler, title string, ts int64) NoteResponse {
	t.Helper()
	w := do(t, router, http.MethodPost, "/notes", NoteRequest{Title: title, Content: "body of " + title, Timestamp: ts})
	if w.Code != http.StatusCreated {
		t.Fatalf("create %q status = %d, body = %s", title, w.Code, w.Body.String())
	}
	var n NoteResponse
	if err := json.Unmarshal(w.Body.Bytes(), &n); err != nil {
		t.Fatal(err)
	}
	return n
}

func listTitles(st notes.NotesState) []string {
	out := make([]string, len(st.Notes))
	for i, n := range st.Notes {
		out[i] = n.Title
	}
	return out
}

func TestCreateAndGetNote(t *testing.T) {
	_, router := testEnv(t, "")

	created := createNote(t, router, "Hello", 100)
	if created.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if created.Color != models.NoteColors[0] {
		t.Errorf("color = %#x, want default %#x", created.Color, models.NoteColors[0])
	}

	w := do(t, router, http.MethodGet, fmt.Sprintf("/notes/%d", created.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got NoteResponse
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Title != "Hello" || got.Timestamp != 100 {
		t.Errorf("got %+v", got)
	}
	if etag := w.Header().Get("ETag"); etag != strconv.Quote(created.Checksum) {
		t.Errorf("ETag = %s, want quoted %s", etag, created.Checksum)
	}
}

func TestCreateInvalidNote(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/notes", NoteRequest{Title: "  ", Content: "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank title = %d, want 400", w.Code)
	}
	w = do(t, router, http.MethodPost, "/notes", NoteRequest{Title: "t", Content: "x", Color: 0x123456})
	if w.Code != http.StatusBadRequest {
		t.Errorf("off-palette color = %d, want 400", w.Code)
	}
}

func TestCreateInvalidJSON(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON = %d, want 400", w.Code)
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	_, router := testEnv(t, "")
	created := createNote(t, router, "v1", 1)
	target := fmt.Sprintf("/notes/%d", created.ID)

	// Update with correct checksum.
	w := do(t, router, http.MethodPut, target, NoteRequest{Title: "v2", Content: "c"}, "If-Match", strconv.Quote(created.Checksum))
	if w.Code != http.StatusOK {
		t.Fatalf("update with correct checksum = %d, body = %s", w.Code, w.Body.String())
	}
	var updated NoteResponse
	_ = json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.ID != created.ID || updated.Title != "v2" {
		t.Errorf("updated = %+v", updated)
	}
	if updated.Color != created.Color {
		t.Errorf("color changed to %#x without being set", updated.Color)
	}

	// Update with stale checksum → 409.
	w = do(t, router, http.MethodPut, target, NoteRequest{Title: "v3", Content: "c"}, "If-Match", created.Checksum)
	if w.Code != http.StatusConflict {
		t.Errorf("update with stale checksum = %d, want 409", w.Code)
	}
}

func TestUpdateWithoutIfMatch(t *testing.T) {
	_, router := testEnv(t, "")
	created := createNote(t, router, "nolock", 1)

	// Update without If-Match should succeed (no locking enforced).
	w := do(t, router, http.MethodPut, fmt.Sprintf("/notes/%d", created.ID), NoteRequest{Title: "v2", Content: "c"})
	if w.Code != http.StatusOK {
		t.Errorf("update without If-Match = %d, want 200", w.Code)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/notes/999", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing note = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/notes/abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad id = %d, want 400", w.Code)
	}
}

func TestUpdateNote_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPut, "/notes/999", NoteRequest{Title: "t", Content: "c"})
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
}

func TestStateFollowsStore(t *testing.T) {
	env, router := testEnv(t, "")
	createNote(t, router, "old", 1)
	createNote(t, router, "new", 2)

	testutil.Eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return len(env.Ctrl.State().Notes) == 2
	}, "controller never saw both notes")

	w := do(t, router, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("state = %d", w.Code)
	}
	var st notes.NotesState
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if got := listTitles(st); len(got) != 2 || got[0] != "new" || got[1] != "old" {
		t.Errorf("titles = %v, want [new old]", got)
	}
	if st.NoteOrder != models.DefaultOrder() {
		t.Errorf("order = %s", st.NoteOrder)
	}
}

func TestSetOrder(t *testing.T) {
	env, router := testEnv(t, "")
	createNote(t, router, "b", 1)
	createNote(t, router, "A", 2)
	testutil.Eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return len(env.Ctrl.State().Notes) == 2
	}, "controller never saw both notes")

	w := do(t, router, http.MethodPost, "/events/order", OrderRequest{Order: "title:asc"})
	if w.Code != http.StatusOK {
		t.Fatalf("order = %d, body = %s", w.Code, w.Body.String())
	}
	var st notes.NotesState
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if st.NoteOrder != models.ByTitle(models.Ascending) {
		t.Errorf("order = %s", st.NoteOrder)
	}
	if got := listTitles(st); got[0] != "A" || got[1] != "b" {
		t.Errorf("titles = %v, want [A b]", got)
	}

	if w := do(t, router, http.MethodPost, "/events/order", OrderRequest{Order: "size:asc"}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown order = %d, want 400", w.Code)
	}
}

func TestToggleOrder(t *testing.T) {
	_, router := testEnv(t, "")

	for _, want := range []bool{true, false} {
		w := do(t, router, http.MethodPost, "/events/toggle-order", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("toggle = %d", w.Code)
		}
		var st notes.NotesState
		_ = json.Unmarshal(w.Body.Bytes(), &st)
		if st.IsOrderSectionVisible != want {
			t.Errorf("visible = %v, want %v", st.IsOrderSectionVisible, want)
		}
	}
}

func TestDeleteAndRestore(t *testing.T) {
	env, router := testEnv(t, "")
	created := createNote(t, router, "bye", 1)
	testutil.Eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return len(env.Ctrl.State().Notes) == 1
	}, "controller never saw the note")

	w := do(t, router, http.MethodPost, "/events/delete", DeleteRequest{ID: created.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d, body = %s", w.Code, w.Body.String())
	}
	var resp DeleteResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Message != "Note deleted" || resp.Action != "Undo" {
		t.Errorf("delete response = %+v", resp)
	}
	testutil.Eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return len(env.Ctrl.State().Notes) == 0
	}, "note still listed after delete")

	if w := do(t, router, http.MethodGet, fmt.Sprintf("/notes/%d", created.ID), nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}

	if w := do(t, router, http.MethodPost, "/events/restore", nil); w.Code != http.StatusOK {
		t.Fatalf("restore = %d", w.Code)
	}
	testutil.Eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		st := env.Ctrl.State()
		return len(st.Notes) == 1 && st.Notes[0].ID == created.ID
	}, "restored note not listed under its original id")
}

func TestDeleteNote_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodPost, "/events/delete", DeleteRequest{ID: 42}); w.Code != http.StatusNotFound {
		t.Errorf("delete missing = %d, want 404", w.Code)
	}
}

func TestNavigationRoutes(t *testing.T) {
	_, router := testEnv(t, "")
	created := createNote(t, router, "nav", 1)

	w := do(t, router, http.MethodPost, fmt.Sprintf("/notes/%d/open", created.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("open = %d", w.Code)
	}
	var route RouteResponse
	_ = json.Unmarshal(w.Body.Bytes(), &route)
	want := fmt.Sprintf("add_edit_note?noteId=%d&noteColor=%d", created.ID, created.Color)
	if route.Route != want {
		t.Errorf("route = %q, want %q", route.Route, want)
	}

	w = do(t, router, http.MethodPost, "/notes/new", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("new = %d", w.Code)
	}
	_ = json.Unmarshal(w.Body.Bytes(), &route)
	if route.Route != notes.AddEditNoteRoute {
		t.Errorf("new route = %q", route.Route)
	}

	if w := do(t, router, http.MethodPost, "/notes/999/open", nil); w.Code != http.StatusNotFound {
		t.Errorf("open missing = %d, want 404", w.Code)
	}
}

func TestStoppedController(t *testing.T) {
	env, router := testEnv(t, "")
	env.Ctrl.Close()

	if w := do(t, router, http.MethodPost, "/events/toggle-order", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("toggle after stop = %d, want 503", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(t, router, http.MethodPost, "/notes", NoteRequest{Title: "auth", Content: "test"},
		"Authorization", "Bearer secret123")
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	if w := do(t, router, http.MethodGet, "/notes", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/notes", nil, "Authorization", "Bearer wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/notes", nil); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint tests.

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnv(t, "secret")

	// No token → 401.
	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_StreamsState(t *testing.T) {
	_, router := testEnv(t, "tok")
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	req.Header.Set("Authorization", "Bearer tok")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("SSE status = %d", resp.StatusCode)
	}

	// The first frame is the current state.
	sc := bufio.NewScanner(resp.Body)
	var event, data string
	for sc.Scan() {
		line := sc.Text()
		if v, ok := strings.CutPrefix(line, "event: "); ok {
			event = v
		}
		if v, ok := strings.CutPrefix(line, "data: "); ok {
			data = v
			break
		}
	}
	if event != "notes.state" {
		t.Fatalf("event = %q, want notes.state", event)
	}
	var st notes.NotesState
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	if st.NoteOrder != models.DefaultOrder() {
		t.Errorf("streamed order = %s", st.NoteOrder)
	}
}

func TestConcurrentDeletesAllReportSuccess(t *testing.T) {
	env, router := testEnv(t, "")
	const n = 30
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = createNote(t, router, fmt.Sprintf("note %d", i), int64(i+1)).ID
	}
	testutil.Eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return len(env.Ctrl.State().Notes) == n
	}, "controller never saw every note")

	codes := make([]int, n)
	bodies := make([]string, n)
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := fmt.Sprintf(`{"id":%d}`, id)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events/delete", strings.NewReader(body)))
			codes[i], bodies[i] = w.Code, w.Body.String()
		}()
	}
	wg.Wait()

	for i := range ids {
		if codes[i] != http.StatusOK {
			t.Errorf("delete %d = %d, body = %s", ids[i], codes[i], bodies[i])
			continue
		}
		var resp DeleteResponse
		_ = json.Unmarshal([]byte(bodies[i]), &resp)
		if resp.Action != "Undo" {
			t.Errorf("delete %d offered no undo: %s", ids[i], bodies[i])
		}
	}
	stored, err := env.Store.ListNotes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 0 {
		t.Errorf("%d notes left in store", len(stored))
	}
}

func TestRestoreStoreFailure(t *testing.T) {
	env, router := testEnv(t, "")
	created := createNote(t, router, "fragile", 1)

	if w := do(t, router, http.MethodPost, "/events/delete", DeleteRequest{ID: created.ID}); w.Code != http.StatusOK {
		t.Fatalf("delete = %d", w.Code)
	}
	env.Store.Close()

	w := do(t, router, http.MethodPost, "/events/restore", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("restore on closed store = %d, want 503, body = %s", w.Code, w.Body.String())
	}
	var body errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Error == "" {
		t.Error("503 body carries no error message")
	}
	if _, ok := env.Ctrl.PendingDelete(); !ok {
		t.Error("failed restore dropped the undo slot")
	}
}

func TestRestoreWithoutDelete(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodPost, "/events/restore", nil); w.Code != http.StatusOK {
		t.Errorf("restore with empty undo slot = %d, want 200", w.Code)
	}
}
