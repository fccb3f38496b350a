package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"taskdeck/internal/auth"
	"taskdeck/internal/events"
	"taskdeck/internal/storage/sqldb"
	"taskdeck/internal/task"
	"taskdeck/internal/template"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type testEnv struct {
	server    *Server
	tasks     *task.MemoryStore
	templates *template.MemoryStore
	events    *events.MemoryPublisher
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	users, err := auth.NewMemoryStore(auth.Seed{Username: "admin", Password: "password"})
	if err != nil {
		t.Fatalf("seed users: %v", err)
	}
	taskStore := task.NewMemoryStore()
	templateStore := template.NewMemoryStore()
	publisher := events.NewMemoryPublisher(64)
	taskSvc := task.NewService(taskStore, publisher)

	server := NewServer(opts, Services{
		Tasks:     taskSvc,
		Templates: template.NewService(templateStore, taskSvc, publisher),
		Auth:      auth.NewService(users),
	})
	return &testEnv{server: server, tasks: taskStore, templates: templateStore, events: publisher}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.do(t, http.MethodPost, "/login", `{"username":"admin","password":"password"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[loginResponse](t, rec); got.Username != "admin" {
		t.Fatalf("unexpected username: %+v", got)
	}

	for _, body := range []string{
		`{"username":"admin","password":"wrong"}`,
		`{"username":"Admin","password":"password"}`,
		`{"username":"nobody","password":"password"}`,
	} {
		rec := env.do(t, http.MethodPost, "/login", body)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", body, rec.Code)
		}
		if got := decode[messageResponse](t, rec); got.Message != "ユーザー名またはパスワードが違います" {
			t.Fatalf("unexpected message: %q", got.Message)
		}
	}

	if rec := env.do(t, http.MethodPost, "/login", `{"username":`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestTaskLifecycle(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.do(t, http.MethodPost, "/tasks", `{"title":"a","description":"d"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	first := decode[idResponse](t, rec).ID
	second := decode[idResponse](t, env.do(t, http.MethodPost, "/tasks", `{"title":"b"}`)).ID
	if second <= first {
		t.Fatalf("ids should increase: %d then %d", first, second)
	}

	list := decode[[]task.Task](t, env.do(t, http.MethodGet, "/tasks", ""))
	if len(list) != 2 || list[0].ID != second || list[1].ID != first {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if list[1].Completed != 0 || list[1].Comments != nil || list[1].SortIndex != nil {
		t.Fatalf("unexpected defaults: %+v", list[1])
	}

	rec = env.do(t, http.MethodPut, "/tasks/"+itoa(first), `{"completed":true,"comments":"done"}`)
	if rec.Code != http.StatusOK || decode[messageResponse](t, rec).Message != "更新しました" {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	got := decode[task.Task](t, env.do(t, http.MethodGet, "/tasks/"+itoa(first), ""))
	if got.Completed != 1 || got.Comments == nil || *got.Comments != "done" || got.Title == nil || *got.Title != "a" {
		t.Fatalf("partial update not applied: %+v", got)
	}

	open := decode[[]task.Task](t, env.do(t, http.MethodGet, "/tasks?completed=0", ""))
	if len(open) != 1 || open[0].ID != second {
		t.Fatalf("completed filter failed: %+v", open)
	}
	stats := decode[task.TaskStats](t, env.do(t, http.MethodGet, "/tasks/stats", ""))
	if stats.Total != 2 || stats.Completed != 1 || stats.Open != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	rec = env.do(t, http.MethodDelete, "/tasks/"+itoa(first), "")
	if rec.Code != http.StatusOK || decode[messageResponse](t, rec).Message != "削除しました" {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodGet, "/tasks/"+itoa(first), "")
	if rec.Code != http.StatusNotFound || decode[messageResponse](t, rec).Message != "タスクが見つかりません" {
		t.Fatalf("expected 404 after delete, got %d %s", rec.Code, rec.Body.String())
	}

	if len(env.events.Drain()) != 4 {
		t.Fatalf("expected create, create, update and delete events")
	}
}

func TestTaskRoutesRejectBadInput(t *testing.T) {
	env := newTestEnv(t, Options{})

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/tasks/abc", "", http.StatusNotFound},
		{http.MethodPut, "/tasks/abc", `{}`, http.StatusNotFound},
		{http.MethodGet, "/tasks?order=random", "", http.StatusBadRequest},
		{http.MethodGet, "/tasks?completed=maybe", "", http.StatusBadRequest},
		{http.MethodPost, "/tasks", `{"title":`, http.StatusBadRequest},
		{http.MethodPost, "/tasks/reorder", `{}`, http.StatusBadRequest},
		{http.MethodPatch, "/tasks", "", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		rec := env.do(t, tc.method, tc.path, tc.body)
		if rec.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Fatalf("%s %s: unexpected content type %q", tc.method, tc.path, ct)
		}
	}
}

func TestReorderTasks(t *testing.T) {
	env := newTestEnv(t, Options{})
	a := decode[idResponse](t, env.do(t, http.MethodPost, "/tasks", `{"title":"a"}`)).ID
	b := decode[idResponse](t, env.do(t, http.MethodPost, "/tasks", `{"title":"b"}`)).ID
	c := decode[idResponse](t, env.do(t, http.MethodPost, "/tasks", `{"title":"c"}`)).ID

	body := `{"order":[{"id":` + itoa(a) + `,"order":0},{"id":` + itoa(b) + `,"order":1}]}`
	rec := env.do(t, http.MethodPost, "/tasks/reorder", body)
	if rec.Code != http.StatusOK || !decode[successResponse](t, rec).Success {
		t.Fatalf("reorder: %d %s", rec.Code, rec.Body.String())
	}

	list := decode[[]task.Task](t, env.do(t, http.MethodGet, "/tasks?order=manual", ""))
	if len(list) != 3 || list[0].ID != a || list[1].ID != b || list[2].ID != c {
		t.Fatalf("unexpected manual order: %+v", list)
	}

	rec = env.do(t, http.MethodPost, "/tasks/reorder", `{"order":null}`)
	if rec.Code != http.StatusBadRequest || decode[messageResponse](t, rec).Message != "order を指定してください" {
		t.Fatalf("missing order: %d %s", rec.Code, rec.Body.String())
	}

	if rec := env.do(t, http.MethodPost, "/tasks/reorder", `{"order":[]}`); rec.Code != http.StatusOK {
		t.Fatalf("empty reorder should succeed, got %d", rec.Code)
	}
}

func TestTemplateLifecycle(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.do(t, http.MethodPost, "/templates", `{"label":"weekly","tasks":[{"title":"x","description":"dx"},{"title":"y"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("save: %d %s", rec.Code, rec.Body.String())
	}
	id := decode[idResponse](t, rec).ID

	again := decode[idResponse](t, env.do(t, http.MethodPost, "/templates", `{"label":"weekly","tasks":[{"title":"z"}]}`)).ID
	if again != id {
		t.Fatalf("same label should reuse template %d, got %d", id, again)
	}

	detail := decode[template.Detail](t, env.do(t, http.MethodGet, "/templates/"+itoa(id), ""))
	if detail.Label == nil || *detail.Label != "weekly" || len(detail.Tasks) != 1 || *detail.Tasks[0].Title != "z" {
		t.Fatalf("unexpected detail: %+v", detail)
	}

	rec = env.do(t, http.MethodPut, "/templates/"+itoa(id), `{"tasks":[{"title":"p"},{"title":"q"}]}`)
	if rec.Code != http.StatusOK || decode[messageResponse](t, rec).Message != "テンプレートを保存しました" {
		t.Fatalf("replace: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/templates/apply/"+itoa(id), "")
	if rec.Code != http.StatusOK || decode[messageResponse](t, rec).Message != "テンプレートを適用しました" {
		t.Fatalf("apply: %d %s", rec.Code, rec.Body.String())
	}
	list := decode[[]task.Task](t, env.do(t, http.MethodGet, "/tasks", ""))
	if len(list) != 2 || list[0].Completed != 0 {
		t.Fatalf("apply should create two open tasks, got %+v", list)
	}

	if rec := env.do(t, http.MethodPost, "/templates/apply/999", ""); rec.Code != http.StatusOK {
		t.Fatalf("apply on missing template should succeed, got %d", rec.Code)
	}
	if got := decode[[]task.Task](t, env.do(t, http.MethodGet, "/tasks", "")); len(got) != 2 {
		t.Fatalf("missing template must not create tasks, got %d", len(got))
	}

	rec = env.do(t, http.MethodPut, "/templates/999", `{"tasks":[]}`)
	if rec.Code != http.StatusNotFound || decode[messageResponse](t, rec).Message != "テンプレートが存在しません" {
		t.Fatalf("replace missing: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodDelete, "/templates/"+itoa(id), "")
	if rec.Code != http.StatusOK || decode[messageResponse](t, rec).Message != "テンプレートを削除しました" {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[[]template.Template](t, env.do(t, http.MethodGet, "/templates", "")); len(got) != 0 {
		t.Fatalf("expected no templates, got %+v", got)
	}
}

func TestTemplateIgnoresNonArrayTasks(t *testing.T) {
	env := newTestEnv(t, Options{})
	id := decode[idResponse](t, env.do(t, http.MethodPost, "/templates", `{"label":"x","tasks":"nope"}`)).ID
	detail := decode[template.Detail](t, env.do(t, http.MethodGet, "/templates/"+itoa(id), ""))
	if len(detail.Tasks) != 0 {
		t.Fatalf("expected no items, got %+v", detail.Tasks)
	}
}

func TestHealthAndRequestID(t *testing.T) {
	env := newTestEnv(t, Options{Health: fakePinger{}})
	rec := env.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("unexpected health response: %d %v", rec.Code, rec.Header())
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-1")
	rec = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	if rec.Header().Get(requestIDHeader) != "req-1" {
		t.Fatalf("request id should be propagated, got %q", rec.Header().Get(requestIDHeader))
	}

	down := newTestEnv(t, Options{Health: fakePinger{err: errors.New("db down")}})
	if rec := down.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestUninitializedServiceReturns503(t *testing.T) {
	server := NewServer(Options{}, Services{})
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("retryable failures should carry Retry-After")
	}
	got := decode[errorResponse](t, rec)
	if got.Code != "INITIALIZATION_FAILURE" {
		t.Fatalf("expected error code in body, got %+v", got)
	}
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>deck</h1>"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	env := newTestEnv(t, Options{StaticDir: dir})

	rec := env.do(t, http.MethodGet, "/index.html", "")
	if rec.Code != http.StatusOK && rec.Code != http.StatusMovedPermanently {
		t.Fatalf("unexpected static status: %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "deck") {
		t.Fatalf("expected index page, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, Options{CORSOrigins: []string{"http://example.test"}})
	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Origin", "http://example.test")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://example.test" {
		t.Fatalf("missing CORS header: %v", rec.Header())
	}
}

func TestWithContextRejectsAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	handler := withContext(ctx, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler should not run")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestUpdateWithNullCompletedReopensTask(t *testing.T) {
	env := newTestEnv(t, Options{})
	id := decode[idResponse](t, env.do(t, http.MethodPost, "/tasks", `{"title":"a","description":"d"}`)).ID

	env.do(t, http.MethodPut, "/tasks/"+itoa(id), `{"completed":true,"comments":"c"}`)
	rec := env.do(t, http.MethodPut, "/tasks/"+itoa(id), `{"completed":null,"title":null,"comments":null}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}

	got := decode[task.Task](t, env.do(t, http.MethodGet, "/tasks/"+itoa(id), ""))
	if got.Completed != 0 {
		t.Fatalf("null completed should store 0, got %d", got.Completed)
	}
	if got.Title == nil || *got.Title != "a" || got.Comments == nil || *got.Comments != "c" {
		t.Fatalf("null text fields must keep stored values: %+v", got)
	}
}

func TestErrorLogUsesSeverityAndMetadata(t *testing.T) {
	env := newTestEnv(t, Options{})
	var buf bytes.Buffer
	env.server.log = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if rec := env.do(t, http.MethodGet, "/tasks?order=random", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var entry map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var candidate map[string]any
		if err := json.Unmarshal(line, &candidate); err == nil && candidate["msg"] == "请求处理失败" {
			entry = candidate
		}
	}
	if entry == nil {
		t.Fatalf("error log missing: %s", buf.String())
	}
	if entry["level"] != "INFO" || entry["order"] != "random" || entry["retryable"] != false {
		t.Fatalf("unexpected error log entry: %+v", entry)
	}
}

func TestApplyTemplateWithSQLiteStore(t *testing.T) {
	ctx := context.Background()
	db, err := sqldb.Open(ctx, sqldb.Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "deck.sqlite")})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx, auth.Seed{Username: "admin", Password: "password"}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	taskSvc := task.NewService(db.Tasks(), nil)
	server := NewServer(Options{Health: db}, Services{
		Tasks:     taskSvc,
		Templates: template.NewService(db.Templates(), taskSvc, nil),
		Auth:      auth.NewService(db.Users()),
	})
	env := &testEnv{server: server}

	if rec := env.do(t, http.MethodPost, "/login", `{"username":"admin","password":"nope"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}

	existing := decode[idResponse](t, env.do(t, http.MethodPost, "/tasks", `{"title":"existing"}`)).ID
	id := decode[idResponse](t, env.do(t, http.MethodPost, "/templates", `{"label":"trip","tasks":[{"title":"pack","description":"bag"},{"title":"tickets"},{"title":"passport"}]}`)).ID

	rec := env.do(t, http.MethodPost, "/templates/apply/"+itoa(id), "")
	if rec.Code != http.StatusOK || decode[messageResponse](t, rec).Message != "テンプレートを適用しました" {
		t.Fatalf("apply: %d %s", rec.Code, rec.Body.String())
	}

	list := decode[[]task.Task](t, env.do(t, http.MethodGet, "/tasks", ""))
	if len(list) != 4 {
		t.Fatalf("expected existing task plus 3 applied, got %+v", list)
	}
	titles := map[string]bool{}
	for _, item := range list {
		if item.ID != existing && item.Completed != 0 {
			t.Fatalf("applied tasks must be open: %+v", item)
		}
		if item.Title != nil {
			titles[*item.Title] = true
		}
	}
	for _, want := range []string{"pack", "tickets", "passport"} {
		if !titles[want] {
			t.Fatalf("missing applied task %q in %+v", want, list)
		}
	}

	detail := decode[template.Detail](t, env.do(t, http.MethodGet, "/templates/"+itoa(id), ""))
	if len(detail.Tasks) != 3 {
		t.Fatalf("template must be unchanged after apply: %+v", detail)
	}

	env.do(t, http.MethodDelete, "/tasks/"+itoa(existing), "")
	if rec := env.do(t, http.MethodGet, "/tasks/"+itoa(existing), ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}
