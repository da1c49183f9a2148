package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/gin-gonic/gin"

	"github.com/kaikteck/Mult-Function/internal/controller"
	"github.com/kaikteck/Mult-Function/internal/errorhandler"
	"github.com/kaikteck/Mult-Function/internal/metrics"
	"github.com/kaikteck/Mult-Function/internal/taskstore"
	"github.com/kaikteck/Mult-Function/internal/tester"
	"github.com/kaikteck/Mult-Function/internal/yamlconfig"
	"github.com/kaikteck/Mult-Function/pkg/models"
)

type stubRunner struct {
	report models.SpeedReport
	err    error
}

func (r stubRunner) Run(context.Context) (models.SpeedReport, error) {
	return r.report, r.err
}

var testStatic = fstest.MapFS{
	"static/index.html": {Data: []byte(`<html><body>max={{ .MaxTasks }}</body></html>`)},
}

func newTestServer(t *testing.T, maxTasks int, runner controller.SpeedRunner) (*Server, *taskstore.FileStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := yamlconfig.DefaultConfig()
	cfg.Tasks.MaxTasks = maxTasks

	store := taskstore.NewFileStore(filepath.Join(t.TempDir(), "tasks.json"))
	eh := errorhandler.NewWithLogger(errorhandler.NewStructuredLoggerTo(io.Discard))
	ctrl := controller.New(store, runner, controller.Options{MaxTasks: maxTasks, ErrorHandler: eh})
	if err := ctrl.Load(); err != nil {
		t.Fatal(err)
	}

	s, err := New(cfg, ctrl, testStatic)
	if err != nil {
		t.Fatal(err)
	}
	return s, store
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestIndex(t *testing.T) {
	s, _ := newTestServer(t, 7, stubRunner{})
	w := do(t, s, http.MethodGet, "/", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "max=7") {
		t.Fatalf("unexpected index: %d %s", w.Code, w.Body.String())
	}
}

func TestGetTasksEmptyWithoutFile(t *testing.T) {
	s, _ := newTestServer(t, 7, stubRunner{})
	w := do(t, s, http.MethodGet, "/get_tasks", "")
	if w.Code != http.StatusOK || w.Body.String() != `{"tasks":[]}` {
		t.Fatalf("unexpected response: %d %s", w.Code, w.Body.String())
	}
}

func TestSaveThenGetTasks(t *testing.T) {
	s, store := newTestServer(t, 0, stubRunner{})

	w := do(t, s, http.MethodPost, "/save_tasks", `{"tasks":["a","b","a"]}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"success"`) {
		t.Fatalf("save failed: %d %s", w.Code, w.Body.String())
	}

	got := decode[models.TaskList](t, do(t, s, http.MethodGet, "/get_tasks", ""))
	if strings.Join(got.Tasks, ",") != "a,b,a" {
		t.Fatalf("unexpected tasks: %v", got.Tasks)
	}
	stored, _ := store.Load()
	if len(stored) != 3 {
		t.Fatalf("store not written: %v", stored)
	}
}

func TestSaveTasksNormalizesLabels(t *testing.T) {
	s, store := newTestServer(t, 7, stubRunner{})

	if w := do(t, s, http.MethodPost, "/save_tasks", `{"tasks":[" a ","","b"]}`); w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	got := decode[models.TaskList](t, do(t, s, http.MethodGet, "/get_tasks", ""))
	if len(got.Tasks) != 2 || got.Tasks[0] != "a" || got.Tasks[1] != "b" {
		t.Fatalf("unexpected tasks: %v", got.Tasks)
	}
	if stored, _ := store.Load(); len(stored) != 2 || stored[0] != "a" {
		t.Fatalf("unexpected stored tasks: %v", stored)
	}
}

func TestSaveTasksRejectsBadInput(t *testing.T) {
	s, _ := newTestServer(t, 2, stubRunner{})
	if w := do(t, s, http.MethodPost, "/save_tasks", `{"tasks":`); w.Code != http.StatusBadRequest {
		t.Fatalf("malformed JSON: got %d", w.Code)
	}
	if w := do(t, s, http.MethodPost, "/save_tasks", `{"tasks":["1","2","3"]}`); w.Code != http.StatusBadRequest {
		t.Fatalf("over capacity: got %d", w.Code)
	}
}

func TestTaskAPI(t *testing.T) {
	s, _ := newTestServer(t, 2, stubRunner{})

	added := decode[taskMutation](t, do(t, s, http.MethodPost, "/api/tasks", `{"task":"first"}`))
	if !added.Changed || added.Count != 1 {
		t.Fatalf("unexpected add: %+v", added)
	}
	do(t, s, http.MethodPost, "/api/tasks", `{"task":"second"}`)

	full := decode[taskMutation](t, do(t, s, http.MethodPost, "/api/tasks", `{"task":"third"}`))
	if full.Changed || !full.Full || full.Count != 2 {
		t.Fatalf("add at capacity must be a no-op: %+v", full)
	}

	noop := decode[taskMutation](t, do(t, s, http.MethodDelete, "/api/tasks/5", ""))
	if noop.Changed || noop.Count != 2 {
		t.Fatalf("out-of-range delete must be a no-op: %+v", noop)
	}
	if w := do(t, s, http.MethodDelete, "/api/tasks/abc", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("non-integer index: got %d", w.Code)
	}

	removed := decode[taskMutation](t, do(t, s, http.MethodDelete, "/api/tasks/0", ""))
	if !removed.Changed || len(removed.Tasks) != 1 || removed.Tasks[0] != "second" {
		t.Fatalf("unexpected remove: %+v", removed)
	}

	notFull := decode[taskMutation](t, do(t, s, http.MethodPost, "/api/tasks/complete", ""))
	if notFull.Changed {
		t.Fatalf("complete on a non-full bounded list: %+v", notFull)
	}
	do(t, s, http.MethodPost, "/api/tasks", `{"task":"again"}`)
	done := decode[taskMutation](t, do(t, s, http.MethodPost, "/api/tasks/complete", ""))
	if !done.Changed || done.Count != 0 {
		t.Fatalf("complete on a full list: %+v", done)
	}
}

func TestExportTasks(t *testing.T) {
	s, _ := newTestServer(t, 7, stubRunner{})
	do(t, s, http.MethodPost, "/api/tasks", `{"task":"export me"}`)

	w := do(t, s, http.MethodGet, "/api/tasks/export/csv", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "1,export me") {
		t.Fatalf("unexpected csv export: %d %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment; filename=tasks-") {
		t.Fatalf("unexpected disposition: %q", cd)
	}
	if w := do(t, s, http.MethodGet, "/api/tasks/export/docx", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("unsupported format: got %d", w.Code)
	}
}

func TestSpeedTestSuccess(t *testing.T) {
	runner := stubRunner{report: models.SpeedReport{Download: "94.2 Mbps", Upload: "512.0 Kbps", Ping: 23, DownloadBps: 94.2e6}}
	s, _ := newTestServer(t, 7, runner)

	w := do(t, s, http.MethodGet, "/speed_test", "")
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if w.Body.String() != `{"download":"94.2 Mbps","ping":23,"upload":"512.0 Kbps"}` {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}

	detailed := decode[models.SpeedReport](t, do(t, s, http.MethodGet, "/api/speedtest", ""))
	if detailed.DownloadBps != 94.2e6 {
		t.Fatalf("unexpected detailed report: %+v", detailed)
	}
}

func TestSpeedTestFailure(t *testing.T) {
	failure := &tester.Failure{Kind: tester.KindServerSelection, Stage: tester.StageSelectServer, Err: errors.New("dial tcp: no route to host")}
	s, _ := newTestServer(t, 7, stubRunner{err: failure})

	w := do(t, s, http.MethodGet, "/speed_test", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", w.Code)
	}
	body := decode[map[string]any](t, w)
	if len(body) != 1 || body["error"] != tester.GenericFailureMessage {
		t.Fatalf("expected a single generic error field, got %v", body)
	}

	stats := decode[map[string]map[string]errorhandler.ErrorStats](t, do(t, s, http.MethodGet, "/api/errors", ""))
	if stats["error_stats"]["server_selection"].TotalCount != 1 {
		t.Fatalf("failure not visible in error stats: %v", stats)
	}
}

func TestStatusAndMetrics(t *testing.T) {
	s, _ := newTestServer(t, 7, stubRunner{report: models.SpeedReport{DownloadBps: 10e6}})
	do(t, s, http.MethodGet, "/speed_test", "")

	status := decode[models.Status](t, do(t, s, http.MethodGet, "/api/status", ""))
	if status.Testing || status.MaxTasks != 7 {
		t.Fatalf("unexpected status: %+v", status)
	}

	w := do(t, s, http.MethodGet, "/api/metrics?count=5", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"runs_successful":1`) {
		t.Fatalf("unexpected metrics: %s", w.Body.String())
	}

	timer := decode[metrics.Metric](t, do(t, s, http.MethodGet, "/api/metrics/speedtest.duration", ""))
	if timer.Type != metrics.MetricTypeTimer || timer.Count != 1 {
		t.Fatalf("unexpected timer: %+v", timer)
	}
	if w := do(t, s, http.MethodGet, "/api/metrics/nope", ""); w.Code != http.StatusNotFound {
		t.Fatalf("unknown metric: status %d", w.Code)
	}

	cfg := decode[yamlconfig.Config](t, do(t, s, http.MethodGet, "/api/config", ""))
	if cfg.Tasks.MaxTasks != 7 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestNewRequiresIndexTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, err := New(yamlconfig.DefaultConfig(), nil, fstest.MapFS{"static/other.html": {Data: []byte("x")}})
	if err == nil {
		t.Fatal("expected error without index.html")
	}
}
