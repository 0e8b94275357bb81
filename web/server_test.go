package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aweist/probables-watcher/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWindow struct {
	rows []models.Assignment
	err  error
	seen time.Time
}

func (f *fakeWindow) Window(_ context.Context, now time.Time) ([]models.Assignment, error) {
	f.seen = now
	return f.rows, f.err
}

type fakeRuns struct {
	runs []models.Run
	err  error
}

func (f *fakeRuns) GetAllRuns() ([]models.Run, error) {
	return f.runs, f.err
}

type fakeNotifier struct {
	subject string
	body    string
	err     error
}

func (f *fakeNotifier) Send(_ context.Context, subject, body string) error {
	f.subject, f.body = subject, body
	return f.err
}

func (f *fakeNotifier) GetType() string { return "email" }

var fixedNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func newTestServer(store *fakeWindow, runs *fakeRuns) *Server {
	s := NewServer(store, runs, "0", time.UTC, nil)
	s.now = func() time.Time { return fixedNow }
	return s
}

func sampleRows() []models.Assignment {
	return []models.Assignment{{
		TeamID:          147,
		League:          "AL",
		Division:        "East",
		AbbName:         "NYY",
		GameDate:        time.Date(2025, 6, 11, 19, 5, 0, 0, time.UTC),
		OpponentAbbName: "BOS",
		IsHome:          true,
		PitcherID:       "592450",
		PitcherName:     "Gerrit Cole",
	}}
}

func TestServer_Preview(t *testing.T) {
	store := &fakeWindow{rows: sampleRows()}
	srv := newTestServer(store, &fakeRuns{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Probables Grid")
	assert.Contains(t, rec.Body.String(), "Gerrit Cole")
	assert.Equal(t, fixedNow, store.seen)
}

func TestServer_PreviewUnknownPath(t *testing.T) {
	srv := newTestServer(&fakeWindow{}, &fakeRuns{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_APIProbables(t *testing.T) {
	srv := newTestServer(&fakeWindow{rows: sampleRows()}, &fakeRuns{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/probables", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got []models.Assignment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Gerrit Cole", got[0].PitcherName)
}

func TestServer_APIProbablesEmpty(t *testing.T) {
	srv := newTestServer(&fakeWindow{}, &fakeRuns{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/probables", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestServer_APIRuns(t *testing.T) {
	runs := &fakeRuns{runs: []models.Run{{ID: "abc", StartedAt: fixedNow, Added: 2}}}
	srv := newTestServer(&fakeWindow{}, runs)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got []models.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "abc", got[0].ID)
	assert.Equal(t, 2, got[0].Added)
}

func TestServer_Errors(t *testing.T) {
	srv := newTestServer(&fakeWindow{err: errors.New("db gone")}, &fakeRuns{err: errors.New("ledger gone")})

	for _, path := range []string{"/", "/api/probables", "/api/runs"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
		})
	}
}

func TestServer_TestEmail(t *testing.T) {
	t.Run("method not allowed", func(t *testing.T) {
		srv := newTestServer(&fakeWindow{}, &fakeRuns{})
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/test-email", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("no notifiers", func(t *testing.T) {
		srv := newTestServer(&fakeWindow{}, &fakeRuns{})
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/test-email", nil))
		assert.Contains(t, rec.Body.String(), `"status":"error"`)
	})

	t.Run("sends grid", func(t *testing.T) {
		n := &fakeNotifier{}
		srv := newTestServer(&fakeWindow{rows: sampleRows()}, &fakeRuns{})
		srv.SetNotifiers(nil)
		srv.notifiers = append(srv.notifiers, n)

		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/test-email", nil))

		assert.Contains(t, rec.Body.String(), `"status":"success"`)
		assert.Equal(t, "2025-06-10 | Test", n.subject)
		assert.Contains(t, n.body, "Gerrit Cole")
	})

	t.Run("send failure", func(t *testing.T) {
		n := &fakeNotifier{err: errors.New("smtp down")}
		srv := newTestServer(&fakeWindow{}, &fakeRuns{})
		srv.SetNotifiers(nil)
		srv.notifiers = append(srv.notifiers, n)

		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/test-email", nil))

		assert.Contains(t, rec.Body.String(), "smtp down")
	})
}
