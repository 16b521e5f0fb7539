package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peternemser-ui/font-scanner-sub010/internal/http/middlewarectx"
	"github.com/peternemser-ui/font-scanner-sub010/internal/models"
)

type mockScanner struct {
	report *models.FontReport
	err    error
	gotURL string
}

func (m *mockScanner) Scan(_ context.Context, pageURL string) (*models.FontReport, error) {
	m.gotURL = pageURL
	return m.report, m.err
}

type mockEntitlements struct {
	hasAccess bool
	err       error
}

func (m *mockEntitlements) HasAccess(_ context.Context, _, _ string) (bool, error) {
	return m.hasAccess, m.err
}

func newHandler(sc *mockScanner, ent *mockEntitlements) *Handler {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := New(logger, sc, ent)
	h.now = func() time.Time {
		return time.Date(2024, 1, 1, 10, 15, 30, 0, time.UTC)
	}
	return h
}

func doRequest(t *testing.T, h *Handler, body any, userUID string) *httptest.ResponseRecorder {
	t.Helper()

	var raw []byte
	var err error
	if str, ok := body.(string); ok {
		raw = []byte(str)
	} else {
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodPost, "/scan", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if userUID != "" {
		req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, userUID))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestScanHandler_Success(t *testing.T) {
	sc := &mockScanner{report: &models.FontReport{
		URL: "https://example.com",
		Fonts: []models.Font{
			{Family: "Roboto", Type: models.FontTypeGoogle, Source: "google-fonts-link"},
		},
		Stylesheets: []string{"https://example.com/main.css"},
	}}
	h := newHandler(sc, &mockEntitlements{hasAccess: true})

	w := doRequest(t, h, Request{URL: "Example.COM/"}, "uid-1")

	require.Equal(t, http.StatusOK, w.Code)
	// Нормализация и округление времени дают детерминированный id.
	assert.Equal(t, "https://example.com", sc.gotURL)
	assert.Contains(t, w.Body.String(), `"report_id":"r_f08cafa917761dc6"`)
	assert.Contains(t, w.Body.String(), `"has_access":true`)
	assert.Contains(t, w.Body.String(), `"stylesheets"`)
}

func TestScanHandler_NoAccessHidesPremiumSections(t *testing.T) {
	sc := &mockScanner{report: &models.FontReport{
		URL:         "https://example.com",
		Stylesheets: []string{"https://example.com/main.css"},
	}}
	h := newHandler(sc, &mockEntitlements{hasAccess: false})

	w := doRequest(t, h, Request{URL: "https://example.com"}, "uid-1")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"has_access":false`)
	assert.NotContains(t, w.Body.String(), `"stylesheets"`)
}

func TestScanHandler_BadJSON(t *testing.T) {
	h := newHandler(&mockScanner{}, &mockEntitlements{})

	w := doRequest(t, h, "not a json", "uid-1")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `{"status":"Error","error":"invalid request body"}`)
}

func TestScanHandler_MissingURL(t *testing.T) {
	h := newHandler(&mockScanner{}, &mockEntitlements{})

	w := doRequest(t, h, Request{}, "uid-1")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "field URL is a required field")
}

func TestScanHandler_WhitespaceURLRejected(t *testing.T) {
	sc := &mockScanner{}
	h := newHandler(sc, &mockEntitlements{})

	w := doRequest(t, h, Request{URL: "   "}, "uid-1")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `{"status":"Error","error":"url cannot be normalized"}`)
	// До сканера запрос не доходит.
	assert.Empty(t, sc.gotURL)
}

func TestScanHandler_Unauthorized(t *testing.T) {
	h := newHandler(&mockScanner{}, &mockEntitlements{})

	w := doRequest(t, h, Request{URL: "https://example.com"}, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `{"status":"Error","error":"unauthorized"}`)
}

func TestScanHandler_FetchFailure(t *testing.T) {
	sc := &mockScanner{err: errors.New("connection refused")}
	h := newHandler(sc, &mockEntitlements{})

	w := doRequest(t, h, Request{URL: "https://example.com"}, "uid-1")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), `{"status":"Error","error":"failed to fetch site"}`)
}
