package scanner

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peternemser-ui/font-scanner-sub010/internal/config"
	"github.com/peternemser-ui/font-scanner-sub010/internal/models"
)

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }

func newTestService() *Service {
	return New(config.Scanner{
		FetchTimeout:   5 * time.Second,
		MaxStylesheets: 3,
		MaxBodyBytes:   1 << 20,
	}, slog.New(discardHandler{}))
}

func fontFamilies(fonts []models.Font) map[string]string {
	result := map[string]string{}
	for _, f := range fonts {
		result[f.Family] = f.Type
	}
	return result
}

func TestScan_GoogleFontsLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head>
			<link rel="preconnect" href="https://fonts.gstatic.com">
			<link href="https://fonts.googleapis.com/css2?family=Roboto:wght@400&family=Open+Sans" rel="stylesheet">
		</head><body></body></html>`))
	}))
	defer srv.Close()

	report, err := newTestService().Scan(context.Background(), srv.URL)
	require.NoError(t, err)

	families := fontFamilies(report.Fonts)
	assert.Equal(t, models.FontTypeGoogle, families["Roboto"])
	assert.Equal(t, models.FontTypeGoogle, families["Open Sans"])
}

func TestGoogleFamiliesFromURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		families []string
	}{
		{
			name:     "css2 с повторяющимся параметром family",
			url:      "https://fonts.googleapis.com/css2?family=Roboto:wght@400&family=Open+Sans&display=swap",
			families: []string{"Roboto", "Open Sans"},
		},
		{
			name:     "старый формат с разделителем |",
			url:      "https://fonts.googleapis.com/css?family=Lato|Merriweather",
			families: []string{"Lato", "Merriweather"},
		},
		{
			name:     "без параметра family",
			url:      "https://fonts.googleapis.com/css2?display=swap",
			families: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, f := range googleFamiliesFromURL(tt.url) {
				got = append(got, f.Family)
			}
			assert.Equal(t, tt.families, got)
		})
	}
}

func TestScan_InlineStyles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><style>
			@import url('https://fonts.googleapis.com/css?family=Lato|Merriweather');
			body { font-family: "Custom Grotesk", Arial, sans-serif; }
		</style></head><body></body></html>`))
	}))
	defer srv.Close()

	report, err := newTestService().Scan(context.Background(), srv.URL)
	require.NoError(t, err)

	families := fontFamilies(report.Fonts)
	assert.Equal(t, models.FontTypeGoogle, families["Lato"])
	assert.Equal(t, models.FontTypeGoogle, families["Merriweather"])
	assert.Equal(t, models.FontTypeWeb, families["Custom Grotesk"])
	assert.Equal(t, models.FontTypeWeb, families["Arial"])
	// Генерические семейства отбрасываются.
	assert.NotContains(t, families, "sans-serif")
}

func TestScan_ExternalStylesheet(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><link rel="stylesheet" href="/main.css"></head></html>`))
	})
	mux.HandleFunc("/main.css", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`h1 { font-family: Poppins; }`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	report, err := newTestService().Scan(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, []string{srv.URL + "/main.css"}, report.Stylesheets)
	families := fontFamilies(report.Fonts)
	assert.Equal(t, models.FontTypeGoogle, families["Poppins"])
}

func TestScan_DeduplicatesFonts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><style>
			h1 { font-family: Inter; }
			h2 { font-family: Inter; }
			p { font-family: Inter; }
		</style></head></html>`))
	}))
	defer srv.Close()

	report, err := newTestService().Scan(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, report.Fonts, 1)
}

func TestScan_UnreachablePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestService().Scan(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestScan_BrokenStylesheetIsSkipped(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head>
			<link rel="stylesheet" href="/missing.css">
			<style>body { font-family: Nunito; }</style>
		</head></html>`))
	})
	mux.HandleFunc("/missing.css", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	report, err := newTestService().Scan(context.Background(), srv.URL)
	require.NoError(t, err)

	families := fontFamilies(report.Fonts)
	assert.Equal(t, models.FontTypeGoogle, families["Nunito"])
	// Недоступная таблица стилей не попадает в перечень источников.
	assert.Empty(t, report.Stylesheets)
}
