// Package scanner реализует анализатор шрифтов: скачивает страницу,
// извлекает подключения Google Fonts и объявления font-family из
// inline-стилей и внешних таблиц стилей.
package scanner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/peternemser-ui/font-scanner-sub010/internal/config"
	"github.com/peternemser-ui/font-scanner-sub010/internal/lib/sl"
	"github.com/peternemser-ui/font-scanner-sub010/internal/models"
)

// AnalyzerKey — ключ этого анализатора в идентификаторе отчёта.
const AnalyzerKey = "fonts"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

var (
	googleImportRe = regexp.MustCompile(`@import\s+url\(['"]?([^'")]*fonts\.googleapis\.com[^'")]*)['"]?\)`)
	familyParamRe  = regexp.MustCompile(`family=([^&]*)`)
	fontFamilyRe   = regexp.MustCompile(`(?i)font-family\s*:\s*([^;}]+)`)
	styleTagRe     = regexp.MustCompile(`(?is)<style[^>]*>(.*?)</style>`)
	linkTagRe      = regexp.MustCompile(`(?is)<link[^>]+>`)
	hrefRe         = regexp.MustCompile(`(?i)href\s*=\s*["']([^"']+)["']`)
	relRe          = regexp.MustCompile(`(?i)rel\s*=\s*["']([^"']*)["']`)
)

// Генерические семейства CSS, не являющиеся шрифтами.
var genericFamilies = map[string]bool{
	"serif":      true,
	"sans-serif": true,
	"monospace":  true,
	"cursive":    true,
	"fantasy":    true,
	"inherit":    true,
	"initial":    true,
	"unset":      true,
}

var knownGoogleFonts = []string{
	"Roboto", "Open Sans", "Lato", "Montserrat", "Source Sans Pro",
	"Raleway", "Poppins", "Oswald", "Nunito", "Ubuntu", "Mulish",
	"Inter", "Playfair Display", "Merriweather", "PT Sans",
}

// Service скачивает и анализирует страницы.
type Service struct {
	client         *http.Client
	log            *slog.Logger
	maxStylesheets int
	maxBodyBytes   int64
}

// New создает новый экземпляр Service с настройками из конфига.
func New(cfg config.Scanner, log *slog.Logger) *Service {
	return &Service{
		client: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
		log:            log,
		maxStylesheets: cfg.MaxStylesheets,
		maxBodyBytes:   cfg.MaxBodyBytes,
	}
}

// Scan анализирует страницу по нормализованному URL и возвращает
// список обнаруженных шрифтов без дубликатов.
func (s *Service) Scan(ctx context.Context, pageURL string) (*models.FontReport, error) {
	const op = "scanner.Scan"

	body, err := s.fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var fonts []models.Font
	var stylesheets []string

	// Подключения Google Fonts через <link>.
	for _, tag := range linkTagRe.FindAllString(body, -1) {
		href := firstGroup(hrefRe, tag)
		if href == "" {
			continue
		}
		if strings.Contains(href, "fonts.googleapis.com") {
			fonts = append(fonts, googleFamiliesFromURL(href)...)
			continue
		}
		rel := strings.ToLower(firstGroup(relRe, tag))
		if !strings.Contains(rel, "stylesheet") || len(stylesheets) >= s.maxStylesheets {
			continue
		}
		cssURL := resolveRef(pageURL, href)
		css, err := s.fetch(ctx, cssURL)
		if err != nil {
			s.log.Warn("failed to fetch stylesheet", slog.String("href", href), sl.Err(err))
			continue
		}
		stylesheets = append(stylesheets, cssURL)
		fonts = append(fonts, extractFontsFromCSS(css, cssURL)...)
	}

	// Inline-стили.
	for _, m := range styleTagRe.FindAllStringSubmatch(body, -1) {
		fonts = append(fonts, extractFontsFromCSS(m[1], "inline")...)
	}

	return &models.FontReport{
		URL:         pageURL,
		Fonts:       dedupe(fonts),
		Stylesheets: stylesheets,
	}, nil
}

func (s *Service) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodyBytes))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// extractFontsFromCSS извлекает шрифты из текста CSS: @import с Google Fonts
// и объявления font-family.
func extractFontsFromCSS(css, source string) []models.Font {
	var fonts []models.Font

	for _, m := range googleImportRe.FindAllStringSubmatch(css, -1) {
		fonts = append(fonts, googleFamiliesFromURL(m[1])...)
	}

	for _, m := range fontFamilyRe.FindAllStringSubmatch(css, -1) {
		for _, family := range strings.Split(m[1], ",") {
			family = strings.Trim(strings.TrimSpace(family), `'"`)
			if family == "" {
				continue
			}
			if genericFamilies[strings.ToLower(family)] {
				continue
			}
			fontType := models.FontTypeWeb
			if isGoogleFont(family) {
				fontType = models.FontTypeGoogle
			}
			fonts = append(fonts, models.Font{
				Family: family,
				Type:   fontType,
				Source: source,
			})
		}
	}
	return fonts
}

// firstGroup возвращает первую подгруппу первого совпадения или "".
func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// googleFamiliesFromURL разбирает параметры family из URL Google Fonts.
// Формат css2 повторяет параметр family для каждого семейства.
func googleFamiliesFromURL(fontsURL string) []models.Font {
	var fonts []models.Font
	for _, m := range familyParamRe.FindAllStringSubmatch(fontsURL, -1) {
		for _, family := range strings.Split(strings.ReplaceAll(m[1], "+", " "), "|") {
			family = strings.SplitN(family, ":", 2)[0]
			if family == "" {
				continue
			}
			fonts = append(fonts, models.Font{
				Family: family,
				Type:   models.FontTypeGoogle,
				Source: fontsURL,
			})
		}
	}
	return fonts
}

func isGoogleFont(family string) bool {
	lower := strings.ToLower(family)
	for _, gf := range knownGoogleFonts {
		if strings.Contains(lower, strings.ToLower(gf)) {
			return true
		}
	}
	return false
}

func dedupe(fonts []models.Font) []models.Font {
	seen := map[string]bool{}
	result := make([]models.Font, 0, len(fonts))
	for _, f := range fonts {
		key := f.Family + "-" + f.Type
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, f)
	}
	return result
}

func resolveRef(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
