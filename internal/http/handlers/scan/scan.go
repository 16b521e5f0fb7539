// Package scan реализует HTTP-обработчик запуска анализа шрифтов сайта.
//
// Handler нормализует переданный URL, запускает анализатор, вычисляет
// детерминированный идентификатор отчёта и скрывает платные секции,
// если у пользователя нет доступа к отчёту.
package scan

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/peternemser-ui/font-scanner-sub010/internal/http/middlewarectx"
	"github.com/peternemser-ui/font-scanner-sub010/internal/http/response"
	"github.com/peternemser-ui/font-scanner-sub010/internal/lib/reportid"
	"github.com/peternemser-ui/font-scanner-sub010/internal/lib/sl"
	"github.com/peternemser-ui/font-scanner-sub010/internal/lib/urlnorm"
	"github.com/peternemser-ui/font-scanner-sub010/internal/metrics"
	"github.com/peternemser-ui/font-scanner-sub010/internal/models"
	"github.com/peternemser-ui/font-scanner-sub010/internal/services/scanner"
)

// Request — входные данные для запуска анализа
type Request struct {
	URL string `json:"url" validate:"required"`
}

// Scanner описывает интерфейс анализатора шрифтов.
type Scanner interface {
	Scan(ctx context.Context, pageURL string) (*models.FontReport, error)
}

// Entitlements описывает интерфейс проверки доступа к отчёту.
type Entitlements interface {
	HasAccess(ctx context.Context, userUID, reportID string) (bool, error)
}

// Handler управляет HTTP-запросами на анализ сайта.
type Handler struct {
	log          *slog.Logger
	scanner      Scanner
	entitlements Entitlements
	validate     *validator.Validate
	now          func() time.Time
}

// New создает новый Handler с переданными логгером и сервисами.
func New(log *slog.Logger, sc Scanner, ent Entitlements) *Handler {
	return &Handler{
		log:          log,
		scanner:      sc,
		entitlements: ent,
		validate:     validator.New(),
		now:          time.Now,
	}
}

// ServeHTTP godoc
// @Summary Запустить анализ шрифтов сайта
// @Description Нормализует URL, сканирует страницу и возвращает отчёт.
// @Description Платные секции отчёта доступны по подписке или разовой покупке.
// @Tags Scan
// @Accept  json
// @Produce  json
// @Param request body Request true "URL страницы"
// @Success 200 {object} map[string]any "Отчёт по шрифтам"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Сайт недоступен"
// @Router /scan [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.scan"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	normalized := urlnorm.Normalize(req.URL)
	if normalized == "" {
		log.Error("url cannot be normalized", slog.String("raw", req.URL))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("url cannot be normalized"))
		return
	}
	startedAt := h.now().UTC().Format(time.RFC3339)
	reportID := reportid.Make(scanner.AnalyzerKey, normalized, startedAt)
	log = log.With(slog.String("report_id", reportID), slog.String("url", normalized))

	report, err := h.scanner.Scan(r.Context(), normalized)
	if err != nil {
		metrics.Scans.WithLabelValues("error").Inc()
		log.Error("scan failed", sl.Err(err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("failed to fetch site"))
		return
	}

	hasAccess, err := h.entitlements.HasAccess(r.Context(), userUID, reportID)
	if err != nil {
		log.Error("failed to check report access", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	metrics.Scans.WithLabelValues("ok").Inc()
	log.Info("scan completed",
		slog.Int("fonts", len(report.Fonts)),
		slog.Bool("has_access", hasAccess))

	data := map[string]any{
		"report_id":  reportID,
		"url":        normalized,
		"started_at": startedAt,
		"fonts":      report.Fonts,
		"has_access": hasAccess,
	}
	// Список стилей — платная секция отчёта.
	if hasAccess {
		data["stylesheets"] = report.Stylesheets
	}
	render.JSON(w, r, response.StatusOKWithData(data))
}
