// Package access реализует HTTP-обработчик проверки доступа к отчёту.
package access

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/peternemser-ui/font-scanner-sub010/internal/http/middlewarectx"
	"github.com/peternemser-ui/font-scanner-sub010/internal/http/response"
	"github.com/peternemser-ui/font-scanner-sub010/internal/lib/sl"
)

// Service описывает интерфейс проверки доступа к отчёту.
type Service interface {
	HasAccess(ctx context.Context, userUID, reportID string) (bool, error)
}

// Handler управляет HTTP-запросами на проверку доступа к отчёту.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Проверить доступ к отчёту
// @Description Возвращает, открыт ли отчёт пользователю по подписке или покупке.
// @Tags Reports
// @Produce  json
// @Param reportID path string true "Идентификатор отчёта"
// @Success 200 {object} map[string]any "Результат проверки"
// @Failure 400 {object} response.ErrorResponse "Пустой идентификатор отчёта"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /reports/{reportID}/access [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.report.access"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	reportID := chi.URLParam(r, "reportID")
	if reportID == "" {
		log.Error("missing report id in url")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("missing report id"))
		return
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	hasAccess, err := h.service.HasAccess(r.Context(), userUID, reportID)
	if err != nil {
		log.Error("failed to check report access", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	log.Info("report access checked",
		slog.String("report_id", reportID),
		slog.Bool("has_access", hasAccess))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"report_id":  reportID,
		"has_access": hasAccess,
	}))
}
