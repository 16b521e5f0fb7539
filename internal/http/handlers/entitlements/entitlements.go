// Package entitlements реализует HTTP-обработчик сводки прав пользователя.
package entitlements

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/peternemser-ui/font-scanner-sub010/internal/http/middlewarectx"
	"github.com/peternemser-ui/font-scanner-sub010/internal/http/response"
	"github.com/peternemser-ui/font-scanner-sub010/internal/lib/sl"
	"github.com/peternemser-ui/font-scanner-sub010/internal/models"
)

// Service описывает интерфейс получения сводки прав.
type Service interface {
	Summary(ctx context.Context, userUID string) (*models.EntitlementSummary, error)
}

// Handler управляет HTTP-запросами на получение сводки прав пользователя.
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
// @Summary Получить права текущего пользователя
// @Description Возвращает план, интервал подписки и список купленных отчётов.
// @Tags Entitlements
// @Produce  json
// @Success 200 {object} models.EntitlementSummary "Сводка прав"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /me/entitlements [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlements"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	summary, err := h.service.Summary(r.Context(), userUID)
	if err != nil {
		log.Error("failed to get entitlements summary", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	log.Info("entitlements summary fetched", slog.String("plan", summary.Plan))
	render.JSON(w, r, response.StatusOKWithData(summary))
}
