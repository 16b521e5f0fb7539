// Package checkout реализует HTTP-обработчик создания платёжной сессии.
//
// Поддерживаются два режима: оформление подписки pro и разовая покупка
// отдельного отчёта по его идентификатору.
package checkout

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/peternemser-ui/font-scanner-sub010/internal/http/middlewarectx"
	"github.com/peternemser-ui/font-scanner-sub010/internal/http/response"
	"github.com/peternemser-ui/font-scanner-sub010/internal/lib/sl"
)

// Request — входные данные для создания платёжной сессии.
// Либо Plan == "pro", либо заполнен ReportID.
type Request struct {
	Plan     string `json:"plan,omitempty"`
	ReportID string `json:"report_id,omitempty"`
}

// Service описывает интерфейс создания платёжных сессий.
type Service interface {
	CreateSubscriptionSession(ctx context.Context, userUID string) (string, error)
	CreateReportSession(ctx context.Context, userUID, reportID string) (string, error)
}

// Handler управляет HTTP-запросами на создание платёжных сессий.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать платёжную сессию
// @Description Создаёт сессию оплаты подписки pro или покупки одного отчёта.
// @Tags Billing
// @Accept  json
// @Produce  json
// @Param request body Request true "Параметры покупки"
// @Success 200 {object} map[string]any "URL страницы оплаты"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка платёжного провайдера"
// @Router /billing/checkout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.checkout"
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

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var url string
	var err error
	switch {
	case req.Plan == "pro":
		url, err = h.service.CreateSubscriptionSession(r.Context(), userUID)
	case req.ReportID != "":
		url, err = h.service.CreateReportSession(r.Context(), userUID, req.ReportID)
	default:
		log.Error("neither plan nor report_id provided")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("plan or report_id is required"))
		return
	}
	if err != nil {
		log.Error("failed to create checkout session", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create checkout session"))
		return
	}

	log.Info("checkout session created", slog.String("user_uid", userUID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"checkout_url": url,
	}))
}
