// Package webhook реализует HTTP-обработчик событий платёжного провайдера.
//
// Handler проверяет подпись Stripe, разбирает событие и передаёт его
// реконсилеру. Ошибки хранилища возвращают 500, чтобы провайдер повторил
// доставку; повторно доставленные события подтверждаются без изменений.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/peternemser-ui/font-scanner-sub010/internal/http/response"
	"github.com/peternemser-ui/font-scanner-sub010/internal/lib/sl"
	"github.com/peternemser-ui/font-scanner-sub010/internal/models"
	"github.com/peternemser-ui/font-scanner-sub010/internal/services/reconciler"
)

// Stripe рекомендует ограничивать размер тела webhook-запроса.
const maxBodyBytes = int64(65536)

// Service описывает интерфейс реконсилера событий.
type Service interface {
	ProcessEvent(ctx context.Context, ev models.ProviderEvent) (reconciler.Result, error)
}

// Handler управляет HTTP-запросами от платёжного провайдера.
type Handler struct {
	log           *slog.Logger
	service       Service
	webhookSecret string
}

// New создает новый Handler с переданными логгером, сервисом и секретом подписи.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		webhookSecret: secret,
	}
}

// ServeHTTP godoc
// @Summary Принять событие платёжного провайдера
// @Description Проверяет подпись Stripe и применяет событие к правам пользователя.
// @Tags Billing
// @Accept  json
// @Produce  json
// @Success 200 {object} map[string]any "Результат обработки"
// @Failure 400 {object} response.ErrorResponse "Некорректное тело события"
// @Failure 401 {object} response.ErrorResponse "Неверная подпись"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища, доставка будет повторена"
// @Router /billing/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to read body"))
		return
	}
	defer func() { _ = r.Body.Close() }()

	event, err := webhook.ConstructEvent(body, r.Header.Get("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		log.Error("invalid webhook signature", sl.Err(err))
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}
	log = log.With(
		slog.String("event_id", event.ID),
		slog.String("event_type", string(event.Type)),
	)

	var object models.EventObject
	if err := json.Unmarshal(event.Data.Raw, &object); err != nil {
		log.Error("failed to unmarshal event object", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("malformed event object"))
		return
	}

	result, err := h.service.ProcessEvent(r.Context(), models.ProviderEvent{
		ID:     event.ID,
		Type:   string(event.Type),
		Object: object,
	})
	if err != nil {
		log.Error("failed to process event", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to process event"))
		return
	}

	log.Info("webhook event handled",
		slog.Bool("processed", result.Processed),
		slog.String("reason", result.Reason))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"processed": result.Processed,
		"reason":    result.Reason,
	}))
}
