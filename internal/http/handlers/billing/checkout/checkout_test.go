package checkout

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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/peternemser-ui/font-scanner-sub010/internal/http/middlewarectx"
)

// MockService реализует интерфейс checkout.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) CreateSubscriptionSession(ctx context.Context, userUID string) (string, error) {
	args := m.Called(ctx, userUID)
	return args.String(0), args.Error(1)
}

func (m *MockService) CreateReportSession(ctx context.Context, userUID, reportID string) (string, error) {
	args := m.Called(ctx, userUID, reportID)
	return args.String(0), args.Error(1)
}

func TestCheckoutHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		requestBody    interface{}
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "подписка pro",
			requestBody: Request{Plan: "pro"},
			userUID:     "uid-1",
			setupMock: func(m *MockService) {
				m.On("CreateSubscriptionSession", mock.Anything, "uid-1").
					Return("https://checkout.stripe.com/c/pay/sub", nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"checkout_url":"https://checkout.stripe.com/c/pay/sub"`,
		},
		{
			name:        "покупка одного отчёта",
			requestBody: Request{ReportID: "r_f08cafa917761dc6"},
			userUID:     "uid-1",
			setupMock: func(m *MockService) {
				m.On("CreateReportSession", mock.Anything, "uid-1", "r_f08cafa917761dc6").
					Return("https://checkout.stripe.com/c/pay/report", nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"checkout_url":"https://checkout.stripe.com/c/pay/report"`,
		},
		{
			name:           "некорректный JSON",
			requestBody:    "not a json",
			userUID:        "uid-1",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name:           "пустой запрос",
			requestBody:    Request{},
			userUID:        "uid-1",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"plan or report_id is required"}`,
		},
		{
			name:           "отсутствует авторизация",
			requestBody:    Request{Plan: "pro"},
			userUID:        "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"unauthorized"}`,
		},
		{
			name:        "ошибка провайдера",
			requestBody: Request{Plan: "pro"},
			userUID:     "uid-1",
			setupMock: func(m *MockService) {
				m.On("CreateSubscriptionSession", mock.Anything, "uid-1").
					Return("", errors.New("stripe unavailable"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"could not create checkout session"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			var body []byte
			var err error
			if str, ok := tt.requestBody.(string); ok {
				body = []byte(str)
			} else {
				body, err = json.Marshal(tt.requestBody)
				assert.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/billing/checkout", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			if tt.userUID != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID))
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)

			mockService.AssertExpectations(t)
		})
	}
}
