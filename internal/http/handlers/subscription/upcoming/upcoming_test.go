package upcoming

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) UpcomingRenewals(ctx context.Context, callerID uuid.UUID, days int) ([]models.Subscription, error) {
	args := m.Called(ctx, callerID, days)
	subs, _ := args.Get(0).([]models.Subscription)
	return subs, args.Error(1)
}

func TestUpcomingHandler(t *testing.T) {
	caller := uuid.New()

	tests := []struct {
		name       string
		query      string
		setupMock  func(m *ServiceMock)
		wantStatus int
	}{
		{
			name:  "default window",
			query: "",
			setupMock: func(m *ServiceMock) {
				m.On("UpcomingRenewals", mock.Anything, caller, DefaultDays).Return([]models.Subscription{}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:  "explicit window",
			query: "?days=30",
			setupMock: func(m *ServiceMock) {
				m.On("UpcomingRenewals", mock.Anything, caller, 30).Return([]models.Subscription{}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "not a number",
			query:      "?days=week",
			setupMock:  func(*ServiceMock) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:  "out of range",
			query: "?days=0",
			setupMock: func(m *ServiceMock) {
				m.On("UpcomingRenewals", mock.Anything, caller, 0).
					Return(nil, apperr.NewValidation("days", "days must be between 1 and 365"))
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodGet, "/subscriptions/upcoming-renewals"+tt.query, nil)
			req = req.WithContext(middlewarectx.WithUserID(req.Context(), caller))
			rr := httptest.NewRecorder()
			New(sl.Discard(), svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			svc.AssertExpectations(t)
		})
	}
}
