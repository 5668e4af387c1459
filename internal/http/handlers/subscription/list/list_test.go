package list

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) ListByOwner(ctx context.Context, requestedOwnerID string, callerID uuid.UUID, filter models.ListFilter) ([]models.Subscription, error) {
	args := m.Called(ctx, requestedOwnerID, callerID, filter)
	subs, _ := args.Get(0).([]models.Subscription)
	return subs, args.Error(1)
}

func TestListHandler(t *testing.T) {
	caller := uuid.New()

	tests := []struct {
		name       string
		withCaller bool
		setupMock  func(m *ServiceMock)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "empty list",
			withCaller: true,
			setupMock: func(m *ServiceMock) {
				m.On("ListByOwner", mock.Anything, caller.String(), caller, models.ListFilter{Limit: 10}).
					Return([]models.Subscription{}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"success":true,"message":"Subscriptions fetched successfully","data":[]}`,
		},
		{
			name:       "service error",
			withCaller: true,
			setupMock: func(m *ServiceMock) {
				m.On("ListByOwner", mock.Anything, caller.String(), caller, mock.Anything).
					Return(nil, errors.New("db error"))
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"success":false,"message":"Internal server error"}`,
		},
		{
			name:       "no caller",
			setupMock:  func(*ServiceMock) {},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"success":false,"message":"Unauthorized"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodGet, "/subscriptions", nil)
			if tt.withCaller {
				req = req.WithContext(middlewarectx.WithUserID(req.Context(), caller))
			}
			rr := httptest.NewRecorder()
			New(sl.Discard(), svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.JSONEq(t, tt.wantBody, rr.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
