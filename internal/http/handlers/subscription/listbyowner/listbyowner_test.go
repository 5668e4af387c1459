package listbyowner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
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

func (m *ServiceMock) ListByOwner(ctx context.Context, requestedOwnerID string, callerID uuid.UUID, filter models.ListFilter) ([]models.Subscription, error) {
	args := m.Called(ctx, requestedOwnerID, callerID, filter)
	subs, _ := args.Get(0).([]models.Subscription)
	return subs, args.Error(1)
}

func serve(svc Service, target, ownerParam string, caller uuid.UUID) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", ownerParam)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if caller != uuid.Nil {
		ctx = middlewarectx.WithUserID(ctx, caller)
	}

	rr := httptest.NewRecorder()
	New(sl.Discard(), svc).ServeHTTP(rr, req.WithContext(ctx))
	return rr
}

func TestListByOwnerHandler(t *testing.T) {
	caller := uuid.New()
	other := uuid.New()

	t.Run("own subscriptions", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("ListByOwner", mock.Anything, caller.String(), caller, models.ListFilter{}).
			Return([]models.Subscription{{ID: uuid.New(), Name: "Spotify"}}, nil)

		rr := serve(svc, "/subscriptions/"+caller.String(), caller.String(), caller)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"message":"Subscriptions fetched successfully"`)
		assert.Contains(t, rr.Body.String(), `"Spotify"`)
		svc.AssertExpectations(t)
	})

	t.Run("someone else's subscriptions", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("ListByOwner", mock.Anything, other.String(), caller, mock.Anything).
			Return(nil, apperr.ErrForbidden)

		rr := serve(svc, "/subscriptions/"+other.String(), other.String(), caller)

		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.JSONEq(t, `{"success":false,"message":"You are not authorized to access this resource"}`, rr.Body.String())
	})

	t.Run("query filter forwarded", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("ListByOwner", mock.Anything, caller.String(), caller,
			models.ListFilter{Status: "active", Limit: 2, Offset: 4}).
			Return([]models.Subscription{}, nil)

		rr := serve(svc, "/subscriptions/user/"+caller.String()+"?status=active&limit=2&offset=4", caller.String(), caller)

		assert.Equal(t, http.StatusOK, rr.Code)
		svc.AssertExpectations(t)
	})

	t.Run("all subscriptions without limit", func(t *testing.T) {
		subs := make([]models.Subscription, 15)
		for i := range subs {
			subs[i] = models.Subscription{ID: uuid.New(), Name: "Service", UserID: caller}
		}
		svc := new(ServiceMock)
		svc.On("ListByOwner", mock.Anything, caller.String(), caller, models.ListFilter{}).
			Return(subs, nil)

		rr := serve(svc, "/subscriptions/"+caller.String(), caller.String(), caller)

		assert.Equal(t, http.StatusOK, rr.Code)
		var body struct {
			Data []models.Subscription `json:"data"`
		}
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Len(t, body.Data, 15)
		svc.AssertExpectations(t)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		svc := new(ServiceMock)
		rr := serve(svc, "/subscriptions/"+caller.String(), caller.String(), uuid.Nil)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		svc.AssertNotCalled(t, "ListByOwner", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
