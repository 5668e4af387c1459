package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/mailer"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetSubscription(ctx context.Context, id uuid.UUID) (models.Subscription, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Subscription), args.Error(1)
}

func (m *RepoMock) CreateReminders(ctx context.Context, reminders []models.Reminder) (int, error) {
	args := m.Called(ctx, reminders)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) ListDueReminders(ctx context.Context, now time.Time, limit int) ([]models.DueReminder, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DueReminder), args.Error(1)
}

func (m *RepoMock) MarkReminderSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	return m.Called(ctx, id, sentAt).Error(0)
}

type MailerMock struct{ mock.Mock }

func (m *MailerMock) SendReminder(ctx context.Context, r mailer.Reminder) (string, error) {
	args := m.Called(ctx, r)
	return args.String(0), args.Error(1)
}

var fixedNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestService(r *RepoMock, m *MailerMock) *ReminderService {
	s := NewReminderService(r, m, sl.Discard(), time.Second)
	s.now = func() time.Time { return fixedNow }
	return s
}

func activeSubscription(renewal time.Time) models.Subscription {
	return models.Subscription{
		ID:          uuid.New(),
		Name:        "Netflix",
		Status:      "active",
		RenewalDate: renewal,
		UserID:      uuid.New(),
	}
}

func kindsOf(reminders []models.Reminder) []string {
	res := make([]string, 0, len(reminders))
	for _, r := range reminders {
		res = append(res, r.Kind)
	}
	return res
}

func TestSchedule(t *testing.T) {
	tests := []struct {
		name       string
		sub        models.Subscription
		wantStatus string
		wantKinds  []string
	}{
		{
			name:       "all reminders in the future",
			sub:        activeSubscription(fixedNow.AddDate(0, 0, 10)),
			wantStatus: StatusScheduled,
			wantKinds:  []string{"7_days_before", "5_days_before", "2_days_before", "1_days_before"},
		},
		{
			name:       "past reminders are skipped",
			sub:        activeSubscription(fixedNow.AddDate(0, 0, 3)),
			wantStatus: StatusScheduled,
			wantKinds:  []string{"2_days_before", "1_days_before"},
		},
		{
			name: "cancelled subscription",
			sub: func() models.Subscription {
				s := activeSubscription(fixedNow.AddDate(0, 0, 10))
				s.Status = "cancelled"
				return s
			}(),
			wantStatus: StatusSkipped,
		},
		{
			name:       "renewal already passed",
			sub:        activeSubscription(fixedNow.AddDate(0, 0, -1)),
			wantStatus: StatusSkipped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := new(RepoMock)
			r.On("GetSubscription", mock.Anything, tt.sub.ID).Return(tt.sub, nil)
			if tt.wantStatus == StatusScheduled {
				r.On("CreateReminders", mock.Anything, mock.MatchedBy(func(rs []models.Reminder) bool {
					for _, rem := range rs {
						if rem.SubscriptionID != tt.sub.ID || !rem.SendAt.After(fixedNow) {
							return false
						}
					}
					return assert.ObjectsAreEqual(tt.wantKinds, kindsOf(rs))
				})).Return(len(tt.wantKinds), nil)
			}

			res, err := newTestService(r, new(MailerMock)).Schedule(context.Background(), tt.sub.ID.String())
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.Status)
			if tt.wantStatus == StatusScheduled {
				assert.Equal(t, tt.wantKinds, res.Scheduled)
			} else {
				assert.Empty(t, res.Scheduled)
				r.AssertNotCalled(t, "CreateReminders", mock.Anything, mock.Anything)
			}
			r.AssertExpectations(t)
		})
	}
}

func TestSchedule_Errors(t *testing.T) {
	t.Run("malformed id", func(t *testing.T) {
		_, err := newTestService(new(RepoMock), new(MailerMock)).Schedule(context.Background(), "abc")
		var verr *apperr.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.True(t, verr.Has("subscriptionId"))
	})

	t.Run("unknown subscription", func(t *testing.T) {
		r := new(RepoMock)
		id := uuid.New()
		r.On("GetSubscription", mock.Anything, id).Return(models.Subscription{}, apperr.ErrNotFound)

		_, err := newTestService(r, new(MailerMock)).Schedule(context.Background(), id.String())
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestZeroTimeoutDoesNotExpireContext(t *testing.T) {
	alive := mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil })
	sub := activeSubscription(fixedNow.AddDate(0, 0, 10))

	r := new(RepoMock)
	r.On("GetSubscription", alive, sub.ID).Return(sub, nil)
	r.On("CreateReminders", alive, mock.Anything).Return(4, nil)
	r.On("ListDueReminders", alive, fixedNow, 100).Return([]models.DueReminder{}, nil)

	s := NewReminderService(r, new(MailerMock), sl.Discard(), 0)
	s.now = func() time.Time { return fixedNow }

	res, err := s.Schedule(context.Background(), sub.ID.String())
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, res.Status)

	sent, err := s.DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	r.AssertExpectations(t)
}

func TestDispatchDue(t *testing.T) {
	active := activeSubscription(fixedNow.AddDate(0, 0, 7))
	cancelled := activeSubscription(fixedNow.AddDate(0, 0, 2))
	cancelled.Status = "cancelled"
	failing := activeSubscription(fixedNow.AddDate(0, 0, 1))

	due := []models.DueReminder{
		{Reminder: models.Reminder{ID: uuid.New(), SubscriptionID: active.ID, Kind: "7_days_before"}, Subscription: active, UserEmail: "a@example.com", UserName: "A"},
		{Reminder: models.Reminder{ID: uuid.New(), SubscriptionID: cancelled.ID, Kind: "2_days_before"}, Subscription: cancelled, UserEmail: "b@example.com"},
		{Reminder: models.Reminder{ID: uuid.New(), SubscriptionID: failing.ID, Kind: "1_days_before"}, Subscription: failing, UserEmail: "c@example.com"},
	}

	r, m := new(RepoMock), new(MailerMock)
	r.On("ListDueReminders", mock.Anything, fixedNow, 100).Return(due, nil)
	for _, d := range due {
		r.On("MarkReminderSent", mock.Anything, d.ID, fixedNow).Return(nil).Once()
	}
	m.On("SendReminder", mock.Anything, mock.MatchedBy(func(rem mailer.Reminder) bool {
		return rem.To == "a@example.com" && rem.DaysLeft == 7 && rem.UserName == "A"
	})).Return("email_1", nil).Once()
	m.On("SendReminder", mock.Anything, mock.MatchedBy(func(rem mailer.Reminder) bool {
		return rem.To == "c@example.com" && rem.DaysLeft == 1
	})).Return("", errors.New("resend unavailable")).Once()

	sent, err := newTestService(r, m).DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	r.AssertExpectations(t)
	m.AssertExpectations(t)
	m.AssertNumberOfCalls(t, "SendReminder", 2)
}

func TestDispatchDue_StorageFailure(t *testing.T) {
	r := new(RepoMock)
	r.On("ListDueReminders", mock.Anything, fixedNow, 100).Return(nil, errors.New("connection refused"))

	_, err := newTestService(r, new(MailerMock)).DispatchDue(context.Background())
	var perr *apperr.PersistenceError
	require.ErrorAs(t, err, &perr)
}
