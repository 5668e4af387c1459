package services_test

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
	customjwt "github.com/magabrotheeeer/subscription-tracker/internal/lib/jwt"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/password"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	services "github.com/magabrotheeeer/subscription-tracker/internal/services/auth"
)

// Мок для UserRepository. CreateUser вызывает commit, как это делает хранилище,
// и возвращает его ошибку.
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) CreateUser(ctx context.Context, user models.User, commit func(models.User) error) (models.User, error) {
	args := m.Called(ctx, user)
	if err := args.Error(0); err != nil {
		return models.User{}, err
	}
	if err := commit(user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

type HasherMock struct {
	mock.Mock
}

func (m *HasherMock) Hash(pw string) (string, error) {
	args := m.Called(pw)
	return args.String(0), args.Error(1)
}

func (m *HasherMock) Compare(hash, pw string) error {
	return m.Called(hash, pw).Error(0)
}

type JwtMakerMock struct {
	mock.Mock
}

func (m *JwtMakerMock) GenerateToken(userID uuid.UUID) (string, error) {
	args := m.Called(userID)
	return args.String(0), args.Error(1)
}

func (m *JwtMakerMock) ParseToken(token string) (*customjwt.CustomClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customjwt.CustomClaims), args.Error(1)
}

func newService(r *UserRepoMock, h *HasherMock, j *JwtMakerMock) *services.AuthService {
	return services.NewAuthService(r, h, j, time.Second)
}

func TestAuthService_SignUp(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(r *UserRepoMock, h *HasherMock, j *JwtMakerMock)
		wantToken  string
		wantErr    error
	}{
		{
			name: "successful registration",
			setupMocks: func(r *UserRepoMock, h *HasherMock, j *JwtMakerMock) {
				r.On("FindUserByEmail", mock.Anything, "john@example.com").Return(nil, apperr.ErrNotFound)
				h.On("Hash", "secret1").Return("hashed", nil)
				r.On("CreateUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
					return u.Email == "john@example.com" && u.Name == "John" && u.PasswordHash == "hashed" && u.ID != uuid.Nil
				})).Return(nil)
				j.On("GenerateToken", mock.AnythingOfType("uuid.UUID")).Return("token123", nil)
			},
			wantToken: "token123",
		},
		{
			name: "duplicate email",
			setupMocks: func(r *UserRepoMock, _ *HasherMock, _ *JwtMakerMock) {
				r.On("FindUserByEmail", mock.Anything, "john@example.com").
					Return(&models.User{ID: uuid.New(), Email: "john@example.com"}, nil)
			},
			wantErr: apperr.ErrConflict,
		},
		{
			name: "concurrent duplicate insert",
			setupMocks: func(r *UserRepoMock, h *HasherMock, _ *JwtMakerMock) {
				r.On("FindUserByEmail", mock.Anything, "john@example.com").Return(nil, apperr.ErrNotFound)
				h.On("Hash", "secret1").Return("hashed", nil)
				r.On("CreateUser", mock.Anything, mock.Anything).Return(apperr.ErrConflict)
			},
			wantErr: apperr.ErrConflict,
		},
		{
			name: "token signing fails",
			setupMocks: func(r *UserRepoMock, h *HasherMock, j *JwtMakerMock) {
				r.On("FindUserByEmail", mock.Anything, "john@example.com").Return(nil, apperr.ErrNotFound)
				h.On("Hash", "secret1").Return("hashed", nil)
				r.On("CreateUser", mock.Anything, mock.Anything).Return(nil)
				j.On("GenerateToken", mock.Anything).Return("", errors.New("sign error"))
			},
		},
		{
			name: "storage unavailable",
			setupMocks: func(r *UserRepoMock, _ *HasherMock, _ *JwtMakerMock) {
				r.On("FindUserByEmail", mock.Anything, "john@example.com").Return(nil, errors.New("connection refused"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, h, j := new(UserRepoMock), new(HasherMock), new(JwtMakerMock)
			tt.setupMocks(r, h, j)

			token, user, err := newService(r, h, j).SignUp(context.Background(), " John ", " John@Example.com ", "secret1")

			switch {
			case tt.wantToken != "":
				require.NoError(t, err)
				assert.Equal(t, tt.wantToken, token)
				assert.Equal(t, "john@example.com", user.Email)
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, token)
			default:
				require.Error(t, err)
				assert.Empty(t, token)
			}

			r.AssertExpectations(t)
			h.AssertExpectations(t)
			j.AssertExpectations(t)
		})
	}
}

func TestAuthService_SignUp_DuplicateIssuesNoTokenAndNoInsert(t *testing.T) {
	r, h, j := new(UserRepoMock), new(HasherMock), new(JwtMakerMock)
	r.On("FindUserByEmail", mock.Anything, "taken@example.com").Return(&models.User{ID: uuid.New()}, nil)

	_, _, err := newService(r, h, j).SignUp(context.Background(), "Jane", "taken@example.com", "secret1")
	require.ErrorIs(t, err, apperr.ErrConflict)

	r.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	h.AssertNotCalled(t, "Hash", mock.Anything)
	j.AssertNotCalled(t, "GenerateToken", mock.Anything)
}

func TestAuthService_SignIn(t *testing.T) {
	userID := uuid.New()
	stored := &models.User{ID: userID, Email: "john@example.com", PasswordHash: "hashed"}

	tests := []struct {
		name       string
		setupMocks func(r *UserRepoMock, h *HasherMock, j *JwtMakerMock)
		wantToken  string
		wantErr    error
	}{
		{
			name: "successful login",
			setupMocks: func(r *UserRepoMock, h *HasherMock, j *JwtMakerMock) {
				r.On("FindUserByEmail", mock.Anything, "john@example.com").Return(stored, nil)
				h.On("Compare", "hashed", "secret1").Return(nil)
				j.On("GenerateToken", userID).Return("token123", nil)
			},
			wantToken: "token123",
		},
		{
			name: "unknown email",
			setupMocks: func(r *UserRepoMock, _ *HasherMock, _ *JwtMakerMock) {
				r.On("FindUserByEmail", mock.Anything, "john@example.com").Return(nil, apperr.ErrNotFound)
			},
			wantErr: apperr.ErrUnauthorized,
		},
		{
			name: "wrong password",
			setupMocks: func(r *UserRepoMock, h *HasherMock, _ *JwtMakerMock) {
				r.On("FindUserByEmail", mock.Anything, "john@example.com").Return(stored, nil)
				h.On("Compare", "hashed", "secret1").Return(password.ErrMismatch)
			},
			wantErr: apperr.ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, h, j := new(UserRepoMock), new(HasherMock), new(JwtMakerMock)
			tt.setupMocks(r, h, j)

			token, user, err := newService(r, h, j).SignIn(context.Background(), "John@example.com", "secret1")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, token)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, token)
			assert.Equal(t, userID, user.ID)
			r.AssertExpectations(t)
			h.AssertExpectations(t)
			j.AssertExpectations(t)
		})
	}
}

func TestAuthService_ZeroTimeoutDoesNotExpireContext(t *testing.T) {
	userID := uuid.New()
	stored := &models.User{ID: userID, Email: "john@example.com", PasswordHash: "hashed"}
	alive := mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil })

	r, h, j := new(UserRepoMock), new(HasherMock), new(JwtMakerMock)
	r.On("FindUserByEmail", alive, "john@example.com").Return(stored, nil)
	h.On("Compare", "hashed", "secret1").Return(nil)
	j.On("GenerateToken", userID).Return("token123", nil)

	token, _, err := services.NewAuthService(r, h, j, 0).SignIn(context.Background(), "john@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "token123", token)
	r.AssertExpectations(t)
}

func TestAuthService_Authenticate(t *testing.T) {
	userID := uuid.New()

	t.Run("valid token", func(t *testing.T) {
		j := new(JwtMakerMock)
		j.On("ParseToken", "good").Return(&customjwt.CustomClaims{UserID: userID.String()}, nil)

		got, err := newService(new(UserRepoMock), new(HasherMock), j).Authenticate("good")
		require.NoError(t, err)
		assert.Equal(t, userID, got)
	})

	t.Run("invalid token", func(t *testing.T) {
		j := new(JwtMakerMock)
		j.On("ParseToken", "bad").Return(nil, errors.New("signature is invalid"))

		_, err := newService(new(UserRepoMock), new(HasherMock), j).Authenticate("bad")
		require.ErrorIs(t, err, apperr.ErrUnauthorized)
	})
}

func TestAuthService_WithRealCollaborators(t *testing.T) {
	hasher := password.NewHasher(4)
	maker := customjwt.NewJWTMaker("secret", time.Hour)
	hashed, err := hasher.Hash("secret1")
	require.NoError(t, err)

	userID := uuid.New()
	r := new(UserRepoMock)
	r.On("FindUserByEmail", mock.Anything, "john@example.com").
		Return(&models.User{ID: userID, Email: "john@example.com", PasswordHash: hashed}, nil)

	svc := services.NewAuthService(r, hasher, maker, time.Second)
	token, _, err := svc.SignIn(context.Background(), "john@example.com", "secret1")
	require.NoError(t, err)

	got, err := svc.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}
