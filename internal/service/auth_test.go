package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/carenest/carenest/internal/domain"
)

type fakeUserStore struct {
	users map[int64]*domain.User
}

func (s *fakeUserStore) FindByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *fakeUserStore) Upsert(_ context.Context, user domain.User) (*domain.User, error) {
	user.ID = 1
	return &user, nil
}

func newTestAuthService() *AuthService {
	return NewAuthService(&fakeUserStore{users: map[int64]*domain.User{}}, AuthConfig{
		JWTSecret:   "test-secret",
		FrontendURL: "http://localhost:5173",
	})
}

func TestTokenRoundTrip(t *testing.T) {
	assert := assert.New(t)
	s := newTestAuthService()

	pair, err := s.generateTokenPair(42, domain.RoleVolunteer)
	assert.NoError(err)

	identity, err := s.ValidateToken(pair.AccessToken)
	assert.NoError(err)
	assert.Equal(int64(42), identity.UserID)
	assert.Equal(domain.RoleVolunteer, identity.Role)
}

func TestValidateTokenRejectsRefreshToken(t *testing.T) {
	assert := assert.New(t)
	s := newTestAuthService()

	pair, err := s.generateTokenPair(42, domain.RoleMember)
	assert.NoError(err)

	_, err = s.ValidateToken(pair.RefreshToken)
	assert.Error(err, "a refresh token must not pass as an access token")
}

func TestRefreshAccessTokenPreservesRole(t *testing.T) {
	assert := assert.New(t)
	s := newTestAuthService()

	pair, err := s.generateTokenPair(7, domain.RoleAdmin)
	assert.NoError(err)

	fresh, err := s.RefreshAccessToken(pair.RefreshToken)
	assert.NoError(err)

	identity, err := s.ValidateToken(fresh.AccessToken)
	assert.NoError(err)
	assert.Equal(domain.RoleAdmin, identity.Role)
}

func TestValidateTokenRejectsUnknownRole(t *testing.T) {
	assert := assert.New(t)
	s := newTestAuthService()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  float64(1),
		"role": "superuser",
		"type": "access",
		"exp":  time.Now().Add(time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	assert.NoError(err)

	_, err = s.ValidateToken(signed)
	assert.ErrorIs(err, domain.ErrUnauthorized)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	assert := assert.New(t)
	s := newTestAuthService()

	other := NewAuthService(&fakeUserStore{}, AuthConfig{JWTSecret: "other-secret"})
	pair, err := other.generateTokenPair(1, domain.RoleMember)
	assert.NoError(err)

	_, err = s.ValidateToken(pair.AccessToken)
	assert.Error(err)
}
