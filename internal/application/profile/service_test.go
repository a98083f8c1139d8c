package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type directoryClientMock struct {
	mock.Mock
}

func (m *directoryClientMock) GetUser(ctx context.Context, uid string) (*domain.Account, error) {
	args := m.Called(ctx, uid)
	if acct := args.Get(0); acct != nil {
		return acct.(*domain.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *directoryClientMock) UpdateUser(ctx context.Context, uid string, req domain.UpdateAccountRequest) (*domain.Account, error) {
	args := m.Called(ctx, uid, req)
	if acct := args.Get(0); acct != nil {
		return acct.(*domain.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *directoryClientMock) LoginHistory(ctx context.Context, uid string, limit int) ([]domain.LoginRecord, error) {
	args := m.Called(ctx, uid, limit)
	if recs := args.Get(0); recs != nil {
		return recs.([]domain.LoginRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *directoryClientMock) Unregister(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}

type sessionSourceMock struct {
	mock.Mock
}

func (m *sessionSourceMock) Current() *domain.Session {
	if s := m.Called().Get(0); s != nil {
		return s.(*domain.Session)
	}
	return nil
}

func (m *sessionSourceMock) SignOut(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func signedIn() *sessionSourceMock {
	sessions := &sessionSourceMock{}
	sessions.On("Current").Return(&domain.Session{UID: "uid-1", PhoneNumber: "+919876543210"})
	return sessions
}

func TestGet_ReturnsAccount(t *testing.T) {
	dir := &directoryClientMock{}
	dir.On("GetUser", mock.Anything, "uid-1").Return(&domain.Account{UID: "uid-1", Name: "Asha"}, nil).Once()
	svc := NewService(dir, signedIn())

	acct, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Asha", acct.Name)
	dir.AssertExpectations(t)
}

func TestGet_NotSignedIn(t *testing.T) {
	sessions := &sessionSourceMock{}
	sessions.On("Current").Return(nil)
	dir := &directoryClientMock{}
	svc := NewService(dir, sessions)

	_, err := svc.Get(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	dir.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
}

func TestUpdate_ValidRequest(t *testing.T) {
	name := "Asha P."
	req := domain.UpdateAccountRequest{Name: &name}
	dir := &directoryClientMock{}
	dir.On("UpdateUser", mock.Anything, "uid-1", req).Return(&domain.Account{UID: "uid-1", Name: name}, nil).Once()
	svc := NewService(dir, signedIn())

	acct, err := svc.Update(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Asha P.", acct.Name)
}

func TestUpdate_InvalidEmail(t *testing.T) {
	email := "not-an-email"
	dir := &directoryClientMock{}
	svc := NewService(dir, signedIn())

	_, err := svc.Update(context.Background(), domain.UpdateAccountRequest{Email: &email})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	dir.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestHistory_PassesLimit(t *testing.T) {
	dir := &directoryClientMock{}
	dir.On("LoginHistory", mock.Anything, "uid-1", 25).Return([]domain.LoginRecord{{UID: "uid-1"}}, nil).Once()
	svc := NewService(dir, signedIn())

	recs, err := svc.History(context.Background(), 25)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	dir.AssertExpectations(t)
}

func TestUnregister_RemovesRecordThenSignsOut(t *testing.T) {
	dir := &directoryClientMock{}
	dir.On("Unregister", mock.Anything, "uid-1").Return(nil).Once()
	sessions := signedIn()
	sessions.On("SignOut", mock.Anything).Return(nil).Once()
	svc := NewService(dir, sessions)

	require.NoError(t, svc.Unregister(context.Background()))
	dir.AssertExpectations(t)
	sessions.AssertExpectations(t)
}

func TestUnregister_DirectoryFailureKeepsSession(t *testing.T) {
	dir := &directoryClientMock{}
	dir.On("Unregister", mock.Anything, "uid-1").Return(errors.New("backend down")).Once()
	sessions := signedIn()
	svc := NewService(dir, sessions)

	err := svc.Unregister(context.Background())
	require.Error(t, err)
	sessions.AssertNotCalled(t, "SignOut", mock.Anything)
}

func TestUnregister_SignOutFailureIsNonFatal(t *testing.T) {
	dir := &directoryClientMock{}
	dir.On("Unregister", mock.Anything, "uid-1").Return(nil).Once()
	sessions := signedIn()
	sessions.On("SignOut", mock.Anything).Return(errors.New("listener panic")).Once()
	svc := NewService(dir, sessions)

	assert.NoError(t, svc.Unregister(context.Background()))
}
