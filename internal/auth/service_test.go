package auth

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureMailer struct {
	email string
	link  string
}

func (m *captureMailer) SendLink(_ context.Context, email, link string) error {
	m.email = email
	m.link = link
	return nil
}

func newTestService(mailer Mailer) *Service {
	return NewService([]byte("test-secret"), "kakeibo-test", "http://localhost:8080", 15*time.Minute, 24*time.Hour, mailer)
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	token := u.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}

func TestRequestLinkAndRedeem(t *testing.T) {
	mailer := &captureMailer{}
	svc := newTestService(mailer)
	ctx := context.Background()

	require.NoError(t, svc.RequestLink(ctx, "  User@Example.COM "))
	assert.Equal(t, "user@example.com", mailer.email)
	assert.True(t, strings.HasPrefix(mailer.link, "http://localhost:8080/auth/redeem?token="))

	session, ownerID, err := svc.Redeem(ctx, tokenFromLink(t, mailer.link))
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", ownerID)

	verified, err := svc.Verify(session)
	require.NoError(t, err)
	assert.Equal(t, ownerID, verified)
}

func TestRequestLinkRejectsBadEmail(t *testing.T) {
	svc := newTestService(&captureMailer{})
	assert.ErrorIs(t, svc.RequestLink(context.Background(), "not-an-email"), ErrInvalidEmail)
	assert.ErrorIs(t, svc.RequestLink(context.Background(), "   "), ErrInvalidEmail)
}

func TestVerifyRejectsLinkToken(t *testing.T) {
	mailer := &captureMailer{}
	svc := newTestService(mailer)
	require.NoError(t, svc.RequestLink(context.Background(), "user@example.com"))

	// A link token is not a session token.
	_, err := svc.Verify(tokenFromLink(t, mailer.link))
	assert.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestRedeemRejectsSessionToken(t *testing.T) {
	mailer := &captureMailer{}
	svc := newTestService(mailer)
	ctx := context.Background()
	require.NoError(t, svc.RequestLink(ctx, "user@example.com"))
	session, _, err := svc.Redeem(ctx, tokenFromLink(t, mailer.link))
	require.NoError(t, err)

	_, _, err = svc.Redeem(ctx, session)
	assert.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	mailer := &captureMailer{}
	svc := newTestService(mailer)
	other := NewService([]byte("other-secret"), "kakeibo-test", "http://localhost:8080", 15*time.Minute, 24*time.Hour, mailer)

	require.NoError(t, other.RequestLink(context.Background(), "user@example.com"))
	_, err := svc.Verify(tokenFromLink(t, mailer.link))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredLinkToken(t *testing.T) {
	mailer := &captureMailer{}
	svc := NewService([]byte("test-secret"), "kakeibo-test", "http://localhost:8080", -time.Minute, 24*time.Hour, mailer)

	require.NoError(t, svc.RequestLink(context.Background(), "user@example.com"))
	_, _, err := svc.Redeem(context.Background(), tokenFromLink(t, mailer.link))
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestOwnerID(t *testing.T) {
	assert.Equal(t, "a@b.jp", OwnerID("  A@B.JP  "))
}
