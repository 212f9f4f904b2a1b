// Package auth implements passwordless sign-in. The user requests a
// link by email, the link carries a short-lived token, and redeeming it
// yields a longer-lived session token. The owner ID is the normalized
// email address, so the same mailbox always maps to the same data.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeLink    = "link"
	tokenTypeSession = "session"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token is expired")
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrEmptyToken       = errors.New("empty token")
	ErrInvalidEmail     = errors.New("invalid email address")
)

// Claims carries the token type alongside the registered claims. The
// subject is the owner ID.
type Claims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
}

// Mailer delivers the sign-in link to the user.
type Mailer interface {
	SendLink(ctx context.Context, email, link string) error
}

// LogMailer writes the link to the log instead of sending mail. Used in
// development and as the default when no mail transport is configured.
type LogMailer struct{}

func (LogMailer) SendLink(ctx context.Context, email, link string) error {
	slog.InfoContext(ctx, "Sign-in link issued", "email", email, "link", link)
	return nil
}

// Service issues and verifies sign-in tokens.
type Service struct {
	secret     []byte
	issuer     string
	baseURL    string
	linkTTL    time.Duration
	sessionTTL time.Duration
	mailer     Mailer
}

func NewService(secret []byte, issuer, baseURL string, linkTTL, sessionTTL time.Duration, mailer Mailer) *Service {
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &Service{
		secret:     secret,
		issuer:     issuer,
		baseURL:    strings.TrimRight(baseURL, "/"),
		linkTTL:    linkTTL,
		sessionTTL: sessionTTL,
		mailer:     mailer,
	}
}

// OwnerID derives the stable owner identifier from an email address.
func OwnerID(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RequestLink mails a one-time sign-in link for the address.
func (s *Service) RequestLink(ctx context.Context, email string) error {
	email = OwnerID(email)
	if email == "" || !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}

	token, err := s.sign(email, tokenTypeLink, s.linkTTL)
	if err != nil {
		return fmt.Errorf("sign link token: %w", err)
	}

	link := fmt.Sprintf("%s/auth/redeem?token=%s", s.baseURL, url.QueryEscape(token))
	if err := s.mailer.SendLink(ctx, email, link); err != nil {
		return fmt.Errorf("send link: %w", err)
	}
	return nil
}

// Redeem exchanges a link token for a session token and the owner ID.
func (s *Service) Redeem(ctx context.Context, linkToken string) (sessionToken, ownerID string, err error) {
	claims, err := s.parse(linkToken, tokenTypeLink)
	if err != nil {
		return "", "", err
	}

	sessionToken, err = s.sign(claims.Subject, tokenTypeSession, s.sessionTTL)
	if err != nil {
		return "", "", fmt.Errorf("sign session token: %w", err)
	}

	slog.InfoContext(ctx, "Session started", "owner", claims.Subject)
	return sessionToken, claims.Subject, nil
}

// Verify checks a session token and returns the owner ID it belongs to.
func (s *Service) Verify(sessionToken string) (ownerID string, err error) {
	claims, err := s.parse(sessionToken, tokenTypeSession)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// SessionTTL is how long issued sessions stay valid, exposed for cookie
// expiry.
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

func (s *Service) sign(ownerID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   ownerID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
		},
		Email:     ownerID,
		TokenType: tokenType,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) parse(tokenString, expectedType string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrEmptyToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != expectedType {
		return nil, ErrInvalidTokenType
	}
	return claims, nil
}
