package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/parleychat/parley-backend/internal/models"
	"github.com/parleychat/parley-backend/pkg/utils"
)

// Authenticator owns account creation and token issuance/verification. The
// rest of the server consumes only Verify(token) -> username; everything
// else stays behind this boundary.
//
// Tokens are HS256 JWTs. Each user gets a random secret at signup that is
// mixed into the signing key, so leaking the server secret alone is not
// enough to forge a token and rotating one user's secret invalidates only
// that user's tokens.
type Authenticator struct {
	accounts AccountStore
	secret   []byte
	tokenTTL time.Duration
}

func NewAuthenticator(accounts AccountStore, secret string, tokenTTL time.Duration) *Authenticator {
	return &Authenticator{
		accounts: accounts,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

// Signup validates the username, hashes the password and creates the
// account with a freshly minted per-user secret.
func (a *Authenticator) Signup(ctx context.Context, username, password string) (models.User, error) {
	username = utils.NormalizeUsername(username)
	if err := utils.ValidateUsername(username); err != nil {
		return models.User{}, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return models.User{}, err
	}

	return a.accounts.CreateUser(ctx, models.User{
		Username: username,
		Password: hash,
		Secret:   base64.RawURLEncoding.EncodeToString(secretBytes),
	})
}

// Login verifies the credentials and issues a signed token.
func (a *Authenticator) Login(ctx context.Context, username, password string) (models.User, string, error) {
	username = utils.NormalizeUsername(username)

	user, found, err := a.accounts.FindUser(ctx, username)
	if err != nil {
		return models.User{}, "", err
	}
	if !found {
		return models.User{}, "", ErrInvalidCredentials
	}

	ok, err := utils.VerifyPassword(password, user.Password)
	if err != nil || !ok {
		return models.User{}, "", ErrInvalidCredentials
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
	})

	signed, err := token.SignedString(a.signingKey(user))
	if err != nil {
		return models.User{}, "", err
	}
	return user, signed, nil
}

// Verify checks the token signature and expiry and returns the username it
// was issued for.
func (a *Authenticator) Verify(ctx context.Context, tokenString string) (string, error) {
	if strings.TrimSpace(tokenString) == "" {
		return "", ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		// The subject names the user whose secret is part of the key.
		// Claims are unverified at this point; the signature check below
		// is what makes the subject trustworthy.
		sub, err := t.Claims.GetSubject()
		if err != nil || sub == "" {
			return nil, ErrInvalidToken
		}
		user, found, err := a.accounts.FindUser(ctx, sub)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, ErrInvalidToken
		}
		return a.signingKey(user), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}

func (a *Authenticator) signingKey(user models.User) []byte {
	key := make([]byte, 0, len(a.secret)+len(user.Secret))
	key = append(key, a.secret...)
	key = append(key, user.Secret...)
	return key
}
