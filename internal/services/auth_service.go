package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/localnerve/authorizer-go"
	"github.com/localnerve/booksdb/internal/config"
	"github.com/localnerve/booksdb/internal/logging"
	"github.com/localnerve/booksdb/internal/utils"
)

// Identity is the verified caller
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// IdentityVerifier turns a caller credential into an identity
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
}

// NewVerifier builds the verifier for the configured auth mode, nil for none
func NewVerifier(cfg *config.Config) (IdentityVerifier, error) {
	switch cfg.AuthMode {
	case config.AuthModeAuthorizer:
		return NewAuthorizerVerifier(cfg), nil
	case config.AuthModeJWT:
		return NewJWTVerifier(cfg.JWTSecret), nil
	case config.AuthModeNone:
		return nil, nil
	}
	return nil, fmt.Errorf("unsupported auth mode: %s", cfg.AuthMode)
}

// AuthorizerVerifier validates authorizer session cookies for the user role
type AuthorizerVerifier struct {
	url         string
	clientID    string
	redirectURL string

	once    sync.Once
	client  *authorizer.AuthorizerClient
	initErr error
}

// NewAuthorizerVerifier defers connecting until the first verification
func NewAuthorizerVerifier(cfg *config.Config) *AuthorizerVerifier {
	return &AuthorizerVerifier{
		url:         cfg.AuthzURL,
		clientID:    cfg.AuthzClientID,
		redirectURL: cfg.AuthzRedirectURL,
	}
}

// IsInitialized reports whether the authorizer client has been created
func (v *AuthorizerVerifier) IsInitialized() bool {
	return v.client != nil
}

func (v *AuthorizerVerifier) init() error {
	v.once.Do(func() {
		if err := utils.PingAuthorizer(context.Background(), v.url); err != nil {
			v.initErr = fmt.Errorf("authorizer ping failed: %w", err)
			return
		}

		logging.Info().
			Str("authorizer_url", v.url).
			Str("client_id", v.clientID).
			Str("redirect_url", v.redirectURL).
			Msg("Initializing Authorizer")

		client, err := authorizer.NewAuthorizerClient(v.clientID, v.url, v.redirectURL, nil)
		if err != nil {
			v.initErr = fmt.Errorf("failed to create authorizer client: %w", err)
			return
		}
		v.client = client
	})
	return v.initErr
}

func (v *AuthorizerVerifier) Verify(_ context.Context, cookie string) (*Identity, error) {
	if err := v.init(); err != nil {
		return nil, err
	}

	role := "user"
	res, err := v.client.ValidateSession(&authorizer.ValidateSessionInput{
		Cookie: cookie,
		Roles:  []*string{&role},
	})
	if err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}
	if res == nil || !res.IsValid {
		return nil, errors.New("session is not valid")
	}

	// the SDK user type varies between releases; only id and email are needed
	raw, err := json.Marshal(res.User)
	if err != nil {
		return nil, fmt.Errorf("invalid user data: %w", err)
	}
	var id Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, fmt.Errorf("invalid user data: %w", err)
	}
	if id.Email == "" {
		return nil, errors.New("session user has no email")
	}
	return &id, nil
}

// JWTVerifier validates HS256 tokens carrying an email claim
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	email, _ := claims["email"].(string)
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, errors.New("token has no email claim")
	}
	sub, _ := claims.GetSubject()
	return &Identity{ID: sub, Email: email}, nil
}
