package websocket

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/google/uuid"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
)

// ErrInvalidToken is returned when JWT validation fails
var ErrInvalidToken = errors.New("invalid token")

// ErrSubscriberNotFound is returned when the token subject has no user
var ErrSubscriberNotFound = errors.New("user not found")

// ErrSubscriberInactive is returned for deactivated users
var ErrSubscriberInactive = errors.New("user is inactive")

// Subscriber identifies who is listening on a connection
type Subscriber struct {
	UserID uuid.UUID
	Admin  bool
}

// UserLookup resolves an identity-provider subject to a user
type UserLookup interface {
	GetByAuthSubject(ctx context.Context, subject string) (*domain.User, error)
}

// CustomClaims contains the custom claims from Auth0 JWT
type CustomClaims struct{}

// Validate implements validator.CustomClaims
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// Auth0JWTValidator validates Auth0 JWT tokens for WebSocket connections
type Auth0JWTValidator struct {
	validator  *validator.Validator
	userLookup UserLookup
}

// NewAuth0JWTValidator creates a new Auth0JWTValidator
func NewAuth0JWTValidator(domain, audience string, userLookup UserLookup) (*Auth0JWTValidator, error) {
	issuerURL, err := url.Parse("https://" + domain + "/")
	if err != nil {
		return nil, err
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, err
	}

	return &Auth0JWTValidator{
		validator:  jwtValidator,
		userLookup: userLookup,
	}, nil
}

// ValidateToken validates a JWT token and returns who it belongs to
func (v *Auth0JWTValidator) ValidateToken(ctx context.Context, token string) (Subscriber, error) {
	claims, err := v.validator.ValidateToken(ctx, token)
	if err != nil {
		return Subscriber{}, ErrInvalidToken
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return Subscriber{}, ErrInvalidToken
	}

	return ResolveSubscriber(ctx, v.userLookup, validatedClaims.RegisteredClaims.Subject)
}

// ResolveSubscriber maps a token subject to an active user
func ResolveSubscriber(ctx context.Context, lookup UserLookup, subject string) (Subscriber, error) {
	user, err := lookup.GetByAuthSubject(ctx, subject)
	if err != nil {
		return Subscriber{}, ErrSubscriberNotFound
	}
	if !user.Active {
		return Subscriber{}, ErrSubscriberInactive
	}
	return Subscriber{UserID: user.ID, Admin: user.IsAdmin()}, nil
}
