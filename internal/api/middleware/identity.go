package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/api/shared"
)

// Identity reads the caller identity from an HS256 bearer token issued by the
// external auth service. It never issues tokens.
type Identity struct {
	secret []byte
	now    func() time.Time
}

// IdentityOption configures an Identity.
type IdentityOption func(*Identity)

// WithTimeFunc overrides the clock used to check token expiry.
func WithTimeFunc(now func() time.Time) IdentityOption {
	return func(i *Identity) {
		i.now = now
	}
}

// NewIdentity returns an Identity that verifies tokens signed with secret.
func NewIdentity(secret string, opts ...IdentityOption) *Identity {
	if secret == "" {
		panic("jwt secret cannot be empty")
	}
	i := &Identity{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Authenticate rejects requests without a valid bearer token and stores the
// token subject, parsed as a UUID, in the request context.
func (i *Identity) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || scheme != "Bearer" || token == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		userID, err := i.subject(token)
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token expired"
			}
			shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, msg, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(shared.WithUserID(r.Context(), userID)))
	})
}

func (i *Identity) subject(token string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return uuid.Nil, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, err
	}
	if userID == uuid.Nil {
		return uuid.Nil, errors.New("token subject is the nil UUID")
	}
	return userID, nil
}
