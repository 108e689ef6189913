package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Feuerhamster/memoria/internal/store"
)

// ErrInvalidCredentials covers unknown users, expired tokens, and wrong
// passwords alike so responses never leak which part failed.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Service validates Basic Auth app tokens for DAV clients.
type Service struct {
	store *store.Store
	log   *logrus.Entry
}

func NewService(st *store.Store) *Service {
	return &Service{
		store: st,
		log:   logrus.WithField("component", "auth"),
	}
}

// ValidateAppToken resolves username and checks the supplied password against
// the user's unexpired, unrevoked app tokens.
func (s *Service) ValidateAppToken(ctx context.Context, username, password string) (*store.User, error) {
	user, err := s.store.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	tokens, err := s.store.AppTokens.FindValidByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	for _, t := range tokens {
		if bcrypt.CompareHashAndPassword([]byte(t.TokenHash), []byte(password)) == nil {
			return user, nil
		}
	}
	return nil, ErrInvalidCredentials
}

// DAVAuth authenticates DAV requests via Basic Auth app tokens. Requests
// without credentials pass through anonymously so publicly readable
// resources stay reachable; the access checker decides per resource.
// Requests with wrong credentials are rejected outright.
func (s *Service) DAVAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.ValidateAppToken(r.Context(), username, password)
		if err != nil {
			if !errors.Is(err, ErrInvalidCredentials) {
				s.log.WithError(err).Error("app token validation failed")
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			w.Header().Set("WWW-Authenticate", `Basic realm="Memoria DAV"`)
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}
