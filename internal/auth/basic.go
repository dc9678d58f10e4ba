package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"spellbreak/config"
	"spellbreak/internal/api"

	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"
)

// Basic is an HTTP Basic-Auth gate over a single configured credential pair.
type Basic struct {
	username [sha256.Size]byte
	password [sha256.Size]byte
	realm    string
}

func NewBasic(cfg *config.AuthConfig) *Basic {
	return &Basic{
		username: sha256.Sum256([]byte(cfg.Username)),
		password: sha256.Sum256([]byte(cfg.Password)),
		realm:    cfg.Realm,
	}
}

// Check reports whether r carries the configured credentials. Both values
// are hashed first so the comparison time does not depend on their length.
func (b *Basic) Check(r *http.Request) bool {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	u := sha256.Sum256([]byte(user))
	p := sha256.Sum256([]byte(pass))
	userOK := subtle.ConstantTimeCompare(u[:], b.username[:])
	passOK := subtle.ConstantTimeCompare(p[:], b.password[:])
	return userOK&passOK == 1
}

func (b *Basic) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !b.Check(r) {
			log.WithFields(log.Fields{
				"path":   r.URL.Path,
				"remote": r.RemoteAddr,
			}).Warn("Rejected request without valid credentials")
			b.challenge(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Basic) challenge(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", b.realm))
	api.WriteError(w, r, api.NewError(http.StatusUnauthorized, "unauthorized",
		"Authentication required", "valid credentials are required to access this resource"))
}

// RateLimit allows perMinute requests per client IP.
func RateLimit(perMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			api.WriteError(w, r, api.NewError(http.StatusTooManyRequests, "rate_limited",
				"Too many requests", "rate limit exceeded, try again later"))
		}),
	)
}
