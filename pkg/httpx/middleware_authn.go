package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/quillworks/quill/pkg/slogx"
)

// TokenValidator validates a raw bearer token and returns its subject.
type TokenValidator interface {
	Validate(raw string) (subject string, err error)
}

// TokenMinter mints a fresh signed token for a subject.
type TokenMinter interface {
	Issue(subject string, now time.Time) (string, error)
}

// AuthnMiddleware is the authentication gate for protected routes. Public
// routes simply never carry it; registration happens per-route so the
// allow-list is an exact method+path match, never a substring test.
//
// A request either authenticates and proceeds with the principal in its
// context, or is rejected here and never reaches the downstream handler.
func AuthnMiddleware(v TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			subject, err := v.Validate(raw)
			if err != nil {
				// The reason stays in the logs; callers get one failure class.
				log.Warn("token validation failed", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(ctx, subject)))
		})
	}
}

// ReissueMiddleware refreshes the bearer token on the response path: when
// the request carries an authenticated principal, a freshly minted token is
// attached to the response Authorization header before the first byte is
// written. Sliding-session style; deployments opt in via configuration.
func ReissueMiddleware(m TokenMinter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(&reissueWriter{
				ResponseWriter: w,
				minter:         m,
				principal:      principal,
			}, r)
		})
	}
}

type reissueWriter struct {
	http.ResponseWriter

	minter    TokenMinter
	principal string
	done      bool
}

func (w *reissueWriter) WriteHeader(code int) {
	w.attach()
	w.ResponseWriter.WriteHeader(code)
}

func (w *reissueWriter) Write(b []byte) (int, error) {
	w.attach()
	return w.ResponseWriter.Write(b)
}

// attach sets the header at most once, and only while headers are mutable.
func (w *reissueWriter) attach() {
	if w.done {
		return
	}
	w.done = true

	token, err := w.minter.Issue(w.principal, time.Now())
	if err != nil {
		return
	}
	w.Header().Set("Authorization", "Bearer "+token)
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "invalid_token", desc)
}
