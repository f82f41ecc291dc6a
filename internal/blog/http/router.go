package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/quillworks/quill/internal/blog/service"
	"github.com/quillworks/quill/internal/blog/store"
	"github.com/quillworks/quill/pkg/httpx"
	"github.com/quillworks/quill/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     httpx.TokenValidator
	minter       httpx.TokenMinter
	reissue      bool
	tokenTTL     time.Duration
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store       store.Store
	UserService *service.UserService
	PostService *service.PostService
	TagService  *service.TagService
	FileService *service.FileService
}

func NewRouter(
	verifier httpx.TokenValidator,
	minter httpx.TokenMinter,
	reissue bool,
	tokenTTL time.Duration,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		minter:       minter,
		reissue:      reissue,
		tokenTTL:     tokenTTL,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

// ApplyRoutes registers the full HTTP surface. Paths are matched
// exactly; nothing outside the registered method/path pairs skips
// authentication.
func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerPosts()
	r.registerTags()
	r.registerFiles()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured wraps a protected handler with bearer validation, optional
// token reissue and a per-principal rate limit.
func (r *Router) secured(h http.Handler, limit httpx.RateLimitConfig) http.Handler {
	mws := []httpx.Middleware{
		httpx.AuthnMiddleware(r.verifier),
	}
	if r.reissue {
		mws = append(mws, httpx.ReissueMiddleware(r.minter))
	}
	mws = append(mws, httpx.RateLimitByPrincipal(limit))
	return httpx.Chain(h, mws...)
}

func (r *Router) registerAuth() {
	signup := &SignupHandler{UserService: r.UserService}
	login := &LoginHandler{UserService: r.UserService, TokenTTL: r.tokenTTL}

	// Both are credential endpoints, so they get the strict limit.
	r.Mux.Handle("POST /signup",
		httpx.Chain(signup, httpx.RateLimitByIP(httpx.StrictLimit)),
	)
	r.Mux.Handle("POST /login",
		httpx.Chain(login, httpx.RateLimitByIPAndBasicAuthUser(httpx.StrictLimit)),
	)
}

func (r *Router) registerPosts() {
	h := &PostsHandler{PostService: r.PostService}

	r.Mux.Handle("POST /api/blog",
		r.secured(http.HandlerFunc(h.HandleCreate), httpx.ModerateLimit))
	r.Mux.Handle("GET /api/blog/{id}",
		r.secured(http.HandlerFunc(h.HandleGet), httpx.LenientLimit))
	r.Mux.Handle("PUT /api/blog/{id}",
		r.secured(http.HandlerFunc(h.HandleUpdate), httpx.ModerateLimit))
	r.Mux.Handle("DELETE /api/blog/{id}",
		r.secured(http.HandlerFunc(h.HandleDelete), httpx.ModerateLimit))
	r.Mux.Handle("GET /api/blog/user/{username}",
		r.secured(http.HandlerFunc(h.HandleListByAuthor), httpx.LenientLimit))
	r.Mux.Handle("GET /api/blog/tag/{tagID}",
		r.secured(http.HandlerFunc(h.HandleListByTag), httpx.LenientLimit))
}

func (r *Router) registerTags() {
	h := &TagsHandler{TagService: r.TagService}

	r.Mux.Handle("POST /api/tag",
		r.secured(http.HandlerFunc(h.HandleCreate), httpx.ModerateLimit))
	r.Mux.Handle("GET /api/tag",
		r.secured(http.HandlerFunc(h.HandleList), httpx.LenientLimit))
	r.Mux.Handle("POST /api/blog/{id}/tag/{tagID}",
		r.secured(http.HandlerFunc(h.HandleAttach), httpx.ModerateLimit))
	r.Mux.Handle("DELETE /api/blog/{id}/tag/{tagID}",
		r.secured(http.HandlerFunc(h.HandleDetach), httpx.ModerateLimit))
}

func (r *Router) registerFiles() {
	h := &FilesHandler{FileService: r.FileService}

	r.Mux.Handle("POST /api/blog/{id}/file",
		r.secured(http.HandlerFunc(h.HandleUpload), httpx.ModerateLimit))
	r.Mux.Handle("GET /api/blog/{id}/file/{fileName}",
		r.secured(http.HandlerFunc(h.HandleDownload), httpx.LenientLimit))
	r.Mux.Handle("DELETE /api/blog/{id}/file/{fileName}",
		r.secured(http.HandlerFunc(h.HandleDelete), httpx.ModerateLimit))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit)),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit)),
	)
}
