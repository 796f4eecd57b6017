package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/openlearnco/classgate/internal/gateway/service"
	"github.com/openlearnco/classgate/internal/gateway/store"
	"github.com/openlearnco/classgate/pkg/httpx"
	"github.com/openlearnco/classgate/pkg/slogx"

	_ "github.com/openlearnco/classgate/api/gateway" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store            store.Store
	HandshakeService *service.HandshakeService
	DispatchService  *service.DispatchService

	// LoginRedirectPath is where a confirmed login sends the browser.
	// Empty means "/".
	LoginRedirectPath string
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerProxy()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			ClassGate Session Gateway API
//	@version		0.1.0
//	@description	Browser-facing session and token lifecycle gateway. Holds OAuth
//	@description	tokens server-side against an HTTP-only session cookie and proxies
//	@description	named business actions to the resource server, refreshing access
//	@description	tokens proactively and reactively as needed.
//
//	@contact.name	OpenLearn Team
//	@contact.url	https://github.com/openlearnco/classgate
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	statusHandler := &StatusHandler{HandshakeService: r.HandshakeService}
	initHandler := &InitHandler{HandshakeService: r.HandshakeService}
	confirmHandler := &ConfirmHandler{
		HandshakeService: r.HandshakeService,
		RedirectPath:     r.LoginRedirectPath,
	}
	logoutHandler := &LogoutHandler{HandshakeService: r.HandshakeService}

	// GET /status - polled by the UI while a login is pending, lenient limit
	r.Mux.Handle("GET /api/auth/status",
		httpx.Chain(statusHandler,
			httpx.RateLimitBySession(httpx.LenientLimit, SessionCookieName),
		),
	)

	// GET /init - starts a login handshake; strict by IP to stop session
	// minting floods (each call creates a store record)
	r.Mux.Handle("GET /api/auth/init",
		httpx.Chain(initHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// GET /confirm - identity provider redirect target, moderate by IP
	r.Mux.Handle("GET /api/auth/confirm",
		httpx.Chain(confirmHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /logout - moderate by session
	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(logoutHandler,
			httpx.RateLimitBySession(httpx.ModerateLimit, SessionCookieName),
		),
	)
}

func (r *Router) registerProxy() {
	h := &ProxyHandler{DispatchService: r.DispatchService}

	// Every business operation flows through this one route, so it gets
	// the lenient profile keyed by session.
	limited := httpx.Chain(h,
		httpx.RateLimitBySession(httpx.LenientLimit, SessionCookieName),
	)

	r.Mux.Handle("GET /api/proxy/{action}", limited)
	r.Mux.Handle("POST /api/proxy/{action}", limited)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
