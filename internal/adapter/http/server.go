package adapthttp

import (
	"context"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"healthlog/internal/app"
	"healthlog/internal/domain"
)

// DefaultImportMaxBytes caps upload size when Options leaves it unset.
const DefaultImportMaxBytes = 10 << 20

// OIDCConfig holds the single sign-on provider. The zero value disables SSO.
type OIDCConfig struct {
	Enabled      bool
	Provider     *oidc.Provider
	OAuth2Config oauth2.Config
}

// NewOIDCConfig discovers the issuer and builds the OAuth2 client for it.
func NewOIDCConfig(ctx context.Context, issuer, clientID, clientSecret, redirectURL string) (OIDCConfig, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return OIDCConfig{}, err
	}
	return OIDCConfig{
		Enabled:  true,
		Provider: provider,
		OAuth2Config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}

// Services are the application services the server routes to.
type Services struct {
	Records   *app.RecordService
	Stats     *app.StatsService
	Assistant *app.AssistantService
	Auth      *app.AuthService
}

// Options tune the HTTP surface.
type Options struct {
	WebDir         string
	ForwardAuth    bool
	ImportMaxBytes int64
	Metrics        bool
	OIDC           OIDCConfig
	Logger         logrus.FieldLogger
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	records   *app.RecordService
	stats     *app.StatsService
	assistant *app.AssistantService
	authSvc   *app.AuthService

	log            logrus.FieldLogger
	webDir         string
	oidcConfig     OIDCConfig
	forwardAuth    bool
	importMaxBytes int64
	metrics        bool
	disableAuth    bool
}

// New creates a Server wired to the given application services.
func New(svc Services, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.ImportMaxBytes <= 0 {
		opts.ImportMaxBytes = DefaultImportMaxBytes
	}
	return &Server{
		records:        svc.Records,
		stats:          svc.Stats,
		assistant:      svc.Assistant,
		authSvc:        svc.Auth,
		log:            opts.Logger,
		webDir:         opts.WebDir,
		oidcConfig:     opts.OIDC,
		forwardAuth:    opts.ForwardAuth,
		importMaxBytes: opts.ImportMaxBytes,
		metrics:        opts.Metrics,
	}
}

// WithoutAuth disables authentication and runs every request as user 1.
// Tests only.
func (s *Server) WithoutAuth() *Server {
	s.disableAuth = true
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	api.HandleFunc("/auth/login", s.handleLogin)
	api.HandleFunc("/auth/logout", s.handleLogout)
	api.HandleFunc("/auth/setup", s.handleSetupUser)
	api.HandleFunc("/auth/config", s.handleConfig)
	api.HandleFunc("/auth/sso/login", s.handleSSOLogin)
	api.HandleFunc("/auth/sso/callback", s.handleSSOCallback)
	if s.metrics {
		api.Handle("/metrics", promhttp.Handler())
	}

	protected := http.NewServeMux()
	protected.HandleFunc("/auth/me", s.handleMe)

	protected.HandleFunc("/records", s.handleRecords)
	protected.HandleFunc("/records/{id}", s.handleRecord)
	protected.HandleFunc("/records/bulk-delete", s.handleBulkDelete)
	protected.HandleFunc("/records/import", s.handleImport)
	protected.HandleFunc("/records/export", s.handleExport)

	protected.HandleFunc("/stats/summary", s.handleStatsSummary)
	protected.HandleFunc("/stats/chart", s.handleStatsChart)

	protected.HandleFunc("/assistant", s.handleAssistant)

	api.Handle("/", s.authMiddleware(protected))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	root.Handle("/", spaFromDisk(s.webDir))

	return withNoCache(s.loggingMiddleware(root))
}

func userFromContext(ctx context.Context) *domain.User {
	u, _ := ctx.Value(userContextKey).(*domain.User)
	return u
}
