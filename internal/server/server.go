package server

import (
	"context"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"dfi/internal/auth"
	"dfi/internal/market"
	"dfi/internal/verifier"
	"dfi/internal/wallet"
	"dfi/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/sirupsen/logrus"
)

//go:embed templates static
var uiFS embed.FS
var decoder = form.NewDecoder()

// AccountStore is the slice of the user repository the handlers need.
type AccountStore interface {
	User(ctx context.Context, userID string) (*types.User, error)
	UpsertIdentity(ctx context.Context, userID, email, givenName, familyName string) error
	UpdateVerification(ctx context.Context, userID string, outcome types.VerificationOutcome) error
	UpdateWalletAddress(ctx context.Context, userID, address string) error
}

type Service struct {
	logger    *logrus.Logger
	config    *types.Config
	userRepo  AccountStore
	templates *template.Template

	authClient auth.Client
	runner     verifier.Runner
	wallet     wallet.Client
	market     *market.Client

	cookie *securecookie.SecureCookie

	jwksCache *jwk.Cache
	jwksURL   string

	// verifyToken resolves an access token to (userID, email). It is a
	// field so tests can authenticate without a live JWKS endpoint.
	verifyToken func(ctx context.Context, accessToken string) (string, string, error)

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	authClient auth.Client,
	userRepo AccountStore,
	runner verifier.Runner,
	walletClient wallet.Client,
	marketClient *market.Client,
	jwkCache *jwk.Cache,
	jwksURL string,
) (*Service, error) {
	mux := flow.New()

	hashKey, _ := base64.StdEncoding.DecodeString(config.CookieHashKey)
	blockKey, _ := base64.StdEncoding.DecodeString(config.CookieBlockKey)

	s := &Service{
		logger:     logger,
		config:     config,
		authClient: authClient,
		cookie:     securecookie.New(hashKey, blockKey),

		userRepo: userRepo,
		runner:   runner,
		wallet:   walletClient,
		market:   marketClient,

		jwksCache: jwkCache,
		jwksURL:   jwksURL,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			// The verification endpoint streams for as long as the
			// verifier runs and lifts this deadline per request.
			WriteTimeout:   time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
	}
	s.verifyToken = s.verifyJWT

	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	s.templates = templates

	s.buildRouter(mux)

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/", s.handleHome, http.MethodGet)

	r.HandleFunc("/register", s.handleGetRegister, http.MethodGet)
	r.HandleFunc("/register", s.handlePostRegister, http.MethodPost)
	r.HandleFunc("/register/confirm", s.handleGetRegisterConfirm, http.MethodGet)
	r.HandleFunc("/register/confirm", s.handlePostRegisterConfirm, http.MethodPost)
	r.HandleFunc("/login", s.handleGetLogin, http.MethodGet)
	r.HandleFunc("/login", s.handlePostLogin, http.MethodPost)
	r.HandleFunc("/logout", s.handlePostLogout, http.MethodPost)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/verify", s.handleGetVerify, http.MethodGet)
		r.HandleFunc("/profile", s.handleProfile, http.MethodGet)
		r.HandleFunc("/wallet", s.handleWallet, http.MethodGet)
		r.HandleFunc("/wallet/send", s.handlePostWalletSend, http.MethodPost)
		r.HandleFunc("/market", s.handleMarket, http.MethodGet)

		// The upload endpoint registers for all methods and rejects
		// non-POST itself so the client sees a JSON 405 instead of the
		// router's plain text one.
		r.HandleFunc("/api/verify", s.handleAPIVerify, http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete)
	})

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)

	staticRoot, err := fs.Sub(uiFS, "static")
	if err != nil {
		s.logger.WithError(err).Fatal("failed to mount static assets")
	}
	r.Handle("/static/...", http.StripPrefix("/static/", http.FileServer(http.FS(staticRoot))), http.MethodGet)
}

func loadTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"derefOr": func(s *string, defaultVal string) string {
			if s == nil {
				return defaultVal
			}
			return *s
		},
		"formatTime": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format("January 2, 2006")
		},
	}

	t := template.New("").Funcs(funcMap)
	err := fs.WalkDir(uiFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		data, err := fs.ReadFile(uiFS, path)
		if err != nil {
			return fmt.Errorf("read template %s: %w", path, err)
		}

		if _, err := t.Parse(string(data)); err != nil {
			return fmt.Errorf("parse template %s: %w", path, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

func (s *Service) userIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(contextKeyUserID).(string)
	if !ok {
		return "", fmt.Errorf("user id not found in context")
	}
	return userID, nil
}
