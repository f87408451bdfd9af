package serve

import (
	"context"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stellar/go-stellar-sdk/clients/horizonclient"
	supporthttp "github.com/stellar/go-stellar-sdk/support/http"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/stellar/stellar-anchor-backend/internal/anchor"
	"github.com/stellar/stellar-anchor-backend/internal/monitor"
	"github.com/stellar/stellar-anchor-backend/internal/sepauth"
	"github.com/stellar/stellar-anchor-backend/internal/serve/httpclient"
	"github.com/stellar/stellar-anchor-backend/internal/serve/httphandler"
	"github.com/stellar/stellar-anchor-backend/internal/serve/middleware"
	"github.com/stellar/stellar-anchor-backend/internal/store"
)

const ServiceID = "anchor-serve"

type HTTPServerInterface interface {
	Run(conf supporthttp.Config)
}

type HTTPServer struct{}

func (h *HTTPServer) Run(conf supporthttp.Config) {
	supporthttp.Run(conf)
}

type ServeOptions struct {
	Environment            string
	GitCommit              string
	Version                string
	Port                   int
	MetricsService         *monitor.MetricsService
	Domain                 string
	NetworkPassphrase      string
	HorizonURL             string
	SEP10SigningPublicKey  string
	SEP10SigningPrivateKey string
	JWTSecret              string
	Assets                 anchor.AssetSet
	Documentation          *anchor.Documentation
	InteractiveBaseURL     string
	CorsAllowedOrigins     []string
	AuthRateLimitPerSecond int
	EnableSEP10            bool
	EnableSEP24            bool
	EnableSEP6             bool
	Hooks                  anchor.Hooks

	// TransferStore overrides the default in-memory store when set.
	TransferStore anchor.TransferStore

	horizonClient horizonclient.ClientInterface
	jwtManager    *sepauth.JWTManager
	nonces        *sepauth.NonceRegistry
	sep10Service  sepauth.SEP10Service
	engine        *anchor.Engine
}

// SetupDependencies uses the serve options to setup the dependencies for the server.
func (opts *ServeOptions) SetupDependencies() error {
	if opts.Domain == "" {
		return fmt.Errorf("domain is required")
	}
	if len(opts.Assets) == 0 {
		return fmt.Errorf("at least one asset is required")
	}
	if opts.EnableSEP24 && opts.InteractiveBaseURL == "" {
		return fmt.Errorf("interactive base URL is required when SEP-24 is enabled")
	}
	if err := opts.Assets.Normalize(); err != nil {
		return fmt.Errorf("validating assets: %w", err)
	}

	issuer := anchor.BaseURL(opts.Domain) + "/auth"
	jwtManager, err := sepauth.NewJWTManager(opts.JWTSecret, issuer)
	if err != nil {
		return fmt.Errorf("creating web auth JWT manager: %w", err)
	}
	opts.jwtManager = jwtManager

	if opts.horizonClient == nil {
		opts.horizonClient = &horizonclient.Client{
			HorizonURL: opts.HorizonURL,
			HTTP:       httpclient.DefaultClient(),
		}
	}

	opts.nonces = sepauth.NewNonceRegistry()
	opts.sep10Service, err = sepauth.NewSEP10Service(
		opts.jwtManager,
		opts.nonces,
		opts.horizonClient,
		opts.NetworkPassphrase,
		opts.SEP10SigningPrivateKey,
		opts.Domain,
	)
	if err != nil {
		return fmt.Errorf("creating web auth service: %w", err)
	}

	transferStore := opts.TransferStore
	if transferStore == nil {
		transferStore = store.NewMemoryStore()
	}
	opts.engine = anchor.NewEngine(transferStore, anchor.EngineConfig{
		Domain:             opts.Domain,
		SigningPublicKey:   opts.SEP10SigningPublicKey,
		InteractiveBaseURL: opts.InteractiveBaseURL,
		Assets:             opts.Assets,
	}, opts.Hooks)

	return nil
}

func Serve(opts ServeOptions, httpServer HTTPServerInterface) error {
	err := opts.SetupDependencies()
	if err != nil {
		return fmt.Errorf("starting dependencies: %w", err)
	}

	opts.nonces.StartSweeping(context.Background())

	listenAddr := fmt.Sprintf(":%d", opts.Port)
	serverConfig := supporthttp.Config{
		ListenAddr:          listenAddr,
		Handler:             handleHTTP(opts),
		TCPKeepAlive:        time.Minute * 3,
		ShutdownGracePeriod: time.Second * 50,
		ReadTimeout:         time.Second * 5,
		WriteTimeout:        time.Second * 35,
		IdleTimeout:         time.Minute * 2,
		OnStarting: func() {
			log.Info("Starting Anchor Server")
			log.Infof("Listening on %s", listenAddr)
		},
		OnStopping: func() {
			opts.nonces.Stop()
			log.Info("Stopping Anchor Server")
		},
	}
	httpServer.Run(serverConfig)
	return nil
}

func handleHTTP(o ServeOptions) *chi.Mux {
	mux := chi.NewMux()

	mux.Use(middleware.CorsMiddleware(o.CorsAllowedOrigins))
	mux.Use(chimiddleware.RequestID)
	mux.Use(chimiddleware.RealIP)
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.RecoverHandler)
	if o.MetricsService != nil {
		mux.Use(middleware.MetricsRequestHandler(o.MetricsService))
	}

	tomlHandler := httphandler.NewStellarTomlHandler(
		o.Domain,
		o.NetworkPassphrase,
		o.SEP10SigningPublicKey,
		o.Documentation,
		o.Assets,
		httphandler.TomlMounts{SEP10: o.EnableSEP10, SEP24: o.EnableSEP24, SEP6: o.EnableSEP6},
	)
	mux.Get("/.well-known/stellar.toml", tomlHandler.ServeHTTP)

	mux.Get("/health", httphandler.HealthHandler{
		Version:   o.Version,
		ServiceID: ServiceID,
		ReleaseID: o.GitCommit,
	}.ServeHTTP)

	if o.EnableSEP10 {
		sep10Handler := httphandler.SEP10Handler{SEP10Service: o.sep10Service, Metrics: o.MetricsService}
		mux.Route("/auth", func(r chi.Router) {
			if o.AuthRateLimitPerSecond > 0 {
				r.Use(middleware.RateLimitMiddleware(o.AuthRateLimitPerSecond))
			}
			r.Get("/", sep10Handler.GetChallenge)
			r.Post("/", sep10Handler.PostChallenge)
		})
	}

	if o.EnableSEP24 {
		sep24Handler := httphandler.SEP24Handler{Engine: o.engine, Metrics: o.MetricsService}
		moreInfoHandler := httphandler.MoreInfoHandler{Engine: o.engine}

		mux.Route("/sep24", func(r chi.Router) {
			r.Get("/info", sep24Handler.GetInfo)
			r.Get("/transaction/more_info", moreInfoHandler.ServeHTTP)

			r.Group(func(r chi.Router) {
				r.Use(sepauth.WebAuthMiddleware(o.jwtManager))
				r.Post("/transactions/deposit/interactive", sep24Handler.DepositInteractive)
				r.Post("/transactions/withdraw/interactive", sep24Handler.WithdrawInteractive)
				r.Get("/transaction", sep24Handler.GetTransaction)
				r.Get("/transactions", sep24Handler.GetTransactions)
			})
		})

		mux.Get("/interactive", sep24Handler.Interactive)
		mux.Post("/interactive/complete", sep24Handler.InteractiveComplete)
		mux.Get("/transaction/more_info", moreInfoHandler.ServeHTTP)
	}

	if o.EnableSEP6 {
		sep6Handler := httphandler.SEP6Handler{Engine: o.engine, Metrics: o.MetricsService}
		mux.Route("/sep6", func(r chi.Router) {
			r.Get("/info", sep6Handler.GetInfo)

			r.Group(func(r chi.Router) {
				r.Use(sepauth.WebAuthMiddleware(o.jwtManager))
				r.Get("/deposit", sep6Handler.Deposit)
				r.Get("/withdraw", sep6Handler.Withdraw)
			})
		})
	}

	return mux
}
