package cmd

import (
	"go/types"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/keypair"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	cmdUtils "github.com/stellar/stellar-anchor-backend/cmd/utils"
	"github.com/stellar/stellar-anchor-backend/internal/monitor"
	"github.com/stellar/stellar-anchor-backend/internal/serve"
)

type ServeCommand struct{}

type ServerServiceInterface interface {
	StartServe(opts serve.ServeOptions, httpServer serve.HTTPServerInterface)
	StartMetricsServe(opts serve.MetricsServeOptions, httpServer serve.HTTPServerInterface)
}

type ServerService struct{}

var _ ServerServiceInterface = (*ServerService)(nil)

func (s *ServerService) StartServe(opts serve.ServeOptions, httpServer serve.HTTPServerInterface) {
	err := serve.Serve(opts, httpServer)
	if err != nil {
		log.Fatalf("Error starting server: %s", err.Error())
	}
}

func (s *ServerService) StartMetricsServe(opts serve.MetricsServeOptions, httpServer serve.HTTPServerInterface) {
	err := serve.MetricsServe(opts, httpServer)
	if err != nil {
		log.Fatalf("Error starting metrics server: %s", err.Error())
	}
}

func (c *ServeCommand) Command(serverService ServerServiceInterface) *cobra.Command {
	serveOpts := serve.ServeOptions{}
	metricsServeOpts := serve.MetricsServeOptions{}

	configOpts := config.ConfigOptions{
		{
			Name:        "port",
			Usage:       "Port where the server will be listening on",
			OptType:     types.Int,
			ConfigKey:   &serveOpts.Port,
			FlagDefault: 8000,
			Required:    true,
		},
		{
			Name:        "metrics-port",
			Usage:       "Port where the metrics server will be listening on",
			OptType:     types.Int,
			ConfigKey:   &metricsServeOpts.Port,
			FlagDefault: 8002,
			Required:    true,
		},
		{
			Name:           "secret-key",
			Usage:          "The secret key used to sign SEP-10 challenge transactions. The derived public key is advertised in the discovery document.",
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionStellarPrivateKey,
			ConfigKey:      &serveOpts.SEP10SigningPrivateKey,
			Required:       true,
		},
		{
			Name:      "jwt-secret",
			Usage:     "The secret used to sign web auth session tokens. Must be at least 32 bytes long.",
			OptType:   types.String,
			ConfigKey: &serveOpts.JWTSecret,
			Required:  true,
		},
		{
			Name:           "assets",
			Usage:          "The anchored assets, as inline JSON or a path to a JSON file. Each entry carries the asset code, optional issuer, and deposit/withdraw profiles.",
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionAssets,
			ConfigKey:      &serveOpts.Assets,
			Required:       true,
		},
		{
			Name:           "documentation",
			Usage:          "Optional JSON block with the organization documentation advertised in the discovery document.",
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionDocumentation,
			ConfigKey:      &serveOpts.Documentation,
			Required:       false,
		},
		{
			Name:           "interactive-base-url",
			Usage:          "The base URL of the operator-hosted interactive flow for SEP-24.",
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionURLString,
			ConfigKey:      &serveOpts.InteractiveBaseURL,
			FlagDefault:    "http://localhost:8000/interactive-flow",
			Required:       true,
		},
		{
			Name:           "horizon-url",
			Usage:          "The URL of the Horizon server the auth service queries for account signers.",
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionURLString,
			ConfigKey:      &serveOpts.HorizonURL,
			FlagDefault:    "https://horizon-testnet.stellar.org",
			Required:       true,
		},
		{
			Name:           "cors-allowed-origins",
			Usage:          `Cors URLs that are allowed to access the endpoints, separated by ","`,
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetCorsAllowedOrigins,
			ConfigKey:      &serveOpts.CorsAllowedOrigins,
			FlagDefault:    "*",
			Required:       true,
		},
		{
			Name:        "auth-rate-limit-per-second",
			Usage:       "Maximum challenge requests per second per client IP on the auth endpoints. 0 disables the limit.",
			OptType:     types.Int,
			ConfigKey:   &serveOpts.AuthRateLimitPerSecond,
			FlagDefault: 10,
			Required:    false,
		},
		{
			Name:        "enable-sep10",
			Usage:       "Mount the SEP-10 web authentication endpoints.",
			OptType:     types.Bool,
			ConfigKey:   &serveOpts.EnableSEP10,
			FlagDefault: true,
			Required:    false,
		},
		{
			Name:        "enable-sep24",
			Usage:       "Mount the SEP-24 interactive transfer endpoints.",
			OptType:     types.Bool,
			ConfigKey:   &serveOpts.EnableSEP24,
			FlagDefault: true,
			Required:    false,
		},
		{
			Name:        "enable-sep6",
			Usage:       "Mount the SEP-6 programmatic transfer endpoints.",
			OptType:     types.Bool,
			ConfigKey:   &serveOpts.EnableSEP6,
			FlagDefault: false,
			Required:    false,
		},
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Stellar Anchor API",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.Parent().PersistentPreRun(cmd.Parent(), args)

			configOpts.Require()
			err := configOpts.SetValues()
			if err != nil {
				log.Fatalf("Error setting values of config options: %s", err.Error())
			}

			// The public counterpart of the signing key is advertised in the
			// discovery document.
			kp, err := keypair.ParseFull(serveOpts.SEP10SigningPrivateKey)
			if err != nil {
				log.Fatalf("Error parsing the secret key: %s", err.Error())
			}
			serveOpts.SEP10SigningPublicKey = kp.Address()

			// Inject server dependencies
			serveOpts.Environment = globalOptions.Environment
			serveOpts.GitCommit = globalOptions.GitCommit
			serveOpts.Version = globalOptions.Version
			serveOpts.Domain = globalOptions.Domain
			serveOpts.NetworkPassphrase = globalOptions.NetworkPassphrase

			metricsServeOpts.Environment = globalOptions.Environment
		},
		Run: func(cmd *cobra.Command, _ []string) {
			metricsService := monitor.NewMetricsService()
			serveOpts.MetricsService = metricsService
			metricsServeOpts.MetricsService = metricsService

			go serverService.StartMetricsServe(metricsServeOpts, &serve.HTTPServer{})

			serverService.StartServe(serveOpts, &serve.HTTPServer{})
		},
	}
	err := configOpts.Init(cmd)
	if err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}
