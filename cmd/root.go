package cmd

import (
	"go/types"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	cmdUtils "github.com/stellar/stellar-anchor-backend/cmd/utils"
)

// globalOptions is a variable that holds the global CLI options that can be
// applied to any command or subcommand.
var globalOptions cmdUtils.GlobalOptionsType

func rootCmd() *cobra.Command {
	configOpts := config.ConfigOptions{
		{
			Name:           "log-level",
			Usage:          `The log level used in this project. Options: "TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL", or "PANIC".`,
			OptType:        types.String,
			FlagDefault:    "INFO",
			ConfigKey:      &globalOptions.LogLevel,
			CustomSetValue: cmdUtils.SetConfigOptionLogLevel,
			Required:       true,
		},
		{
			Name:        "environment",
			Usage:       `The environment where the application is running. Example: "development", "staging", "production".`,
			OptType:     types.String,
			FlagDefault: "development",
			ConfigKey:   &globalOptions.Environment,
			Required:    true,
		},
		{
			Name:      "domain",
			Usage:     "The home domain this anchor is served from. Used in the discovery document, challenge transactions, and token issuer URLs.",
			OptType:   types.String,
			ConfigKey: &globalOptions.Domain,
			Required:  true,
		},
		{
			Name:           "network",
			Usage:          `The Stellar network this anchor operates on. Options: "public", "mainnet", "testnet", "futurenet", "standalone".`,
			OptType:        types.String,
			FlagDefault:    "testnet",
			ConfigKey:      &globalOptions.NetworkPassphrase,
			CustomSetValue: cmdUtils.SetConfigOptionNetworkPassphrase,
			Required:       true,
		},
	}

	rootCmd := &cobra.Command{
		Use:     "stellar-anchor-backend",
		Short:   "Stellar Anchor Backend",
		Long:    "The Stellar Anchor Backend serves the SEP-1 discovery document and implements SEP-10 web authentication plus SEP-24 and SEP-6 transfers.",
		Version: globalOptions.Version,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			configOpts.Require()
			err := configOpts.SetValues()
			if err != nil {
				log.Fatalf("Error setting values of config options: %s", err.Error())
			}
			log.Info("Version: ", globalOptions.Version)
			log.Info("GitCommit: ", globalOptions.GitCommit)
		},
		Run: func(cmd *cobra.Command, args []string) {
			err := cmd.Help()
			if err != nil {
				log.Fatalf("Error calling help command: %s", err.Error())
			}
		},
	}

	err := configOpts.Init(rootCmd)
	if err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return rootCmd
}

// SetupCLI sets up the CLI and returns the root command with the subcommands
// attached.
func SetupCLI(version, gitCommit string) *cobra.Command {
	globalOptions.Version = version
	globalOptions.GitCommit = gitCommit
	rootCmd := rootCmd()

	rootCmd.AddCommand((&ServeCommand{}).Command(&ServerService{}))

	return rootCmd
}
