package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/NethermindEth/ibc-relayer/relayer"
	"github.com/NethermindEth/ibc-relayer/relayer/config"
	"github.com/NethermindEth/juno/utils"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewCommand() cobra.Command {
	var configPath string
	var envFilePath string
	var logLevelF string
	var retriesF string

	var cfg config.Config
	var logger *utils.ZapLogger

	preRunE := func(cmd *cobra.Command, args []string) error {
		if retriesF != "" {
			if err := cfg.Retries.UnmarshalText([]byte(retriesF)); err != nil {
				return err
			}
		}
		if configPath != "" {
			fileConfig, err := config.FromFile(configPath)
			if err != nil {
				return err
			}
			cfg.Fill(&fileConfig)
		}
		if err := loadEnvFile(envFilePath); err != nil {
			return err
		}
		envConfig := config.FromEnv()
		cfg.Fill(&envConfig)

		if err := cfg.SetDefaults(); err != nil {
			return err
		}
		if err := cfg.Check(); err != nil {
			return err
		}

		logLevel := utils.NewLogLevel(utils.INFO)
		if err := logLevel.Set(logLevelF); err != nil {
			return err
		}
		var err error
		logger, err = utils.NewZapLogger(logLevel, true)
		return err
	}

	run := func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := relayer.Run(ctx, &cfg, logger); err != nil {
			logger.Errorw("Relayer stopped", "error", err)
		}
	}

	var rootCmd = cobra.Command{
		Use:     "relayer",
		Short:   "IBC relayer between an Ethereum beacon chain and a CometBFT chain",
		PreRunE: preRunE,
		Run:     run,
		Args:    cobra.NoArgs,
	}

	// Config file path flags
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to JSON or TOML config file")
	rootCmd.Flags().StringVar(&envFilePath, "env", ".env", "Path to env file, ignored when missing")

	// Config beacon flags
	rootCmd.Flags().StringVar(&cfg.Beacon.Url, "beacon-url", "", "Beacon node API address")
	rootCmd.Flags().StringVar(
		&cfg.Beacon.Preset, "beacon-preset", "", "Beacon network preset: mainnet, sepolia, holesky, minimal",
	)
	// Config execution flags
	rootCmd.Flags().StringVar(&cfg.Execution.ChainId, "execution-chain-id", "", "EVM chain id")
	rootCmd.Flags().StringVar(&cfg.Execution.Http, "execution-http", "", "Execution node http address")
	rootCmd.Flags().StringVar(&cfg.Execution.Ws, "execution-ws", "", "Execution node ws address")
	rootCmd.Flags().StringVar(
		&cfg.Execution.IBCHandler, "ibc-handler", "", "Address of the IBC handler contract",
	)
	// Config tendermint flags
	rootCmd.Flags().StringVar(&cfg.Tendermint.ChainId, "tendermint-chain-id", "", "Cosmos chain id")
	rootCmd.Flags().StringVar(&cfg.Tendermint.Rpc, "tendermint-rpc", "", "CometBFT rpc address")
	rootCmd.Flags().StringVar(&cfg.Tendermint.Grpc, "tendermint-grpc", "", "Cosmos gRPC address")
	// Config prover flags
	rootCmd.Flags().StringVar(&cfg.Prover.Url, "prover-url", "", "Signature aggregation prover address")
	// Config signer flags
	rootCmd.Flags().StringVar(
		&cfg.Signer.ExternalUrl, "signer-url", "", "External signer address, signs Cosmos transactions",
	)
	rootCmd.Flags().StringVar(
		&cfg.Signer.PrivKey, "signer-priv-key", "", "Private key signing EVM transactions",
	)
	rootCmd.Flags().StringVar(
		&cfg.Signer.Address, "signer-address", "", "Cosmos account of the external signer",
	)

	// Other flags
	rootCmd.Flags().StringVar(&retriesF, "retries", "", "Retries of transient failures, a number or `infinite`")
	rootCmd.Flags().StringVar(&cfg.Metrics, "metrics-address", "", "Address of the metrics server")
	rootCmd.Flags().StringVar(
		&logLevelF, "log-level", utils.INFO.String(), "Options: trace, debug, info, warn, error.",
	)

	return rootCmd
}

func loadEnvFile(envFilePath string) error {
	if envFilePath == "" {
		return nil
	}
	err := godotenv.Load(envFilePath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "loading env file %s", envFilePath)
	}
	return nil
}

func main() {
	command := NewCommand()
	if err := command.ExecuteContext(context.Background()); err != nil {
		fmt.Println("Unexpected error:\n", err)
		os.Exit(1)
	}
}
