package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"hiddenLiquidity/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "hiddenliquidity",
		Short:        "Confidential fixed-rate exchange for cUSDC, cUSDT and cETH",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("state-file", "./data/world.json", "persisted deployment state")
	flags.String("backend", "mock", "FHE backend (mock, tfhe)")
	flags.Uint64("chain-id", 31337, "chain id bound into input proofs")
	flags.String("signer-key", config.DefaultSignerKey, "hex key that signs input proofs")
	flags.String("deployer", config.DefaultDeployer, "deployer and default sender address")
	flags.Duration("proof-ttl", time.Hour, "input proof validity, 0 never expires")
	flags.Duration("decrypt-latency", 0, "simulated gateway latency")
	flags.String("out", "./data/logs.jsonl", "output JSONL path for indexed logs")
	flags.String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	flags.Bool("checkpoint-enabled", true, "enable checkpointing")
	flags.String("pg-dsn", "", "Postgres DSN, replaces the JSONL output when set")
	flags.StringSlice("address", nil, "only index logs of these contracts (comma-separated)")
	flags.StringSlice("topic0", nil, "only index logs with these topic0 values (comma-separated)")
	flags.Int("max-retries", 5, "maximum retry attempts")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newDeployCmd(),
		newAddressesCmd(),
		newMintCmd(),
		newAuthorizeCmd(),
		newAddLiquidityCmd(),
		newRemoveLiquidityCmd(),
		newSwapCmd(),
		newPoolCmd(),
		newPositionCmd(),
		newBalanceCmd(),
		newDecryptLiquidityCmd(),
		newHistoryCmd(),
		newActivityCmd(),
		newServeCmd(),
		newDemoCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
