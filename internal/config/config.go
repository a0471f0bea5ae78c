package config

import (
	"crypto/ecdsa"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Public development key and its address. Never use them outside a local deployment.
const (
	DefaultSignerKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	DefaultDeployer  = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	StateFile         string
	Backend           string
	ChainID           uint64
	SignerKey         string
	Deployer          string
	Out               string
	Checkpoint        string
	CheckpointEnabled bool
	PGDSN             string
	Listen            string
	DecryptLatency    time.Duration
	ProofTTL          time.Duration
	Window            time.Duration
	BatchSize         uint64
	MaxRetries        int
	RetryBackoff      time.Duration
	Addresses         []string
	Topic0            []string
	LogLevel          string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HIDDENLIQ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("state-file", "./data/world.json")
	v.SetDefault("backend", "mock")
	v.SetDefault("chain-id", uint64(31337))
	v.SetDefault("signer-key", DefaultSignerKey)
	v.SetDefault("deployer", DefaultDeployer)
	v.SetDefault("out", "./data/logs.jsonl")
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("listen", ":8080")
	v.SetDefault("decrypt-latency", time.Duration(0))
	v.SetDefault("proof-ttl", time.Hour)
	v.SetDefault("window", 5*time.Minute)
	v.SetDefault("batch-size", uint64(1000))
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("hiddenliquidity")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		StateFile:         v.GetString("state-file"),
		Backend:           strings.ToLower(v.GetString("backend")),
		ChainID:           v.GetUint64("chain-id"),
		SignerKey:         v.GetString("signer-key"),
		Deployer:          v.GetString("deployer"),
		Out:               v.GetString("out"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		PGDSN:             v.GetString("pg-dsn"),
		Listen:            v.GetString("listen"),
		DecryptLatency:    v.GetDuration("decrypt-latency"),
		ProofTTL:          v.GetDuration("proof-ttl"),
		Window:            v.GetDuration("window"),
		BatchSize:         v.GetUint64("batch-size"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		Addresses:         getStringSlice(v, "address"),
		Topic0:            getStringSlice(v, "topic0"),
		LogLevel:          v.GetString("log-level"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Backend {
	case "mock", "tfhe":
	default:
		return fmt.Errorf("unknown backend %q (want mock or tfhe)", c.Backend)
	}
	if c.ChainID == 0 {
		return fmt.Errorf("chain id must be greater than zero")
	}
	if !common.IsHexAddress(c.Deployer) {
		return fmt.Errorf("invalid deployer address: %s", c.Deployer)
	}
	if c.ProofTTL < 0 {
		return fmt.Errorf("proof ttl must not be negative")
	}
	return nil
}

// DeployerAddress returns the configured deployer.
func (c Config) DeployerAddress() common.Address {
	return common.HexToAddress(c.Deployer)
}

// InputSigner parses the key that signs input proofs.
func (c Config) InputSigner() (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(c.SignerKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse signer key: %w", err)
	}
	return key, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
