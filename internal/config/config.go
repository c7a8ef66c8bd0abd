package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	StorePostgres = "postgres"
	StoreFile     = "file"
	StoreRedis    = "redis"
)

// DefaultStartBlocks holds the block preceding each exchange deployment on mainnet.
var DefaultStartBlocks = map[int]uint64{
	1: 4145578,
	2: 8140780,
	3: 8952139,
}

// DefaultExchanges holds the mainnet exchange contract per protocol version.
var DefaultExchanges = map[int]string{
	1: "0x12459c951127e0c374ff9105dda097662a027093",
	2: "0x4f833a24e1f95d70f028921e27040ca56e09ab32",
	3: "0x61935cbdd02287b511119ddb11aeb42f1593b7ef",
}

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL             string
	RPCMaxRetries      int `validate:"gte=0"`
	MaxChunkSize       uint64
	MinConfirmations   uint64
	MinPollingInterval time.Duration `validate:"gt=0"`
	MaxPollingInterval time.Duration `validate:"gtefield=MinPollingInterval"`
	Protocols          []int         `validate:"min=1,dive,oneof=1 2 3"`
	StartBlocks        map[int]uint64
	Exchanges          map[int]string
	MaxRetries         int           `validate:"gte=0"`
	RetryBackoff       time.Duration `validate:"gte=0"`
	Store              string        `validate:"oneof=postgres file"`
	PGDSN              string
	DataDir            string `validate:"required_if=Store file"`
	CheckpointStore    string `validate:"oneof=postgres file redis"`
	RedisURL           string `validate:"required_if=CheckpointStore redis"`
	MetricsAddr        string
	LogLevel           string `validate:"oneof=debug info warn error"`
}

// NeedsPostgres reports whether any configured store is backed by Postgres.
func (c Config) NeedsPostgres() bool {
	return c.Store == StorePostgres || c.CheckpointStore == StorePostgres
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("EXTRACTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("rpc-max-retries", 3)
	v.SetDefault("max-chunk-size", uint64(10000))
	v.SetDefault("min-confirmations", uint64(12))
	v.SetDefault("min-polling-interval", 5*time.Second)
	v.SetDefault("max-polling-interval", 60*time.Second)
	v.SetDefault("protocols", "1,2,3")
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("store", StorePostgres)
	v.SetDefault("data-dir", "./data")
	v.SetDefault("log-level", "info")
	for version, block := range DefaultStartBlocks {
		v.SetDefault(startBlockKey(version), block)
	}
	for version, address := range DefaultExchanges {
		v.SetDefault(exchangeKey(version), address)
	}

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
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	protocols, err := getIntSlice(v, "protocols")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:             v.GetString("rpc"),
		RPCMaxRetries:      v.GetInt("rpc-max-retries"),
		MaxChunkSize:       v.GetUint64("max-chunk-size"),
		MinConfirmations:   v.GetUint64("min-confirmations"),
		MinPollingInterval: v.GetDuration("min-polling-interval"),
		MaxPollingInterval: v.GetDuration("max-polling-interval"),
		Protocols:          protocols,
		StartBlocks:        make(map[int]uint64, len(protocols)),
		Exchanges:          make(map[int]string, len(protocols)),
		MaxRetries:         v.GetInt("max-retries"),
		RetryBackoff:       v.GetDuration("retry-backoff"),
		Store:              strings.ToLower(v.GetString("store")),
		PGDSN:              v.GetString("pg-dsn"),
		DataDir:            v.GetString("data-dir"),
		CheckpointStore:    strings.ToLower(v.GetString("checkpoint-store")),
		RedisURL:           v.GetString("redis-url"),
		MetricsAddr:        v.GetString("metrics-addr"),
		LogLevel:           v.GetString("log-level"),
	}
	if cfg.CheckpointStore == "" {
		cfg.CheckpointStore = cfg.Store
	}
	for _, version := range protocols {
		cfg.StartBlocks[version] = v.GetUint64(startBlockKey(version))
		cfg.Exchanges[version] = v.GetString(exchangeKey(version))
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	if cfg.NeedsPostgres() && cfg.PGDSN == "" {
		return Config{}, fmt.Errorf("pg-dsn is required for the postgres store")
	}

	return cfg, nil
}

func startBlockKey(version int) string {
	return fmt.Sprintf("start-block.v%d", version)
}

func exchangeKey(version int) string {
	return fmt.Sprintf("exchange.v%d", version)
}

func getIntSlice(v *viper.Viper, key string) ([]int, error) {
	var items []string
	switch typed := v.Get(key).(type) {
	case []int:
		return typed, nil
	case []string:
		items = typed
	case string:
		items = strings.Split(typed, ",")
	case []interface{}:
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
	case int:
		return []int{typed}, nil
	default:
		return nil, nil
	}

	out := make([]int, 0, len(items))
	seen := make(map[int]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(item)), "v")
		if item == "" {
			continue
		}
		n, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q", key, item)
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out, nil
}
