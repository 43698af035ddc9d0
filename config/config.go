package config

import (
	"flag"
	"fmt"
	"os"
	"sync"
	"time"
)

const (
	defaultServerAddress      = ":8080"
	defaultDatabaseDSN        = ""
	defaultLogLevel           = "info"
	defaultProviderBaseURL    = "https://api.mercadopago.com"
	defaultProviderTimeout    = 5 * time.Second
	defaultNotificationTopic  = "order-notifications"
	defaultSweepInterval      = time.Minute
	defaultSignatureTolerance = 0
)

type Config struct {
	ServerAddr          string
	DatabaseDSN         string
	LogLevel            string
	WebhookSecret       string
	ProviderBaseURL     string
	ProviderAccessToken string
	ProviderTimeout     time.Duration
	AuthTokenKey        string
	KafkaBrokers        string
	NotificationTopic   string
	SweepInterval       time.Duration
	SignatureTolerance  time.Duration
	AdminEmail          string
}

var (
	once      sync.Once
	singleton *Config
	loadErr   error
)

// New returns new Config. It parses command line and environment variables only once.
func New() (*Config, error) {
	once.Do(func() {
		singleton, loadErr = load(flag.CommandLine, os.Args[1:], os.Getenv)
	})

	return singleton, loadErr
}

// load parses args into fs, then environment variables override flags
func load(fs *flag.FlagSet, args []string, getenv func(string) string) (*Config, error) {
	cfg := Config{}

	// initialize flags
	fs.StringVar(&cfg.ServerAddr, "a", defaultServerAddress, "server address")
	fs.StringVar(&cfg.DatabaseDSN, "d", defaultDatabaseDSN, "database DSN")
	fs.StringVar(&cfg.LogLevel, "l", defaultLogLevel, "log level")
	fs.StringVar(&cfg.WebhookSecret, "s", "", "payment provider webhook secret")
	fs.StringVar(&cfg.ProviderBaseURL, "p", defaultProviderBaseURL, "payment provider base url")
	fs.StringVar(&cfg.ProviderAccessToken, "t", "", "payment provider access token")
	fs.DurationVar(&cfg.ProviderTimeout, "pt", defaultProviderTimeout, "payment provider request timeout")
	fs.StringVar(&cfg.AuthTokenKey, "k", "", "hex encoded admin token key")
	fs.StringVar(&cfg.KafkaBrokers, "b", "", "comma separated kafka brokers")
	fs.StringVar(&cfg.NotificationTopic, "nt", defaultNotificationTopic, "notification topic")
	fs.DurationVar(&cfg.SweepInterval, "i", defaultSweepInterval, "pending payment sweep interval, 0 disables")
	fs.DurationVar(&cfg.SignatureTolerance, "sk", defaultSignatureTolerance, "max webhook signature age, 0 disables")
	fs.StringVar(&cfg.AdminEmail, "ad", "", "admin notification recipient")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// if environment variable is set, then using it
	strEnv := map[string]*string{
		"RUN_ADDRESS":           &cfg.ServerAddr,
		"DATABASE_URI":          &cfg.DatabaseDSN,
		"LOG_LEVEL":             &cfg.LogLevel,
		"WEBHOOK_SECRET":        &cfg.WebhookSecret,
		"PROVIDER_BASE_URL":     &cfg.ProviderBaseURL,
		"PROVIDER_ACCESS_TOKEN": &cfg.ProviderAccessToken,
		"AUTH_TOKEN_KEY":        &cfg.AuthTokenKey,
		"KAFKA_BROKERS":         &cfg.KafkaBrokers,
		"NOTIFICATION_TOPIC":    &cfg.NotificationTopic,
		"ADMIN_EMAIL":           &cfg.AdminEmail,
	}
	for name, dst := range strEnv {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}

	durEnv := map[string]*time.Duration{
		"PROVIDER_TIMEOUT":    &cfg.ProviderTimeout,
		"SWEEP_INTERVAL":      &cfg.SweepInterval,
		"SIGNATURE_TOLERANCE": &cfg.SignatureTolerance,
	}
	for name, dst := range durEnv {
		v := getenv(name)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		*dst = d
	}

	return &cfg, nil
}
