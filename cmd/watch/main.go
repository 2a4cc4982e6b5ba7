package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ysalameh/paywatch/internal/infrastructure/logger"
	"github.com/ysalameh/paywatch/pkg/httpclient"
	"github.com/ysalameh/paywatch/pkg/wsclient"
	"go.uber.org/zap"
)

type config struct {
	appEnv   string
	logLevel string

	serverURL string
	apiKey    string

	wsBaseDelay   time.Duration
	wsMaxAttempts int

	fetchTimeout time.Duration
}

// linksEnvelope mirrors the API success envelope around the links list.
type linksEnvelope struct {
	Data []linkView `json:"data"`
}

type linkView struct {
	ID             string `json:"id"`
	URL            string `json:"url"`
	AmountMinor    int64  `json:"amountMinor"`
	Status         string `json:"status"`
	ErrorCode      string `json:"errorCode"`
	TransactionRef string `json:"transactionRef"`
	AmountDisplay  string `json:"amountDisplay"`
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.appEnv, cfg.logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	wsURL, err := streamURL(cfg.serverURL, cfg.apiKey)
	if err != nil {
		logger.Fatal("invalid server url", zap.Error(err))
	}

	fetcher := httpclient.NewClient(cfg.fetchTimeout, 5, 30*time.Second)

	refresh := func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.fetchTimeout)
		defer cancel()

		var envelope linksEnvelope
		err := fetcher.GetJSON(ctx, cfg.serverURL+"/api/links", map[string]string{
			"X-API-Key": cfg.apiKey,
		}, &envelope)
		if err != nil {
			logger.Error("failed to fetch links", zap.Error(err))
			return
		}
		printLinks(envelope.Data)
	}

	channel := wsclient.New(wsURL, refresh, wsclient.Options{
		BaseDelay:   cfg.wsBaseDelay,
		MaxAttempts: cfg.wsMaxAttempts,
		Logger:      logger.Log,
	})
	channel.Activate()

	logger.Info("watch started", zap.String("server", cfg.serverURL))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("watch stopping")
	channel.Shutdown()
}

// streamURL converts the HTTP base URL into the websocket endpoint, with the
// API key carried as a query parameter since websocket handshakes from
// browsers cannot set custom headers.
func streamURL(serverURL, apiKey string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	if apiKey != "" {
		q := u.Query()
		q.Set("api_key", apiKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func printLinks(links []linkView) {
	fmt.Printf("\n%-36s  %-8s  %-16s  %-12s  %-10s  %s\n",
		"ID", "STATUS", "ERROR", "TRANSACTION", "AMOUNT", "URL")
	for _, l := range links {
		fmt.Printf("%-36s  %-8s  %-16s  %-12s  %-10s  %s\n",
			l.ID, l.Status, l.ErrorCode, l.TransactionRef, l.AmountDisplay, l.URL)
	}
}

func loadConfig() (config, error) {
	cfg := config{
		appEnv:        getEnv("APP_ENV", "development"),
		logLevel:      getEnv("LOG_LEVEL", "info"),
		serverURL:     getEnv("PAYWATCH_SERVER_URL", "http://localhost:8080"),
		apiKey:        getEnv("PAYWATCH_API_KEY", ""),
		wsBaseDelay:   getEnvDuration("WATCH_WS_BASE_DELAY", time.Second),
		wsMaxAttempts: 5,
		fetchTimeout:  getEnvDuration("WATCH_FETCH_TIMEOUT", 10*time.Second),
	}

	if strings.TrimSpace(cfg.serverURL) == "" {
		return config{}, fmt.Errorf("PAYWATCH_SERVER_URL must not be empty")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
