// Package main runs the reward-token orchestration service. It wires the
// custody client, chain provider, data-service clients and the orchestrator,
// and serves the operational endpoints.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"

	"github.com/nimbusward/tokengate/internal/audit"
	"github.com/nimbusward/tokengate/internal/cardano"
	"github.com/nimbusward/tokengate/internal/config"
	"github.com/nimbusward/tokengate/internal/custody"
	"github.com/nimbusward/tokengate/internal/logging"
	"github.com/nimbusward/tokengate/internal/metrics"
	"github.com/nimbusward/tokengate/internal/rewardsapi"
	"github.com/nimbusward/tokengate/services/orchestrator"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}

	logger := logging.New(cfg.Service.Name, cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger.Info("starting orchestration service")

	svc, err := buildService(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("service wiring failed")
		os.Exit(1)
	}

	router := newRouter(svc)
	server := &http.Server{
		Addr:         cfg.Service.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.Service.ListenAddr).Info("ops endpoints listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("ops server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("ops server shutdown failed")
	}
	svc.Shutdown()
	logger.Info("stopped")
}

func buildService(cfg *config.Config, logger *logging.Logger) (*orchestrator.Service, error) {
	var cache *redis.Client
	if cfg.Redis.Addr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	custodyClient, err := custody.NewClient(custody.ClientConfig{
		BaseURL:       cfg.Custody.BaseURL,
		APIKey:        cfg.Custody.APIKey,
		APISecretPath: cfg.Custody.APISecretPath,
		RatePerSecond: cfg.Custody.RatePerSecond,
		RateBurst:     cfg.Custody.RateBurst,
		Cache:         cache,
		CacheTTL:      cfg.Redis.TTL,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	provider, err := cardano.NewProvider(cardano.ProviderConfig{
		BaseURL:    cfg.Cardano.ProviderURL,
		ProjectKey: cfg.Cardano.ProviderKey,
	})
	if err != nil {
		return nil, err
	}
	codec, err := cardano.NewCodec(cardano.CodecConfig{BaseURL: cfg.Cardano.SubmitURL})
	if err != nil {
		return nil, err
	}

	claims, err := rewardsapi.NewClaimsClient(cfg.Rewards.ClaimsURL, cfg.Rewards.APIKey, 0)
	if err != nil {
		return nil, err
	}
	allocation, err := rewardsapi.NewAllocationClient(cfg.Rewards.ClaimsURL, cfg.Rewards.APIKey, 0)
	if err != nil {
		return nil, err
	}
	redemption, err := rewardsapi.NewRedemptionClient(cfg.Rewards.RedemptionURL, cfg.Rewards.APIKey, 0)
	if err != nil {
		return nil, err
	}
	hunt, err := rewardsapi.NewHuntClient(cfg.Rewards.ScavengerURL, cfg.Rewards.APIKey, 0)
	if err != nil {
		return nil, err
	}

	auditWriter, err := audit.NewWriter(cfg.Audit.Dir)
	if err != nil {
		return nil, err
	}

	recipientMin, ok := new(big.Int).SetString(cfg.Cardano.RecipientMinimum, 10)
	if !ok {
		return nil, &configError{"cardano.recipient_minimum"}
	}
	changeMin, ok := new(big.Int).SetString(cfg.Cardano.ChangeMinimum, 10)
	if !ok {
		return nil, &configError{"cardano.change_minimum"}
	}

	return orchestrator.New(orchestrator.Config{
		Custody:           custodyClient,
		Provider:          provider,
		Codec:             codec,
		Claims:            claims,
		Allocation:        allocation,
		Redemption:        redemption,
		Hunt:              hunt,
		Audit:             auditWriter,
		Logger:            logger,
		TokenUnit:         cardano.TokenUnit(cfg.Cardano.TokenPolicyID, cfg.Cardano.TokenNameHex),
		RecipientMinimum:  recipientMin,
		ChangeMinimum:     changeMin,
		PoolCapacity:      cfg.Pool.Capacity,
		PoolIdleTimeout:   cfg.Pool.IdleTimeout,
		PoolSweepSchedule: cfg.Pool.SweepSchedule,
		PollInterval:      cfg.Custody.PollInterval,
		SigningTimeout:    cfg.Custody.SigningTimeout,
	})
}

type configError struct{ field string }

func (e *configError) Error() string { return "invalid configuration value: " + e.field }

func newRouter(svc *orchestrator.Service) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	router.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	}).Methods(http.MethodGet)

	router.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"service": "tokengate",
			"pool":    svc.PoolMetrics(),
		})
	}).Methods(http.MethodGet)

	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	return router
}
