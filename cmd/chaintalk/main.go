package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"log"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"

	"github.com/layer-3/chaintalk/adapters/events"
	"github.com/layer-3/chaintalk/adapters/oracle"
	"github.com/layer-3/chaintalk/adapters/store"
	"github.com/layer-3/chaintalk/adapters/tokenizer"
	"github.com/layer-3/chaintalk/bridge"
	"github.com/layer-3/chaintalk/chat"
	"github.com/layer-3/chaintalk/core"
	"github.com/layer-3/chaintalk/internal/config"
	"github.com/layer-3/chaintalk/service"
	"github.com/layer-3/chaintalk/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Generate a new ECDSA key pair (you would normally load this from somewhere secure)
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		log.Fatalf("Failed to generate signing key: %v", err)
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opts)

	logger := watermill.NewStdLogger(false, false)

	authService := service.NewAuthService(
		tokenizer.NewJWTTokenizer(signKey),
		store.NewRedisNonceStore(redisClient, cfg.ChallengeTTL),
		cfg.SessionTTL,
	)

	gateService, gatedRooms := setupGating(cfg, logger)

	hubOpts := chat.Options{
		OutboundBuffer:    cfg.OutboundBuffer,
		AuthFailureLimit:  cfg.AuthFailureLimit,
		MaxTextLength:     cfg.MaxTextLength,
		AllowMultiSession: cfg.AllowMultiSession,
	}
	registry := chat.NewRegistry(cfg.AllowMultiSession)
	for _, room := range gatedRooms {
		registry.ConfigureRoom(room)
	}
	hub := chat.NewHub(registry, authService, gateService, hubOpts, logger)

	chainConnected := setupChainEvents(ctx, cfg, hub, redisClient, logger)

	router := http.SetupRouter(authService, hub, chainConnected, logger)
	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupGating wires the balance oracle when an HTTP endpoint is
// configured. Without one, gated rooms are not registered and every
// room is open.
func setupGating(cfg config.Config, logger watermill.LoggerAdapter) (*service.GateService, []core.RoomConfig) {
	rooms, err := cfg.GatedRoomConfigs()
	if err != nil {
		log.Fatalf("Failed to parse gated rooms: %v", err)
	}

	if cfg.EthereumHTTPURL == "" {
		if len(rooms) > 0 {
			log.Fatalf("GATED_ROOMS requires ETH_HTTP_URL to be set")
		}
		return service.NewGateService(nil), nil
	}

	client, err := ethclient.Dial(cfg.EthereumHTTPURL)
	if err != nil {
		log.Fatalf("Failed to connect to Ethereum HTTP endpoint: %v", err)
	}

	balanceOracle, err := oracle.NewEthOracle(client, cfg.OracleTimeout)
	if err != nil {
		log.Fatalf("Failed to create balance oracle: %v", err)
	}

	logger.Info("token gating enabled", watermill.LogFields{"gated_rooms": len(rooms)})
	return service.NewGateService(balanceOracle), rooms
}

// setupChainEvents starts the swap listener and the relay feeding the
// default room. Returns the listener health check, nil when ingestion
// is disabled.
func setupChainEvents(ctx context.Context, cfg config.Config, hub *chat.Hub, redisClient *redis.Client, logger watermill.LoggerAdapter) func() bool {
	if cfg.EthereumWSURL == "" {
		logger.Info("chain event ingestion disabled", nil)
		return nil
	}

	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: redisClient}, logger)
	if err != nil {
		log.Fatalf("Failed to create Redis publisher: %v", err)
	}
	subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        redisClient,
		ConsumerGroup: "chaintalk",
	}, logger)
	if err != nil {
		log.Fatalf("Failed to create Redis subscriber: %v", err)
	}

	ethClient, err := ethclient.DialContext(ctx, cfg.EthereumWSURL)
	if err != nil {
		log.Fatalf("Failed to connect to Ethereum websocket endpoint: %v", err)
	}

	listener, err := bridge.NewListener(ethClient, events.NewWatermillPublisher(publisher), nil, nil, logger)
	if err != nil {
		log.Fatalf("Failed to create swap listener: %v", err)
	}

	relay := events.NewRelay(subscriber, hub, cfg.DefaultRoom, logger)

	go func() {
		if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("swap listener stopped", err, nil)
		}
	}()
	go func() {
		if err := relay.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("chain event relay stopped", err, nil)
		}
	}()

	return listener.Connected
}
