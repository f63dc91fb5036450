package main

import (
	"context"
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"go.uber.org/zap"

	"chatwire/internal/auth"
	"chatwire/internal/delivery"
	"chatwire/internal/media"
	"chatwire/internal/presence"
	"chatwire/internal/server"
	"chatwire/internal/storage"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("zap.NewDevelopment: %v", err)
	}
	defer logger.Sync()

	sugar := logger.Sugar()
	sugar.Info("Application is starting")

	serverCfg := server.EnvConfig{}
	if err := env.Parse(&serverCfg); err != nil {
		sugar.Fatalf("Cannot parse server env config: %v", err)
	}

	storageCfg := storage.Config{}
	if err := env.Parse(&storageCfg); err != nil {
		sugar.Fatalf("Cannot parse storage env config: %v", err)
	}

	mediaCfg := media.Config{}
	if err := env.Parse(&mediaCfg); err != nil {
		sugar.Fatalf("Cannot parse media env config: %v", err)
	}

	if err := storage.Migrate(storageCfg); err != nil {
		sugar.Fatalf("Cannot apply migrations: %v", err)
	}

	store, err := storage.New(sugar, storageCfg, storage.ConnectionTimeout(30*time.Second))
	if err != nil {
		sugar.Fatalf("Cannot create Store instance: %v", err)
	}

	uploader, err := media.New(context.Background(), sugar, mediaCfg)
	if err != nil {
		sugar.Fatalf("Cannot create media Uploader instance: %v", err)
	}

	hub := presence.NewRegistry(sugar)
	router := delivery.NewRouter(sugar, hub)
	hub.OnTransition(router.PresenceChanged)

	deps := server.Deps{
		Store:  store,
		Blobs:  uploader,
		Google: auth.NewGoogleVerifier(serverCfg.GoogleClientID),
		Hub:    hub,
		Router: router,
	}

	serverOpts := []server.Option{
		server.ReadTimeout(5 * time.Second),
		server.RegisterAfterShutdown(func() {
			sugar.Info("Closing store")
			store.Close()
			sugar.Info("Store is closed")
		}),
	}

	srv, err := server.NewServer(sugar, serverCfg, deps, serverOpts...)
	if err != nil {
		sugar.Fatalf("Cannot create Server instance: %v", err)
	}

	if err := srv.Start(); err != nil {
		sugar.Fatalf("Cannot start http srv: %v", err)
	}
}
