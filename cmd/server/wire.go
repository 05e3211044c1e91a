//go:build wireinject
// +build wireinject

package main

import (
	"log"
	"net/http"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"

	"github.com/nordhen/credgate/internal/config"
	"github.com/nordhen/credgate/internal/handler"
	"github.com/nordhen/credgate/internal/repository"
	"github.com/nordhen/credgate/internal/server"
	"github.com/nordhen/credgate/internal/server/middleware"
	"github.com/nordhen/credgate/internal/service"
)

type Application struct {
	Config  *config.Config
	Server  *http.Server
	Cleanup func()
}

func initializeApplication() (*Application, error) {
	wire.Build(
		config.ProviderSet,

		repository.ProviderSet,
		service.ProviderSet,
		middleware.ProviderSet,
		handler.ProviderSet,

		server.ProviderSet,

		provideCleanup,

		wire.Struct(new(Application), "Config", "Server", "Cleanup"),
	)
	return nil, nil
}

func provideCleanup(rdb *redis.Client) func() {
	return func() {
		if err := rdb.Close(); err != nil {
			log.Printf("[Cleanup] Redis close failed: %v", err)
		}
	}
}
