package main

import (
	"context"

	"github.com/cppla/threadsense/app"
	"github.com/cppla/threadsense/config"
	"github.com/cppla/threadsense/routes"
	"github.com/cppla/threadsense/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	a, err := app.Build(context.Background(), cfg, app.Options{WithDB: true, WithCache: true})
	if err != nil {
		utils.Sugar.Fatalf("startup failed: %v", err)
	}
	defer a.Close()

	deps := routes.Deps{
		Config: cfg,
		Runner: a.Orchestrator,
		DB:     a.DB,
		Cache:  a.Cache,
	}
	if a.Writer != nil {
		deps.Writer = a.Writer
	}
	r := routes.SetupRouter(deps)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Errorf("server stopped with error: %v", err)
	}
}
