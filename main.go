package main

import (
	"context"
	"time"

	"equiplend/app"
	"equiplend/config"
	"equiplend/routes"
)

func main() {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	application := app.MustNew(cfg)
	defer application.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := app.BootstrapFirstAdmin(ctx, cfg, application.Repo, application.Log); err != nil {
		application.Log.Error("bootstrap admin failed", "err", err)
	}
	cancel()

	r := application.Router
	routes.RegisterRoutes(r, application)

	application.Log.Info("listening", "port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		application.Close()
		application.Log.Fatal("server stopped", "err", err)
	}
}
