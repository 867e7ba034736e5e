// Package main runs the heavy-vehicle route planning service.
package main

import (
	"context"

	"github.com/edaniels/golog"
	"go.viam.com/utils"

	"github.com/schwerlast/routeplan/config"
	"github.com/schwerlast/routeplan/planner"
	"github.com/schwerlast/routeplan/roadworks"
	"github.com/schwerlast/routeplan/valhalla"
	"github.com/schwerlast/routeplan/web/server"
)

var logger = golog.NewDevelopmentLogger("routeplan")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	obstacles := roadworks.NewClient(cfg.RoadworksBaseURL, cfg.RoadworksServiceKey, logger)
	router := valhalla.NewClient(cfg.ValhallaBaseURL)
	p := planner.NewPlanner(obstacles, router, logger)

	srv := server.New(p, obstacles, router, logger)
	return srv.Serve(ctx, cfg.ListenAddr)
}
