package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/matthewbaird/estatein/internal/config"
	"github.com/matthewbaird/estatein/internal/logger"
	"github.com/matthewbaird/estatein/internal/seed"
	"github.com/matthewbaird/estatein/internal/server"
)

var (
	portFlag = &cli.IntFlag{
		Name:  "port",
		Usage: "listen port, overrides ESTATEIN_PORT",
	}
	memoryFlag = &cli.BoolFlag{
		Name:  "memory",
		Usage: "keep documents in memory instead of the configured database",
	}
	seedFlag = &cli.BoolFlag{
		Name:  "seed",
		Usage: "write demo documents into empty collections before serving",
	}
)

// loadConfig parses the environment and applies command line overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	conf, err := config.Parse()
	if err != nil {
		return nil, err
	}
	if c.IsSet(portFlag.Name) {
		conf.Port = c.Int(portFlag.Name)
	}
	if c.Bool(memoryFlag.Name) {
		conf.DatabaseURL = ""
	}
	logger.Configure(conf)
	return conf, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "start the dashboard server",
		Flags: []cli.Flag{portFlag, memoryFlag, seedFlag},
		Action: func(c *cli.Context) error {
			conf, err := loadConfig(c)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := server.Build(ctx, conf)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					log.Error().Err(err).Msg("shutdown")
				}
			}()
			app.Start(ctx)

			if c.Bool(seedFlag.Name) {
				if _, err := seed.Run(ctx, app.Store, app.Service.Registry()); err != nil {
					return err
				}
			}

			return server.Run(ctx, server.Config{
				Port:            conf.Port,
				Handler:         app.Handler,
				ShutdownTimeout: conf.ShutdownTimeout,
			})
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "write demo documents into empty collections and exit",
		Action: func(c *cli.Context) error {
			conf, err := loadConfig(c)
			if err != nil {
				return err
			}
			ctx := c.Context
			if ctx == nil {
				ctx = context.Background()
			}
			app, err := server.Build(ctx, conf)
			if err != nil {
				return err
			}
			defer app.Close()

			reg := app.Service.Registry()
			n, err := seed.Run(ctx, app.Store, reg)
			if err != nil {
				return err
			}
			log.Info().Int("documents", n).Int("collections", len(reg.Names())).Msg("seed complete")
			return nil
		},
	}
}
