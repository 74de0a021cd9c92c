package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/kinokosu3/quarkdav/backend"
	"github.com/kinokosu3/quarkdav/backend/localfs"
	"github.com/kinokosu3/quarkdav/backend/quark"
	"github.com/kinokosu3/quarkdav/internal/config"
	"github.com/kinokosu3/quarkdav/internal/logging"
	"github.com/kinokosu3/quarkdav/webdav"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Server, cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialise logging:", err)
		os.Exit(1)
	}

	var be backend.Backend
	switch cfg.Storage.Backend {
	case "localfs":
		be = localfs.New(cfg.Storage.FileSystem.RootPath)
	case "quark":
		be = quark.New(quark.Config{
			Cookie:  cfg.Storage.Quark.Cookie,
			RootFid: cfg.Storage.Quark.RootID,
			TempDir: cfg.Storage.TempPath,
		}, log)
	default:
		log.Fatal().Str("backend", cfg.Storage.Backend).Msg("unknown storage backend")
	}
	log.Info().Str("backend", be.Kind()).Msg("storage backend selected")

	handler := &webdav.Handler{Backend: be, Log: log}

	app := fiber.New(fiber.Config{
		RequestMethods: append(fiber.DefaultMethods[:], webdav.ExtendedMethods...),
	})
	app.Use(logger.New())
	app.Use(cfg.Server.Prefix, adaptor.HTTPHandler(handler))

	addr := cfg.Server.Host + ":" + strconv.Itoa(int(cfg.Server.Port))
	log.Info().Str("addr", addr).Str("prefix", cfg.Server.Prefix).Msg("starting webdav server")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
