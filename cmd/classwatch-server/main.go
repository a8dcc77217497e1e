package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/configutil"
	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/scrapers/timetable"
	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/serviceutil"
	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/telemetry"
	"github.com/Haydos1210/ClassAvailabilityUNSW/services/classwatch"
)

type Config struct {
	Port    int              `json:"port"`
	Scraper timetable.Config `json:"scraper"`
}

func (c Config) WithDefaults() Config {
	if c.Port == 0 {
		c.Port = 3002
	}
	c.Scraper = c.Scraper.WithDefaults()
	return c
}

func InitTelemetry(ctx context.Context, verbose bool) telemetry.Telemetry {
	telemetry.InitSlog(verbose)
	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	tel, err := telemetry.SetupFromEnv(ctx, "classwatch-server")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	telemetry.InstrumentPerfStats(ctx)
	return tel
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	port := flag.Int("port", 0, "Port to listen on, overrides the config.")
	configPath := flag.String("config", "config.json5", "Path to the server config.")
	flag.Parse()

	ctx := serviceutil.SignalContext()
	tel := InitTelemetry(ctx, *verbose)
	defer tel.Shutdown(context.Background())

	cfg, err := configutil.ReadConfig[Config](*configPath)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("no server config found, using defaults", "path", *configPath)
		cfg = Config{}.WithDefaults()
	} else if err != nil {
		serviceutil.Fatal("read config", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}

	launcher, err := cfg.Scraper.Launcher()
	if err != nil {
		serviceutil.Fatal("init browser backend", err)
	}

	mux := http.NewServeMux()
	classwatch.NewService(timetable.NewScraper(launcher, cfg.Scraper)).Register(mux)

	err = serviceutil.StartHttpServer(ctx, cfg.Port, classwatch.WithCORS(mux))
	if err != nil {
		serviceutil.Fatal("serve http", err)
	}
}
