// NAPT Router - provisioned WiFi router lifecycle controller
//
// This is the main entry point for the router application. The device
// sits idle until triggered, acquires uplink credentials through
// SmartConfig-style provisioning, then runs as a NAT router with its own
// access point, DHCP range and static port maps until torn down.
//
// The platform layer here is the in-memory simulator; SIGUSR1 stands in
// for the physical trigger line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lukasfriedrichsen/naptrouter/internal/audit"
	"github.com/lukasfriedrichsen/naptrouter/internal/discovery"
	"github.com/lukasfriedrichsen/naptrouter/internal/indicator"
	"github.com/lukasfriedrichsen/naptrouter/internal/infrastructure/config"
	"github.com/lukasfriedrichsen/naptrouter/internal/infrastructure/database"
	"github.com/lukasfriedrichsen/naptrouter/internal/infrastructure/influxdb"
	"github.com/lukasfriedrichsen/naptrouter/internal/infrastructure/logging"
	"github.com/lukasfriedrichsen/naptrouter/internal/infrastructure/mqtt"
	"github.com/lukasfriedrichsen/naptrouter/internal/lifecycle"
	"github.com/lukasfriedrichsen/naptrouter/internal/platform/sim"
	"github.com/lukasfriedrichsen/naptrouter/internal/provisioning"
	"github.com/lukasfriedrichsen/naptrouter/internal/router"
	"github.com/lukasfriedrichsen/naptrouter/internal/sched"
	"github.com/lukasfriedrichsen/naptrouter/internal/status"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting NAPT router",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the lifecycle event journal
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	journal := audit.NewSQLiteRepository(db.DB)
	if err := journal.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring journal schema: %w", err)
	}
	log.Info("journal ready", "path", cfg.Database.Path)

	// Surface where the previous run left off.
	if recent, recentErr := journal.Recent(ctx, 1); recentErr != nil {
		log.Warn("reading journal failed", "error", recentErr)
	} else if len(recent) > 0 {
		log.Info("last recorded event",
			"event", recent[0].Event,
			"at", recent[0].CreatedAt,
		)
	}

	// Optional status sinks
	reporter := status.New(log)

	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			log.Warn("mqtt unavailable, continuing without it", "error", mqttErr)
		} else {
			defer mqttClient.Close() //nolint:errcheck // best effort on shutdown
			reporter.SetPublisher(mqttClient)
			log.Info("mqtt connected", "host", cfg.MQTT.Broker.Host)
		}
	}

	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			log.Warn("influxdb unavailable, continuing without it", "error", influxErr)
		} else {
			defer influxClient.Close() //nolint:errcheck // best effort on shutdown
			influxClient.SetOnError(func(err error) {
				log.Warn("influxdb write failed", "error", err)
			})
			reporter.SetTelemetry(influxClient)
			log.Info("influxdb connected", "url", cfg.InfluxDB.URL)
		}
	}

	// Control loop and platform
	loop := sched.NewLoop()
	loopCtx, stopLoop := context.WithCancel(context.Background())
	go loop.Run(loopCtx)

	stack := sim.NewStack(loop)
	transport := sim.NewTransport(loop)
	nat := sim.NewNAT()
	button := &sim.Button{}
	output := &sim.Indicator{}

	// Controllers
	ind := indicator.New(loop, output, cfg.Indicator.BlinkInterval, log)
	prov := provisioning.New(loop, transport, stack, cfg.Provisioning, log)
	rtr := router.New(stack, nat, cfg, log)
	responder := discovery.New(loop, stack, cfg.Discovery, cfg.Device.Purpose, log)
	responder.OnVitalSign = reporter.ReportVitalSign

	ctrl := lifecycle.New(lifecycle.Deps{
		Loop:         loop,
		Config:       cfg,
		Stack:        stack,
		Button:       button,
		Indicator:    ind,
		Provisioning: prov,
		Router:       rtr,
		Responder:    responder,
		Recorder:     journal,
		Reporter:     reporter,
		Logger:       log,
	})

	// SIGUSR1 stands in for the trigger line on platforms without one.
	trigger := make(chan os.Signal, 1)
	signal.Notify(trigger, syscall.SIGUSR1)
	defer signal.Stop(trigger)
	go func() {
		for range trigger {
			button.Press()
			ctrl.ButtonPressed()
		}
	}()

	ctrl.Startup()
	log.Info("router ready", "startup_mode", cfg.Startup.Mode)

	<-ctx.Done()
	log.Info("shutdown signal received")

	ctrl.Shutdown()
	stopLoop()
	<-loop.Done()

	log.Info("shutdown complete")
	return nil
}

// getConfigPath returns the configuration file path from the command line
// or environment, falling back to the default.
//
// Precedence: -config flag style argument > NAPTROUTER_CONFIG > default.
func getConfigPath() string {
	args := os.Args[1:]
	for i, arg := range args {
		if (arg == "-config" || arg == "--config") && i+1 < len(args) {
			return args[i+1]
		}
	}
	if path := os.Getenv("NAPTROUTER_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
