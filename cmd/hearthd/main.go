// Hearth Core - Home Automation Hub
//
// This is the main entry point for the Hearth Core daemon. Hearth is an
// offline-first home automation hub: integrations poll or subscribe to
// devices, coordinators hold the freshest snapshot of each, and entities
// project those snapshots to the API, panels, and history storage.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	_ "github.com/hearth-home/hearth-core/migrations"

	"github.com/hearth-home/hearth-core/internal/api"
	"github.com/hearth-home/hearth-core/internal/area"
	"github.com/hearth-home/hearth-core/internal/entity"
	"github.com/hearth-home/hearth-core/internal/entry"
	"github.com/hearth-home/hearth-core/internal/history"
	"github.com/hearth-home/hearth-core/internal/infrastructure/config"
	"github.com/hearth-home/hearth-core/internal/infrastructure/database"
	"github.com/hearth-home/hearth-core/internal/infrastructure/influxdb"
	"github.com/hearth-home/hearth-core/internal/infrastructure/logging"
	"github.com/hearth-home/hearth-core/internal/infrastructure/mqtt"
	"github.com/hearth-home/hearth-core/internal/integrations/mqttbridge"
	"github.com/hearth-home/hearth-core/internal/integrations/powermeter"
	"github.com/hearth-home/hearth-core/internal/integrations/thermostat"
	"github.com/hearth-home/hearth-core/internal/logbook"
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
	configPath := flag.String("config", "", "path to config.yaml (overrides HEARTH_CONFIG)")
	issueToken := flag.Bool("issue-token", false, "print a fresh API bearer token and exit")
	flag.Parse()

	// .env values become process environment before config.Load reads it.
	// Missing .env is fine; it only exists in development setups.
	//nolint:errcheck // absence is the common case
	godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath, *issueToken); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context, configPath string, issueToken bool) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Hearth Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	if configPath == "" {
		configPath = getConfigPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	if issueToken {
		return printToken(cfg)
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database and run migrations
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
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Connect to MQTT broker (optional; push integrations need it)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional; long-term history needs it)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// History recorder (optional)
	var recorder *history.Recorder
	if cfg.History.Enabled {
		var series history.SeriesWriter
		if influxClient != nil {
			series = influxClient
		}
		recorder = history.NewRecorder(history.Config{
			Store:         history.NewStore(db.DB),
			Series:        series,
			Logger:        log.With("component", "history"),
			Retention:     time.Duration(cfg.History.RetentionHours) * time.Hour,
			PruneInterval: time.Duration(cfg.History.PruneInterval) * time.Minute,
		})
		recorder.Start(ctx)
		defer func() {
			log.Info("stopping history recorder")
			recorder.Stop()
		}()
		log.Info("history recorder started",
			"retention_hours", cfg.History.RetentionHours,
			"long_term", influxClient != nil,
		)
	} else {
		log.Info("history recording disabled")
	}

	// Area registry and event logbook share the main database.
	areaRepo := area.NewSQLiteRepository(db.DB)
	logbookRepo := logbook.NewSQLiteRepository(db.DB)

	// Entry manager with registered integrations
	manager := entry.NewManager(entry.NewSQLiteRepository(db.DB), log.With("component", "entry"))
	manager.Register(powermeter.New())
	manager.Register(thermostat.New())
	if mqttClient != nil {
		manager.Register(mqttbridge.New(mqttClient))
	}
	log.Info("integrations registered", "domains", manager.Domains())

	// Backing-service probes for the health endpoint.
	checks := map[string]func(ctx context.Context) error{
		"database": db.HealthCheck,
	}
	if mqttClient != nil {
		checks["mqtt"] = mqttClient.HealthCheck
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient.HealthCheck
	}

	// API server (created before manager start so entity tracking catches
	// every loaded entry via the hooks)
	apiServer, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log.With("component", "api"),
		Manager: manager,
		History: recorder,
		Areas:   areaRepo,
		Logbook: logbookRepo,
		Version: version,
		Checks:  checks,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	manager.SetHooks(
		func(e *entry.ConfigEntry, entities []entity.Handle) {
			if recorder != nil {
				recorder.Track(entities...)
			}
			apiServer.TrackEntities(entities)
			recordEvent(logbookRepo, log, logbook.EventEntryLoaded, e)
		},
		func(e *entry.ConfigEntry, entities []entity.Handle) {
			if recorder != nil {
				recorder.Untrack(entities...)
			}
			apiServer.UntrackEntities(entities)
			recordEvent(logbookRepo, log, logbook.EventEntryUnloaded, e)
		},
	)

	if err := seedEntries(ctx, cfg, manager, log); err != nil {
		return fmt.Errorf("seeding config entries: %w", err)
	}

	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("starting entry manager: %w", err)
	}
	defer func() {
		log.Info("unloading config entries")
		manager.Stop()
	}()

	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server (stop accepting requests)
	// 2. Entry manager (unload entries, stop coordinators)
	// 3. History recorder
	// 4. InfluxDB / MQTT (if enabled)
	// 5. Database

	log.Info("Hearth Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HEARTH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HEARTH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// seedEntries creates config entries declared in the config file, skipping
// any domain+title that already exists. This provisions fresh installations
// without touching the API.
func seedEntries(ctx context.Context, cfg *config.Config, manager *entry.Manager, log *logging.Logger) error {
	if len(cfg.Entries) == 0 {
		return nil
	}

	existing, err := manager.Entries(ctx)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		seen[e.Domain+"/"+e.Title] = true
	}

	for _, seed := range cfg.Entries {
		if seen[seed.Domain+"/"+seed.Title] {
			continue
		}
		e := &entry.ConfigEntry{
			Domain:  seed.Domain,
			Title:   seed.Title,
			Data:    seed.Data,
			Options: seed.Options,
		}
		// Setup outcomes (retry, reauth) are the manager's business; a
		// seed only has to be persisted.
		if err := manager.Add(ctx, e); err != nil {
			log.Warn("seeded entry setup deferred",
				"domain", seed.Domain, "title", seed.Title, "error", err)
		} else {
			log.Info("seeded config entry", "domain", seed.Domain, "title", seed.Title)
		}
	}
	return nil
}

// recordEvent appends an entry lifecycle event to the logbook.
func recordEvent(repo logbook.Repository, log *logging.Logger, eventType string, e *entry.ConfigEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ev := &logbook.Event{
		Type:    eventType,
		EntryID: e.ID,
		Details: map[string]any{"domain": e.Domain, "title": e.Title},
	}
	if err := repo.Record(ctx, ev); err != nil {
		log.Warn("logbook record failed", "type", eventType, "entry", e.ID, "error", err)
	}
}

// printToken mints a bearer token for the configured API secret.
func printToken(cfg *config.Config) error {
	ttl := time.Duration(cfg.API.Auth.TokenTTL) * time.Minute
	token, err := api.IssueToken(cfg.API.Auth.Secret, "cli", ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
