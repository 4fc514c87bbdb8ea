// Auto-brightness daemon.
//
// Drives external and built-in displays along a solar brightness curve.
// Displays are reached through the desktop session's brightness service,
// ddcutil (DDC/CI by bus) and raw /dev/i2c-N access for adapters ddcutil
// cannot map. State is published over MQTT and InfluxDB when enabled, and a
// local HTTP/WebSocket API exposes monitors, VCP features and the schedule.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/spf13/pflag"

	_ "github.com/DonutsDelivery/auto-brightness/migrations"

	"github.com/DonutsDelivery/auto-brightness/internal/api"
	"github.com/DonutsDelivery/auto-brightness/internal/backends/ddcutil"
	"github.com/DonutsDelivery/auto-brightness/internal/backends/powerdevil"
	"github.com/DonutsDelivery/auto-brightness/internal/backends/rawi2c"
	"github.com/DonutsDelivery/auto-brightness/internal/bridge"
	"github.com/DonutsDelivery/auto-brightness/internal/calibration"
	"github.com/DonutsDelivery/auto-brightness/internal/infrastructure/config"
	"github.com/DonutsDelivery/auto-brightness/internal/infrastructure/database"
	"github.com/DonutsDelivery/auto-brightness/internal/infrastructure/influxdb"
	"github.com/DonutsDelivery/auto-brightness/internal/infrastructure/logging"
	"github.com/DonutsDelivery/auto-brightness/internal/infrastructure/mqtt"
	"github.com/DonutsDelivery/auto-brightness/internal/monitor"
	"github.com/DonutsDelivery/auto-brightness/internal/process"
	"github.com/DonutsDelivery/auto-brightness/internal/scheduler"
	"github.com/DonutsDelivery/auto-brightness/internal/solar"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	configEnv         = "AUTOBRIGHTNESS_CONFIG"
)

// options are the command line flags.
type options struct {
	configPath string
	once       bool
	detect     bool
	version    bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if opts.version {
		fmt.Printf("autobrightness %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	// Cancel on Ctrl+C and SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("autobrightness", pflag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to config file (default $"+configEnv+" or "+defaultConfigPath+")")
	fs.BoolVar(&opts.once, "once", false, "detect monitors, apply one brightness update and exit")
	fs.BoolVar(&opts.detect, "detect", false, "print detected monitors as JSON and exit")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.once && opts.detect {
		return options{}, fmt.Errorf("--once and --detect are mutually exclusive")
	}
	return opts, nil
}

// run is the application logic, separated from main for testability.
// One-shot modes write their JSON result to out.
func run(ctx context.Context, opts options, out io.Writer) error {
	// Use default logger until config is loaded
	log := logging.Default()

	configPath := getConfigPath(opts.configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// One-shot modes own stdout.
	if (opts.once || opts.detect) && cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}
	log = logging.New(cfg.Logging, version)
	log.Info("starting autobrightness",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", configPath,
	)

	monitors, closeBackends := buildRegistry(cfg, log)
	defer closeBackends()

	if opts.detect {
		return printDetected(ctx, monitors, out)
	}

	db, err := database.Open(ctx, database.Config{
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	store := calibration.NewSQLiteRepository(db.DB)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
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
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	// The scheduler's sinks are interfaces; only non-nil clients are assigned.
	var sinks scheduler.Sinks
	if influxClient != nil {
		sinks.Telemetry = influxClient
	}

	if opts.once {
		sched := newScheduler(cfg, monitors, store, sinks, log)
		sched.Detect(ctx)
		return writeJSON(out, sched.Tick(ctx))
	}

	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)
	sinks.Hub = hub

	// Connect to MQTT broker (optional)
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
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT connected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	}

	sched := newScheduler(cfg, monitors, store, sinks, log)

	if mqttClient != nil {
		stateBridge, bridgeErr := startBridge(cfg, mqttClient, monitors, sched, log)
		if bridgeErr != nil {
			return bridgeErr
		}
		defer stateBridge.Stop()
	}

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		if runErr := sched.Run(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
			log.Error("scheduler stopped", "error", runErr)
		}
	}()

	var apiServer *api.Server
	if cfg.API.Enabled {
		deps := api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Logger:   log,
			Monitors: monitors,
			Schedule: sched,
			Store:    store,
			DB:       db,
			Hub:      hub,
			Version:  version,
		}
		if mqttClient != nil {
			deps.MQTT = mqttClient
		}
		if influxClient != nil {
			deps.InfluxDB = influxClient
		}
		apiServer, err = api.New(deps)
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	sdnotify(log, daemon.SdNotifyReady)
	go watchdog(ctx, log)

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	sdnotify(log, daemon.SdNotifyStopping)
	<-schedDone

	// Deferred closes run in reverse order: API, bridge, MQTT, InfluxDB,
	// database, backends.
	log.Info("autobrightness stopped")
	return nil
}

// getConfigPath returns the configuration file path. The flag wins over
// AUTOBRIGHTNESS_CONFIG, which wins over the default.
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv(configEnv); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildRegistry wires the enabled backends into a monitor registry. The
// returned func releases backend resources.
func buildRegistry(cfg *config.Config, log *logging.Logger) (*monitor.Registry, func()) {
	locks := &monitor.BusLocks{}
	var backends monitor.Backends
	closeFn := func() {}

	if bc := cfg.Backends.Desktop; bc.Enabled {
		d := powerdevil.New(powerdevil.Config{Timeout: seconds(bc.Timeout)}, powerdevil.DialSession)
		d.SetLogger(log.With("backend", string(monitor.BackendDesktop)))
		backends.Desktop = d
		closeFn = func() {
			if err := d.Close(); err != nil {
				log.Warn("error closing session bus", "error", err)
			}
		}
	}

	if bc := cfg.Backends.DDCUtil; bc.Enabled {
		d := ddcutil.New(ddcutil.Config{
			Binary:    bc.Binary,
			ExtraArgs: bc.ExtraArgs,
		}, process.NewRunner(seconds(bc.Timeout)), locks)
		d.SetLogger(log.With("backend", string(monitor.BackendBusDDC)))
		backends.Bus = d
	}

	if bc := cfg.Backends.RawI2C; bc.Enabled {
		d := rawi2c.New(rawi2c.Config{
			AdapterFilter: bc.AdapterFilter,
			SysfsRoot:     bc.SysfsRoot,
			ReplyDelay:    time.Duration(bc.ReplyDelayMS) * time.Millisecond,
		}, rawi2c.DevOpener{DevDir: bc.DevDir}, locks)
		d.SetLogger(log.With("backend", string(monitor.BackendRawDDC)))
		backends.Raw = d
	}

	registry := monitor.NewRegistry(backends)
	registry.SetLogger(log)
	return registry, closeFn
}

func newScheduler(cfg *config.Config, monitors *monitor.Registry, store *calibration.SQLiteRepository, sinks scheduler.Sinks, log *logging.Logger) *scheduler.Scheduler {
	sched := scheduler.New(scheduler.Config{
		Latitude:  cfg.Site.Location.Latitude,
		Longitude: cfg.Site.Location.Longitude,
		Settings: scheduler.Settings{
			Enabled: cfg.Brightness.AutoEnabled,
			Min:     cfg.Brightness.Min,
			Max:     cfg.Brightness.Max,
			Mode:    solar.Mode(cfg.Brightness.Mode),
		},
		Interval:      cfg.Brightness.Interval(),
		RedetectEvery: cfg.Brightness.RedetectEvery,
	}, monitors, store, sinks)
	sched.SetLogger(log)
	return sched
}

// startBridge connects the scheduler and registry to MQTT. The bridge is
// registered as the scheduler's state publisher before the first tick.
func startBridge(cfg *config.Config, client *mqtt.Client, monitors *monitor.Registry, sched *scheduler.Scheduler, log *logging.Logger) (*bridge.Bridge, error) {
	b, err := bridge.New(bridge.Options{
		MQTT:     client,
		Monitors: monitors,
		Auto:     sched,
		QoS:      byte(cfg.MQTT.QoS), //nolint:gosec // validated to 0..2
		Logger:   log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MQTT bridge: %w", err)
	}
	if err := b.Start(); err != nil {
		return nil, fmt.Errorf("starting MQTT bridge: %w", err)
	}
	sched.SetStatePublisher(b)
	log.Info("MQTT bridge started")
	return b, nil
}

// printDetected runs one detection pass and writes the monitors as JSON.
func printDetected(ctx context.Context, monitors *monitor.Registry, out io.Writer) error {
	records := monitors.Detect(ctx).List()
	if records == nil {
		records = []monitor.Record{}
	}
	return writeJSON(out, records)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient, influxClient and apiServer may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	if apiServer != nil {
		if err := apiServer.HealthCheck(ctx); err != nil {
			return fmt.Errorf("api: %w", err)
		}
	}
	return nil
}

// sdnotify sends a state to systemd. Outside a notify unit it does nothing.
func sdnotify(log *logging.Logger, state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		log.Warn("sd_notify failed", "state", state, "error", err)
	}
}

// watchdog pings systemd at half the configured watchdog interval until ctx
// is done.
func watchdog(ctx context.Context, log *logging.Logger) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		log.Warn("reading watchdog settings failed", "error", err)
		return
	}
	if interval == 0 {
		return
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sdnotify(log, daemon.SdNotifyWatchdog)
		}
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
