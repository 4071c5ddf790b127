package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "multizone_thermostat/docs"
	"multizone_thermostat/internal/config"
	"multizone_thermostat/internal/gpio"
	"multizone_thermostat/internal/handlers"
	"multizone_thermostat/internal/logger"
	"multizone_thermostat/internal/metrics"
	"multizone_thermostat/internal/models"
	"multizone_thermostat/internal/mqtt"
	"multizone_thermostat/internal/onewire"
	"multizone_thermostat/internal/repository"
	"multizone_thermostat/internal/repository/db"
	"multizone_thermostat/internal/server"
	"multizone_thermostat/internal/service"

	"github.com/spf13/afero"
)

const shutdownTimeout = 15 * time.Second

// @title                       Multi-zone Thermostat API
// @version                     1.0
// @description                 Status, setpoint commands, schedules, sensors and history of a staged HVAC controller.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	configPath := flag.String("config", "", "path to config file (default configs/config.yml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(cfg.Log.Level)

	// open DB
	conn, err := openDB(cfg, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()
	repos := repository.NewRepository(conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sensors, relays, err := openDrivers(ctx, cfg, repos, log)
	if err != nil {
		log.Fatalw("failed to open hardware drivers", "driver", cfg.Hardware.Driver, "err", err)
	}

	pub := openPublisher(cfg, log)
	m := metrics.New(nil)

	ctl, err := service.NewThermostatController(ctx, service.ControllerDeps{
		Config:    cfg,
		Repos:     repos,
		Sensors:   sensors,
		Relays:    relays,
		Publisher: pub,
		Metrics:   m,
		Log:       log,
	})
	if err != nil {
		_ = relays.Close()
		log.Fatalw("failed to start controller", "err", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		if err := ctl.Shutdown(sctx); err != nil {
			log.Errorw("controller_shutdown_failed", "err", err)
		}
	}()

	go ctl.Run(ctx)

	services := service.NewService(repos, ctl, cfg.Auth)
	apiHandler := handlers.NewHandler(services, log, m.Handler())

	srv := &server.Server{}
	runHTTPServer(srv, cfg.HTTP.Port, apiHandler, cancel, log)

	waitForShutdown(ctx, cancel, srv, log)
}

// openDB initializes the SQLite database using configuration.
func openDB(cfg *config.Config, log *logger.Logger) (*sql.DB, error) {
	path := cfg.DB.Path
	if path == "" {
		log.Infow("db.path not set in config; using default file", "default", "thermostat.db")
		path = "thermostat.db"
	}
	return db.InitDB(path)
}

// openDrivers returns the sensor and relay drivers selected by hardware.driver.
// The simulator serves both roles.
func openDrivers(ctx context.Context, cfg *config.Config, repos *repository.Repository, log *logger.Logger) (service.SensorDriver, gpio.Writer, error) {
	stages, err := repos.Stages.Load(ctx)
	if err != nil || len(stages) == 0 {
		stages = cfg.Stages
	}

	if cfg.Hardware.Driver == config.DriverSim {
		sim := service.NewPlantSimulator(service.SimulatorOptions{
			Sensors:     cfg.Hardware.SimSensors,
			FireplaceID: cfg.Hardware.SimFireplaceID,
			OutdoorF:    cfg.Hardware.SimOutdoorTempF,
			Stages:      stages,
			Seed:        time.Now().UnixNano(),
		})
		log.Infow("simulator_enabled", "sensors", len(cfg.Hardware.SimSensors), "fireplace", cfg.Hardware.SimFireplaceID)
		return sim, sim, nil
	}

	relays, err := gpio.NewRealWriter(gpio.Options{
		Chip:      cfg.Hardware.Chip,
		Channels:  relayChannels(stages, cfg.Hardware.FanChannel),
		ActiveLow: cfg.Hardware.ActiveLow,
	})
	if err != nil {
		return nil, nil, err
	}
	reader := onewire.NewReader(afero.NewOsFs(), cfg.Hardware.W1Path, log.Named("onewire"))
	return reader, relays, nil
}

func relayChannels(stages []models.StageConfig, fan uint8) []uint8 {
	channels := []uint8{fan}
	for _, s := range stages {
		channels = append(channels, s.RelayChannel)
	}
	return channels
}

// openPublisher connects to the MQTT broker when one is configured. A broker
// that cannot be reached disables telemetry rather than the thermostat.
func openPublisher(cfg *config.Config, log *logger.Logger) mqtt.Publisher {
	if cfg.MQTT.Broker == "" {
		return mqtt.Nop{}
	}
	pub, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Prefix:   cfg.MQTT.TopicPrefix,
	})
	if err != nil {
		log.Warnw("mqtt_unavailable", "broker", cfg.MQTT.Broker, "err", err)
		return mqtt.Nop{}
	}
	log.Infow("mqtt_connected", "broker", cfg.MQTT.Broker, "prefix", cfg.MQTT.TopicPrefix)
	return pub
}

// runHTTPServer runs the HTTP server in a separate goroutine. A listen failure
// cancels ctx so the controller shuts down cleanly.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, cancel context.CancelFunc, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Errorw("error starting server", "err", err)
			cancel()
		}
	}()
}

// waitForShutdown blocks until a termination signal or ctx cancellation, then
// stops the HTTP server. The controller is shut down by main's deferred call.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Infow("shutting down server...")
	cancel()

	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
