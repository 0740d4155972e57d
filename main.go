package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/mstrov/stripd/cmd"
	"github.com/mstrov/stripd/internal/api"
	"github.com/mstrov/stripd/internal/audio"
	"github.com/mstrov/stripd/internal/config"
	"github.com/mstrov/stripd/internal/connmgr"
	"github.com/mstrov/stripd/internal/credstore"
	"github.com/mstrov/stripd/internal/events"
	"github.com/mstrov/stripd/internal/logging"
	"github.com/mstrov/stripd/internal/metrics"
	"github.com/mstrov/stripd/internal/protocol"
	"github.com/mstrov/stripd/internal/radio"
	"github.com/mstrov/stripd/internal/render"
	"github.com/mstrov/stripd/internal/strip"
	"github.com/mstrov/stripd/internal/ticks"
	"github.com/mstrov/stripd/internal/transport"
	"github.com/mstrov/stripd/internal/watchdog"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Control and status surfaces
	ControlAddr string `help:"Binary protocol listen address" default:":7777" toml:"control.addr" env:"CONTROL_ADDR"`
	HTTPAddr    string `help:"Status API listen address" default:":8090" toml:"server.addr" env:"SERVER_ADDR"`

	// Strip settings
	StripDevice string `help:"SPI device file for the strip" default:"/dev/spidev0.0" toml:"strip.device" env:"STRIP_DEVICE"`
	StripCount  int    `help:"Number of LEDs on the strip" default:"60" toml:"strip.count" env:"STRIP_COUNT"`

	// Render timing
	TickIntervalMs int `help:"Scheduler tick interval in milliseconds" default:"2" toml:"render.tick_interval_ms" env:"RENDER_TICK_INTERVAL_MS"`
	RenderBudgetMs int `help:"Frame spacing for static modes in milliseconds" default:"33" toml:"render.budget_ms" env:"RENDER_BUDGET_MS"`
	AudioBudgetMs  int `help:"Frame spacing for audio modes in milliseconds" default:"16" toml:"render.audio_budget_ms" env:"RENDER_AUDIO_BUDGET_MS"`

	// Network settings
	CredentialsFile  string `help:"Credential record path" default:"/var/lib/stripd/credentials.bin" toml:"network.credentials_file" env:"NETWORK_CREDENTIALS_FILE"`
	WifiInterface    string `help:"Wireless interface" default:"wlan0" toml:"network.interface" env:"NETWORK_INTERFACE"`
	HotspotSSID      string `help:"Setup hotspot SSID" default:"stripd-setup" toml:"network.hotspot_ssid" env:"NETWORK_HOTSPOT_SSID"`
	DeviceName       string `help:"mDNS device name" default:"stripd" toml:"network.device_name" env:"NETWORK_DEVICE_NAME"`
	ConnectTimeoutS  int    `help:"Association timeout in seconds" default:"30" toml:"network.connect_timeout_s" env:"NETWORK_CONNECT_TIMEOUT_S"`
	GracePeriodS     int    `help:"Post-association hotspot grace period in seconds" default:"10" toml:"network.grace_period_s" env:"NETWORK_GRACE_PERIOD_S"`
	AnnounceEveryS   int    `help:"Address re-announce interval in seconds" default:"2" toml:"network.announce_every_s" env:"NETWORK_ANNOUNCE_EVERY_S"`
	MDNSEnabled      bool   `help:"Advertise the device name over mDNS" default:"true" toml:"network.mdns_enabled" env:"NETWORK_MDNS_ENABLED"`

	// Logging settings
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingRender    string `help:"Render logging level" default:"info" toml:"logging.render" env:"LOGGING_RENDER"`
	LoggingConnmgr   string `help:"Connection manager logging level" default:"info" toml:"logging.connmgr" env:"LOGGING_CONNMGR"`
	LoggingTransport string `help:"Transport logging level" default:"info" toml:"logging.transport" env:"LOGGING_TRANSPORT"`
	LoggingProtocol  string `help:"Protocol logging level" default:"info" toml:"logging.protocol" env:"LOGGING_PROTOCOL"`
	LoggingRadio     string `help:"Radio logging level" default:"info" toml:"logging.radio" env:"LOGGING_RADIO"`
	LoggingAPI       string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

func main() {
	// Declared ahead of New so the callback can reach the root command;
	// LoadConfig needs its flags to tell CLI-set values from defaults.
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"render":    opts.LoggingRender,
				"connmgr":   opts.LoggingConnmgr,
				"transport": opts.LoggingTransport,
				"protocol":  opts.LoggingProtocol,
				"radio":     opts.LoggingRadio,
				"api":       opts.LoggingAPI,
			},
		})

		logger := logging.GetLogger("main")
		bus := events.New()
		metricSet := metrics.New()

		store := credstore.New(opts.CredentialsFile, logging.GetLogger("credstore"))
		rdo := radio.New(opts.WifiInterface, logging.GetLogger("radio"))

		var adv connmgr.Advertiser = connmgr.NewNoopAdvertiser()
		if opts.MDNSEnabled {
			adv = connmgr.NewAdvertiser(logging.GetLogger("connmgr"))
		}

		tickInterval := time.Duration(opts.TickIntervalMs) * time.Millisecond
		toTicks := func(seconds int) ticks.Ticks {
			return ticks.FromDuration(time.Duration(seconds)*time.Second, tickInterval)
		}

		conn := connmgr.New(connmgr.Config{
			HotspotSSID:    opts.HotspotSSID,
			DeviceName:     opts.DeviceName,
			ConnectTimeout: toTicks(opts.ConnectTimeoutS),
			GracePeriod:    toTicks(opts.GracePeriodS),
			AnnounceEvery:  toTicks(opts.AnnounceEveryS),
		}, store, rdo, adv, bus, metricSet, logging.GetLogger("connmgr"))

		ledStrip := strip.New(opts.StripDevice, opts.StripCount, logging.GetLogger("render"))

		scheduler := render.New(render.Config{
			LEDCount:     opts.StripCount,
			TickInterval: tickInterval,
			RenderBudget: time.Duration(opts.RenderBudgetMs) * time.Millisecond,
			AudioBudget:  time.Duration(opts.AudioBudgetMs) * time.Millisecond,
		}, ledStrip, conn, audio.NewProcessor(), store, bus, metricSet,
			watchdog.New(logger), logging.GetLogger("render"))

		engine := protocol.NewEngine(scheduler, bus, metricSet, logging.GetLogger("protocol"))
		control := transport.NewServer(opts.ControlAddr, engine, conn, bus, metricSet, logging.GetLogger("transport"))

		apiServer := api.NewServer(&api.Options{
			StatusSource:      scheduler,
			PrometheusHandler: metricSet.Handler(),
		})

		// Hot-reload logging levels when the config file changes.
		watcher := config.NewWatcher(opts.Config, func(path string) (logging.Config, error) {
			return config.LoadLoggingConfig(path), nil
		}, logger)
		watcher.OnReload(func(cfg logging.Config) {
			logging.Reload(cfg)
		})

		schedCtx, stopScheduler := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			go scheduler.Run(schedCtx)

			if startErr := control.Start(); startErr != nil {
				logger.Error("Failed to start control server", "error", startErr)
				os.Exit(1)
			}

			if watchErr := watcher.Start(); watchErr != nil {
				logger.Warn("Config watcher not started", "error", watchErr)
			}

			if _, notifyErr := daemon.SdNotify(false, daemon.SdNotifyReady); notifyErr != nil {
				logger.Debug("sd_notify not available", "error", notifyErr)
			}

			logger.Info("Starting HTTP server", "addr", opts.HTTPAddr)
			if startErr := apiServer.Start(opts.HTTPAddr); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			if stopErr := apiServer.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			control.Stop()
			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Debug("Error stopping config watcher", "error", stopErr)
			}
			stopScheduler()
		})
	})

	cli.Root().AddCommand(cmd.CreateSendCmd())
	cli.Root().AddCommand(cmd.CreateCredsCmd())

	cli.Run()
}
