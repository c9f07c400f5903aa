// placereminder is the backend for location-based reminders. It stores
// reminders, registers a geofence for each one, and pushes a notification to
// the user's phone when the device reports entering or leaving a place.
//
// Usage:
//
//	placereminder setup                    # interactive first-run wizard
//	placereminder serve [--config <path>]  # HTTP API for the device
//	placereminder list                     # show saved reminders
//	placereminder add [--title ...]        # save a reminder
//	placereminder clear [--yes]            # delete all reminders
//	placereminder mcp                      # MCP tools over stdio
//	placereminder status                   # show service & config state
//	placereminder uninstall [--purge]      # stop service and remove files
//	placereminder version                  # print version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/njoerd114/placereminder/internal/config"
	"github.com/njoerd114/placereminder/internal/geofence"
	"github.com/njoerd114/placereminder/internal/homeassistant"
	"github.com/njoerd114/placereminder/internal/httpapi"
	"github.com/njoerd114/placereminder/internal/mcpserver"
	"github.com/njoerd114/placereminder/internal/notify"
	"github.com/njoerd114/placereminder/internal/setup"
	"github.com/njoerd114/placereminder/internal/telegram"
	"github.com/njoerd114/placereminder/internal/telemetry"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

// run dispatches to the appropriate subcommand.
func run() error {
	if len(os.Args) < 2 {
		return printUsage()
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "setup":
		return runSetup()
	case "serve":
		return runServe(args)
	case "list":
		return runList(args)
	case "add":
		return runAdd(args)
	case "clear":
		return runClear(args)
	case "mcp":
		return runMCP(args)
	case "status":
		return runStatus(args)
	case "uninstall":
		return runUninstall(args)
	case "version":
		fmt.Println("placereminder", version)
		return nil
	case "help", "-h", "--help":
		return printUsage()
	}

	return fmt.Errorf("unknown command %q, run 'placereminder' for usage", os.Args[1])
}

// printUsage shows help and suggests setup if no config exists.
func printUsage() error {
	cfgPath, _ := config.DefaultPath()
	_, cfgErr := os.Stat(cfgPath)

	fmt.Fprintln(os.Stderr, "placereminder: location-based reminders")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  placereminder setup                  Interactive first-run wizard")
	fmt.Fprintln(os.Stderr, "  placereminder serve [--config ...]   Run the HTTP API for the device")
	fmt.Fprintln(os.Stderr, "  placereminder list                   Show saved reminders")
	fmt.Fprintln(os.Stderr, "  placereminder add [--title ...]      Save a reminder")
	fmt.Fprintln(os.Stderr, "  placereminder clear [--yes]          Delete all reminders")
	fmt.Fprintln(os.Stderr, "  placereminder mcp                    Serve MCP tools over stdio")
	fmt.Fprintln(os.Stderr, "  placereminder status                 Show service & config state")
	fmt.Fprintln(os.Stderr, "  placereminder uninstall [--purge]    Stop service and remove files")
	fmt.Fprintln(os.Stderr, "  placereminder version                Print version")
	fmt.Fprintln(os.Stderr, "")

	if cfgErr != nil {
		fmt.Fprintln(os.Stderr, "No config file found. Run 'placereminder setup' to get started.")
	}

	os.Exit(1)
	return nil // unreachable
}

// commonFlags registers --config and --verbose on fs.
func commonFlags(fs *flag.FlagSet) (cfgPath *string, verbose *bool) {
	defaultCfg, _ := config.DefaultPath()
	cfgPath = fs.String("config", defaultCfg, "path to config.yaml")
	verbose = fs.Bool("verbose", false, "enable debug logging")
	return cfgPath, verbose
}

// --- Subcommands -------------------------------------------------------------

// runSetup launches the interactive setup wizard.
func runSetup() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	wiz := setup.NewWizard(os.Stdin, os.Stdout, logger)
	return wiz.Run(ctx)
}

// runServe starts the HTTP API, the geofence sweeper, and the notifiers.
func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath, verbose := commonFlags(fs)
	addr := fs.String("addr", "", "listen address (overrides listen_addr)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// --- Logger --------------------------------------------------------------

	logger := newLogger(*verbose)

	// --- Config --------------------------------------------------------------

	cfg, err := loadConfig(*cfgPath, true, logger)
	if err != nil {
		return fmt.Errorf("%w (run 'placereminder setup' first)", err)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	logger.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"driver", cfg.Database.Driver,
		"radius_meters", cfg.Geofence.RadiusMeters,
		"expiration", cfg.Geofence.Expiration,
	)

	// --- Telemetry (optional) ------------------------------------------------

	if telCfg, ok := telemetry.FromConfig(cfg.Telemetry, version); ok {
		shutdownTel, err := telemetry.Setup(context.Background(), telCfg)
		if err != nil {
			logger.Error("telemetry setup failed, continuing without telemetry", "error", err)
		} else {
			logger.Info("telemetry enabled", "endpoint", telCfg.OTLPEndpoint)
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTel(flushCtx); err != nil {
					logger.Error("telemetry shutdown error", "error", err)
				}
			}()
		}
	}

	// --- State DB ------------------------------------------------------------

	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	logger.Info("state DB opened", "path", a.dbPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// --- Notifiers -----------------------------------------------------------

	notifiers, err := buildNotifiers(ctx, cfg, logger)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(notify.DefaultTimeout, logger, notifiers...)
	logger.Info("notifiers ready", "notifiers", dispatcher.Notifiers())

	// --- Geofences -----------------------------------------------------------

	sweeper, err := geofence.NewSweeper(a.registry, cfg.Geofence.SweepSchedule, time.Local, logger)
	if err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	handler := geofence.NewHandler(a.repo, dispatcher, logger)

	// --- HTTP API ------------------------------------------------------------

	srv := httpapi.New(a.repo, a.registry, handler, logger,
		httpapi.WithToken(cfg.APIToken),
		httpapi.WithGeofenceOptions(geofenceOptions(cfg)),
	)
	if cfg.APIToken == "" {
		logger.Warn("api_token is not set, the HTTP API accepts unauthenticated requests")
	}

	if err := srv.ListenAndServe(ctx, cfg.ListenAddr); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// buildNotifiers creates the configured delivery channels. With none
// configured, notifications are only logged.
func buildNotifiers(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]notify.Notifier, error) {
	var notifiers []notify.Notifier

	if ha := cfg.HomeAssistant; ha != nil {
		haAdapter, err := homeassistant.NewAdapter(ha.URL, ha.Token, ha.NotifyService, logger)
		if err != nil {
			return nil, fmt.Errorf("initialising Home Assistant client: %w", err)
		}
		logger.Info("pinging Home Assistant…", "url", ha.URL)
		if err := haAdapter.Ping(ctx); err != nil {
			return nil, fmt.Errorf("connecting to Home Assistant at %q: %w\n\nCheck home_assistant.url and home_assistant.token in your config file", ha.URL, err)
		}
		logger.Info("Home Assistant reachable", "service", haAdapter.Service())
		notifiers = append(notifiers, haAdapter)
	}

	if tg := cfg.Telegram; tg != nil {
		bot, err := telegram.New(tg.Token, tg.ChatID, logger)
		if err != nil {
			return nil, fmt.Errorf("initialising Telegram bot: %w", err)
		}
		notifiers = append(notifiers, bot)
	}

	if len(notifiers) == 0 {
		logger.Warn("no notifiers configured, notifications will only be logged")
		notifiers = append(notifiers, notify.NewLogNotifier(logger))
	}
	return notifiers, nil
}

// runMCP serves the MCP tools over stdio. Logs go to stderr so stdout stays
// reserved for the protocol.
func runMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	cfgPath, verbose := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	logger := newLogger(*verbose)

	cfg, err := loadConfig(*cfgPath, false, logger)
	if err != nil {
		return err
	}
	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	s := mcpserver.New(a.repo, a.registry, geofenceOptions(cfg), version, logger)
	if err := s.ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// runStatus prints the current service and configuration state.
func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	cfgPath, verbose := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	logger := newLogger(*verbose)

	fmt.Println(titleStyle.Render("placereminder status"))
	fmt.Println("────────────────────")

	if setup.IsServiceActive() {
		fmt.Println("  Service:   running (systemd --user)")
	} else {
		fmt.Println("  Service:   not running")
	}

	cfg := config.Default()
	if _, err := os.Stat(*cfgPath); err == nil {
		if loaded, loadErr := config.Load(*cfgPath); loadErr == nil {
			cfg = loaded
			fmt.Printf("  Config:    %s ✓\n", *cfgPath)
			fmt.Printf("  Listen:    %s\n", cfg.ListenAddr)
			fmt.Printf("  Notifiers: %s\n", describeNotifiers(cfg))
			fmt.Printf("  Geofence:  %.0f m, %s\n", cfg.Geofence.RadiusMeters, describeExpiration(cfg))
		} else {
			fmt.Printf("  Config:    %s (invalid: %v)\n", *cfgPath, loadErr)
		}
	} else {
		fmt.Printf("  Config:    not found (%s)\n", *cfgPath)
	}

	path, err := dbPath(cfg)
	if err != nil {
		return err
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		fmt.Printf("  State DB:  not found\n")
		return nil
	}
	fmt.Printf("  State DB:  %s (%s)\n", path, humanSize(info.Size()))

	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if n, err := a.store.CountReminders(ctx); err == nil {
		fmt.Printf("  Reminders: %d\n", n)
	}
	if regs, err := a.registry.List(ctx); err == nil {
		fmt.Printf("  Geofences: %d active\n", len(regs))
	}
	return nil
}

// runUninstall stops the service and removes installed files.
func runUninstall(args []string) error {
	fs := flag.NewFlagSet("uninstall", flag.ExitOnError)
	purge := fs.Bool("purge", false, "also remove config and the reminder database")
	if err := fs.Parse(args); err != nil {
		return err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolving home directory: %w", err)
	}

	fmt.Println("Uninstalling placereminder...")

	// 1. Stop service.
	if setup.IsServiceActive() {
		fmt.Println("  Stopping service...")
		if err := setup.DisableService(); err != nil {
			fmt.Printf("  ⚠ %v\n", err)
		} else {
			fmt.Println("  ✓ Service stopped")
		}
	}

	// 2. Remove unit.
	if err := setup.RemoveUnit(homeDir); err != nil {
		fmt.Printf("  ⚠ %v\n", err)
	} else {
		fmt.Println("  ✓ Unit removed")
	}

	// 3. Remove binary.
	if err := setup.RemoveBinary(homeDir); err != nil {
		fmt.Printf("  ⚠ %v\n", err)
	} else {
		fmt.Println("  ✓ Binary removed")
	}

	// 4. Optional purge.
	if *purge {
		fmt.Println("  Purging config and reminder database...")
		if err := setup.PurgeUserData(homeDir); err != nil {
			fmt.Printf("  ⚠ %v\n", err)
		} else {
			fmt.Println("  ✓ User data purged")
		}
	} else {
		fmt.Println("")
		fmt.Println("  Config and reminder database preserved.")
		fmt.Println("  Run with --purge to also remove them:")
		fmt.Println("    placereminder uninstall --purge")
	}

	fmt.Println("")
	fmt.Println("✓ placereminder uninstalled.")
	return nil
}

func describeNotifiers(cfg *config.Config) string {
	var out []string
	if cfg.HomeAssistant != nil {
		out = append(out, "homeassistant (notify."+cfg.HomeAssistant.NotifyService+")")
	}
	if cfg.Telegram != nil {
		out = append(out, fmt.Sprintf("telegram (chat %d)", cfg.Telegram.ChatID))
	}
	if len(out) == 0 {
		return "log only"
	}
	return strings.Join(out, ", ")
}

func describeExpiration(cfg *config.Config) string {
	if cfg.Geofence.NeverExpire {
		return "never expires"
	}
	return "expires after " + cfg.Geofence.Expiration.String()
}

// humanSize returns a human-readable file size string.
func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
