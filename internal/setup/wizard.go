package setup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/njoerd114/placereminder/internal/config"
)

const (
	choiceHomeAssistant = "Home Assistant companion app"
	choiceTelegram      = "Telegram bot"
	choiceLogOnly       = "None (log notifications only)"
)

// Wizard guides the user through first-run configuration and installation.
type Wizard struct {
	prompt *Prompter
	logger *slog.Logger
	w      io.Writer

	cfgPath       string
	homeDir       string
	connectHA     func(ctx context.Context, haURL, haToken string, logger *slog.Logger) (HAConnection, error)
	checkTelegram func(token string, chatID int64, logger *slog.Logger) error
}

// NewWizard creates a Wizard wired to the given I/O and logger.
func NewWizard(r io.Reader, w io.Writer, logger *slog.Logger) *Wizard {
	return &Wizard{
		prompt:        NewPrompter(r, w),
		logger:        logger,
		w:             w,
		connectHA:     ConnectHA,
		checkTelegram: CheckTelegram,
	}
}

// Run executes the interactive setup wizard. It walks the user through the
// HTTP API, notifiers, geofence defaults, config file creation, and optional
// service install.
func (wiz *Wizard) Run(ctx context.Context) error {
	fmt.Fprintf(wiz.w, "\nWelcome to placereminder setup!\n")
	fmt.Fprintf(wiz.w, "This wizard configures where reminder notifications are delivered.\n\n")

	if err := wiz.resolvePaths(); err != nil {
		return err
	}

	if _, statErr := os.Stat(wiz.cfgPath); statErr == nil {
		fmt.Fprintf(wiz.w, "  Existing config found at %s\n", wiz.cfgPath)
		if !wiz.prompt.Confirm("Overwrite existing configuration?", false) {
			fmt.Fprintf(wiz.w, "\n  Keeping existing config.\n")
			return wiz.offerServiceInstall(ctx)
		}
		fmt.Fprintf(wiz.w, "\n")
	}

	cfg := config.Default()

	// Step 1: HTTP API.
	fmt.Fprintf(wiz.w, "Step 1/4: HTTP API\n")
	cfg.ListenAddr = wiz.prompt.String("Listen address", cfg.ListenAddr)
	if wiz.prompt.Confirm("Require an API token?", true) {
		cfg.APIToken = uuid.NewString()
		fmt.Fprintf(wiz.w, "  Generated token: %s\n", cfg.APIToken)
		fmt.Fprintf(wiz.w, "  Configure your device to send \"Authorization: Bearer <token>\".\n")
	}
	fmt.Fprintf(wiz.w, "\n")

	// Step 2: Notifiers.
	fmt.Fprintf(wiz.w, "Step 2/4: Notifications\n")
	if err := wiz.configureNotifiers(ctx, cfg); err != nil {
		return err
	}

	// Step 3: Geofence defaults.
	fmt.Fprintf(wiz.w, "Step 3/4: Geofence Defaults\n")
	cfg.Geofence.RadiusMeters = wiz.prompt.Float("Radius in meters", cfg.Geofence.RadiusMeters)
	cfg.Geofence.Expiration = wiz.prompt.Duration("Registration lifetime", cfg.Geofence.Expiration)
	fmt.Fprintf(wiz.w, "\n")

	// Step 4: Write config.
	fmt.Fprintf(wiz.w, "Step 4/4: Save Configuration\n")
	if err := cfg.Write(wiz.cfgPath); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(wiz.w, "  ✓ Config written to %s\n\n", wiz.cfgPath)

	return wiz.offerServiceInstall(ctx)
}

func (wiz *Wizard) resolvePaths() error {
	if wiz.cfgPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return fmt.Errorf("resolving config path: %w", err)
		}
		wiz.cfgPath = p
	}
	if wiz.homeDir == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving home directory: %w", err)
		}
		wiz.homeDir = h
	}
	return nil
}

// configureNotifiers lets the user pick delivery channels and fills in the
// matching config blocks.
func (wiz *Wizard) configureNotifiers(ctx context.Context, cfg *config.Config) error {
	options := []string{choiceHomeAssistant, choiceTelegram, choiceLogOnly}
	picked, err := wiz.prompt.MultiSelect("Deliver notifications via", options)
	if err != nil {
		return fmt.Errorf("selecting notifiers: %w", err)
	}
	fmt.Fprintf(wiz.w, "\n")

	for _, idx := range picked {
		switch options[idx] {
		case choiceHomeAssistant:
			ha, err := wiz.configureHA(ctx)
			if err != nil {
				return err
			}
			cfg.HomeAssistant = ha
		case choiceTelegram:
			tg, err := wiz.configureTelegram()
			if err != nil {
				return err
			}
			cfg.Telegram = tg
		}
	}
	return nil
}

func (wiz *Wizard) configureHA(ctx context.Context) (*config.HomeAssistantConfig, error) {
	haURL := wiz.prompt.String("HA URL", "http://homeassistant.local:8123")
	haToken := wiz.prompt.Secret("Access token")

	fmt.Fprintf(wiz.w, "  Connecting to Home Assistant...")
	conn, err := wiz.connectHA(ctx, haURL, haToken, wiz.logger)
	if err != nil {
		fmt.Fprintf(wiz.w, " ✗\n")
		return nil, err
	}
	services, err := DiscoverNotifyServices(ctx, conn)
	if err != nil {
		fmt.Fprintf(wiz.w, " ✗\n")
		return nil, fmt.Errorf("%w\n\n  Check the URL and token, then try again", err)
	}
	fmt.Fprintf(wiz.w, " ✓\n")

	var service string
	if len(services) == 0 {
		fmt.Fprintf(wiz.w, "  ⚠ No companion app notify services found. Is the app installed and logged in?\n")
		service = wiz.prompt.String("Notify service (e.g. mobile_app_pixel_8)", "")
	} else {
		idx, err := wiz.prompt.Select("Phone to notify", services)
		if err != nil {
			return nil, fmt.Errorf("selecting notify service: %w", err)
		}
		service = services[idx]
	}
	fmt.Fprintf(wiz.w, "  ✓ Using notify.%s\n\n", service)

	return &config.HomeAssistantConfig{URL: haURL, Token: haToken, NotifyService: service}, nil
}

func (wiz *Wizard) configureTelegram() (*config.TelegramConfig, error) {
	token := wiz.prompt.Secret("Bot token (from @BotFather)")
	chatID := wiz.prompt.Int64("Chat ID")

	fmt.Fprintf(wiz.w, "  Checking bot token...")
	if err := wiz.checkTelegram(token, chatID, wiz.logger); err != nil {
		fmt.Fprintf(wiz.w, " ✗\n")
		return nil, err
	}
	fmt.Fprintf(wiz.w, " ✓\n\n")
	return &config.TelegramConfig{Token: token, ChatID: chatID}, nil
}

// offerServiceInstall asks whether to install as a systemd user service.
func (wiz *Wizard) offerServiceInstall(_ context.Context) error {
	if !wiz.prompt.Confirm("Install as a user service (starts on login)?", true) {
		fmt.Fprintf(wiz.w, "\n  Skipping service install.\n")
		fmt.Fprintf(wiz.w, "  You can run manually with: placereminder serve\n")
		fmt.Fprintf(wiz.w, "  Or install later with:     placereminder setup\n\n")
		return nil
	}

	fmt.Fprintf(wiz.w, "\n")

	fmt.Fprintf(wiz.w, "  Installing binary to %s...\n", BinaryInstallPath(wiz.homeDir))
	if err := InstallBinary(wiz.homeDir); err != nil {
		return fmt.Errorf("installing binary: %w", err)
	}
	fmt.Fprintf(wiz.w, "  ✓ Binary installed\n")

	if err := WriteUnit(wiz.homeDir, wiz.cfgPath); err != nil {
		return fmt.Errorf("writing unit: %w", err)
	}
	fmt.Fprintf(wiz.w, "  ✓ systemd unit written\n")

	if err := EnableService(); err != nil {
		return fmt.Errorf("enabling service: %w", err)
	}
	fmt.Fprintf(wiz.w, "  ✓ Service enabled, running now\n")

	fmt.Fprintf(wiz.w, "\nSetup complete! placereminder is serving in the background.\n")
	fmt.Fprintf(wiz.w, "  Config:  %s\n", wiz.cfgPath)
	fmt.Fprintf(wiz.w, "  Logs:    journalctl --user -u %s\n", UnitName)
	fmt.Fprintf(wiz.w, "  Status:  placereminder status\n")
	fmt.Fprintf(wiz.w, "  Remove:  placereminder uninstall\n\n")

	return nil
}
