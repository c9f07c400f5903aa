package setup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/njoerd114/placereminder/internal/homeassistant"
	"github.com/njoerd114/placereminder/internal/telegram"
)

// HAConnection is what the wizard needs from Home Assistant.
// Implemented by [homeassistant.Adapter].
type HAConnection interface {
	Ping(ctx context.Context) error
	NotifyServices(ctx context.Context) ([]string, error)
}

// ConnectHA opens a Home Assistant connection for discovery. No notify
// service is selected yet, so the adapter can only ping and list.
func ConnectHA(_ context.Context, haURL, haToken string, logger *slog.Logger) (HAConnection, error) {
	a, err := homeassistant.NewAdapter(haURL, haToken, "", logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to Home Assistant: %w", err)
	}
	return a, nil
}

// DiscoverNotifyServices verifies the connection and returns the companion
// app notify services (notify.mobile_app_*), sorted.
func DiscoverNotifyServices(ctx context.Context, conn HAConnection) ([]string, error) {
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("cannot reach Home Assistant: %w", err)
	}
	services, err := conn.NotifyServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing notify services: %w", err)
	}
	return services, nil
}

// CheckTelegram authorises the bot token against the Telegram API.
func CheckTelegram(token string, chatID int64, logger *slog.Logger) error {
	if _, err := telegram.New(token, chatID, logger); err != nil {
		return fmt.Errorf("checking telegram bot: %w", err)
	}
	return nil
}
