package providers

import (
	"github.com/samber/do/v2"

	"github.com/dropwatch/dropwatch/internal/config"
	"github.com/dropwatch/dropwatch/internal/logger"
	"github.com/dropwatch/dropwatch/internal/monitor"
	"github.com/dropwatch/dropwatch/internal/notify"
	"github.com/dropwatch/dropwatch/internal/telegram"
	"github.com/dropwatch/dropwatch/internal/watch"
)

// ProvideTelegramClient provides the Bot API transport.
func ProvideTelegramClient(i do.Injector) (*telegram.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return telegram.New(telegram.Config{
		Token:   cfg.Telegram.Token,
		ChatID:  cfg.Telegram.ChatID,
		BaseURL: cfg.Telegram.BaseURL,
	}, log.Logger), nil
}

// ProvideNotifier provides the rate-limited, retrying notifier over the
// Telegram transport.
func ProvideNotifier(i do.Injector) (*notify.Notifier, error) {
	client := do.MustInvoke[*telegram.Client](i)
	log := do.MustInvoke[*logger.Logger](i)

	return notify.NewNotifier(client, log.Logger), nil
}

// ProvideMonitor provides the main polling loop.
func ProvideMonitor(i do.Injector) (*monitor.Monitor, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	set := do.MustInvoke[*watch.Set](i)
	notifier := do.MustInvoke[*notify.Notifier](i)
	trigger := do.MustInvoke[*TriggerHandle](i)

	return monitor.New(monitor.Config{
		Name:     cfg.App.Name,
		Interval: cfg.Interval(),
		Wake:     trigger.Wake(),
	}, set, notifier, log.Logger), nil
}
