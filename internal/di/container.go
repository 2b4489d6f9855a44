// Package di provides dependency injection configuration for the bot.
package di

import (
	"github.com/samber/do/v2"

	"github.com/dropwatch/dropwatch/internal/di/providers"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Change detection
	do.Provide(injector, providers.ProvideWatcherSet)
	do.Provide(injector, providers.ProvideTrigger)

	// Delivery
	do.Provide(injector, providers.ProvideTelegramClient)
	do.Provide(injector, providers.ProvideNotifier)

	// Main loop
	do.Provide(injector, providers.ProvideMonitor)

	return injector
}
