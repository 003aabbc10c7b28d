//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/mdc5017/QuantFinanceCourse/internal/app"
	"github.com/mdc5017/QuantFinanceCourse/internal/config"
	"github.com/mdc5017/QuantFinanceCourse/internal/notifier"
	"github.com/mdc5017/QuantFinanceCourse/internal/pipeline"
)

// App holds application dependencies built by Wire.
type App struct {
	Config   *config.Config
	Pipeline *pipeline.Pipeline
	Notifier *notifier.TelegramNotifier
}

// InitializeApp builds App from the config file via Wire.
// Caller must call the returned cleanup to close the price cache.
func InitializeApp(path app.ConfigPath) (*App, func(), error) {
	wire.Build(
		app.ProvideConfig,
		app.ProvideFetcher,
		app.ProvidePriceCache,
		app.ProvideCollector,
		app.ProvideSettings,
		app.ProvideVaRSettings,
		app.ProvidePipeline,
		app.ProvideNotifier,
		wire.Struct(new(App), "Config", "Pipeline", "Notifier"),
	)
	return nil, nil, nil
}
