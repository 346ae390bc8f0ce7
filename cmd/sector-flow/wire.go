//go:build wireinject
// +build wireinject

package main

import (
	"sector-flow/internal/app"
	"sector-flow/internal/update"

	"github.com/google/wire"
)

// App holds application dependencies built by Wire.
type App struct {
	Config  *app.Config
	Updater *update.Updater
}

// InitializeApp builds the update pipeline from cfg via Wire.
// Caller must run the returned cleanup when done.
func InitializeApp(cfg *app.Config) (*App, func(), error) {
	wire.Build(
		app.ProvideUniverse,
		app.ProvideMarketData,
		app.ProvideBarCodec,
		app.ProvideBarStore,
		app.ProvideHistory,
		app.ProvideFilter,
		app.ProvideEngine,
		app.ProvideMacroSource,
		app.ProvideMacroCollector,
		app.ProvideSnapshotWriter,
		app.ProvideMetrics,
		app.ProvideUpdater,
		wire.Struct(new(App), "Config", "Updater"),
	)
	return nil, nil, nil
}
