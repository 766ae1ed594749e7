// Somatra - companion core for the Somatra neural-therapy wearable.
// Copyright (C) 2026  Somatra Labs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/umutcvc/MySomatra-sub000/internal/config"
	"github.com/umutcvc/MySomatra-sub000/internal/domain"
	"github.com/umutcvc/MySomatra-sub000/internal/service/activity"
	"github.com/umutcvc/MySomatra-sub000/internal/service/ble"
	"github.com/umutcvc/MySomatra-sub000/internal/service/export"
	"github.com/umutcvc/MySomatra-sub000/internal/service/sessions"
	"github.com/umutcvc/MySomatra-sub000/internal/service/storage"
	"github.com/umutcvc/MySomatra-sub000/internal/service/telemetry"
	"github.com/umutcvc/MySomatra-sub000/internal/service/therapy"
)

// App wires every service together. It owns the device link, the
// telemetry store and the activity pipeline, and is what the CLI talks
// to.
type App struct {
	Cfg     *config.Config
	Log     *logrus.Logger
	Device  domain.DeviceService
	Store   *telemetry.Store
	Storage *storage.Service

	Collector  *activity.Collector
	Trainer    *activity.Trainer
	Classifier *activity.Classifier
	Therapy    *therapy.Service

	detach func()
}

// New assembles the application from config. The mock device replaces
// the BLE adapter when cfg.Device.Mock is set.
func New(cfg *config.Config) (*App, error) {
	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(level)
	}

	var device domain.DeviceService
	if cfg.Device.Mock {
		device = ble.NewMockService()
	} else {
		device = ble.NewRealService(log, nil)
	}

	store := telemetry.NewStore()
	detach := store.Attach(device)

	storageSvc, err := storage.NewService(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("storage init: %w", err)
	}

	var sink domain.SessionSink
	if cfg.Backend.URL != "" {
		sink = sessions.NewClient(cfg.Backend.URL, log)
	} else {
		sink = sessions.NewLocalSink(storageSvc)
	}

	collector := activity.NewCollector(store, log, activity.CollectorConfig{})
	trainer := activity.NewTrainer(collector, log, time.Now().UnixNano())
	classifier := activity.NewClassifier(store, trainer, log, 0)

	return &App{
		Cfg:        cfg,
		Log:        log,
		Device:     device,
		Store:      store,
		Storage:    storageSvc,
		Collector:  collector,
		Trainer:    trainer,
		Classifier: classifier,
		Therapy:    therapy.NewService(device, sink, log),
		detach:     detach,
	}, nil
}

// Connect pairs with the first matching device and opens the link.
func (a *App) Connect(ctx context.Context) (*domain.DeviceInfo, error) {
	if !a.Device.IsSupported() {
		return nil, domain.ErrUnsupportedPlatform
	}

	scanCtx, cancel := context.WithTimeout(ctx, time.Duration(a.Cfg.Device.ScanTimeoutSeconds)*time.Second)
	defer cancel()

	info, err := a.Device.RequestPairing(scanCtx)
	if err != nil {
		return nil, err
	}
	if info == nil {
		// Scan cancelled; not an error.
		return nil, nil
	}

	if err := a.Device.Connect(ctx); err != nil {
		return nil, err
	}
	return info, nil
}

// Shutdown stops everything that runs and drops the device link.
func (a *App) Shutdown() {
	a.Classifier.Stop()
	a.Collector.CancelCollection()
	if a.Therapy.Status().Active {
		if err := a.Therapy.Stop(); err != nil {
			a.Log.WithError(err).Warn("Failed to stop therapy on shutdown")
		}
	}
	a.Device.Disconnect()
	a.detach()
}

// ExportGPX writes the current GPS history to a GPX file.
func (a *App) ExportGPX(filepath string) error {
	return export.WriteGPX(a.Store.Current().GPSHistory, filepath)
}

// ExportFIT writes the current GPS history to a FIT activity file.
func (a *App) ExportFIT(filepath string) error {
	history := a.Store.Current().GPSHistory
	if len(history) == 0 {
		return fmt.Errorf("no GPS history to export")
	}

	rec := export.NewFITRecorder()
	rec.StartSession(history[0].Timestamp)
	for _, r := range history {
		rec.AddReading(r)
	}
	return rec.Save(filepath)
}
