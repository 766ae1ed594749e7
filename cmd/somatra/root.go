package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/umutcvc/MySomatra-sub000/internal/api"
	"github.com/umutcvc/MySomatra-sub000/internal/app"
	"github.com/umutcvc/MySomatra-sub000/internal/config"
	"github.com/umutcvc/MySomatra-sub000/internal/domain"
	"github.com/umutcvc/MySomatra-sub000/internal/service/activity"
	"github.com/umutcvc/MySomatra-sub000/internal/service/storage"
	"github.com/umutcvc/MySomatra-sub000/internal/service/telemetry"
)

var (
	cfgFile  string
	useMock  bool
	logLevel string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "somatra",
		Short: "Companion core for the Somatra neural-therapy wearable",
		Long: "somatra links to the wearable over BLE, streams its motion and GPS\n" +
			"telemetry, trains the on-device activity classifier and drives\n" +
			"therapy sessions.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "somatra.yaml", "config file")
	root.PersistentFlags().BoolVar(&useMock, "mock", false, "use the simulated device instead of BLE")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newConnectCmd(),
		newCalibrateCmd(),
		newTherapyCmd(),
		newClassifyCmd(),
		newSessionsCmd(),
		newServeCmd(),
		newExportCmd(),
	)
	return root
}

func loadApp() (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if useMock {
		cfg.Device.Mock = true
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return app.New(cfg)
}

// interruptContext cancels on Ctrl-C.
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func connectDevice(ctx context.Context, a *app.App) error {
	fmt.Println("Scanning for Somatra devices...")
	info, err := a.Connect(ctx)
	if err != nil {
		return err
	}
	if info == nil {
		return fmt.Errorf("scan cancelled")
	}
	color.Green("Connected to %s (%s)", info.Name, info.ID)
	return nil
}

func newConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Connect to the device and stream live telemetry",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Shutdown()

			ctx, cancel := interruptContext()
			defer cancel()

			if err := connectDevice(ctx, a); err != nil {
				return err
			}

			unsub := a.Store.Subscribe(func(snap telemetry.Snapshot) {
				if snap.Orientation != nil {
					fmt.Printf("\rpitch %7.2f°  ", snap.Orientation.Pitch)
				}
				if snap.Battery != nil {
					fmt.Printf("battery %3d%%  ", snap.Battery.Percentage)
				}
				if snap.GPS != nil && snap.GPS.Fix {
					fmt.Printf("gps %.5f,%.5f  ", snap.GPS.Latitude, snap.GPS.Longitude)
				}
			})
			defer unsub()

			<-ctx.Done()
			fmt.Println()
			return nil
		},
	}
}

func newCalibrateCmd() *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Run the on-device IMU calibration",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Shutdown()

			ctx, cancel := interruptContext()
			defer cancel()

			if err := connectDevice(ctx, a); err != nil {
				return err
			}

			fmt.Printf("Calibrating for %s, keep the device still...\n", duration)
			if err := a.Device.CalibrateIMU(duration); err != nil {
				return err
			}
			time.Sleep(duration)
			color.Green("Calibration done")
			return nil
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 2*time.Second, "calibration window")
	return cmd
}

func newTherapyCmd() *cobra.Command {
	var intensity int

	cmd := &cobra.Command{
		Use:   "therapy <mode>",
		Short: "Run a therapy session until interrupted",
		Long:  "Modes: relax, sleep, focus, hype, meditate, recovery.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Shutdown()

			ctx, cancel := interruptContext()
			defer cancel()

			if err := connectDevice(ctx, a); err != nil {
				return err
			}

			mode := domain.TherapyMode(args[0])
			if err := a.Therapy.Start(mode, intensity); err != nil {
				return err
			}
			color.Cyan("Therapy %q running at intensity %d, Ctrl-C to stop", mode, intensity)

			<-ctx.Done()
			return a.Therapy.Stop()
		},
	}
	cmd.Flags().IntVar(&intensity, "intensity", 50, "stimulation intensity 0-100")
	return cmd
}

func newClassifyCmd() *cobra.Command {
	var captureDuration time.Duration

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Collect labeled samples, train the classifier and classify live",
		Long: "Guides one capture per activity, trains the model on the result and\n" +
			"then prints live classifications until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Shutdown()

			ctx, cancel := interruptContext()
			defer cancel()

			if err := connectDevice(ctx, a); err != nil {
				return err
			}

			a.Collector = activity.NewCollector(a.Store, a.Log, activity.CollectorConfig{
				Duration: captureDuration,
			})
			a.Trainer = activity.NewTrainer(a.Collector, a.Log, time.Now().UnixNano())
			a.Classifier = activity.NewClassifier(a.Store, a.Trainer, a.Log, 0)

			for _, act := range domain.Activities {
				if err := collectOne(ctx, a, act); err != nil {
					return err
				}
			}

			fmt.Println("Training...")
			err = a.Trainer.Train(func(p activity.TrainProgress) {
				fmt.Printf("\repoch %2d/%d  loss %.4f  accuracy %5.1f%%", p.Epoch, p.TotalEpochs, p.Loss, p.Accuracy*100)
			})
			fmt.Println()
			if err != nil {
				return err
			}
			color.Green("Model trained")

			err = a.Classifier.Start(func(r domain.ClassificationResult) {
				fmt.Printf("\r%-10s %5.1f%%  ", r.CurrentActivity, r.Confidence)
			})
			if err != nil {
				return err
			}

			<-ctx.Done()
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().DurationVar(&captureDuration, "capture", 10*time.Second, "capture length per activity")
	return cmd
}

func collectOne(ctx context.Context, a *app.App, act domain.ActivityType) error {
	color.Yellow("Perform %q now", act)

	done := make(chan activity.CollectionResult, 1)
	err := a.Collector.StartCollection(act,
		func(elapsed, remaining float64) {
			fmt.Printf("\r%3.0f%%  %4.1fs left", elapsed*100, remaining)
		},
		func(r activity.CollectionResult) { done <- r },
	)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		a.Collector.CancelCollection()
		return ctx.Err()
	case r := <-done:
		fmt.Println()
		if r.Status != activity.CollectionCompleted {
			return fmt.Errorf("capture for %q ended with %s (%d readings)", act, r.Status, r.SampleCount)
		}
		color.Green("Captured %d readings for %q", r.SampleCount, act)
		return nil
	}
}

func newSessionsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded therapy sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			store, err := newStorage(cfg)
			if err != nil {
				return err
			}

			list, err := store.GetRecentSessions(limit)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("No sessions recorded yet.")
				return nil
			}

			for _, s := range list {
				state := color.GreenString("done")
				if s.EndedAt == nil {
					state = color.YellowString("open")
				}
				fmt.Printf("%4d  %-10s  intensity %3d  %4ds  %s  %s\n",
					s.ID, s.Mode, s.Intensity, s.Duration,
					s.StartedAt.Format("2006-01-02 15:04"), state)
			}
			total := store.GetTotalDuration()
			fmt.Printf("\nTotal therapy time: %s\n", time.Duration(total)*time.Second)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max sessions to show")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the session REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			store, err := newStorage(cfg)
			if err != nil {
				return err
			}
			return api.NewServer(store, nil).Run(cfg.API.Addr)
		},
	}
}

func newExportCmd() *cobra.Command {
	var (
		duration time.Duration
		gpxPath  string
		fitPath  string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Record GPS telemetry for a while and export it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if gpxPath == "" && fitPath == "" {
				return fmt.Errorf("nothing to do: pass --gpx and/or --fit")
			}

			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Shutdown()

			ctx, cancel := interruptContext()
			defer cancel()

			if err := connectDevice(ctx, a); err != nil {
				return err
			}

			fmt.Printf("Recording GPS for %s...\n", duration)
			select {
			case <-ctx.Done():
			case <-time.After(duration):
			}

			if gpxPath != "" {
				if err := a.ExportGPX(gpxPath); err != nil {
					return err
				}
				color.Green("Wrote %s", gpxPath)
			}
			if fitPath != "" {
				if err := a.ExportFIT(fitPath); err != nil {
					return err
				}
				color.Green("Wrote %s", fitPath)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", time.Minute, "recording window")
	cmd.Flags().StringVar(&gpxPath, "gpx", "", "GPX output path")
	cmd.Flags().StringVar(&fitPath, "fit", "", "FIT output path")
	return cmd
}

func newStorage(cfg *config.Config) (*storage.Service, error) {
	return storage.NewService(cfg.Storage.Path)
}
