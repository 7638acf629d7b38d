package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"os/user"
	"sync"
	"syscall"

	"github.com/SoarinFerret/GetUp/internal/alarm"
	"github.com/SoarinFerret/GetUp/internal/alert"
	"github.com/SoarinFerret/GetUp/internal/clock"
	"github.com/SoarinFerret/GetUp/internal/config"
	"github.com/SoarinFerret/GetUp/internal/engine"
	"github.com/SoarinFerret/GetUp/internal/ipc"
	"github.com/SoarinFerret/GetUp/internal/logger"
	"github.com/SoarinFerret/GetUp/internal/loginctl"
	"github.com/SoarinFerret/GetUp/internal/store"
	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "getupd",
	Short:         "getupd is the GetUp alarm daemon",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigFromFile(configPath)
		if err != nil {
			return err
		}
		lg := logger.New()
		if err := lg.Init(cfg.Log.Level); err != nil {
			return err
		}
		defer lg.Log.Sync() //nolint:errcheck
		lg.Log.Info("using config file", zap.String("path", configPath))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx, cfg, lg.Log)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "path to config.toml")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st, err := store.Open(cfg.Store, log)
	if err != nil {
		return err
	}
	defer st.Close()

	conn, err := ipc.Connect(cfg.DBus.Bus)
	if err != nil {
		return err
	}
	defer conn.Close()

	sink, release, err := alert.Setup(cfg.Alert, conn, log)
	if err != nil {
		return err
	}
	defer release()

	clk := clock.New(log)
	clk.MaxSleep = cfg.Alarm.MaxTimerSleep.Std()
	if err := clk.Run(ctx); err != nil {
		return goerr.Wrap(err, "failed to start clock")
	}
	defer clk.Interrupt() //nolint:errcheck

	ctrl := alarm.NewController(clk, sink, st, log, alarm.Options{
		SnoozeWindow:       cfg.Alarm.SnoozeWindow.Std(),
		SnoozeLimit:        cfg.Alarm.SnoozeLimit,
		CodeLength:         cfg.Alarm.CodeLength,
		FirstRunCodeLength: cfg.Alarm.FirstRunCodeLength,
	})
	defer ctrl.Close() //nolint:errcheck

	if err := ctrl.Recover(ctx); err != nil {
		// Commands still work; the user can re-schedule.
		log.Error("failed to restore alarm", zap.Error(err))
	}

	eng := engine.NewEngine(ctrl, cfg.Alarm.TickInterval.Std(), log)

	var wg sync.WaitGroup
	goRun := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				log.Error(name+" stopped", zap.Error(err))
			}
		}()
	}

	goRun("controller", func() error { return ctrl.Run(ctx) })
	goRun("engine", func() error { return eng.Run(ctx) })
	goRun("dbus service", func() error {
		// Without the bus name nobody can silence the alarm.
		defer cancel()
		return ipc.Serve(ctx, conn, ctrl, log)
	})

	if u, err := user.Current(); err != nil {
		log.Warn("cannot determine user, logind watcher disabled", zap.Error(err))
	} else {
		goRun("logind watcher", func() error {
			return loginctl.Watch(ctx, u.Username, loginctl.Hooks{
				Wake: func() {
					clk.Resync()
					eng.Kick()
				},
				Unlock: ctrl.Foreground,
			}, log)
		})
	}

	wg.Wait()
	log.Info("shutdown complete")
	return nil
}
