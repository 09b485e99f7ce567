package main

import (
	"context"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/HopIT-Hub/macrokey/internal/action"
	"github.com/HopIT-Hub/macrokey/internal/app"
	"github.com/HopIT-Hub/macrokey/internal/autostart"
	"github.com/HopIT-Hub/macrokey/internal/config"
	"github.com/HopIT-Hub/macrokey/internal/device"
	"github.com/HopIT-Hub/macrokey/internal/dispatch"
	"github.com/HopIT-Hub/macrokey/internal/hook"
	"github.com/HopIT-Hub/macrokey/internal/hotkey"
	"github.com/HopIT-Hub/macrokey/internal/inject"
	"github.com/HopIT-Hub/macrokey/internal/logging"
	"github.com/HopIT-Hub/macrokey/internal/profile"
	"github.com/HopIT-Hub/macrokey/internal/server"
	"github.com/HopIT-Hub/macrokey/internal/tray"
)

// RunCmd starts the application.
type RunCmd struct {
	Headless bool   `help:"Run without the tray icon until interrupted"`
	Capture  string `help:"Capture backend (hook or hotkey), overrides settings"`
	Injector string `help:"Injector backend (desktop or usb), overrides settings"`
}

// services are the long-running parts started once the UI is ready.
type services struct {
	app      *app.App
	server   *server.Server
	hook     *hook.Manager    // nil unless capture is hook
	hotkeys  *hotkey.Manager  // nil unless capture is hotkey
	device   *device.Manager  // nil unless injector is usb
	settings *config.Settings
}

func (r *RunCmd) Run(cli *CLI) error {
	log := logging.For("macrokey")

	settings, err := config.Load(cli.Settings)
	if err != nil {
		return err
	}
	capture := settings.GetCapture()
	if r.Capture != "" {
		capture = r.Capture
	}
	injector := settings.GetInjector()
	if r.Injector != "" {
		injector = r.Injector
	}
	if err := config.CheckBackends(capture, injector); err != nil {
		return err
	}

	var svc services
	svc.settings = settings

	var dev inject.Device = inject.Desktop{}
	if injector == config.InjectorUSB {
		svc.device = device.NewManager(settings.GetUSBSerial(), func(s device.State) {
			tray.SetDevice(s.String())
			log.Info("device", "state", s)
		})
		dev = svc.device
	}

	var capt dispatch.Capture
	switch capture {
	case config.CaptureHotkey:
		svc.hotkeys = hotkey.NewManager()
		capt = svc.hotkeys
	default:
		svc.hook = hook.NewManager()
		capt = svc.hook
	}

	store := profile.NewStore(action.NewScript())
	pipeline := dispatch.New(store, capt, inject.New(dev))
	svc.app = app.New(store, pipeline, config.FileStore{Path: settings.ProfilesFile()})

	svc.server = server.New(svc.app, settings, version)
	if svc.device != nil {
		svc.server.DeviceState = func() string { return svc.device.State().String() }
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting", "version", version, "capture", capture, "injector", injector)

	if r.Headless {
		return svc.run(ctx)
	}

	var (
		wg     sync.WaitGroup
		runErr error
	)
	tray.Run(tray.RunOpts{
		Version:          version,
		AutoStartEnabled: settings.GetAutoStart(),

		// onReady: start background services after the tray is initialized
		OnReady: func() {
			svc.app.Subscribe(tray.Update)
			wg.Add(1)
			go func() {
				defer wg.Done()
				runErr = svc.run(ctx)
				tray.Quit()
			}()
		},
		OnScript: func(active bool) {
			svc.app.SetScriptActive(active)
		},
		OnSubProfile: func(id int) {
			if err := svc.app.ActivateSubProfile(ctx, id); err != nil {
				log.Warn("activate sub-profile", "id", id, "err", err)
			}
		},
		OnSettings: func() {
			if url := svc.server.URL(); url != "" {
				openBrowser(url + "/status")
			}
		},
		OnAutoStart: func(enabled bool) {
			if err := autostart.Set(enabled, "run"); err != nil {
				log.Error("autostart", "err", err)
				return
			}
			if err := settings.SetAutoStart(enabled); err != nil {
				log.Error("save autostart config", "err", err)
			}
			log.Info("auto-start", "enabled", enabled)
		},
		OnQuit: stop,
	})

	// The tray returned: stop the services and wait for them.
	stop()
	wg.Wait()
	return runErr
}

// run starts every service under one errgroup, loads the profiles and
// blocks until ctx is done. Shutdown saves the profile document.
func (s *services) run(ctx context.Context) error {
	log := logging.For("macrokey")
	g, gctx := errgroup.WithContext(ctx)

	if s.hook != nil {
		g.Go(func() error { return s.hook.Run(gctx) })
	}
	if s.device != nil {
		g.Go(func() error { return s.device.Run(gctx) })
	}
	g.Go(func() error { return s.server.Run(gctx, s.settings.GetServerAddr()) })

	if err := s.app.Load(gctx); err != nil {
		log.Warn("load profiles", "err", err)
	}

	<-gctx.Done()
	err := g.Wait()

	if s.hotkeys != nil {
		s.hotkeys.Close()
	}
	if cerr := s.app.Close(); cerr != nil {
		log.Error("save profiles", "err", cerr)
	}
	log.Info("stopped")
	return err
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default: // linux, bsd
		cmd = "xdg-open"
		args = []string{url}
	}

	if err := exec.Command(cmd, args...).Start(); err != nil {
		logging.For("macrokey").Warn("open browser", "err", err)
	}
}
