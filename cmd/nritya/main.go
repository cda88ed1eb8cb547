package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/nritya/internal/app"
	"github.com/ayusman/nritya/internal/capture"
	"github.com/ayusman/nritya/internal/config"
	"github.com/ayusman/nritya/internal/detector"
	"github.com/ayusman/nritya/internal/engine"
	"github.com/ayusman/nritya/internal/logger"
	"github.com/ayusman/nritya/internal/server"
	"github.com/ayusman/nritya/internal/sink"
	"github.com/ayusman/nritya/internal/store"
	"github.com/ayusman/nritya/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	addr := flag.String("addr", "", "listen address (overrides config)")
	camera := flag.Int("camera", config.NoCamera, "camera device id; -1 disables local capture")
	useTray := flag.Bool("tray", false, "show the system tray controls")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nritya: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *camera != config.NoCamera {
		cfg.CameraID = *camera
	}
	if *useTray {
		cfg.Tray = true
	}

	log, err := logger.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nritya: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if err := run(cfg, log); err != nil {
		log.Fatal("nritya failed", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	if err := st.Seed(); err != nil {
		return fmt.Errorf("seed store: %w", err)
	}

	if saved, err := st.Settings().GetOr(app.SettingMode, cfg.Mode); err == nil && os.Getenv("NRITYA_MODE") == "" {
		cfg.Mode = saved
	}
	engCfg, err := engineConfig(cfg, st)
	if err != nil {
		return err
	}
	engCfg.Logger = log.Named("engine")

	sinks := sink.Multi{sink.NewLog(log.Named("events"))}
	var synthSink *sink.SynthSink
	if cfg.SoundFont != "" {
		synth, err := sink.LoadSynth(cfg.SoundFont)
		if err != nil {
			return err
		}
		if err := synth.Play(100 * time.Millisecond); err != nil {
			return err
		}
		defer synth.Stop()
		synthSink = sink.NewSynthSink(synth, 120, log.Named("synth"))
		defer synthSink.Close()
		sinks = append(sinks, synthSink)
		log.Info("synthesizer ready", zap.String("soundfont", cfg.SoundFont))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := server.NewLandmarksHub(log.Named("landmarks"))
	srvCfg := server.Config{
		StaticDir: cfg.StaticDir,
		Store:     st,
		Engine:    engCfg,
		Sink:      sinks,
		Landmarks: hub,
		Logger:    log.Named("server"),
	}
	if srvCfg.StaticDir == "" {
		srvCfg.StaticDir = findWebDir()
	}

	var local *app.App
	if cfg.CameraID != config.NoCamera {
		local, err = newLocalApp(cfg, engCfg, sinks, hub, st, synthSink, log)
		if err != nil {
			return err
		}
		defer local.Close()
		srvCfg.Preview = local.Preview()
		if err := local.Start(); err != nil {
			return err
		}
		local.SetEnabled(!cfg.Tray)
	}

	httpSrv := &http.Server{Addr: cfg.Addr, Handler: server.New(srvCfg)}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.String("static", srvCfg.StaticDir))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if cfg.Tray {
		t := newTray(cfg, local, stop, log)
		go func() {
			<-ctx.Done()
			t.Quit()
		}()
		t.Run()
	} else {
		select {
		case <-ctx.Done():
		case err := <-errCh:
			return err
		}
	}
	stop()

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	return <-errCh
}

func newLocalApp(cfg config.Config, engCfg engine.Config, sinks sink.Sink, hub *server.LandmarksHub, st *store.Store, synth *sink.SynthSink, log *zap.Logger) (*app.App, error) {
	det, err := detector.NewSubprocessDetector(detector.Config{
		Script:        cfg.Detector.Script,
		Python:        cfg.Detector.Python,
		MaxHands:      cfg.Detector.MaxHands,
		MinConfidence: cfg.Detector.MinConfidence,
		Hands:         true,
	}, log)
	if err != nil {
		log.Warn("pose detector unavailable, local capture will stay silent", zap.Error(err))
	}

	appCfg := app.Config{
		Camera:    capture.NewCamera(capture.Options{DeviceID: cfg.CameraID}),
		Engine:    engCfg,
		Sink:      sinks,
		Landmarks: hub,
		Store:     st,
		Logger:    log.Named("app"),
	}
	if det != nil {
		appCfg.Detector = det
	}
	if synth != nil {
		appCfg.Tempo = synth.SetTempo
	}
	return app.New(appCfg)
}

func newTray(cfg config.Config, local *app.App, quit func(), log *zap.Logger) *tray.Tray {
	t := tray.New(cfg.Mode)
	url := "http://localhost" + cfg.Addr
	if cfg.Addr != "" && cfg.Addr[0] != ':' {
		url = "http://" + cfg.Addr
	}

	if local != nil {
		t.OnToggle(func(performing bool) {
			local.SetEnabled(performing)
			log.Info("performing", zap.Bool("enabled", performing))
		})
		t.OnCycleMode(func() string {
			mode, err := local.CycleMode()
			if err != nil {
				log.Error("cycle mode", zap.Error(err))
				return string(local.Mode())
			}
			return string(mode)
		})
		local.OnNote(t.SetLastNote)
	}
	t.OnOpen(func() {
		if err := openBrowser(url); err != nil {
			log.Warn("open browser", zap.Error(err))
		}
	})
	t.OnQuit(quit)
	return t
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
