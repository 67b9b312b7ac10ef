package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sjawhar/word-recorder/internal/audio"
	"github.com/sjawhar/word-recorder/internal/config"
	"github.com/sjawhar/word-recorder/internal/gdrive"
	"github.com/sjawhar/word-recorder/internal/metrics"
	"github.com/sjawhar/word-recorder/internal/server"
	"github.com/sjawhar/word-recorder/internal/session"
	"github.com/sjawhar/word-recorder/internal/storage"
)

const usage = `usage:
  word-recorder record [-config file] [-label word] [-o out.wav]
  word-recorder serve  [-config file]`

type app struct {
	cfg      config.Config
	warnings []string
	store    *storage.SQLiteStore
	registry *prometheus.Registry
	manager  *session.Manager
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "record":
		err = runRecord(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("word-recorder: %v", err)
	}
}

func runRecord(args []string) error {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "path to YAML config")
	label := fs.String("label", "", "word being recorded")
	out := fs.String("o", "", "output WAV path (default <audio_dir>/<label>/<id>.wav)")
	_ = fs.Parse(args)

	a, cleanup, err := setup(*configPath, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := a.manager.Record(ctx, *label, *out)
	if err != nil {
		return err
	}
	if res.State == session.StateRejected {
		log.Printf("nothing saved: %s", res.Reason)
		return nil
	}
	log.Printf("recording %s saved to %s", res.ID, res.Path)
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "path to YAML config")
	_ = fs.Parse(args)

	hub := server.NewHub()
	a, cleanup, err := setup(*configPath, hub)
	if err != nil {
		return err
	}
	defer cleanup()

	metricsHandler := promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
	handler := server.Handler(hub, a.store, a.manager, metricsHandler, a.warnings)
	httpServer := &http.Server{Addr: a.cfg.ListenAddr, Handler: handler}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()
	log.Printf("word-recorder: control API on http://%s", a.cfg.ListenAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("word-recorder: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.manager.Shutdown(shutdownCtx); err != nil {
		log.Printf("warning: stop active recording failed: %v", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("warning: http shutdown failed: %v", err)
	}
	return nil
}

// setup loads config, opens the audio backend and the catalog, and builds
// the manager. hub may be nil.
func setup(configPath string, hub *server.Hub) (*app, func(), error) {
	cfg, warnings, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	for _, w := range warnings {
		log.Printf("warning: %s", w)
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, nil, fmt.Errorf("%w: initialize portaudio: %v", audio.ErrDevice, err)
	}

	profile, err := audio.QueryDefaultInput(cfg.BlockSize)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, nil, err
	}
	if cfg.SampleRate > 0 {
		profile.SampleRate = cfg.SampleRate
	}
	log.Printf("input device: %d Hz, %d frames per block", profile.SampleRate, profile.BlockSize)

	store, err := storage.NewSQLiteStore(cfg.DBPath, profile.SampleRate)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, nil, fmt.Errorf("storage init failed: %w", err)
	}

	manifest := storage.NewManifest(cfg.ManifestPath)
	log.Printf("appending persisted utterances to %s", manifest.Path())

	registry := prometheus.NewRegistry()
	opts := []session.ManagerOption{
		session.WithManifest(manifest),
		session.WithObserver(metrics.New(registry)),
	}
	if cfg.UploadEnabled() {
		uploader, err := gdrive.NewUploader(context.Background(), cfg.GoogleCredentialsFile, cfg.GDriveFolderID)
		if err != nil {
			log.Printf("warning: drive upload disabled: %v", err)
		} else {
			opts = append(opts, session.WithUploader(uploader))
		}
	}

	var events session.EventBroadcaster
	if hub != nil {
		events = hub
	}

	manager, err := session.NewManager(session.ManagerConfig{
		AudioDir:  cfg.AudioDir,
		Threshold: cfg.Threshold,
		Profile:   profile,
		Open:      audio.OpenMic,
		Sink:      audio.WriteWAV,
		Logf:      log.Printf,
	}, store, events, opts...)
	if err != nil {
		_ = store.Close()
		_ = portaudio.Terminate()
		return nil, nil, err
	}

	cleanup := func() {
		_ = store.Close()
		_ = portaudio.Terminate()
	}
	return &app{cfg: cfg, warnings: warnings, store: store, registry: registry, manager: manager}, cleanup, nil
}

func defaultConfigPath() string {
	if v := os.Getenv(config.EnvPrefix + "CONFIG"); v != "" {
		return v
	}
	return "config.yaml"
}
