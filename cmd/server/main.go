package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"cavecraft.ai/internal/sim/catalogs"
	"cavecraft.ai/internal/sim/service"
	"cavecraft.ai/internal/sim/tuning"
	"cavecraft.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		logLevel   = flag.String("log_level", "info", "log level (debug, info, warn, error)")
		disableDB  = flag.Bool("disable_db", false, "disable the generation index")
		snapshots  = flag.Bool("snapshots", true, "write a snapshot for every generation")
		initial    = flag.Int("initial_rank", 2, "rank of the cave built at startup (0 to start empty)")
	)
	flag.Parse()

	logger := newLogger(*logLevel)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.WithField("path", tp).Warn("tuning not found; using defaults")
		tune, _ = tuning.Load("")
	}
	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	idx, err := openIndex(tune.Output.IndexPath, *disableDB, logger)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
	}

	// Snapshots and archives share a parent; object keys are relative to it.
	mirror, err := buildMirror(filepath.Dir(tune.Output.SnapshotDir), logger)
	if err != nil {
		logger.Fatalf("init s3 mirror: %v", err)
	}
	cfg := service.Config{
		Tuning:         tune,
		Catalogs:       cats,
		ConfigDir:      *configDir,
		Index:          idx,
		Logger:         logger,
		WriteSnapshots: *snapshots,
	}
	if mirror != nil {
		defer mirror.Close()
		cfg.Mirror = mirror
	}

	svc, err := service.New(cfg)
	if err != nil {
		logger.Fatalf("service: %v", err)
	}
	defer svc.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if *initial != 0 {
		if _, err := svc.Regenerate(ctx, service.Request{Rank: *initial}); err != nil {
			logger.Fatalf("initial generation: %v", err)
		}
	}

	a := &api{
		svc:         svc,
		ws:          ws.NewServer(svc, logger),
		index:       idx,
		mirror:      mirror,
		log:         logger,
		enableAdmin: envBool("CC_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()),
		enablePprof: envBool("CC_ENABLE_PPROF_HTTP", false),
	}
	srv := &http.Server{
		Addr:              *addr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.WithField("addr", *addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func newLogger(level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05.000000"})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		l.WithField("level", level).Warn("unknown log level; using info")
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
