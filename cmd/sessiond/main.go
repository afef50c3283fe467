package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sessiond/internal/bringup"
	"sessiond/internal/config"
	"sessiond/internal/daemon"
	"sessiond/internal/logging"
	"sessiond/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// buildVersion is overridden at build time via -ldflags.
var buildVersion = "dev"

const maxBufferSize = 64 * 1024 * 1024

func main() {
	os.Exit(run())
}

func run() int {
	var (
		showVersion bool
		shutdown    bool
		debug       bool
		foreground  bool
		bufferSize  int
		metricsAddr string
	)

	fs := flag.NewFlagSet("sessiond", flag.ContinueOnError)
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	fs.BoolVar(&shutdown, "shutdown", false, "signal the running daemon to exit")
	fs.BoolVar(&debug, "debug", false, "verbose logging; implies --foreground")
	fs.BoolVar(&foreground, "foreground", false, "run in the foreground instead of daemonizing")
	fs.BoolVar(&foreground, "f", false, "shorthand for --foreground")
	fs.IntVar(&bufferSize, "buffer-size", 0, "override the default ring buffer size in bytes (0 < N <= 64MiB)")
	fs.StringVar(&metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address (off by default)")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return 1
	}

	if showVersion {
		fmt.Println("sessiond " + buildVersion)
		return 0
	}

	if shutdown {
		return runShutdown()
	}

	if debug {
		foreground = true
	}

	bufferSizeGiven := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "buffer-size" {
			bufferSizeGiven = true
		}
	})
	if bufferSize < 0 || bufferSize > maxBufferSize || (bufferSizeGiven && bufferSize == 0) {
		fmt.Fprintln(os.Stderr, "--buffer-size must be between 1 and 64MiB")
		return 1
	}

	if !foreground {
		if err := daemonize(); err != nil {
			fmt.Fprintln(os.Stderr, "daemonize:", err)
			return 1
		}
		return 0
	}

	syscall.Umask(0077)
	return runDaemon(debug, bufferSize, metricsAddr)
}

func runShutdown() int {
	pid, err := bringup.ReadPIDFile(bringup.PIDFilePath())
	if err != nil {
		fmt.Fprintln(os.Stderr, "no running daemon found:", err)
		return 1
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		fmt.Fprintln(os.Stderr, "failed to signal daemon:", err)
		return 1
	}
	return 0
}

func runDaemon(debug bool, bufferSizeOverride int, metricsAddr string) int {
	cfg := config.LoadOrDefault()
	if bufferSizeOverride > 0 {
		cfg.Ring.DefaultBytes = bufferSizeOverride
	}
	if debug {
		cfg.Logging.Level = "debug"
		cfg.Logging.Development = true
	}

	logCfg := logging.DefaultConfig()
	if cfg.Logging.Development {
		logCfg = logging.DevelopmentConfig()
	}
	logCfg.Level = cfg.Logging.Level

	log, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		return 1
	}
	defer log.Sync() //nolint:errcheck

	dir, err := bringup.EnsureSocketDir()
	if err != nil {
		log.Error("failed to secure socket directory", zap.Error(err))
		return 1
	}

	socketPath := bringup.SocketPath()
	pidFilePath := bringup.PIDFilePath()

	ln, err := bringup.CreateListenSocket(socketPath, pidFilePath)
	if err != nil {
		log.Error("failed to create listen socket", zap.Error(err))
		return 1
	}

	if err := bringup.WritePIDFile(pidFilePath, os.Getpid()); err != nil {
		log.Error("failed to write pid file", zap.Error(err))
		ln.Close()
		return 1
	}
	defer bringup.CleanupSocketFiles(socketPath, pidFilePath)

	log.Info("sessiond starting",
		zap.String("socket_dir", dir),
		zap.String("socket", socketPath),
		zap.Int("ring_bytes", cfg.Ring.DefaultBytes),
	)

	if metricsAddr == "" && cfg.Metrics.Enabled {
		metricsAddr = cfg.Metrics.Addr
	}

	var met *metrics.Metrics
	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		met = metrics.New(reg)
		srv, err := metrics.NewServer(metricsAddr, reg)
		if err != nil {
			log.Error("failed to start metrics server", zap.Error(err))
		} else {
			go srv.Serve() //nolint:errcheck
			log.Info("metrics listening", zap.String("addr", srv.Addr()))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if met != nil {
		go met.RunUptimeUpdater(ctx.Done())
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		cancel()
	}()

	d := daemon.New(ln, cfg, log, met)
	if err := d.Run(ctx); err != nil {
		log.Error("daemon exited with error", zap.Error(err))
		return 1
	}

	log.Info("sessiond exiting")
	return 0
}
