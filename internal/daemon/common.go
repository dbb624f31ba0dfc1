package daemon

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smdrkit/smdrd/internal/utils/logger"
	"github.com/smdrkit/smdrd/pkg/errors"

	_ "net/http/pprof"
)

func managePidFile(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: PID file %s already exists", errors.ErrDaemonRunning, path)
	}
	pid := os.Getpid()
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %v", err)
	}
	logger.Get(ctx).Debugf("📄 PID file written: %s (pid %d)", path, pid)
	return nil
}

func removePidFile(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil {
		logger.Get(ctx).Warnf("⚠️  Failed to remove PID file: %v", err)
	}
}

func startPprof(ctx context.Context, port int) {
	addr := fmt.Sprintf(":%d", port)
	logger.Get(ctx).Infof("📊 Pprof enabled on %s", addr)
	go func() {
		logger.Get(ctx).Warnf("pprof server exited: %v", http.ListenAndServe(addr, nil))
	}()
}

func startMetrics(ctx context.Context, port int) {
	addr := fmt.Sprintf(":%d", port)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Get(ctx).Infof("📡 Prometheus metrics on %s/metrics", addr)
	go func() {
		logger.Get(ctx).Warnf("metrics server exited: %v", http.ListenAndServe(addr, mux))
	}()
}

// waitForSignal blocks until shutdown. SIGHUP triggers reloadFunc and keeps
// the daemon running; SIGINT/SIGTERM or context cancellation return.
// waitForSignal 阻塞至关停。SIGHUP 触发 reloadFunc 并继续运行；
// SIGINT/SIGTERM 或上下文取消则返回。
func waitForSignal(ctx context.Context, reloadFunc func() error) {
	log := logger.Get(ctx)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sig)

	for {
		select {
		case <-ctx.Done():
			log.Info("🛑 Context cancelled, shutting down...")
			return
		case s := <-sig:
			if s == syscall.SIGHUP {
				log.Info("🔄 Received SIGHUP, reloading configuration...")
				if err := reloadFunc(); err != nil {
					log.Errorf("❌ Failed to reload config: %v", err)
					continue
				}
				log.Info("✅ Configuration reloaded")
				continue
			}
			log.Info("👋 Daemon shutting down...")
			return
		}
	}
}
