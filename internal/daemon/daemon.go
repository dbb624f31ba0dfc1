package daemon

import (
	"context"
	goerrors "errors"
	"io/fs"
	"sync/atomic"
	"time"

	"github.com/smdrkit/smdrd/internal/config"
	"github.com/smdrkit/smdrd/internal/filter"
	"github.com/smdrkit/smdrd/internal/ingest"
	"github.com/smdrkit/smdrd/internal/logwriter"
	"github.com/smdrkit/smdrd/internal/pipeline"
	"github.com/smdrkit/smdrd/internal/record"
	"github.com/smdrkit/smdrd/internal/relay"
	"github.com/smdrkit/smdrd/internal/utils/logger"
)

// swappableFilter lets SIGHUP replace the compiled filter while the
// pipeline worker keeps evaluating records.
type swappableFilter struct {
	ptr atomic.Pointer[filter.Filter]
}

func (s *swappableFilter) Accept(rec record.Record) bool {
	return s.ptr.Load().Accept(rec)
}

func parseSendTimeout(ctx context.Context, value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		logger.Get(ctx).Warnf("⚠️  Invalid relay.send_timeout '%s', defaulting to 5s", value)
		return 5 * time.Second
	}
	return d
}

// Run starts the collection daemon and blocks until shutdown.
// Run 启动采集守护进程并阻塞至关停。
func Run(ctx context.Context) error {
	log := logger.Get(ctx)
	configPath := config.GetConfigPath()

	cfg, err := config.LoadGlobalConfig(configPath)
	if err != nil {
		if !goerrors.Is(err, fs.ErrNotExist) {
			return err
		}
		log.Infof("ℹ️  No config at %s, running with defaults", configPath)
		cfg = config.Default()
	}

	// Initialize Logging / 初始化日志
	logger.Init(cfg.Logging)

	if err := managePidFile(ctx, cfg.Base.PidPath); err != nil {
		return err
	}
	defer removePidFile(ctx, cfg.Base.PidPath)

	if cfg.Base.EnablePprof {
		startPprof(ctx, cfg.Base.PprofPort)
	}
	if cfg.Metrics.Enabled {
		startMetrics(ctx, cfg.Metrics.Port)
	}

	// 1. Record filter / 记录过滤器
	filt := &swappableFilter{}
	f, err := filter.New(cfg.Filter.Expression)
	if err != nil {
		return err
	}
	filt.ptr.Store(f)

	// 2. Daily data log / 每日数据日志
	writer := logwriter.NewWriter(cfg.Storage.Dir)
	defer writer.Close()

	// 3. Broadcast relay / 广播转发
	var rly *relay.Relay
	sinks := []pipeline.Sink{
		func(rec record.Record) {
			if err := writer.Write(rec); err != nil {
				log.Warnf("⚠️  Log write failed: %v", err)
			}
		},
	}
	if cfg.Relay.Enabled {
		rly = relay.NewRelay(writer, cfg.Relay.TailLines, parseSendTimeout(ctx, cfg.Relay.SendTimeout))
		if err := rly.Start(cfg.Relay.Host, cfg.Relay.Port); err != nil {
			return err
		}
		defer rly.Stop()
		sinks = append(sinks, func(rec record.Record) {
			rly.Broadcast(rec.LogLine())
		})
	}

	// 4. Pipeline and ingest listener / 管道与接收监听器
	pipe := pipeline.New(cfg.Ingest.QueueSize, filt, sinks...)
	pipe.Start(ctx)
	defer pipe.Stop()

	listener := ingest.NewListener(pipe.Enqueue)
	if err := listener.Start(cfg.Ingest.Port); err != nil {
		return err
	}
	defer listener.Stop()

	log.Infof("🚀 smdrd is running (ingest :%d, data dir %s)", listener.Port(), cfg.Storage.Dir)
	if cfg.Relay.Enabled {
		log.Infof("👀 Viewer relay on %s:%d (tail %d lines)", cfg.Relay.Host, cfg.Relay.Port, cfg.Relay.TailLines)
	}

	reloadFunc := func() error {
		newCfg, err := config.LoadGlobalConfig(configPath)
		if err != nil {
			return err
		}

		logger.Init(newCfg.Logging)

		if newCfg.Filter.Expression != cfg.Filter.Expression {
			newFilter, err := filter.New(newCfg.Filter.Expression)
			if err != nil {
				log.Warnf("⚠️  Keeping previous filter, new expression invalid: %v", err)
			} else {
				filt.ptr.Store(newFilter)
				log.Infof("✅ Filter updated: %q", newCfg.Filter.Expression)
			}
		}

		if newCfg.Ingest.Port != listener.Port() {
			// Start binds the new port before releasing the old one, so a
			// failed rebind leaves the current listener serving.
			if err := listener.Start(newCfg.Ingest.Port); err != nil {
				log.Errorf("❌ Rebind to port %d failed, still serving :%d: %v",
					newCfg.Ingest.Port, listener.Port(), err)
			} else {
				log.Infof("✅ Ingest listener moved to :%d", listener.Port())
			}
		}

		if rly != nil && (newCfg.Relay.Port != cfg.Relay.Port || newCfg.Relay.Host != cfg.Relay.Host) {
			log.Warnf("⚠️  relay host/port changes require a restart, keeping %s:%d",
				cfg.Relay.Host, cfg.Relay.Port)
		}
		if newCfg.Storage.Dir != cfg.Storage.Dir {
			log.Warnf("⚠️  storage.dir changes require a restart, keeping %s", cfg.Storage.Dir)
		}

		cfg = newCfg
		return nil
	}

	waitForSignal(ctx, reloadFunc)

	// Stop order matters: no new records, drain the queue, then drop the
	// viewers. The defers above run in exactly that order.
	return nil
}
