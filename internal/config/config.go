package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/smdrkit/smdrd/internal/runtime"
	"github.com/smdrkit/smdrd/internal/utils/logger"
	"github.com/smdrkit/smdrd/pkg/errors"
)

// GlobalConfig is the root of the smdrd YAML configuration.
// GlobalConfig 是 smdrd YAML 配置的根。
type GlobalConfig struct {
	Base    BaseConfig           `yaml:"base"`
	Ingest  IngestConfig         `yaml:"ingest"`
	Relay   RelayConfig          `yaml:"relay"`
	Viewer  ViewerConfig         `yaml:"viewer"`
	Storage StorageConfig        `yaml:"storage"`
	Filter  FilterConfig         `yaml:"filter"`
	Metrics MetricsConfig        `yaml:"metrics"`
	Logging logger.LoggingConfig `yaml:"logging"`
}

// BaseConfig holds process-level settings.
// BaseConfig 保存进程级设置。
type BaseConfig struct {
	PidPath string `yaml:"pid_path"`
	// EnablePprof: 是否开启 pprof
	EnablePprof bool `yaml:"enable_pprof"`
	PprofPort   int  `yaml:"pprof_port"`
}

// IngestConfig configures the switch-facing TCP listener.
// IngestConfig 配置面向交换机的 TCP 监听器。
type IngestConfig struct {
	Port int `yaml:"port"`
	// QueueSize bounds the record queue between ingest and the
	// log/broadcast worker. A full queue drops records rather than
	// blocking connection reads.
	// QueueSize 限定接收与日志/广播工作协程之间的记录队列容量。
	// 队列满时丢弃记录而不是阻塞连接读取。
	QueueSize int `yaml:"queue_size"`
}

// RelayConfig configures the viewer-facing broadcast listener.
// RelayConfig 配置面向查看器的广播监听器。
type RelayConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	// TailLines: 新查看器连接时回放的行数
	TailLines int `yaml:"tail_lines"`
	// SendTimeout bounds each per-viewer write; a viewer that cannot
	// drain within it is dropped.
	// SendTimeout 限定每个查看器的单次写入时长；超时的查看器被移除。
	SendTimeout string `yaml:"send_timeout"`
}

// ViewerConfig configures the consumer-side client (smdrd view).
// ViewerConfig 配置消费者侧客户端（smdrd view）。
type ViewerConfig struct {
	ServiceHost string `yaml:"service_host"`
	ServicePort int    `yaml:"service_port"`
	// FileFallback: 断连后是否回退为日志文件轮询
	FileFallback bool `yaml:"file_fallback"`
	// Reconnect: 断连后是否自动重连
	Reconnect bool `yaml:"reconnect"`
}

// StorageConfig configures the daily SMDR data log.
// StorageConfig 配置每日 SMDR 数据日志。
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// FilterConfig is an optional expression deciding, per record, whether it is
// logged and broadcast. Empty means accept everything.
// FilterConfig 是可选的按记录判定是否落盘和广播的表达式。为空表示全部接受。
type FilterConfig struct {
	Expression string `yaml:"expression"`
}

// MetricsConfig configures the Prometheus endpoint.
// MetricsConfig 配置 Prometheus 端点。
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Default returns a GlobalConfig populated with defaults.
// Default 返回填充了默认值的 GlobalConfig。
func Default() *GlobalConfig {
	return &GlobalConfig{
		Base: BaseConfig{
			PidPath:   DefaultPidPath,
			PprofPort: 6060,
		},
		Ingest: IngestConfig{
			Port:      DefaultIngestPort,
			QueueSize: 4096,
		},
		Relay: RelayConfig{
			Enabled:     true,
			Host:        "0.0.0.0",
			Port:        DefaultRelayPort,
			TailLines:   DefaultTailLines,
			SendTimeout: "5s",
		},
		Viewer: ViewerConfig{
			ServiceHost:  "localhost",
			ServicePort:  DefaultRelayPort,
			FileFallback: true,
			Reconnect:    true,
		},
		Storage: StorageConfig{
			Dir: DefaultDataDir,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9470,
		},
		Logging: logger.LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
	}
}

// LoadGlobalConfig reads and parses the configuration file, layering the
// file's values over the defaults.
// LoadGlobalConfig 读取并解析配置文件，将文件中的值覆盖在默认值之上。
func LoadGlobalConfig(path string) (*GlobalConfig, error) {
	safePath := filepath.Clean(path) // Sanitize path to prevent directory traversal
	data, err := os.ReadFile(safePath)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", safePath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveGlobalConfig writes the configuration to disk, creating parent
// directories as needed.
// SaveGlobalConfig 将配置写入磁盘，按需创建父目录。
func SaveGlobalConfig(path string, cfg *GlobalConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	safePath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(safePath), 0755); err != nil {
		return err
	}
	return os.WriteFile(safePath, data, 0644)
}

// Validate checks configured values for consistency.
// Validate 检查配置值的一致性。
func (c *GlobalConfig) Validate() error {
	if c.Ingest.Port < 1 || c.Ingest.Port > 65535 {
		return errors.NewConfigError("ingest.port", c.Ingest.Port)
	}
	if c.Relay.Enabled {
		if c.Relay.Port < 1 || c.Relay.Port > 65535 {
			return errors.NewConfigError("relay.port", c.Relay.Port)
		}
		if c.Relay.Port == c.Ingest.Port {
			return errors.NewConfigError("relay.port", "must differ from ingest.port")
		}
		if c.Relay.TailLines < 0 {
			return errors.NewConfigError("relay.tail_lines", c.Relay.TailLines)
		}
	}
	if c.Ingest.QueueSize < 1 {
		return errors.NewConfigError("ingest.queue_size", c.Ingest.QueueSize)
	}
	if c.Storage.Dir == "" {
		return errors.NewConfigError("storage.dir", c.Storage.Dir)
	}
	return nil
}

// GetConfigPath resolves the configuration file path.
// It prioritizes the CLI flag (runtime.ConfigPath) over the default.
// GetConfigPath 解析配置文件路径，优先使用 CLI 标志 (runtime.ConfigPath)。
func GetConfigPath() string {
	if runtime.ConfigPath != "" {
		return runtime.ConfigPath
	}
	return DefaultConfigPath
}
