package logger

// LoggingConfig defines the configuration for operator logging. This is the
// daemon's own diagnostic log, not the SMDR data log (see internal/logwriter).
// LoggingConfig 定义运维日志配置。这是守护进程自身的诊断日志，
// 不是 SMDR 数据日志（见 internal/logwriter）。
type LoggingConfig struct {
	Enabled bool `yaml:"enabled"`
	// Enabled: 是否启用文件日志
	Level string `yaml:"level"`
	// Level: 日志级别（debug, info, warn, error）
	Path string `yaml:"path"`
	// Path: 日志文件路径
	MaxSize int `yaml:"max_size"`
	// MaxSize: 轮转前的最大大小（MB）
	MaxBackups int `yaml:"max_backups"`
	// MaxBackups: 保留的旧文件最大数量
	MaxAge int `yaml:"max_age"`
	// MaxAge: 保留旧文件的最大天数
	Compress bool `yaml:"compress"`
	// Compress: 是否压缩旧文件
}
