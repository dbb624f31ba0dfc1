package config

const (
	// DefaultConfigPath is the standard location for the smdrd configuration file.
	// DefaultConfigPath 是 smdrd 配置文件的标准位置。
	DefaultConfigPath = "/etc/smdrd/config.yaml"

	// DefaultPidPath is the location of the daemon PID file.
	// DefaultPidPath 是守护进程 PID 文件的位置。
	DefaultPidPath = "/var/run/smdrd.pid"

	// DefaultDataDir is where daily SMDR log files are written.
	// DefaultDataDir 是每日 SMDR 日志文件的写入目录。
	DefaultDataDir = "/var/lib/smdrd"

	// DefaultIngestPort is the switch-facing listen port.
	// DefaultIngestPort 是面向交换机的监听端口。
	DefaultIngestPort = 7004

	// DefaultRelayPort is the viewer-facing broadcast port.
	// DefaultRelayPort 是面向查看器的广播端口。
	DefaultRelayPort = 7005

	// DefaultTailLines is how many recent log lines a new viewer receives.
	// DefaultTailLines 是新查看器接收的最近日志行数。
	DefaultTailLines = 200
)
