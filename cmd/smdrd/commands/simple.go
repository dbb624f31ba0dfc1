package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/smdrkit/smdrd/internal/config"
	"github.com/smdrkit/smdrd/internal/ingest"
	"github.com/smdrkit/smdrd/internal/utils/logger"
	"github.com/smdrkit/smdrd/internal/version"
)

// VersionCmd 实现 'version' 命令
// VersionCmd implements the 'version' command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	// Short: 显示版本信息
	Long: `Show version information`,
	// Long: 显示版本信息
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("smdrd version %s\n", version.Version)
	},
}

// CheckPortCmd 实现 'check-port' 命令
// CheckPortCmd implements the 'check-port' command
var CheckPortCmd = &cobra.Command{
	Use:   "check-port [port]",
	Short: "Check whether a TCP port is available",
	// Short: 检查 TCP 端口是否可用
	Long: `Probe-bind the given port (default: the configured ingest port) and
report whether it is free. The probe socket is always released.
试绑定给定端口（默认为配置的接收端口）并报告其是否空闲。探测套接字总会释放。`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		port := config.DefaultIngestPort
		if cfg, err := config.LoadGlobalConfig(config.GetConfigPath()); err == nil {
			port = cfg.Ingest.Port
		}
		if len(args) == 1 {
			p, err := strconv.Atoi(args[0])
			if err != nil {
				cmd.PrintErrf("Invalid port: %s\n", args[0])
				os.Exit(1)
			}
			port = p
		}

		if ingest.IsPortAvailable(port) {
			fmt.Printf("✅ Port %d is available\n", port)
		} else {
			fmt.Printf("❌ Port %d is in use\n", port)
			os.Exit(1)
		}
	},
}

// InitCmd 实现 'init' 命令
// InitCmd implements the 'init' command
var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	// Short: 初始化配置
	Long: `Write a configuration file populated with defaults. Refuses to
overwrite an existing file.
写入填充默认值的配置文件。不会覆盖已存在的文件。`,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.Get(cmd.Context())
		path := config.GetConfigPath()

		if _, err := os.Stat(path); err == nil {
			log.Warnf("⚠️  Config already exists at %s, not overwriting", path)
			return
		}
		if err := config.SaveGlobalConfig(path, config.Default()); err != nil {
			log.Errorf("❌ Failed to write config: %v", err)
			os.Exit(1)
		}
		log.Infof("✅ Default configuration written to %s", path)
	},
}

// TestCmd 实现 'test' 命令
// TestCmd implements the 'test' command
var TestCmd = &cobra.Command{
	Use:   "test",
	Short: "Test configuration",
	// Short: 测试配置
	Long: `Load and validate the configuration file`,
	// Long: 加载并验证配置文件
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.Get(cmd.Context())
		path := config.GetConfigPath()

		if _, err := config.LoadGlobalConfig(path); err != nil {
			log.Errorf("❌ Configuration test failed: %v", err)
			os.Exit(1)
		}
		log.Infof("✅ Configuration at %s is valid", path)
	},
}
