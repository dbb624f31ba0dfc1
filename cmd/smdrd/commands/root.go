package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/smdrkit/smdrd/internal/config"
	"github.com/smdrkit/smdrd/internal/runtime"
	"github.com/smdrkit/smdrd/internal/utils/logger"
)

var RootCmd = &cobra.Command{
	Use:   "smdrd",
	Short: "SMDR call-detail collection and relay daemon",
	// Short: SMDR 话单采集与转发守护进程
	Long: `smdrd collects SMDR (Station Message Detail Recording) call detail
lines pushed over TCP by a telephone switch, appends them to date-rotated
log files, and relays them live to connected viewers.
smdrd 采集电话交换机通过 TCP 推送的 SMDR 话单行，
追加到按日轮转的日志文件，并实时转发给已连接的查看器。`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Load configuration to get logging settings
		// 加载配置以获取日志设置
		globalCfg, err := config.LoadGlobalConfig(config.GetConfigPath())
		if err != nil {
			// If config fails to load, use default logging config (console only)
			// 如果加载配置失败，使用默认日志配置（仅控制台）
			logger.Init(logger.LoggingConfig{
				Enabled: true,
				Level:   "info",
			})
		} else {
			logger.Init(globalCfg.Logging)
		}

		// Inject logger into context
		// 将 Logger 注入 Context
		ctx := logger.WithContext(cmd.Context(), logger.Get(nil))
		cmd.SetContext(ctx)
	},
}

func init() {
	// Config file path
	// 配置文件路径
	RootCmd.PersistentFlags().StringVarP(&runtime.ConfigPath, "config", "c", "", fmt.Sprintf("Path to configuration file (default: %s)", config.DefaultConfigPath))

	RootCmd.AddCommand(ServeCmd)
	RootCmd.AddCommand(ViewCmd)
	RootCmd.AddCommand(SendCmd)
	RootCmd.AddCommand(CheckPortCmd)
	RootCmd.AddCommand(InitCmd)
	RootCmd.AddCommand(TestCmd)
	RootCmd.AddCommand(VersionCmd)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
