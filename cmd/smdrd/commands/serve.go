package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/smdrkit/smdrd/internal/daemon"
	"github.com/smdrkit/smdrd/internal/utils/logger"
	"github.com/smdrkit/smdrd/internal/version"
)

// ServeCmd 实现 'serve' 命令
// ServeCmd implements the 'serve' command
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the collection daemon",
	// Short: 运行采集守护进程
	Long: `Run the collection daemon: listen for SMDR lines from the switch,
append them to the daily data log, and relay them to connected viewers.
Send SIGHUP to reload the configuration without dropping records.
运行采集守护进程：监听交换机的 SMDR 行，追加到每日数据日志，
并转发给已连接的查看器。发送 SIGHUP 可在不丢记录的情况下重载配置。`,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.Get(cmd.Context())
		log.Infof("🚀 Starting smdrd %s...", version.Version)
		if err := daemon.Run(cmd.Context()); err != nil {
			log.Errorf("❌ %v", err)
			os.Exit(1)
		}
	},
}
