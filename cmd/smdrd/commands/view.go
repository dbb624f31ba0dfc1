package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smdrkit/smdrd/internal/config"
	"github.com/smdrkit/smdrd/internal/logwriter"
	"github.com/smdrkit/smdrd/internal/utils/logger"
	"github.com/smdrkit/smdrd/internal/viewer"
)

// ViewCmd 实现 'view' 命令
// ViewCmd implements the 'view' command
var ViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Stream live SMDR records to stdout",
	// Short: 将实时 SMDR 记录输出到 stdout
	Long: `Connect to the viewer relay and print each record line to stdout.
If the relay is unreachable, falls back to tailing today's data log and
keeps retrying the relay in the background.
连接查看器中继并将每条记录行打印到 stdout。
中继不可达时回退为尾随当日数据日志，并在后台持续重试中继。`,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.Get(cmd.Context())

		cfg, err := config.LoadGlobalConfig(config.GetConfigPath())
		if err != nil {
			cfg = config.Default()
		}

		host, _ := cmd.Flags().GetString("host")
		port, _ := cmd.Flags().GetInt("port")
		noFallback, _ := cmd.Flags().GetBool("no-file-fallback")
		if !cmd.Flags().Changed("host") {
			host = cfg.Viewer.ServiceHost
		}
		if !cmd.Flags().Changed("port") {
			port = cfg.Viewer.ServicePort
		}

		logPath := ""
		if cfg.Viewer.FileFallback && !noFallback {
			logPath = filepath.Join(cfg.Storage.Dir, logwriter.FileName(time.Now()))
		}

		client := viewer.NewClient(viewer.Options{
			Host:      host,
			Port:      port,
			LogPath:   logPath,
			Reconnect: cfg.Viewer.Reconnect,
		}, func(line string) {
			fmt.Println(line)
		})

		if err := client.Start(); err != nil {
			log.Errorf("❌ %v", err)
			os.Exit(1)
		}
		defer client.Stop()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info("👋 Viewer shutting down...")
	},
}

func init() {
	ViewCmd.Flags().String("host", "localhost", "Relay host")
	ViewCmd.Flags().Int("port", config.DefaultRelayPort, "Relay port")
	ViewCmd.Flags().Bool("no-file-fallback", false, "Disable the log file tail fallback")
}
