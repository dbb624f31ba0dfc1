package commands

import (
	"fmt"
	"math/rand"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/smdrkit/smdrd/internal/config"
	"github.com/smdrkit/smdrd/internal/utils/logger"
)

var surnames = []string{"John Smith", "Jane Doe", "David Rahn", "Alice Johnson", "Bob Williams"}

// generateRecord builds one realistic synthetic SMDR line.
// generateRecord 生成一条逼真的合成 SMDR 行。
func generateRecord(index int, now time.Time) string {
	at := now.Add(-time.Duration(rand.Intn(3600)) * time.Second)
	dateTime := at.Format("2006/01/02 15:04:05")

	durationSecs := 3 + rand.Intn(298)
	duration := fmt.Sprintf("00:%02d:%02d", durationSecs/60, durationSecs%60)

	extension := 200 + rand.Intn(51)
	direction := "I"
	if rand.Intn(2) == 0 {
		direction = "O"
	}

	called := fmt.Sprintf("%d", 1000000000+rand.Int63n(9000000000))
	dialed := called
	if direction == "O" {
		dialed = "9" + called
	}

	callID := 1000000 + index
	name := surnames[rand.Intn(len(surnames))]
	trunk := fmt.Sprintf("T%d", 9001+rand.Intn(20))

	return fmt.Sprintf("%s,%s,0,%d,%s,%s,%s,,0,%d,0,E%d,%s,%s,Line%d",
		dateTime, duration, extension, direction, called, dialed, callID, extension, name, trunk, index%10)
}

// SendCmd 实现 'send' 命令
// SendCmd implements the 'send' command
var SendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send synthetic SMDR records to the ingest port",
	// Short: 向接收端口发送合成 SMDR 记录
	Long: `Generate realistic synthetic SMDR records and stream them to the
ingest listener. Useful for verifying an installation end to end.
生成逼真的合成 SMDR 记录并推送到接收监听器，用于端到端验证部署。`,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.Get(cmd.Context())

		host, _ := cmd.Flags().GetString("host")
		port, _ := cmd.Flags().GetInt("port")
		count, _ := cmd.Flags().GetInt("count")
		delay, _ := cmd.Flags().GetDuration("delay")

		addr := fmt.Sprintf("%s:%d", host, port)
		conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
		if err != nil {
			log.Errorf("❌ Could not connect to %s: %v", addr, err)
			os.Exit(1)
		}
		defer conn.Close()

		for i := 0; i < count; i++ {
			line := generateRecord(i, time.Now())
			if _, err := conn.Write([]byte(line + "\n")); err != nil {
				log.Errorf("❌ Send failed after %d records: %v", i, err)
				os.Exit(1)
			}
			if delay > 0 {
				time.Sleep(delay)
			}
		}
		log.Infof("✅ Sent %d records to %s", count, addr)
	},
}

func init() {
	SendCmd.Flags().String("host", "localhost", "Ingest host")
	SendCmd.Flags().Int("port", config.DefaultIngestPort, "Ingest port")
	SendCmd.Flags().Int("count", 10, "Number of records to send")
	SendCmd.Flags().Duration("delay", 100*time.Millisecond, "Delay between records")
}
