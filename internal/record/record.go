package record

import (
	"encoding/csv"
	"fmt"
	"strings"
	"time"
)

// Record is one decoded, newline-delimited line of SMDR text plus its
// provenance. It is immutable once created.
// Record 是一条已解码、按换行分隔的 SMDR 文本行及其来源信息。
// 创建后不可变。
type Record struct {
	// Line is the raw delimited text, without the trailing newline.
	Line string
	// SourceHost and SourcePort identify the pushing switch connection.
	SourceHost string
	SourcePort int
	// ReceivedAt is the local receipt timestamp.
	ReceivedAt time.Time
}

// New builds a Record from a decoded line and its source address.
// New 从已解码的行和来源地址构建 Record。
func New(line, host string, port int, at time.Time) Record {
	return Record{
		Line:       line,
		SourceHost: host,
		SourcePort: port,
		ReceivedAt: at,
	}
}

// Source returns the source address in host:port form.
// Source 返回 host:port 形式的来源地址。
func (r Record) Source() string {
	return fmt.Sprintf("%s:%d", r.SourceHost, r.SourcePort)
}

// LogLine renders the record in the on-disk log format:
// [YYYY-MM-DD HH:MM:SS] <source-ip>:<source-port> <raw-line>
// LogLine 渲染记录为日志文件格式。
func (r Record) LogLine() string {
	return fmt.Sprintf("[%s] %s %s", r.ReceivedAt.Format("2006-01-02 15:04:05"), r.Source(), r.Line)
}

// SplitFields splits an SMDR line into its comma-delimited fields. The core
// treats lines as opaque; this helper exists for consumers (filters, the test
// sender, downstream viewers) that want field access. Quoted fields are
// handled per CSV rules. A line that cannot be parsed as CSV yields nil.
// SplitFields 将 SMDR 行拆分为逗号分隔的字段。内核将行视为不透明文本；
// 此辅助函数供需要字段访问的消费者使用。无法按 CSV 解析的行返回 nil。
func SplitFields(line string) []string {
	reader := csv.NewReader(strings.NewReader(line))
	reader.FieldsPerRecord = -1
	fields, err := reader.Read()
	if err != nil {
		return nil
	}
	return fields
}
