// Package logwriter appends SMDR records to date-named flat files, rotating
// when the local calendar date advances. Rotation is driven by record
// arrival, never by a timer: the first write after midnight opens the new
// day's file.
// logwriter 包将 SMDR 记录追加到以日期命名的平面文件，并在本地日期变更时轮转。
// 轮转由记录到达驱动，而不是定时器：午夜后的第一次写入打开新一天的文件。
package logwriter

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/smdrkit/smdrd/internal/metrics"
	"github.com/smdrkit/smdrd/internal/record"
	"github.com/smdrkit/smdrd/internal/utils/logger"
	"github.com/smdrkit/smdrd/pkg/errors"
)

// FileName returns the log file name for a calendar day: SMDRdata<MMDDYY>.log.
// FileName 返回某一天的日志文件名：SMDRdata<MMDDYY>.log。
func FileName(day time.Time) string {
	return fmt.Sprintf("SMDRdata%s.log", day.Format("010206"))
}

// Writer owns the "current log epoch": exactly one date-named file is open at
// a time, and all rotation-check-then-append steps happen under its mutex.
// Files are opened in append mode and written unbuffered, so a restart never
// truncates data and tailing readers observe lines promptly.
// Writer 拥有"当前日志纪元"：同一时刻只打开一个按日期命名的文件，
// 轮转检查与追加在同一互斥锁下完成。文件以追加模式打开且无缓冲写入，
// 重启不会截断数据，尾随读取方能及时看到新行。
type Writer struct {
	dir string

	// now is injectable so rotation can be tested with a simulated clock.
	// now 可注入，便于用模拟时钟测试轮转。
	now func() time.Time

	mu      sync.Mutex
	file    *os.File
	fileDay string // YYYY-MM-DD of the open file / 当前打开文件的日期
}

// NewWriter creates a writer for the given directory. The directory is
// created lazily on first write.
// NewWriter 为指定目录创建写入器。目录在首次写入时按需创建。
func NewWriter(dir string) *Writer {
	return &Writer{
		dir: dir,
		now: time.Now,
	}
}

// CurrentPath returns the path of the file the next write would append to.
// CurrentPath 返回下一次写入将追加的文件路径。
func (w *Writer) CurrentPath() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return filepath.Join(w.dir, FileName(w.now()))
}

// Write appends one formatted record line to today's file, rotating first if
// the date has advanced. A failed write is reported and counted but not
// returned as fatal upstream: the caller's pipeline keeps running and the
// record still reaches live viewers.
// Write 将一条格式化记录追加到当天文件，日期变更时先轮转。
// 写入失败会上报并计数，但不会致命：上游管线继续运行，记录仍能到达在线查看器。
func (w *Writer) Write(rec record.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rotateLocked(); err != nil {
		metrics.LogWriteErrors.Inc()
		return err
	}

	if _, err := w.file.WriteString(rec.LogLine() + "\n"); err != nil {
		metrics.LogWriteErrors.Inc()
		return errors.NewLogWriteError(w.file.Name(), err)
	}
	return nil
}

// rotateLocked opens today's file if no file is open or the date changed.
// Previous epochs are closed and never reopened for writing.
// rotateLocked 在无打开文件或日期变更时打开当天文件。
// 之前的纪元被关闭且不再用于写入。
func (w *Writer) rotateLocked() error {
	today := w.now().Format("2006-01-02")
	if w.file != nil && w.fileDay == today {
		return nil
	}

	if w.file != nil {
		logger.Get(nil).Infof("📅 Rotating SMDR log: %s -> %s", w.fileDay, today)
		_ = w.file.Close()
		w.file = nil
		metrics.LogRotations.Inc()
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("%w: %s: %v", errors.ErrLogDirUnavailable, w.dir, err)
	}

	path := filepath.Join(w.dir, FileName(w.now()))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.NewLogWriteError(path, err)
	}

	w.file = f
	w.fileDay = today
	return nil
}

// Close closes the current epoch, if any. The writer may be reused; the next
// Write reopens today's file.
// Close 关闭当前纪元（如有）。写入器可复用；下一次 Write 会重新打开当天文件。
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.fileDay = ""
	return err
}
