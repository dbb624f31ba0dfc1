package relay

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticSource serves a fixed log path as the tail source
// staticSource 以固定日志路径充当回放来源
type staticSource struct {
	path string
}

func (s *staticSource) CurrentPath() string { return s.path }

func writeLogLines(t *testing.T, path string, from, to int) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	require.NoError(t, err)
	defer f.Close()
	for i := from; i <= to; i++ {
		_, err := fmt.Fprintf(f, "line-%04d\n", i)
		require.NoError(t, err)
	}
}

func startRelay(t *testing.T, source TailSource, tailLines int) *Relay {
	t.Helper()
	r := NewRelay(source, tailLines, time.Second)
	require.NoError(t, r.Start("127.0.0.1", 0))
	t.Cleanup(r.Stop)
	return r
}

func dialRelay(t *testing.T, r *Relay) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", r.Addr().String())
	require.NoError(t, err)
	return conn
}

// readLines reads n lines from the connection with a deadline
// readLines 在期限内从连接读取 n 行
func readLines(t *testing.T, conn net.Conn, n int) []string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	scanner := bufio.NewScanner(conn)
	var lines []string
	for len(lines) < n && scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, n)
	return lines
}

// TestTailReplayBounded tests that a late joiner gets at most the last N lines
// TestTailReplayBounded 测试迟到加入者至多收到末尾 N 行
func TestTailReplayBounded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SMDRdata010125.log")
	writeLogLines(t, path, 1, 300)

	r := startRelay(t, &staticSource{path: path}, 200)

	conn := dialRelay(t, r)
	defer conn.Close()

	lines := readLines(t, conn, 200)
	assert.Equal(t, "line-0101", lines[0])
	assert.Equal(t, "line-0300", lines[199])
}

// TestTailThenLiveNoGapNoDuplicate tests the tail/live boundary
// TestTailThenLiveNoGapNoDuplicate 测试回放与实时的边界不重不漏
func TestTailThenLiveNoGapNoDuplicate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "current.log")
	writeLogLines(t, path, 1, 10)

	r := startRelay(t, &staticSource{path: path}, 200)

	conn := dialRelay(t, r)
	defer conn.Close()

	// Wait until the viewer is registered, then broadcast
	// 等待查看器完成注册后再广播
	require.Eventually(t, func() bool {
		return r.ViewerCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	r.Broadcast("line-0011")
	r.Broadcast("line-0012")

	lines := readLines(t, conn, 12)
	for i, line := range lines {
		assert.Equal(t, fmt.Sprintf("line-%04d", i+1), line)
	}
}

// TestTailMissingFile tests that a viewer connecting before any record sees only live lines
// TestTailMissingFile 测试首条记录之前连接的查看器只看到实时行
func TestTailMissingFile(t *testing.T) {
	r := startRelay(t, &staticSource{path: filepath.Join(t.TempDir(), "absent.log")}, 200)

	conn := dialRelay(t, r)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return r.ViewerCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	r.Broadcast("only-live")

	lines := readLines(t, conn, 1)
	assert.Equal(t, []string{"only-live"}, lines)
}

// TestBroadcastSurvivesDeadViewer tests isolation of a failed viewer
// TestBroadcastSurvivesDeadViewer 测试失败查看器的隔离
func TestBroadcastSurvivesDeadViewer(t *testing.T) {
	r := startRelay(t, &staticSource{path: filepath.Join(t.TempDir(), "absent.log")}, 0)

	conns := make([]net.Conn, 3)
	for i := range conns {
		conns[i] = dialRelay(t, r)
	}
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()

	require.Eventually(t, func() bool {
		return r.ViewerCount() == 3
	}, 2*time.Second, 10*time.Millisecond)

	// Forcibly close one viewer, then broadcast until the dead socket is
	// detected (the first sends may land in kernel buffers).
	// 强制关闭一个查看器，然后持续广播直到检测到失效套接字
	// （前几次发送可能进入内核缓冲区）。
	require.NoError(t, conns[0].Close())

	require.Eventually(t, func() bool {
		r.Broadcast("probe")
		return r.ViewerCount() == 2
	}, 5*time.Second, 50*time.Millisecond)

	r.Broadcast("after-drop")

	for _, conn := range conns[1:] {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		scanner := bufio.NewScanner(conn)
		found := false
		for scanner.Scan() {
			if scanner.Text() == "after-drop" {
				found = true
				break
			}
		}
		assert.True(t, found, "surviving viewer should still receive broadcasts")
	}
}

// TestStopClosesViewers tests that Stop clears the ViewerSet
// TestStopClosesViewers 测试 Stop 清空 ViewerSet
func TestStopClosesViewers(t *testing.T) {
	r := NewRelay(&staticSource{path: "/nonexistent"}, 0, time.Second)
	require.NoError(t, r.Start("127.0.0.1", 0))

	conn := dialRelay(t, r)
	defer conn.Close()
	require.Eventually(t, func() bool {
		return r.ViewerCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	r.Stop()
	assert.Equal(t, 0, r.ViewerCount())

	// The viewer's read should unblock with EOF
	// 查看器的读取应以 EOF 解除阻塞
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 1)
	_, err := conn.Read(buf)
	assert.Error(t, err)

	// Stop is idempotent
	// Stop 幂等
	r.Stop()
}

// TestReadLastLines tests the backwards tail reader
// TestReadLastLines 测试反向末尾读取
func TestReadLastLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.log")

	// Fewer lines than requested
	// 行数少于请求数
	writeLogLines(t, path, 1, 5)
	lines, err := ReadLastLines(path, 200)
	require.NoError(t, err)
	assert.Len(t, lines, 5)
	assert.Equal(t, "line-0001", lines[0])

	// More lines than requested, spanning multiple read blocks
	// 行数多于请求数，跨多个读取块
	writeLogLines(t, path, 6, 3000)
	lines, err = ReadLastLines(path, 200)
	require.NoError(t, err)
	require.Len(t, lines, 200)
	assert.Equal(t, "line-2801", lines[0])
	assert.Equal(t, "line-3000", lines[199])

	// Zero request
	// 请求数为零
	lines, err = ReadLastLines(path, 0)
	require.NoError(t, err)
	assert.Empty(t, lines)

	// Missing file
	// 文件缺失
	lines, err = ReadLastLines(filepath.Join(dir, "none.log"), 10)
	require.NoError(t, err)
	assert.Empty(t, lines)
}
