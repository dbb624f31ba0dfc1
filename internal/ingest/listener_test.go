package ingest

import (
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smdrkit/smdrd/internal/record"
	"github.com/smdrkit/smdrd/pkg/errors"
)

// collector gathers records delivered by the listener callback
// collector 收集监听器回调交付的记录
type collector struct {
	mu   sync.Mutex
	recs []record.Record
}

func (c *collector) handle(rec record.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs = append(c.recs, rec)
}

func (c *collector) at(i int) record.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recs[i]
}

func (c *collector) lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.recs))
	for i, r := range c.recs {
		out[i] = r.Line
	}
	return out
}

func startListener(t *testing.T, h LineHandler) *Listener {
	t.Helper()
	l := NewListener(h)
	require.NoError(t, l.Start(0))
	t.Cleanup(l.Stop)
	return l
}

func dial(t *testing.T, port int) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err)
	return conn
}

// TestSingleLine tests that one sent line yields one callback
// TestSingleLine 测试发送一行触发一次回调
func TestSingleLine(t *testing.T) {
	c := &collector{}
	l := startListener(t, c.handle)

	conn := dial(t, l.Port())
	defer conn.Close()
	_, err := conn.Write([]byte("X\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(c.lines()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Contains(t, c.lines()[0], "X")
	assert.Equal(t, "127.0.0.1", c.at(0).SourceHost)
	assert.NotZero(t, c.at(0).SourcePort)
}

// TestCRLFBatch tests that one write with two CRLF lines yields two ordered callbacks
// TestCRLFBatch 测试一次写入两条 CRLF 行触发两次有序回调
func TestCRLFBatch(t *testing.T) {
	c := &collector{}
	l := startListener(t, c.handle)

	conn := dial(t, l.Port())
	defer conn.Close()
	_, err := conn.Write([]byte("A\r\nB\r\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(c.lines()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"A", "B"}, c.lines())
}

// TestPartialLineAcrossWrites tests line reassembly over multiple reads
// TestPartialLineAcrossWrites 测试跨多次读取的行重组
func TestPartialLineAcrossWrites(t *testing.T) {
	c := &collector{}
	l := startListener(t, c.handle)

	conn := dial(t, l.Port())
	defer conn.Close()

	_, err := conn.Write([]byte("hel"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, err = conn.Write([]byte("lo\nwor"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, err = conn.Write([]byte("ld\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(c.lines()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"hello", "world"}, c.lines())
}

// TestEmptyLinesSkipped tests that blank lines produce no records
// TestEmptyLinesSkipped 测试空行不产生记录
func TestEmptyLinesSkipped(t *testing.T) {
	c := &collector{}
	l := startListener(t, c.handle)

	conn := dial(t, l.Port())
	defer conn.Close()
	_, err := conn.Write([]byte("\r\n\n\nreal\n\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(c.lines()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"real"}, c.lines())
}

// TestInvalidUTF8Absorbed tests that undecodable bytes still yield a record
// TestInvalidUTF8Absorbed 测试无法解码的字节仍产生记录
func TestInvalidUTF8Absorbed(t *testing.T) {
	c := &collector{}
	l := startListener(t, c.handle)

	conn := dial(t, l.Port())
	defer conn.Close()
	_, err := conn.Write([]byte{0xFF, 0xFE, 'o', 'k', '\n'})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(c.lines()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, c.lines()[0], "ok")
}

// TestCallbackPanicDoesNotKillConnection tests panic absorption in the handler
// TestCallbackPanicDoesNotKillConnection 测试处理函数 panic 被吸收
func TestCallbackPanicDoesNotKillConnection(t *testing.T) {
	c := &collector{}
	first := true
	l := startListener(t, func(rec record.Record) {
		if first {
			first = false
			panic("boom")
		}
		c.handle(rec)
	})

	conn := dial(t, l.Port())
	defer conn.Close()
	_, err := conn.Write([]byte("bad\ngood\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(c.lines()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"good"}, c.lines())
}

// TestRebindFailureKeepsOldListener tests the keep-old-socket invariant
// TestRebindFailureKeepsOldListener 测试绑定失败保留旧套接字的不变式
func TestRebindFailureKeepsOldListener(t *testing.T) {
	c := &collector{}
	l := startListener(t, c.handle)
	oldPort := l.Port()

	// Occupy a port so the rebind must fail
	// 占用一个端口使重新绑定必然失败
	blocker, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer blocker.Close()
	busyPort := blocker.Addr().(*net.TCPAddr).Port

	err = l.Start(busyPort)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrBindFailed)

	// The old listener must still accept and deliver
	// 旧监听器必须仍能接受连接并交付数据
	assert.Equal(t, oldPort, l.Port())
	assert.Equal(t, StateRunning, l.State())

	conn := dial(t, oldPort)
	defer conn.Close()
	_, err = conn.Write([]byte("still-alive\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(c.lines()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

// TestStopStartSamePort tests immediate restart on the same port
// TestStopStartSamePort 测试同端口立即重启
func TestStopStartSamePort(t *testing.T) {
	c := &collector{}
	l := NewListener(c.handle)
	require.NoError(t, l.Start(0))
	port := l.Port()

	l.Stop()
	assert.Equal(t, StateStopped, l.State())

	require.NoError(t, l.Start(port))
	defer l.Stop()
	assert.Equal(t, port, l.Port())
}

// TestStopIdempotent tests that repeated Stop calls are safe
// TestStopIdempotent 测试重复 Stop 安全
func TestStopIdempotent(t *testing.T) {
	l := NewListener(nil)
	require.NoError(t, l.Start(0))
	l.Stop()
	l.Stop()
	assert.Equal(t, StateStopped, l.State())
}

// TestIsPortAvailable tests the probe bind
// TestIsPortAvailable 测试探测绑定
func TestIsPortAvailable(t *testing.T) {
	ln, err := net.Listen("tcp", "0.0.0.0:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port

	assert.False(t, IsPortAvailable(port))
	ln.Close()

	require.Eventually(t, func() bool {
		return IsPortAvailable(port)
	}, 2*time.Second, 10*time.Millisecond)
}

// TestInvalidPort tests port range validation
// TestInvalidPort 测试端口范围校验
func TestInvalidPort(t *testing.T) {
	l := NewListener(nil)
	err := l.Start(70000)
	assert.ErrorIs(t, err, errors.ErrInvalidPort)
	assert.Equal(t, StateStopped, l.State())
}
