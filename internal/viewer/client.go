// Package viewer implements the consumer side of the relay protocol: connect,
// stream newline-delimited lines into a callback, and degrade to tailing the
// local log file when no live connection is available. Exactly one of the two
// modes is active at a time; transitions are explicit and offset-tracked so a
// mode switch neither duplicates nor drops lines shown from the file.
// viewer 包实现中继协议的消费端：连接、将换行分隔的行流入回调，
// 并在无实时连接时降级为尾随本地日志文件。两种模式同一时刻只激活一种；
// 切换是显式且带偏移跟踪的，文件模式展示过的行不会重复或丢失。
package viewer

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nxadm/tail"

	"github.com/smdrkit/smdrd/internal/utils/logger"
	"github.com/smdrkit/smdrd/pkg/errors"
)

// Mode is the client's delivery mode.
// Mode 是客户端的数据来源模式。
type Mode int32

const (
	ModeStopped Mode = iota
	ModeStreaming
	ModeFilePolling
)

func (m Mode) String() string {
	switch m {
	case ModeStreaming:
		return "streaming"
	case ModeFilePolling:
		return "file-polling"
	default:
		return "stopped"
	}
}

const dialTimeout = 5 * time.Second

// Reconnect backoff: 5s after the first failure, 10s on repeated failures.
// Vars rather than consts so tests can shorten them.
// 重连退避：首次失败后 5 秒，重复失败后 10 秒。测试可缩短，故用变量。
var (
	backoffInitial = 5 * time.Second
	backoffRepeat  = 10 * time.Second
)

// LineFunc receives each delivered line. It is owned by the embedding
// application (a GUI, a terminal printer) and must not block long.
// LineFunc 接收每条交付的行。由宿主应用持有，不得长时间阻塞。
type LineFunc func(line string)

// Options configures a Client.
// Options 配置 Client。
type Options struct {
	Host string
	Port int
	// LogPath enables file-polling fallback when non-empty.
	// LogPath 非空时启用文件轮询回退。
	LogPath string
	// Reconnect schedules connection retries with backoff (5s, then 10s).
	// Reconnect 启用带退避的重连（5 秒，随后 10 秒）。
	Reconnect bool
}

// Client consumes the relay's push stream.
// Client 消费中继的推送流。
type Client struct {
	opts   Options
	onLine LineFunc

	mu      sync.Mutex
	mode    Mode
	conn    net.Conn
	tailer  *tail.Tail
	stopped bool

	// offset is the next unread byte in file mode. Atomic because the tail
	// consumer updates it per line while mode transitions hold c.mu.
	// offset 是文件模式下一个未读字节。使用原子操作：尾随消费协程按行更新，
	// 而模式切换持有 c.mu。
	offset atomic.Int64
	seeded atomic.Bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewClient creates a stopped client.
// NewClient 创建一个停止状态的客户端。
func NewClient(opts Options, onLine LineFunc) *Client {
	return &Client{
		opts:   opts,
		onLine: onLine,
		stop:   make(chan struct{}),
	}
}

// Start launches the connection loop. The first connect attempt happens
// synchronously so a reachable relay is streaming by the time Start returns;
// an unreachable one degrades per the configured fallback.
// Start 启动连接循环。首次连接同步进行，可达的中继在 Start 返回时已在流式传输；
// 不可达时按配置降级。
func (c *Client) Start() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return errors.ErrViewerStopped
	}
	c.mu.Unlock()

	conn, err := c.dial()
	if err == nil {
		c.enterStreaming(conn)
	} else {
		if c.opts.LogPath == "" && !c.opts.Reconnect {
			return err
		}
		if c.opts.LogPath != "" {
			c.enterFilePolling()
		}
	}

	c.wg.Add(1)
	go c.run(err == nil)
	return nil
}

// Mode returns the currently active delivery mode.
// Mode 返回当前激活的数据来源模式。
func (c *Client) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Stop terminates the client, unblocking any in-flight socket read or file
// tail, and waits for the loop to exit. Idempotent.
// Stop 终止客户端，解除进行中的套接字读取或文件尾随，并等待循环退出。幂等。
func (c *Client) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	close(c.stop)
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.stopTailerLocked()
	c.mu.Unlock()

	c.wg.Wait()
	c.mu.Lock()
	c.mode = ModeStopped
	c.mu.Unlock()
}

func (c *Client) dial() (net.Conn, error) {
	addr := fmt.Sprintf("%s:%d", c.opts.Host, c.opts.Port)
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, errors.NewConnectError(c.opts.Host, c.opts.Port, err)
	}
	return conn, nil
}

// run is the reconnect loop. streaming reports whether the caller already
// established a live connection.
// run 是重连循环。streaming 表示调用方是否已建立实时连接。
func (c *Client) run(streaming bool) {
	defer c.wg.Done()
	log := logger.Get(nil)

	delay := time.Duration(0)
	for {
		if streaming {
			c.streamLoop()
			if c.isStopped() {
				return
			}
			log.Infof("🔌 Relay connection lost")
			if c.opts.LogPath != "" {
				c.enterFilePolling()
			}
			if !c.opts.Reconnect {
				// Degraded mode until Stop, or done entirely.
				// 降级运行直到 Stop，或就此结束。
				if c.opts.LogPath != "" {
					<-c.stop
				}
				return
			}
			delay = backoffInitial
			streaming = false
		}

		select {
		case <-c.stop:
			return
		case <-time.After(delay):
		}

		conn, err := c.dial()
		if err != nil {
			if !c.opts.Reconnect {
				if c.opts.LogPath != "" {
					<-c.stop
				}
				return
			}
			// First failure waits the short backoff, repeats wait the long one.
			// 首次失败用短退避，重复失败用长退避。
			if delay < backoffInitial {
				delay = backoffInitial
			} else {
				delay = backoffRepeat
			}
			log.Debugf("Relay not reachable, retrying in %v: %v", delay, err)
			continue
		}

		c.enterStreaming(conn)
		streaming = true
	}
}

// streamLoop reads newline-delimited lines until the peer closes or Stop
// closes the socket.
// streamLoop 读取换行分隔的行，直到对端关闭或 Stop 关闭套接字。
func (c *Client) streamLoop() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		c.onLine(scanner.Text())
	}

	c.mu.Lock()
	if c.conn == conn {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
}

// enterStreaming is the transition into network mode: the file tailer (if
// running) is parked with its offset saved, then the socket takes over.
// enterStreaming 是进入网络模式的切换：暂停文件尾随并保存偏移，套接字接管。
func (c *Client) enterStreaming(conn net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTailerLocked()
	c.conn = conn
	c.mode = ModeStreaming
	logger.Get(nil).Infof("📡 Connected to SMDR relay at %s (mode: %s)", conn.RemoteAddr(), c.mode)
}

// enterFilePolling is the transition into degraded mode. The first entry
// seeks to the end of the file (everything earlier was either shown live or
// predates this client); a re-entry resumes from the saved byte offset.
// enterFilePolling 是进入降级模式的切换。首次进入定位到文件末尾
// （更早的内容要么已实时展示、要么早于本客户端）；再次进入从保存的字节偏移续读。
func (c *Client) enterFilePolling() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.tailer != nil {
		return
	}

	location := &tail.SeekInfo{Whence: io.SeekEnd}
	if c.seeded.Load() {
		location = &tail.SeekInfo{Offset: c.offset.Load(), Whence: io.SeekStart}
	}

	t, err := tail.TailFile(c.opts.LogPath, tail.Config{
		Location:  location,
		Follow:    true,
		ReOpen:    true, // survive daily rotation / 兼容按日轮转
		MustExist: false,
		Poll:      true, // fallback if inotify fails / inotify 失效时退化为轮询
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		logger.Get(nil).Warnf("⚠️  Could not tail %s: %v", c.opts.LogPath, err)
		return
	}

	c.tailer = t
	c.mode = ModeFilePolling
	logger.Get(nil).Infof("📄 Falling back to log file tail: %s (mode: %s)", c.opts.LogPath, c.mode)

	c.wg.Add(1)
	go c.tailLoop(t)
}

func (c *Client) tailLoop(t *tail.Tail) {
	defer c.wg.Done()
	for line := range t.Lines {
		if line.Err != nil {
			continue
		}
		c.onLine(line.Text)
		if pos, err := t.Tell(); err == nil {
			c.offset.Store(pos)
			c.seeded.Store(true)
		}
	}
}

// stopTailerLocked parks the file tailer, keeping the byte offset for a later
// re-entry. Caller holds c.mu.
// stopTailerLocked 暂停文件尾随并保留字节偏移供再次进入。调用方持有 c.mu。
func (c *Client) stopTailerLocked() {
	if c.tailer == nil {
		return
	}
	if pos, err := c.tailer.Tell(); err == nil {
		c.offset.Store(pos)
		c.seeded.Store(true)
	}
	_ = c.tailer.Stop()
	c.tailer = nil
}

func (c *Client) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}
