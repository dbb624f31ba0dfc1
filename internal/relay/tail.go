package relay

import (
	"bytes"
	"io"
	"os"
)

const tailBlockSize = 8192

// ReadLastLines returns up to n trailing lines of the file at path, oldest
// first, without loading the whole file. A missing file yields no lines and
// no error: a viewer connecting before the first record is simply sent
// nothing.
// ReadLastLines 返回文件末尾至多 n 行（从旧到新），不加载整个文件。
// 文件不存在时返回空且无错误：首条记录之前连接的查看器不收到任何内容。
func ReadLastLines(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return nil, nil
	}

	// Walk backwards in blocks until enough newlines are seen or the file
	// begins.
	// 按块向前回溯，直到看到足够的换行或到达文件开头。
	var chunk []byte
	offset := size
	newlines := 0
	for offset > 0 && newlines <= n {
		readSize := int64(tailBlockSize)
		if offset < readSize {
			readSize = offset
		}
		offset -= readSize

		block := make([]byte, readSize)
		if _, err := f.ReadAt(block, offset); err != nil && err != io.EOF {
			return nil, err
		}
		chunk = append(block, chunk...)
		newlines = bytes.Count(chunk, []byte{'\n'})
	}

	lines := splitTrailing(chunk, n)
	return lines, nil
}

// splitTrailing extracts the final n non-empty lines from raw bytes.
// splitTrailing 从原始字节中提取末尾 n 个非空行。
func splitTrailing(data []byte, n int) []string {
	parts := bytes.Split(data, []byte{'\n'})
	var lines []string
	for _, p := range parts {
		p = bytes.TrimRight(p, "\r")
		if len(p) > 0 {
			lines = append(lines, string(p))
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
