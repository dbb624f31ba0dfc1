// Package decode turns raw socket bytes into text without ever failing.
// Malformed input degrades to lossy-but-visible text instead of an error, so
// the ingest path can never crash on a misbehaving switch.
// decode 包将原始套接字字节转换为文本且永不失败。
// 畸形输入会降级为有损但可见的文本，而不是错误，确保接收路径不会因异常交换机而崩溃。
package decode

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Placeholder is returned when no decoding strategy produces text.
// Placeholder 在所有解码策略都失败时返回。
const Placeholder = "<undecodable data>"

// Decode converts an arbitrary byte sequence to a string. Strict UTF-8 is
// tried first; invalid UTF-8 falls back to Latin-1, which maps every byte
// 1:1 to a rune and cannot fail. The placeholder is a last resort that in
// practice is unreachable, kept so the contract holds even if the fallback
// decoder ever returns an error.
// Decode 将任意字节序列转换为字符串。先尝试严格 UTF-8；
// 无效的 UTF-8 回退到 Latin-1（每个字节 1:1 映射，不会失败）。
func Decode(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}

	text, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return Placeholder
	}
	return string(text)
}
