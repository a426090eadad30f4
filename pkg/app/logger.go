package app

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger 构建文本格式的 slog.Logger。level 为 debug|info|warn|error，未知值按 info 处理。
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
