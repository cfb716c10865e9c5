package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level 是日志级别。
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Validate 检查级别是否合法。
func (l Level) Validate() error {
	switch l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return nil
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", l)
	}
}

// ToSlogLevel 转换为 slog.Level，未知值按 info 处理。
func (l Level) ToSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Format 是日志输出格式。
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Validate 检查格式是否合法。
func (f Format) Validate() error {
	switch f {
	case FormatText, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", f)
	}
}

// ParseLevel 与 ParseFormat 对大小写与空白宽容。
func ParseLevel(raw string) Level {
	return Level(strings.ToLower(strings.TrimSpace(raw)))
}

func ParseFormat(raw string) Format {
	return Format(strings.ToLower(strings.TrimSpace(raw)))
}

// New 创建写入 stdout 的结构化日志器。
func New(level Level, format Format) *slog.Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter 创建写入指定 io.Writer 的结构化日志器，所有记录带 service 字段。
func NewWithWriter(w io.Writer, level Level, format Format) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level.ToSlogLevel(),
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With("service", "assetproxy")
}
