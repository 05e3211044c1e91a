package logger

import (
	"context"
	"log/slog"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// slogBridge routes log/slog records into the zap logger so domain packages
// can emit structured events without importing zap. Grouped attrs are
// flattened into dotted keys.
type slogBridge struct {
	zl     *zap.Logger
	bound  []zap.Field
	prefix string
}

func newSlogBridge(zl *zap.Logger) slog.Handler {
	if zl == nil {
		zl = zap.NewNop()
	}
	return &slogBridge{zl: zl}
}

func slogToZapLevel(level slog.Level) zapcore.Level {
	switch {
	case level >= slog.LevelError:
		return LevelError
	case level >= slog.LevelWarn:
		return LevelWarn
	case level <= slog.LevelDebug:
		return LevelDebug
	default:
		return LevelInfo
	}
}

func (b *slogBridge) Enabled(_ context.Context, level slog.Level) bool {
	return b.zl.Core().Enabled(slogToZapLevel(level))
}

func (b *slogBridge) Handle(_ context.Context, record slog.Record) error {
	ce := b.zl.Check(slogToZapLevel(record.Level), record.Message)
	if ce == nil {
		return nil
	}

	fields := make([]zap.Field, 0, len(b.bound)+record.NumAttrs())
	fields = append(fields, b.bound...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendAttr(fields, b.prefix, attr)
		return true
	})
	ce.Write(fields...)
	return nil
}

func (b *slogBridge) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *b
	next.bound = append([]zap.Field{}, b.bound...)
	for _, attr := range attrs {
		next.bound = appendAttr(next.bound, b.prefix, attr)
	}
	return &next
}

func (b *slogBridge) WithGroup(name string) slog.Handler {
	name = strings.TrimSpace(name)
	if name == "" {
		return b
	}
	next := *b
	next.prefix = b.prefix + name + "."
	return &next
}

func appendAttr(fields []zap.Field, prefix string, attr slog.Attr) []zap.Field {
	key := prefix + attr.Key
	value := attr.Value.Resolve()
	switch value.Kind() {
	case slog.KindGroup:
		for _, nested := range value.Group() {
			fields = appendAttr(fields, key+".", nested)
		}
		return fields
	case slog.KindString:
		return append(fields, zap.String(key, value.String()))
	case slog.KindInt64:
		return append(fields, zap.Int64(key, value.Int64()))
	case slog.KindUint64:
		return append(fields, zap.Uint64(key, value.Uint64()))
	case slog.KindFloat64:
		return append(fields, zap.Float64(key, value.Float64()))
	case slog.KindBool:
		return append(fields, zap.Bool(key, value.Bool()))
	case slog.KindDuration:
		return append(fields, zap.Duration(key, value.Duration()))
	case slog.KindTime:
		return append(fields, zap.Time(key, value.Time()))
	default:
		return append(fields, zap.Any(key, value.Any()))
	}
}
