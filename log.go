package spanjson

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// logger is swappable via SetLogger and defaults to a no-op, so the hot
// path of converting a value that already hit every cache pays nothing for
// logging. It is only consulted for Debug-level tracing of registry cache
// misses (registry.go), ClassInfo construction (struct_options.go), and
// Frame push/pop (stack.go), which composite converters do once per value.
var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

// SetLogger installs l as the package-level diagnostics logger. Passing nil
// restores the no-op default.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

func debugf(msg string, fields ...zap.Field) {
	logger.Load().Debug(msg, fields...)
}
