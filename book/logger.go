package book

import "go.uber.org/zap"

var logger = zap.NewNop()

// SetLogger allows the host process to install a configured logger.
// Unset (the zero-value Nop logger) discards everything.
func SetLogger(l *zap.Logger) {
	if l == nil {
		return
	}
	logger = l
}
