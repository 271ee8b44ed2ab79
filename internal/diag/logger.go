package diag

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	debugStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// levelPrefix renders levels as the INFO:/ERROR: prefixes users already know.
func levelPrefix(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch {
	case l >= zapcore.ErrorLevel:
		enc.AppendString(errorStyle.Render("ERROR:"))
	case l == zapcore.WarnLevel:
		enc.AppendString(warnStyle.Render("WARN:"))
	case l == zapcore.InfoLevel:
		enc.AppendString(infoStyle.Render("INFO:"))
	default:
		enc.AppendString(debugStyle.Render("DEBUG:"))
	}
}

// NewLogger builds the console logger. Without verbose only warnings and
// errors are written.
func NewLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encCfg := zapcore.EncoderConfig{
		LevelKey:         "level",
		MessageKey:       "msg",
		EncodeLevel:      levelPrefix,
		ConsoleSeparator: " ",
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(level),
	)
	return zap.New(core)
}
