package initializer

import (
	"io"
	"log/slog"
	"os"

	"github.com/amirasaad/awgen/pkg/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"golang.org/x/term"
)

// setupLogger builds the process logger and installs it as the slog default.
func setupLogger(cfg *config.Log) *slog.Logger {
	return newLogger(os.Stdout, cfg, isTerminal(os.Stdout))
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// formatterFor resolves the configured format. "auto" picks text on a
// terminal and JSON otherwise.
func formatterFor(format string, tty bool) log.Formatter {
	switch format {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	case "text":
		return log.TextFormatter
	}
	if tty {
		return log.TextFormatter
	}
	return log.JSONFormatter
}

func newLogger(w io.Writer, cfg *config.Log, tty bool) *slog.Logger {
	if cfg == nil {
		cfg = &config.Log{Format: "auto"}
	}
	styles := log.DefaultStyles()
	infoTxtColor := lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}
	warnTxtColor := lipgloss.AdaptiveColor{Light: "#EE6FF8", Dark: "#EE6FF8"}
	errorTxtColor := lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF6B6B"}
	debugTxtColor := lipgloss.AdaptiveColor{Light: "#7E57C2", Dark: "#7E57C2"}

	styles.Levels[log.ErrorLevel] = lipgloss.NewStyle().
		SetString("❌").
		Bold(true).
		Padding(0, 1).
		Foreground(errorTxtColor)

	styles.Levels[log.InfoLevel] = lipgloss.NewStyle().
		SetString("ℹ️").
		Bold(true).
		Padding(0, 1).
		Foreground(infoTxtColor)

	styles.Levels[log.WarnLevel] = lipgloss.NewStyle().
		SetString("⚠️").
		Bold(true).
		Padding(0, 1).
		Foreground(warnTxtColor)

	styles.Levels[log.DebugLevel] = lipgloss.NewStyle().
		SetString("🐛").
		Bold(true).
		Padding(0, 1).
		Foreground(debugTxtColor)

	styles.Keys["error"] = lipgloss.NewStyle().Foreground(errorTxtColor)
	styles.Values["error"] = lipgloss.NewStyle().Bold(true)
	styles.Keys["component"] = lipgloss.NewStyle().Foreground(debugTxtColor)
	styles.Values["component"] = lipgloss.NewStyle().Bold(true)
	styles.Keys["key"] = lipgloss.NewStyle().Foreground(infoTxtColor)
	styles.Keys["type"] = lipgloss.NewStyle().Foreground(infoTxtColor)
	styles.Keys["handler_id"] = lipgloss.NewStyle().Foreground(warnTxtColor)

	logger := log.NewWithOptions(w, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		Level:           log.Level(cfg.Level),
		Prefix:          cfg.Prefix,
		Formatter:       formatterFor(cfg.Format, tty),
	})
	logger.SetStyles(styles)

	slogger := slog.New(logger)
	slog.SetDefault(slogger)

	return slogger
}
