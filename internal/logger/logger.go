package logger

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Logger writes timestamped, category-tagged lines to the console (colored)
// and optionally to a plain log file. Safe for concurrent use.
type Logger struct {
	mu    sync.Mutex
	file  *os.File
	debug bool
}

var (
	infoColor  = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
	debugColor = color.New(color.FgCyan)
	fatalColor = color.New(color.FgRed, color.Bold)
)

// NewLogger creates a logger. LOG_FILE enables the file sink, LOG_DEBUG=true
// enables debug output.
func NewLogger() *Logger {
	l := &Logger{debug: os.Getenv("LOG_DEBUG") == "true"}
	if path := os.Getenv("LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err == nil {
			l.file = f
		}
	}
	return l
}

// Close releases the file sink if one is open.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}

func (l *Logger) write(level string, c *color.Color, category, message string) {
	ts := time.Now().Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("[%s] [%s] [%s] %s", ts, level, category, message)

	l.mu.Lock()
	defer l.mu.Unlock()
	c.Fprintln(os.Stdout, line)
	if l.file != nil {
		fmt.Fprintln(l.file, line)
	}
}

func (l *Logger) Info(category, message string) {
	l.write("INFO", infoColor, category, message)
}

func (l *Logger) Warn(category, message string) {
	l.write("WARN", warnColor, category, message)
}

func (l *Logger) Error(category, message string) {
	l.write("ERROR", errorColor, category, message)
}

func (l *Logger) Debug(category, message string) {
	if !l.debug {
		return
	}
	l.write("DEBUG", debugColor, category, message)
}

// Fatal logs the message and exits the process.
func (l *Logger) Fatal(category, message string) {
	l.write("FATAL", fatalColor, category, message)
	l.Close()
	os.Exit(1)
}

// LogProcess records a lifecycle stage (startup, shutdown, init).
func (l *Logger) LogProcess(stage, message string) {
	l.Info(stage, message)
}

// LogAPI records one handled HTTP request.
func (l *Logger) LogAPI(method, path, status, duration string) {
	l.Info("API", fmt.Sprintf("%s %s - %s (%s)", method, path, status, duration))
}

// LogPayment records one step of a charge flow. Card data must never be
// passed through here.
func (l *Logger) LogPayment(operation, reference, message string) {
	l.Info("PAYMENT", fmt.Sprintf("[%s] %s: %s", operation, reference, message))
}

// LogDatabase records a storage operation.
func (l *Logger) LogDatabase(operation, target, message string) {
	l.Info("DATABASE", fmt.Sprintf("[%s] %s: %s", operation, target, message))
}

// LogKafka records an event-stream operation.
func (l *Logger) LogKafka(operation, topic, message string) {
	l.Info("KAFKA", fmt.Sprintf("[%s] %s: %s", operation, topic, message))
}

// LogSecurity records a security-relevant event (rate limiting, proxies).
func (l *Logger) LogSecurity(event, message string) {
	l.Warn("SECURITY", fmt.Sprintf("[%s] %s", event, message))
}
