package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

type sink struct {
	debug, info, warn, errlog *log.Logger
}

type Logger struct {
	console  *sink
	file     *sink
	logFile  *os.File
	minLevel LogLevel
}

var (
	defaultLogger *Logger
	once          sync.Once
	mu            sync.Mutex
)

func ensureInitialized() {
	once.Do(func() {
		if defaultLogger == nil {
			defaultLogger = &Logger{minLevel: DEBUG}
			defaultLogger.console = newSink(os.Stdout, true)
		}
	})
}

func newSink(w io.Writer, color bool) *sink {
	flags := log.Ldate | log.Ltime | log.Lshortfile
	if color {
		return &sink{
			debug:  log.New(w, colorGray+"[DEBUG] "+colorReset, flags),
			info:   log.New(w, colorReset+"[INFO]  "+colorReset, flags),
			warn:   log.New(w, colorYellow+"[WARN]  "+colorReset, flags),
			errlog: log.New(w, colorRed+"[ERROR] "+colorReset, flags),
		}
	}
	return &sink{
		debug:  log.New(w, "[DEBUG] ", flags),
		info:   log.New(w, "[INFO]  ", flags),
		warn:   log.New(w, "[WARN]  ", flags),
		errlog: log.New(w, "[ERROR] ", flags),
	}
}

// Init sets up the logger with optional file and console output.
// If filename is empty, logs only to console; if console is false, only to file.
func Init(filename string, console bool) error {
	mu.Lock()
	defer mu.Unlock()

	if defaultLogger != nil && defaultLogger.logFile != nil {
		defaultLogger.logFile.Close()
	}

	l := &Logger{minLevel: DEBUG}
	if filename != "" {
		f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		l.logFile = f
		l.file = newSink(f, false)
	}
	if console {
		l.console = newSink(os.Stdout, true)
	}
	if l.console == nil && l.file == nil {
		return fmt.Errorf("no output destination specified")
	}
	defaultLogger = l
	return nil
}

// SetLevel sets the minimum level; messages below it are dropped.
func SetLevel(level LogLevel) {
	ensureInitialized()
	mu.Lock()
	defer mu.Unlock()
	defaultLogger.minLevel = level
}

// Close closes the log file if one is open.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if defaultLogger != nil && defaultLogger.logFile != nil {
		defaultLogger.logFile.Close()
		defaultLogger.logFile = nil
		defaultLogger.file = nil
	}
}

func (l *Logger) output(level LogLevel, pick func(*sink) *log.Logger, msg string) {
	if level < l.minLevel {
		return
	}
	if l.console != nil {
		pick(l.console).Output(3, msg)
	}
	if l.file != nil {
		pick(l.file).Output(3, msg)
	}
}

func emit(level LogLevel, pick func(*sink) *log.Logger, msg string) {
	ensureInitialized()
	defaultLogger.output(level, pick, msg)
}

func Debug(v ...interface{}) {
	emit(DEBUG, func(s *sink) *log.Logger { return s.debug }, fmt.Sprint(v...))
}

func Debugf(format string, v ...interface{}) {
	emit(DEBUG, func(s *sink) *log.Logger { return s.debug }, fmt.Sprintf(format, v...))
}

func Info(v ...interface{}) {
	emit(INFO, func(s *sink) *log.Logger { return s.info }, fmt.Sprint(v...))
}

func Infof(format string, v ...interface{}) {
	emit(INFO, func(s *sink) *log.Logger { return s.info }, fmt.Sprintf(format, v...))
}

func Warn(v ...interface{}) {
	emit(WARN, func(s *sink) *log.Logger { return s.warn }, fmt.Sprint(v...))
}

func Warnf(format string, v ...interface{}) {
	emit(WARN, func(s *sink) *log.Logger { return s.warn }, fmt.Sprintf(format, v...))
}

func Error(v ...interface{}) {
	emit(ERROR, func(s *sink) *log.Logger { return s.errlog }, fmt.Sprint(v...))
}

func Errorf(format string, v ...interface{}) {
	emit(ERROR, func(s *sink) *log.Logger { return s.errlog }, fmt.Sprintf(format, v...))
}

func Fatal(v ...interface{}) {
	emit(ERROR, func(s *sink) *log.Logger { return s.errlog }, fmt.Sprint(v...))
	os.Exit(1)
}

func Fatalf(format string, v ...interface{}) {
	emit(ERROR, func(s *sink) *log.Logger { return s.errlog }, fmt.Sprintf(format, v...))
	os.Exit(1)
}
