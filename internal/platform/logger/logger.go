package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ohmynofan/router-checkin-bot/internal/domain/model"
	"github.com/ohmynofan/router-checkin-bot/internal/platform/ui"
	"github.com/ohmynofan/router-checkin-bot/pkg/utils"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	fileLogger = zerolog.Nop()
	mu         sync.RWMutex
	once       sync.Once
	logFile    *lumberjack.Logger
)

func Init(path string) error {
	var err error
	once.Do(func() {
		if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return
		}
		logFile = &lumberjack.Logger{Filename: path, MaxSize: 10, MaxBackups: 5, Compress: true}
		zerolog.TimeFieldFormat = time.RFC3339Nano

		mu.Lock()
		fileLogger = zerolog.New(logFile).With().Timestamp().Logger()
		mu.Unlock()
	})
	return err
}

func Close() error {
	if logFile != nil {
		return logFile.Close()
	}
	return nil
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return fileLogger
}

type ClassLogger struct {
	class   string
	session *model.Session
}

func NewLogger(v interface{}, session *model.Session) *ClassLogger {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return &ClassLogger{class: t.Name(), session: session}
}

func NewNamed(name string, session *model.Session) *ClassLogger {
	return &ClassLogger{class: name, session: session}
}

// Log writes msg to the log file and shows it as the account's current status.
func (l *ClassLogger) Log(msg string) {
	l.write(zerolog.InfoLevel, msg)
	if l.session != nil {
		ui.UpdateStatus(*l.session, shortenForDisplay(msg))
	} else {
		ui.Println(fmt.Sprintf("[%s] %s", l.class, shortenForDisplay(msg)))
	}
}

// Warn is Log at warning level.
func (l *ClassLogger) Warn(msg string) {
	l.write(zerolog.WarnLevel, msg)
	if l.session != nil {
		ui.UpdateStatus(*l.session, shortenForDisplay(msg))
	} else {
		ui.Warn(fmt.Sprintf("[%s] %s", l.class, shortenForDisplay(msg)))
	}
}

// JustLog writes to the log file only.
func (l *ClassLogger) JustLog(msg string) {
	l.write(zerolog.DebugLevel, msg)
}

// LogObject writes obj as JSON to the log file; see utils.FormatObject for
// the field tags it honors.
func (l *ClassLogger) LogObject(msg string, obj interface{}) {
	formattedString, err := utils.FormatObject(obj)
	if err != nil {
		l.JustLog(fmt.Sprintf("Error formatting object: %v", err))
		return
	}
	l.JustLog(fmt.Sprintf("%s : \n%v", msg, formattedString))
}

func (l *ClassLogger) write(level zerolog.Level, msg string) {
	log := current()
	event := log.WithLevel(level).Str("func", callerFunc(3))
	if l.session != nil {
		event = event.Str("account", l.session.Name).Int("account_idx", l.session.AccIdx+1)
		if l.session.RunID != "" {
			event = event.Str("run_id", l.session.RunID)
		}
	} else {
		event = event.Str("class", l.class)
	}
	event.Msg(msg)
}

func callerFunc(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}
	parts := strings.Split(fn.Name(), ".")
	return parts[len(parts)-1]
}

func shortenForDisplay(msg string) string {
	const maxLen = 140
	runes := []rune(msg)
	if len(runes) <= maxLen {
		return msg
	}
	return string(runes[:maxLen-1]) + "…"
}
