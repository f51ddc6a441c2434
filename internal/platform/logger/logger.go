package logger

import (
	"fmt"
	"log"
	"os"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/mrfarmer/rewards-farmer-bot/internal/domain/model"
	"github.com/mrfarmer/rewards-farmer-bot/internal/platform/ui"
	"github.com/mrfarmer/rewards-farmer-bot/pkg/utils"
)

var (
	fileLogger *log.Logger
	once       sync.Once
	logFile    *os.File

	errorMu   sync.Mutex
	errorPath string
)

func Init(path string) error {
	var err error
	once.Do(func() {
		os.Remove(path)
		if err = os.MkdirAll(dirOf(path), 0o755); err != nil {
			return
		}
		logFile, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return
		}
		fileLogger = log.New(logFile, "", log.Ldate|log.Ltime|log.Lmicroseconds)
	})
	return err
}

func Close() error {
	if logFile != nil {
		return logFile.Close()
	}
	return nil
}

// EnableErrorDumps turns on SaveError appends to the given file.
func EnableErrorDumps(path string) {
	errorMu.Lock()
	errorPath = path
	errorMu.Unlock()
}

// SaveError appends a timestamped failure record for an account. Best effort;
// a dump failure never interrupts the run.
func SaveError(username string, err error) {
	errorMu.Lock()
	path := errorPath
	errorMu.Unlock()
	if path == "" || err == nil {
		return
	}

	f, openErr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if openErr != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s - %s\n%v\n%s\n", time.Now().Format("2006-01-02 15:04:05"), username, err, strings.Repeat("-", 60))
}

func dirOf(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "."
	}
	return path[:i]
}

// ClassLogger mirrors every message to the file log and to the account's
// terminal panel. The account pointer stays live so the panel always shows
// the current counters.
type ClassLogger struct {
	class   string
	accIdx  int
	account *model.Account
}

func NewLogger(v interface{}, accIdx int, account *model.Account) *ClassLogger {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return &ClassLogger{class: t.Name(), accIdx: accIdx, account: account}
}

func NewNamed(name string, accIdx int, account *model.Account) *ClassLogger {
	return &ClassLogger{class: name, accIdx: accIdx, account: account}
}

func (l *ClassLogger) Log(msg string, durationMs ...int) {
	totalDuration := 300 * time.Millisecond
	if len(durationMs) > 0 {
		totalDuration = time.Duration(durationMs[0]) * time.Millisecond
	}

	if l.account == nil {
		l.JustLog(msg)
		return
	}

	if fileLogger != nil {
		funcName := callerFunc(2)
		label := fmt.Sprintf("Farmer - Account %d", l.accIdx+1)
		fileLogger.Printf("[%s][%s] %s", label, funcName, msg)
	}

	displayMsg := shortenForDisplay(msg)

	if totalDuration > 0 {
		interval := 1 * time.Second

		for remaining := totalDuration; remaining > 0; remaining -= interval {
			ui.UpdateStatus(l.accIdx, *l.account, displayMsg, remaining)

			sleepTime := interval
			if remaining < interval {
				sleepTime = remaining
			}
			time.Sleep(sleepTime)
		}
	}

	ui.UpdateStatus(l.accIdx, *l.account, displayMsg, 0)
}

func (l *ClassLogger) JustLog(msg string) {
	if fileLogger != nil {
		funcName := callerFunc(2)
		if l.account != nil {
			label := fmt.Sprintf("Farmer - Account %d", l.accIdx+1)
			fileLogger.Printf("[%s][%s] %s", label, funcName, msg)
		} else {
			fileLogger.Printf("[%s][%s] %s", l.class, funcName, msg)
		}
	}
}

func (l *ClassLogger) LogObject(msg string, obj interface{}) {
	if fileLogger != nil {
		formattedString, err := utils.FormatObject(obj)
		if err != nil {
			l.JustLog(fmt.Sprintf("Error formatting object: %v", err))
			return
		}
		l.JustLog(fmt.Sprintf("%s : \n%v", msg, formattedString))
	}
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
	return string(runes[:maxLen-1]) + "..."
}
