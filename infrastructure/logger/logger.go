package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

var logger = log.New()

func init() {
	env := os.Getenv("ENV")
	logger.Out = os.Stdout
	// LOG_TO_FILE=true writes to logs/<date><env>.log for stage/prod style deployments.
	if os.Getenv("LOG_TO_FILE") == "true" {
		if f, err := openLogFile(env); err != nil {
			log.Warnf("Failed to open log file: %v, falling back to stdout", err)
		} else {
			logger.Out = f
		}
	}

	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "text") {
		logger.Formatter = &log.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339Nano}
	} else {
		logger.Formatter = &log.JSONFormatter{TimestampFormat: time.RFC3339Nano}
	}
	logger.SetLevel(levelFromEnv(os.Getenv("LOG_LEVEL")))
}

func openLogFile(env string) (*os.File, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	logsDir := filepath.Join(cwd, "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%s%s.log", time.Now().Format("2006-01-02"), env)
	return os.OpenFile(filepath.Join(logsDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
}

func levelFromEnv(v string) log.Level {
	if v == "" {
		return log.DebugLevel
	}
	lvl, err := log.ParseLevel(v)
	if err != nil {
		return log.DebugLevel
	}
	return lvl
}

// SetLevel changes the level at runtime; used once configuration is loaded.
func SetLevel(level string) {
	if level == "" {
		return
	}
	if lvl, err := log.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
}

// GetLogger returns an entry annotated with the caller's function, file and line.
func GetLogger() *log.Entry {
	function, file, line, _ := runtime.Caller(1)
	functionObject := runtime.FuncForPC(function)
	name := ""
	if functionObject != nil {
		name = functionObject.Name()
	}
	return logger.WithFields(log.Fields{
		"requestId": time.Now().UnixNano() / int64(time.Millisecond),
		"function":  name,
		"file":      file,
		"line":      line,
	})
}
