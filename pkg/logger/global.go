// pkg/logger/global.go
package logger

import (
	"io"
	"sync"
)

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

func InitGlobal(logPath, logLevel string, debug bool) error {
	l, err := NewLogger(logPath, logLevel, debug)
	if err != nil {
		return err
	}
	SetGlobal(l)
	return nil
}

// InitGlobalWriter направляет глобальный логгер в writer (тесты, отладка)
func InitGlobalWriter(w io.Writer, logLevel string) {
	SetGlobal(NewWithWriter(w, logLevel, false, nil))
}

// SetGlobal заменяет глобальный логгер; nil отключает логирование
func SetGlobal(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

func GetLogger() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// Глобальные методы для удобства
func Debug(format string, v ...interface{}) {
	if l := GetLogger(); l != nil {
		l.Debug(format, v...)
	}
}

func Info(format string, v ...interface{}) {
	if l := GetLogger(); l != nil {
		l.Info(format, v...)
	}
}

func Warn(format string, v ...interface{}) {
	if l := GetLogger(); l != nil {
		l.Warn(format, v...)
	}
}

func Error(format string, v ...interface{}) {
	if l := GetLogger(); l != nil {
		l.Error(format, v...)
	}
}

func Status(stats map[string]string) {
	if l := GetLogger(); l != nil {
		l.Status(stats)
	}
}

func Close() {
	if l := GetLogger(); l != nil {
		l.Close()
	}
}
