package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 结构化日志接口
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})

	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

// Config 日志配置
type Config struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // json 或 text
	Output     string `yaml:"output"` // stdout, stderr, file
	Filename   string `yaml:"filename"`
	MaxSize    int    `yaml:"max_size"` // MB
	MaxAge     int    `yaml:"max_age"`  // days
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

// DefaultConfig 默认配置
var DefaultConfig = Config{
	Level:      "info",
	Format:     "text",
	Output:     "stdout",
	MaxSize:    100,
	MaxAge:     30,
	MaxBackups: 10,
	Compress:   true,
}

type structuredLogger struct {
	entry *logrus.Entry
}

// New 创建日志器
func New(config Config) Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if config.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	var output io.Writer
	switch config.Output {
	case "stderr":
		output = os.Stderr
	case "file":
		if config.Filename == "" {
			config.Filename = "logs/ashare.log"
		}
		if err := os.MkdirAll(filepath.Dir(config.Filename), 0o755); err != nil {
			output = os.Stdout
		} else {
			output = &lumberjack.Logger{
				Filename:   config.Filename,
				MaxSize:    config.MaxSize,
				MaxAge:     config.MaxAge,
				MaxBackups: config.MaxBackups,
				Compress:   config.Compress,
			}
		}
	default:
		output = os.Stdout
	}
	l.SetOutput(output)

	return &structuredLogger{entry: logrus.NewEntry(l)}
}

func (l *structuredLogger) Debug(msg string, fields ...interface{}) { l.log(logrus.DebugLevel, msg, fields...) }
func (l *structuredLogger) Info(msg string, fields ...interface{})  { l.log(logrus.InfoLevel, msg, fields...) }
func (l *structuredLogger) Warn(msg string, fields ...interface{})  { l.log(logrus.WarnLevel, msg, fields...) }
func (l *structuredLogger) Error(msg string, fields ...interface{}) { l.log(logrus.ErrorLevel, msg, fields...) }
func (l *structuredLogger) Fatal(msg string, fields ...interface{}) { l.log(logrus.FatalLevel, msg, fields...) }

// WithField 附加单个字段
func (l *structuredLogger) WithField(key string, value interface{}) Logger {
	return &structuredLogger{entry: l.entry.WithField(key, value)}
}

// WithFields 附加多个字段
func (l *structuredLogger) WithFields(fields map[string]interface{}) Logger {
	return &structuredLogger{entry: l.entry.WithFields(fields)}
}

// log 将平铺的 key, value 参数对转换为 logrus 字段
func (l *structuredLogger) log(level logrus.Level, msg string, fields ...interface{}) {
	entry := l.entry
	if len(fields) > 1 {
		fieldMap := make(map[string]interface{}, len(fields)/2)
		for i := 0; i+1 < len(fields); i += 2 {
			if key, ok := fields[i].(string); ok {
				fieldMap[key] = fields[i+1]
			}
		}
		entry = entry.WithFields(fieldMap)
	}
	entry.Log(level, msg)
}

var globalLogger Logger = New(DefaultConfig)

// Init 用配置重建全局日志器
func Init(config Config) {
	globalLogger = New(config)
}

// Global 返回全局日志器
func Global() Logger {
	return globalLogger
}
