package utils

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig - настройки логирования
type LogConfig struct {
	Level       string // debug, info, warn, error, fatal
	Format      string // json, text
	Output      string // путь к файлу; пусто - stdout
	Development bool
}

// Logger оборачивает zap.Logger вместе с sugared-вариантом
type Logger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

// Sugarf возвращает sugared-logger для printf-стиля
func (l *Logger) Sugarf() *zap.SugaredLogger {
	return l.sugar
}

// InitLogger создает и настраивает logger. Неизвестный уровень или
// формат откатываются к info/json
func InitLogger(cfg LogConfig) *Logger {
	level := parseLevel(cfg.Level)

	var encoderCfg zapcore.EncoderConfig
	if cfg.Development {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
	} else {
		encoderCfg = zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	var encoder zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "text", "console":
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	default:
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	sink, sinkErr := openSink(cfg.Output)

	core := zapcore.NewCore(encoder, sink, level)

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}

	logger := zap.New(core, opts...)

	if sinkErr != nil {
		logger.Warn("failed to open log file, falling back to stdout",
			zap.String("path", cfg.Output),
			zap.Error(sinkErr),
		)
	}

	return &Logger{
		Logger: logger,
		sugar:  logger.Sugar(),
	}
}

// openSink открывает файл вывода логов. При пустом пути либо ошибке
// открытия возвращается stdout; ошибка отдается вызывающей стороне,
// чтобы откат не прошел незамеченным
func openSink(output string) (zapcore.WriteSyncer, error) {
	if output == "" {
		return zapcore.Lock(os.Stdout), nil
	}

	file, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return zapcore.Lock(os.Stdout), err
	}

	return zapcore.Lock(file), nil
}

// parseLevel переводит строковый уровень в zapcore.Level
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info", "":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
