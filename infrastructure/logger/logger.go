package logger

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap and carries the tracker's structured event helpers.
type Logger struct {
	*zap.Logger
	config Config
	level  zap.AtomicLevel
}

// Config controls log level, encoding and destinations.
type Config struct {
	Level      string   `yaml:"level"`       // debug, info, warn, error
	Outputs    []string `yaml:"outputs"`     // stdout, file
	OutputFile string   `yaml:"output_file"` // used when outputs contains "file"
	ErrorFile  string   `yaml:"error_file"`  // error level and above only
	Format     string   `yaml:"format"`      // json or console
}

// DefaultConfig returns a console logger on stdout at info level.
func DefaultConfig() Config {
	return Config{
		Level:   "info",
		Outputs: []string{"stdout"},
		Format:  "console",
	}
}

// New builds a Logger from cfg.
func New(cfg Config) (*Logger, error) {
	lvl, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", cfg.Level, err)
	}
	atom := zap.NewAtomicLevelAt(lvl)

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	cores := []zapcore.Core{}

	if contains(cfg.Outputs, "stdout") {
		var encoder zapcore.Encoder
		if cfg.Format == "console" {
			encoder = zapcore.NewConsoleEncoder(encoderConfig)
		} else {
			encoder = zapcore.NewJSONEncoder(encoderConfig)
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), atom))
	}

	if contains(cfg.Outputs, "file") && cfg.OutputFile != "" {
		fileWriter, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file failed: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(fileWriter), atom))
	}

	if cfg.ErrorFile != "" {
		errorWriter, err := os.OpenFile(cfg.ErrorFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open error log file failed: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(errorWriter), zapcore.ErrorLevel))
	}

	zapLogger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return &Logger{
		Logger: zapLogger,
		config: cfg,
		level:  atom,
	}, nil
}

// Wrap adapts an existing zap logger, mostly for tests (zaptest, observer).
func Wrap(z *zap.Logger) *Logger {
	return &Logger{
		Logger: z,
		config: DefaultConfig(),
		level:  zap.NewAtomicLevelAt(z.Level()),
	}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return Wrap(zap.NewNop())
}

// SetLevel changes the level of cores built by New at runtime.
func (l *Logger) SetLevel(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %s: %w", level, err)
	}
	l.level.SetLevel(lvl)
	return nil
}

// Level reports the current dynamic level.
func (l *Logger) Level() zapcore.Level {
	return l.level.Level()
}

// WithFields returns a child logger carrying fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return &Logger{
		Logger: l.Logger.With(zapFields...),
		config: l.config,
		level:  l.level,
	}
}

// LogStatus records a change of the displayed order status.
func (l *Logger) LogStatus(event string, orderID string, fields map[string]interface{}) {
	zapFields := eventFields(event, fields)
	zapFields = append(zapFields, zap.String("order_id", orderID))
	l.Info("status_event", zapFields...)
}

// LogChannel records a live channel lifecycle event.
func (l *Logger) LogChannel(event string, fields map[string]interface{}) {
	l.Info("channel_event", eventFields(event, fields)...)
}

// LogError records err with context.
func (l *Logger) LogError(err error, context map[string]interface{}) {
	zapFields := eventFields("", context)
	zapFields = append(zapFields, zap.Error(err))
	l.Error("error_event", zapFields...)
}

// Close flushes buffered entries.
func (l *Logger) Close() error {
	return l.Sync()
}

func eventFields(event string, fields map[string]interface{}) []zap.Field {
	zapFields := make([]zap.Field, 0, len(fields)+2)
	if event != "" {
		zapFields = append(zapFields, zap.String("event", event))
	}
	zapFields = append(zapFields, zap.String("ts", time.Now().UTC().Format(time.RFC3339Nano)))
	if err := ValidateEvent(event, fields); err != nil {
		zapFields = append(zapFields, zap.String("schema_error", err.Error()))
	}
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return zapFields
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
