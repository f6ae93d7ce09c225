package logging

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Encodings accepted by Config.Encoding.
const (
	EncodingJSON    = "json"
	EncodingConsole = "console"
)

// Stage names. Each is both the logger name and the key of the stage id field.
const (
	StageEther    = "ether"
	StageTrunk    = "trunk"
	StageNotify   = "notify"
	StageExchange = "exchange"
	StageEcho     = "echo"
	StageStatus   = "status"
)

// ErrUnknownEncoding is returned for an encoding other than json or console.
var ErrUnknownEncoding = errors.New("unknown log encoding")

// Logger wraps zap.Logger with run and stage scoping.
type Logger struct {
	*zap.Logger
}

// Config selects verbosity and output format. Empty fields take defaults:
// info level, json encoding (console when Development is set) and stderr.
type Config struct {
	Level       string
	Encoding    string
	Development bool
	Output      string
}

func (c Config) resolve() (zapcore.Level, string, error) {
	level := zapcore.InfoLevel
	if c.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(c.Level))); err != nil {
			return level, "", fmt.Errorf("log level %q: %w", c.Level, err)
		}
	} else if c.Development {
		level = zapcore.DebugLevel
	}

	encoding := strings.ToLower(c.Encoding)
	switch encoding {
	case "":
		encoding = EncodingJSON
		if c.Development {
			encoding = EncodingConsole
		}
	case EncodingJSON, EncodingConsole:
	default:
		return level, "", fmt.Errorf("%w: %q", ErrUnknownEncoding, c.Encoding)
	}
	return level, encoding, nil
}

// New builds a logger from cfg.
func New(cfg Config) (*Logger, error) {
	level, encoding, err := cfg.resolve()
	if err != nil {
		return nil, err
	}

	output := cfg.Output
	if output == "" {
		output = "stderr"
	}

	logger, err := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Development,
		Encoding:          encoding,
		EncoderConfig:     encoderConfig(encoding),
		OutputPaths:       []string{output},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: !cfg.Development,
	}.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: logger}, nil
}

// NewDefault builds a json logger at info level, or a no-op logger if that fails.
func NewDefault() *Logger {
	return mustOrNop(New(Config{}))
}

// NewDevelopment builds a console logger at debug level.
func NewDevelopment() *Logger {
	return mustOrNop(New(Config{Development: true}))
}

func mustOrNop(l *Logger, err error) *Logger {
	if err != nil {
		return NewNop()
	}
	return l
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Wrap adopts an existing zap logger. A nil logger becomes a no-op logger.
func Wrap(z *zap.Logger) *Logger {
	if z == nil {
		return NewNop()
	}
	return &Logger{Logger: z}
}

// ForRun tags every entry with the run identifier. Call it once per run;
// zap does not deduplicate fields.
func (l *Logger) ForRun(runID string) *Logger {
	return &Logger{Logger: l.With(zap.String("run_id", runID))}
}

// ForStage names the logger after stage and, for a positive id, adds the
// stage id under the stage's own key, e.g. "trunk": 3.
func (l *Logger) ForStage(stage string, id int) *Logger {
	z := l.Named(stage)
	if id > 0 {
		z = z.With(zap.Int(stage, id))
	}
	return &Logger{Logger: z}
}

func encoderConfig(encoding string) zapcore.EncoderConfig {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "stage",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if encoding == EncodingConsole {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	}
	return cfg
}
