package main

import (
	"fmt"
	"io"

	"github.com/aws/smithy-go/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/objectkit/s3bucket-go/internal/config"
)

func newLogger(cfg config.Log, w io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if cfg.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level)), nil
}

// smithyLogger routes signer diagnostics into zap.
func smithyLogger(l *zap.Logger) logging.Logger {
	s := l.Sugar()
	return logging.LoggerFunc(func(c logging.Classification, format string, v ...interface{}) {
		if c == logging.Warn {
			s.Warnf(format, v...)
			return
		}
		s.Debugf(format, v...)
	})
}
