// Package logger はプロセス全体で共有する zap ロガーと、予約ドメインでよく使うログフィールドを提供する。
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName はログに付与するサービス名
const ServiceName = "cinephoria-booking"

// EnvProduction は JSON 出力に切り替える環境名
const EnvProduction = "production"

var log = NewLogger("development")

// NewLogger は環境に応じたロガーを作成する
// production は JSON、それ以外はカラー付きのコンソール出力。LOG_LEVEL で上書きできる
func NewLogger(env string) *zap.Logger {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if env == EnvProduction {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.InitialFields = map[string]interface{}{"service": ServiceName}
	}

	if lvl, ok := levelFromEnv(); ok {
		config.Level = zap.NewAtomicLevelAt(lvl)
	}

	l, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func levelFromEnv() (zapcore.Level, bool) {
	raw := os.Getenv("LOG_LEVEL")
	if raw == "" {
		return zapcore.InfoLevel, false
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return zapcore.InfoLevel, false
	}
	return level, true
}

// Init は環境に応じたロガーを作成し、プロセス全体のロガーとして設定する
func Init(env string) *zap.Logger {
	l := NewLogger(env)
	Set(l)
	return l
}

func Get() *zap.Logger { return log }

func Set(l *zap.Logger) { log = l }

// Named はコンポーネント名付きの子ロガーを返す
func Named(name string) *zap.Logger {
	return log.Named(name)
}

func Info(msg string, fields ...zap.Field) { log.Info(msg, fields...) }
func Error(msg string, fields ...zap.Field) { log.Error(msg, fields...) }
func Debug(msg string, fields ...zap.Field) { log.Debug(msg, fields...) }
func Warn(msg string, fields ...zap.Field) { log.Warn(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { log.Fatal(msg, fields...) }

func With(fields ...zap.Field) *zap.Logger {
	return log.With(fields...)
}

func Sync() error {
	return log.Sync()
}

// ログフィールド。キー名をサービス全体で揃える

func SessionID(id string) zap.Field { return zap.String("session_id", id) }
func TimeRangeID(id string) zap.Field { return zap.String("time_range_id", id) }
func RoomID(id string) zap.Field { return zap.String("room_id", id) }
func BookingID(id string) zap.Field { return zap.String("booking_id", id) }
func UserID(id string) zap.Field { return zap.String("user_id", id) }
func LockKey(key string) zap.Field { return zap.String("lock_key", key) }
