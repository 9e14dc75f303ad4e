package utils

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var sugar *zap.SugaredLogger

// init関数はパッケージがインポートされたときに自動的に実行されます
// SetupLoggerが呼ばれるまではコンソール向けのINFOロガーを使用します
func init() {
	logger, _ := defaultConfig().Build(zap.AddCallerSkip(1))
	sugar = logger.Sugar()
}

// defaultConfig はコンソール出力用のzap設定を返します
func defaultConfig() zap.Config {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.DisableStacktrace = true
	return cfg
}

// SetupLogger はログレベル・フォーマット・出力先を設定します
// level: debug/info/warn/error、format: console/json、file: 出力ファイル(空ならstdout)
func SetupLogger(level, format, file string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("不正なログレベルです: %s", level)
	}

	cfg := defaultConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	switch format {
	case "", "console":
		cfg.Encoding = "console"
	case "json":
		cfg.Encoding = "json"
		cfg.EncoderConfig = zap.NewProductionEncoderConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return fmt.Errorf("不正なログフォーマットです: %s", format)
	}

	if file != "" {
		cfg.OutputPaths = []string{file}
		cfg.ErrorOutputPaths = []string{file}
	}

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("ロガー初期化エラー: %w", err)
	}

	sugar = logger.Sugar()
	return nil
}

// LogDebug はデバッグレベルのメッセージをログに記録します
func LogDebug(format string, v ...interface{}) {
	sugar.Debugf(format, v...)
}

// LogInfo は情報レベルのメッセージをログに記録します
func LogInfo(format string, v ...interface{}) {
	sugar.Infof(format, v...)
}

// LogWarn は警告レベルのメッセージをログに記録します
func LogWarn(format string, v ...interface{}) {
	sugar.Warnf(format, v...)
}

// LogError はエラーレベルのメッセージをログに記録します
func LogError(format string, v ...interface{}) {
	sugar.Errorf(format, v...)
}

// TrackTime は関数の実行時間を計測して出力するユーティリティです
func TrackTime(start time.Time, name string) {
	elapsed := time.Since(start)
	LogInfo("%s 完了時間: %s", name, elapsed)
}
