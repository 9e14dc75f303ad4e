package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// GitHubConfig はGitHub APIの認証情報と対象プロジェクトを保持します
type GitHubConfig struct {
	Token            string `mapstructure:"token"`
	DefaultProjectID string `mapstructure:"default_project_id"`
}

// APIConfig はGraphQLエンドポイントへの接続設定を保持します
type APIConfig struct {
	Endpoint   string  `mapstructure:"endpoint"`
	Timeout    int     `mapstructure:"timeout"`     // 秒
	MaxRetries int     `mapstructure:"max_retries"` // 総試行回数
	RetryDelay float64 `mapstructure:"retry_delay"` // 秒
}

// ImportConfig はインポート処理のバッチ設定を保持します
type ImportConfig struct {
	BatchSize       int     `mapstructure:"batch_size"`
	BatchDelay      float64 `mapstructure:"batch_delay"` // 秒
	ContinueOnError bool    `mapstructure:"continue_on_error"`
}

// CSVConfig はCSV入力の設定を保持します
type CSVConfig struct {
	Encoding        string   `mapstructure:"encoding"`
	RequiredColumns []string `mapstructure:"required_columns"`
}

// LoggingConfig はログ出力の設定を保持します
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console または json
	File   string `mapstructure:"file"`
}

// Config はアプリケーション全体の設定を保持します
type Config struct {
	GitHub  GitHubConfig  `mapstructure:"github"`
	API     APIConfig     `mapstructure:"api"`
	Import  ImportConfig  `mapstructure:"import"`
	CSV     CSVConfig     `mapstructure:"csv"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// LoadConfig はYAML設定ファイルと環境変数から設定を読み込みます
// path が空の場合はデフォルト値と環境変数のみを使用します
func LoadConfig(path string) (*Config, error) {
	// .envファイルを読み込む（存在しない場合は無視）
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(*os.PathError); ok {
				return nil, fmt.Errorf("設定ファイルが見つかりません: %s", path)
			}
			return nil, fmt.Errorf("設定ファイルの読み込みエラー: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルの解析エラー: %w", err)
	}

	// 環境変数による上書き
	cfg.GitHub.Token = getEnvWithDefault("GITHUB_TOKEN", cfg.GitHub.Token)
	cfg.GitHub.DefaultProjectID = getEnvWithDefault("GITHUB_PROJECT_ID", cfg.GitHub.DefaultProjectID)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults は全セクションのデフォルト値を設定します
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.endpoint", "https://api.github.com/graphql")
	v.SetDefault("api.timeout", 30)
	v.SetDefault("api.max_retries", 3)
	v.SetDefault("api.retry_delay", 1.0)
	v.SetDefault("import.batch_size", 10)
	v.SetDefault("import.batch_delay", 1.0)
	v.SetDefault("import.continue_on_error", true)
	v.SetDefault("csv.encoding", "utf-8")
	v.SetDefault("csv.required_columns", []string{"title", "content_type"})
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// validate は設定値の整合性を検証します
func (c *Config) validate() error {
	enc := strings.ToLower(c.CSV.Encoding)
	if enc != "utf-8" && enc != "utf8" {
		return fmt.Errorf("未対応のCSVエンコーディングです: %s (utf-8のみ対応)", c.CSV.Encoding)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout は正の値である必要があります: %d", c.API.Timeout)
	}
	if c.API.MaxRetries < 1 {
		return fmt.Errorf("api.max_retries は1以上である必要があります: %d", c.API.MaxRetries)
	}
	if c.API.RetryDelay < 0 {
		return fmt.Errorf("api.retry_delay は0以上である必要があります: %v", c.API.RetryDelay)
	}
	if c.Import.BatchSize < 1 {
		return fmt.Errorf("import.batch_size は1以上である必要があります: %d", c.Import.BatchSize)
	}
	if c.Import.BatchDelay < 0 {
		return fmt.Errorf("import.batch_delay は0以上である必要があります: %v", c.Import.BatchDelay)
	}
	return nil
}

// デフォルト値付きで環境変数を取得
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
