package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"ghprojectsync/api"
	"ghprojectsync/config"
	"ghprojectsync/services"
	"ghprojectsync/utils"
)

func main() {
	// コマンドラインフラグの定義
	configPath := flag.String("config", "", "設定ファイル(YAML)のパス")
	project := flag.String("project", "", "GitHubプロジェクトID")
	token := flag.String("token", "", "GitHubパーソナルアクセストークン")
	output := flag.String("output", "", "出力ファイルパス (.json / .csv)")
	format := flag.String("format", "summary", "標準出力の形式 (json/csv/summary)")
	verbose := flag.Bool("verbose", false, "詳細ログを出力する")
	help := flag.Bool("help", false, "ヘルプを表示する")

	// フラグのパース
	flag.Parse()

	// ヘルプフラグが指定された場合はヘルプを表示
	if *help {
		printHelp()
		return
	}

	// 設定の読み込み
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		utils.LogError("設定の読み込みに失敗しました: %v", err)
		os.Exit(1)
	}

	// ログの設定
	level := cfg.Logging.Level
	if *verbose {
		level = "debug"
	}
	if err := utils.SetupLogger(level, cfg.Logging.Format, cfg.Logging.File); err != nil {
		utils.LogError("ログの設定に失敗しました: %v", err)
		os.Exit(1)
	}

	// フラグによる設定の上書き
	if *token != "" {
		cfg.GitHub.Token = *token
	}
	if *project != "" {
		cfg.GitHub.DefaultProjectID = *project
	}

	// 認証情報の確認 (ネットワークアクセスの前に検証)
	if cfg.GitHub.Token == "" {
		utils.LogError("GitHubアクセストークンが指定されていません。-tokenフラグまたは設定ファイルで指定してください。")
		os.Exit(1)
	}
	if cfg.GitHub.DefaultProjectID == "" {
		utils.LogError("プロジェクトIDが指定されていません。-projectフラグまたは設定ファイルで指定してください。")
		os.Exit(1)
	}

	// 開始時間の記録
	startTime := time.Now()

	// 必要なサービスの初期化
	client := api.NewGitHubClient(cfg)
	exporter := services.NewExportService(cfg, client)
	csvProc := services.NewCSVProcessor(cfg)

	// 全タスクの取得
	utils.LogInfo("プロジェクトのタスクを取得しています...")
	tasks, err := exporter.GetProjectTasks(context.Background())
	if err != nil {
		utils.LogError("エクスポートに失敗しました: %v", err)
		os.Exit(1)
	}
	utils.LogInfo("%d 件のタスクを取得しました", len(tasks))

	// 結果の出力
	switch {
	case *output != "":
		switch {
		case strings.HasSuffix(*output, ".json"):
			if err := csvProc.ExportJSON(tasks, *output); err != nil {
				utils.LogError("JSON出力エラー: %v", err)
				os.Exit(1)
			}
		case strings.HasSuffix(*output, ".csv"):
			if err := csvProc.ExportCSV(tasks, *output); err != nil {
				utils.LogError("CSV出力エラー: %v", err)
				os.Exit(1)
			}
		default:
			utils.LogError("未対応の出力ファイル形式です。.jsonまたは.csv拡張子を使用してください。")
			os.Exit(1)
		}
	case *format == "json":
		data, err := json.MarshalIndent(tasks, "", "  ")
		if err != nil {
			utils.LogError("JSONエンコードエラー: %v", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
	case *format == "csv":
		if err := csvProc.WriteCSV(tasks, os.Stdout); err != nil {
			utils.LogError("CSV出力エラー: %v", err)
			os.Exit(1)
		}
	default:
		services.PrintSummary(tasks)
	}

	// 合計実行時間の表示
	elapsed := time.Since(startTime)
	utils.LogInfo("エクスポートが完了しました。合計実行時間: %s", elapsed)
}

// ヘルプメッセージを表示する関数
func printHelp() {
	fmt.Printf(`
GitHub ProjectV2 タスクエクスポートツール

使用方法:
  %s [オプション]

オプション:
  -config ファイル     設定ファイル(YAML)のパス
  -project ID         GitHubプロジェクトID
  -token トークン      GitHubパーソナルアクセストークン
  -output ファイル     出力ファイルパス (.jsonまたは.csv)
  -format 形式        標準出力の形式 (json/csv/summary、デフォルト: summary)
  -verbose            詳細ログを出力する
  -help               このヘルプを表示する

環境変数:
  GITHUB_TOKEN        GitHubパーソナルアクセストークン
  GITHUB_PROJECT_ID   GitHubプロジェクトID

例:
  # サマリーを表示
  %s -project PVT_xxxx

  # JSONファイルに出力
  %s -config config.yaml -output tasks.json

  # CSVファイルに出力
  %s -config config.yaml -output tasks.csv
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}
