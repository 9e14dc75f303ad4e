package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"ghprojectsync/api"
	"ghprojectsync/config"
	"ghprojectsync/services"
	"ghprojectsync/utils"
)

func main() {
	// コマンドラインフラグの定義
	csvPath := flag.String("csv", "", "インポートするCSVファイルのパス (必須)")
	configPath := flag.String("config", "", "設定ファイル(YAML)のパス")
	project := flag.String("project", "", "GitHubプロジェクトID")
	token := flag.String("token", "", "GitHubパーソナルアクセストークン")
	dryRun := flag.Bool("dry-run", false, "ドライランモード（実際のインポートを行わない）")
	verbose := flag.Bool("verbose", false, "詳細ログを出力する")
	help := flag.Bool("help", false, "ヘルプを表示する")

	// フラグのパース
	flag.Parse()

	// ヘルプフラグが指定された場合はヘルプを表示
	if *help {
		printHelp()
		return
	}

	if *csvPath == "" {
		utils.LogError("CSVファイルが指定されていません。-csvフラグで指定してください。")
		os.Exit(1)
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
	importer := services.NewImportService(cfg, client)
	csvProc := services.NewCSVProcessor(cfg)

	// CSVファイルの読み込み
	items, err := csvProc.ReadImportCSV(*csvPath)
	if err != nil {
		utils.LogError("CSV読み込みエラー: %v", err)
		os.Exit(1)
	}
	utils.LogInfo("%d 件の条目がインポート対象です", len(items))

	// ドライランモード
	if *dryRun {
		utils.LogInfo("ドライランモード - 実際のインポートは行いません")
		for _, item := range items {
			utils.LogInfo("インポート予定: %s (%s)", item.Title, item.ContentType)
		}
		return
	}

	ctx := context.Background()

	// プロジェクト情報の取得
	utils.LogInfo("プロジェクト情報を取得しています...")
	info, err := importer.GetProjectInfo(ctx)
	if err != nil {
		utils.LogError("プロジェクト情報の取得に失敗しました: %v", err)
		os.Exit(1)
	}
	utils.LogInfo("プロジェクト: %s", info.Title)

	// 条目のインポート
	importer.ImportAll(ctx, items, info.Fields)

	// 処理時間の表示
	elapsed := time.Since(startTime)
	utils.LogInfo("インポート処理が完了しました。処理時間: %s", elapsed)
}

// ヘルプメッセージを表示する関数
func printHelp() {
	fmt.Printf(`
GitHub ProjectV2 CSVインポートツール

使用方法:
  %s -csv データ.csv [オプション]

オプション:
  -csv ファイル        インポートするCSVファイルのパス (必須)
  -config ファイル     設定ファイル(YAML)のパス
  -project ID         GitHubプロジェクトID
  -token トークン      GitHubパーソナルアクセストークン
  -dry-run            ドライランモード（実際のインポートを行わない）
  -verbose            詳細ログを出力する
  -help               このヘルプを表示する

環境変数:
  GITHUB_TOKEN        GitHubパーソナルアクセストークン
  GITHUB_PROJECT_ID   GitHubプロジェクトID

必須のCSV列:
  title               タスクのタイトル
  content_type        コンテンツ種別 (issue/pull_request/draft)

任意のCSV列:
  description, assignees, labels, milestone, status, priority,
  estimate, size, repository, issue_number

説明:
  repositoryとissue_numberが両方指定された行は既存のIssue/PRを
  プロジェクトに追加します。それ以外の行はドラフトイシューとして
  作成されます。assigneesとlabelsはカンマ区切りで指定します。
`, os.Args[0])
}
