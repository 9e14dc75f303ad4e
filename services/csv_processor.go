package services

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"ghprojectsync/config"
	"ghprojectsync/models"
	"ghprojectsync/utils"
)

// exportEnvelope はJSONエクスポートのトップレベル構造です
type exportEnvelope struct {
	ExportTime string            `json:"export_time"`
	TotalTasks int               `json:"total_tasks"`
	Tasks      []models.TaskInfo `json:"tasks"`
}

// CSVProcessor はCSV/JSONファイルの読み書きを担当します
type CSVProcessor struct {
	config *config.Config
}

// NewCSVProcessor は新しいCSVプロセッサーを作成します
func NewCSVProcessor(cfg *config.Config) *CSVProcessor {
	return &CSVProcessor{
		config: cfg,
	}
}

// ReadImportCSV はインポート用CSVを読み込みます
// 必須列の欠落はエラー、タイトルが空の行は警告付きでスキップされます
func (p *CSVProcessor) ReadImportCSV(filePath string) ([]models.ImportItem, error) {
	utils.LogInfo("CSVファイル '%s' を読み込みます", filePath)

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("CSVオープンエラー: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("CSV読み込みエラー: %w", err)
	}

	if len(records) < 1 {
		return nil, fmt.Errorf("CSVデータが不足しています")
	}

	headers := records[0]

	// 必須列の検証
	var missing []string
	for _, required := range p.config.CSV.RequiredColumns {
		found := false
		for _, header := range headers {
			if header == required {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("必須の列が欠けています: %s", strings.Join(missing, ", "))
	}

	items := make([]models.ImportItem, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) != len(headers) {
			utils.LogWarn("行 %d: フィールド数が不一致（ヘッダー: %d, 行: %d）", i+2, len(headers), len(record))
			continue
		}

		rowData := make(models.CSVRecord)
		for j, value := range record {
			rowData[headers[j]] = value
		}

		if strings.TrimSpace(rowData["title"]) == "" {
			utils.LogWarn("行 %d: タイトルが空のためスキップします", i+2)
			continue
		}

		items = append(items, parseImportItem(rowData))
	}

	utils.LogInfo("CSVを読み込みました: %d 件", len(items))
	return items, nil
}

// parseImportItem はCSVの1行をインポートレコードに変換します
func parseImportItem(record models.CSVRecord) models.ImportItem {
	item := models.ImportItem{
		Title:       record["title"],
		ContentType: record["content_type"],
		Description: record["description"],
		Assignees:   splitList(record["assignees"]),
		Labels:      splitList(record["labels"]),
		Milestone:   record["milestone"],
		Status:      record["status"],
		Priority:    record["priority"],
		Estimate:    record["estimate"],
		Size:        record["size"],
		Repository:  record["repository"],
	}

	if item.ContentType == "" {
		item.ContentType = "draft"
	}

	if numberStr := record["issue_number"]; numberStr != "" {
		if number, err := strconv.Atoi(numberStr); err == nil {
			item.IssueNumber = number
		}
	}

	return item
}

// splitList はカンマ区切りの値を分割して空要素を除いたリストを返します
func splitList(value string) []string {
	var result []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ExportJSON はタスクをJSONファイルに出力します
func (p *CSVProcessor) ExportJSON(tasks []models.TaskInfo, filePath string) error {
	envelope := exportEnvelope{
		ExportTime: time.Now().Format(time.RFC3339),
		TotalTasks: len(tasks),
		Tasks:      tasks,
	}

	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("JSONエンコードエラー: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("JSON書き込みエラー: %w", err)
	}

	utils.LogInfo("タスクをJSONファイルに出力しました: %s", filePath)
	return nil
}

// ExportCSVColumns はCSVエクスポートの固定列です
var ExportCSVColumns = []string{
	"id", "title", "content_type", "description", "status", "priority", "size", "estimate",
	"assignees", "labels", "milestone", "repository", "number", "url",
	"created_at", "updated_at", "closed_at", "state", "comments_count",
}

// ExportCSV はタスクをCSVファイルに出力します
func (p *CSVProcessor) ExportCSV(tasks []models.TaskInfo, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("CSV作成エラー: %w", err)
	}
	defer file.Close()

	if err := p.WriteCSV(tasks, file); err != nil {
		return err
	}

	utils.LogInfo("タスクをCSVファイルに出力しました: %s", filePath)
	return nil
}

// WriteCSV はタスクをCSV形式で書き出します
// 列は固定列に加え、全タスクで観測されたカスタムフィールド名の
// ソート済みの和集合になります
func (p *CSVProcessor) WriteCSV(tasks []models.TaskInfo, w io.Writer) error {
	// カスタムフィールド列の収集
	customSet := make(map[string]struct{})
	for _, task := range tasks {
		for name := range task.CustomFields {
			customSet[name] = struct{}{}
		}
	}
	customColumns := make([]string, 0, len(customSet))
	for name := range customSet {
		customColumns = append(customColumns, name)
	}
	sort.Strings(customColumns)

	headers := append(append([]string{}, ExportCSVColumns...), customColumns...)

	writer := csv.NewWriter(w)

	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("CSVヘッダー書き込みエラー: %w", err)
	}

	for _, task := range tasks {
		number := ""
		if task.Number > 0 {
			number = strconv.Itoa(task.Number)
		}

		row := []string{
			task.ID,
			task.Title,
			task.ContentType,
			task.Description,
			task.Status,
			task.Priority,
			task.Size,
			task.Estimate,
			strings.Join(task.Assignees, ","),
			strings.Join(task.Labels, ","),
			task.Milestone,
			task.Repository,
			number,
			task.URL,
			task.CreatedAt,
			task.UpdatedAt,
			task.ClosedAt,
			task.State,
			strconv.Itoa(len(task.Comments)),
		}
		for _, name := range customColumns {
			row = append(row, task.CustomFields[name])
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("CSV行書き込みエラー: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV書き込みエラー: %w", err)
	}

	return nil
}
