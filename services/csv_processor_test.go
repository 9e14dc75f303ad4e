package services

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"ghprojectsync/models"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("テストCSVの書き込みに失敗: %v", err)
	}
	return path
}

func TestReadImportCSV(t *testing.T) {
	content := strings.Join([]string{
		"title,content_type,description,assignees,labels,repository,issue_number",
		`タスクA,draft,説明文,"alice, bob","bug,urgent",,`,
		`既存タスク,issue,,,,octo/repo,42`,
		`   ,draft,タイトルが空白,,,,`,
		`番号不正,draft,,,,octo/repo,abc`,
	}, "\n")

	proc := NewCSVProcessor(testServiceConfig(""))
	items, err := proc.ReadImportCSV(writeTempCSV(t, content))
	if err != nil {
		t.Fatalf("ReadImportCSV() エラー: %v", err)
	}

	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3 (空タイトル行はスキップ)", len(items))
	}

	first := items[0]
	if first.Title != "タスクA" {
		t.Errorf("Title = %q", first.Title)
	}
	if !reflect.DeepEqual(first.Assignees, []string{"alice", "bob"}) {
		t.Errorf("Assignees = %v, want [alice bob]", first.Assignees)
	}
	if !reflect.DeepEqual(first.Labels, []string{"bug", "urgent"}) {
		t.Errorf("Labels = %v, want [bug urgent]", first.Labels)
	}

	second := items[1]
	if second.Repository != "octo/repo" || second.IssueNumber != 42 {
		t.Errorf("Repository = %q, IssueNumber = %d", second.Repository, second.IssueNumber)
	}

	third := items[2]
	if third.IssueNumber != 0 {
		t.Errorf("不正なissue_numberは未設定のままであるべきです: %d", third.IssueNumber)
	}
}

func TestReadImportCSVMissingRequiredColumn(t *testing.T) {
	content := "title,description\nタスク,説明\n"

	proc := NewCSVProcessor(testServiceConfig(""))
	_, err := proc.ReadImportCSV(writeTempCSV(t, content))
	if err == nil {
		t.Fatal("エラーが返されるべきです")
	}
	if !strings.Contains(err.Error(), "content_type") {
		t.Errorf("欠落列名がエラーに含まれるべきです: %v", err)
	}
}

func TestReadImportCSVDefaultContentType(t *testing.T) {
	content := "title,content_type\nタスク,\n"

	proc := NewCSVProcessor(testServiceConfig(""))
	items, err := proc.ReadImportCSV(writeTempCSV(t, content))
	if err != nil {
		t.Fatalf("ReadImportCSV() エラー: %v", err)
	}
	if len(items) != 1 || items[0].ContentType != "draft" {
		t.Errorf("空のcontent_typeはdraftになるべきです: %+v", items)
	}
}

func sampleTasks() []models.TaskInfo {
	return []models.TaskInfo{
		{
			ID:          "item1",
			Title:       "最初のタスク",
			ContentType: models.ContentTypeIssue,
			Number:      1,
			Assignees:   []string{"alice", "bob"},
			Labels:      []string{"bug"},
			Comments: []models.Comment{
				{ID: "c1", Body: "コメント", Author: models.CommentAuthor{Login: "alice"}},
			},
			CustomFields: map[string]string{"status": "Done", "sprint": "S1"},
		},
		{
			ID:           "item2",
			Title:        "ドラフト",
			ContentType:  models.ContentTypeDraftIssue,
			Assignees:    []string{},
			Labels:       []string{},
			Comments:     []models.Comment{},
			CustomFields: map[string]string{"effort": "3"},
		},
	}
}

func TestExportCSVColumnUnion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	proc := NewCSVProcessor(testServiceConfig(""))

	if err := proc.ExportCSV(sampleTasks(), path); err != nil {
		t.Fatalf("ExportCSV() エラー: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("出力ファイルのオープンに失敗: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("出力CSVの読み込みに失敗: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3 (ヘッダー + 2行)", len(rows))
	}

	header := rows[0]
	wantHeader := append(append([]string{}, ExportCSVColumns...), "effort", "sprint", "status")
	if !reflect.DeepEqual(header, wantHeader) {
		t.Errorf("header = %v,\nwant %v", header, wantHeader)
	}

	// 全行が全列の値を持つこと
	for i, row := range rows[1:] {
		if len(row) != len(header) {
			t.Errorf("行 %d: len = %d, want %d", i+1, len(row), len(header))
		}
	}

	// assigneesのカンマ結合とコメント数
	first := rows[1]
	colIndex := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("列 %q が見つかりません", name)
		return -1
	}
	if got := first[colIndex("assignees")]; got != "alice,bob" {
		t.Errorf("assignees = %q, want %q", got, "alice,bob")
	}
	if got := first[colIndex("comments_count")]; got != "1" {
		t.Errorf("comments_count = %q, want %q", got, "1")
	}
	if got := rows[2][colIndex("status")]; got != "" {
		t.Errorf("カスタム値のない列は空文字列であるべきです: %q", got)
	}
}

func TestExportJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	proc := NewCSVProcessor(testServiceConfig(""))

	tasks := sampleTasks()
	if err := proc.ExportJSON(tasks, path); err != nil {
		t.Fatalf("ExportJSON() エラー: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("出力ファイルの読み込みに失敗: %v", err)
	}

	var envelope struct {
		ExportTime string            `json:"export_time"`
		TotalTasks int               `json:"total_tasks"`
		Tasks      []models.TaskInfo `json:"tasks"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("出力JSONの解析に失敗: %v", err)
	}

	if envelope.TotalTasks != len(tasks) {
		t.Errorf("total_tasks = %d, want %d", envelope.TotalTasks, len(tasks))
	}
	if envelope.ExportTime == "" {
		t.Error("export_timeが設定されていません")
	}
	if !reflect.DeepEqual(envelope.Tasks, tasks) {
		t.Errorf("ラウンドトリップ後のタスクが一致しません:\ngot  %+v\nwant %+v", envelope.Tasks, tasks)
	}
}
