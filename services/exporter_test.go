package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ghprojectsync/api"
	"ghprojectsync/config"
	"ghprojectsync/models"
)

func strPtr(s string) *string    { return &s }
func intPtr(n int) *int          { return &n }
func floatPtr(f float64) *float64 { return &f }

func testServiceConfig(endpoint string) *config.Config {
	return &config.Config{
		GitHub: config.GitHubConfig{Token: "test-token", DefaultProjectID: "PVT_test"},
		API: config.APIConfig{
			Endpoint:   endpoint,
			Timeout:    5,
			MaxRetries: 1,
			RetryDelay: 0,
		},
		Import: config.ImportConfig{
			BatchSize:       10,
			BatchDelay:      1.0,
			ContinueOnError: true,
		},
		CSV: config.CSVConfig{
			Encoding:        "utf-8",
			RequiredColumns: []string{"title", "content_type"},
		},
	}
}

func TestParseTaskItemContentType(t *testing.T) {
	tests := []struct {
		name    string
		content *itemContent
		want    string
		wantNil bool
	}{
		{
			name:    "contentなしのアイテムはスキップ",
			content: nil,
			wantNil: true,
		},
		{
			name:    "numberなしはDraftIssue",
			content: &itemContent{ID: "c1", Title: "draft"},
			want:    models.ContentTypeDraftIssue,
		},
		{
			name: "URLに/pull/を含む場合はPullRequest",
			content: &itemContent{
				ID: "c2", Title: "pr", Number: intPtr(12),
				URL: "https://github.com/owner/repo/pull/12",
			},
			want: models.ContentTypePullRequest,
		},
		{
			name: "URLに/pull/を含まない場合はIssue",
			content: &itemContent{
				ID: "c3", Title: "issue", Number: intPtr(7),
				URL: "https://github.com/owner/repo/issues/7",
			},
			want: models.ContentTypeIssue,
		},
		{
			name:    "numberがありURLが空の場合はIssue",
			content: &itemContent{ID: "c4", Title: "no url", Number: intPtr(3)},
			want:    models.ContentTypeIssue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := parseTaskItem(projectItem{ID: "item1", Content: tt.content}, models.FieldMap{})
			if tt.wantNil {
				if task != nil {
					t.Fatalf("task = %+v, want nil", task)
				}
				return
			}
			if task == nil {
				t.Fatal("task = nil")
			}
			if task.ContentType != tt.want {
				t.Errorf("ContentType = %q, want %q", task.ContentType, tt.want)
			}
		})
	}
}

func TestParseTaskItemFieldPromotion(t *testing.T) {
	tests := []struct {
		name      string
		fieldName string
		value     *string
		check     func(*models.TaskInfo) string
		want      string
	}{
		{
			name:      "statusの昇格",
			fieldName: "Status",
			value:     strPtr("In Progress"),
			check:     func(task *models.TaskInfo) string { return task.Status },
			want:      "In Progress",
		},
		{
			name:      "中国語の状态もstatusに昇格",
			fieldName: "状态",
			value:     strPtr("完了"),
			check:     func(task *models.TaskInfo) string { return task.Status },
			want:      "完了",
		},
		{
			name:      "优先级はpriorityに昇格",
			fieldName: "优先级",
			value:     strPtr("P0"),
			check:     func(task *models.TaskInfo) string { return task.Priority },
			want:      "P0",
		},
		{
			name:      "尺寸はsizeに昇格",
			fieldName: "尺寸",
			value:     strPtr("L"),
			check:     func(task *models.TaskInfo) string { return task.Size },
			want:      "L",
		},
		{
			name:      "工作量はestimateに昇格",
			fieldName: "工作量",
			value:     strPtr("5"),
			check:     func(task *models.TaskInfo) string { return task.Estimate },
			want:      "5",
		},
		{
			name:      "空の値は昇格されない",
			fieldName: "Status",
			value:     strPtr(""),
			check:     func(task *models.TaskInfo) string { return task.Status },
			want:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := models.FieldMap{
				"F1": {ID: "F1", Name: tt.fieldName, DataType: models.DataTypeText},
			}
			item := projectItem{
				ID:      "item1",
				Content: &itemContent{ID: "c1", Title: "task"},
			}
			item.FieldValues.Nodes = []models.FieldValue{
				{Text: tt.value, Field: models.FieldRef{ID: "F1", Name: tt.fieldName}},
			}

			task := parseTaskItem(item, fields)
			if task == nil {
				t.Fatal("task = nil")
			}
			if got := tt.check(task); got != tt.want {
				t.Errorf("promoted value = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseTaskItemCustomFieldsLastWriteWins(t *testing.T) {
	fields := models.FieldMap{
		"F1": {ID: "F1", Name: "Effort", DataType: models.DataTypeText},
		"F2": {ID: "F2", Name: "effort", DataType: models.DataTypeNumber},
	}
	item := projectItem{
		ID:      "item1",
		Content: &itemContent{ID: "c1", Title: "task"},
	}
	item.FieldValues.Nodes = []models.FieldValue{
		{Text: strPtr("first"), Field: models.FieldRef{ID: "F1", Name: "Effort"}},
		{Number: floatPtr(8), Field: models.FieldRef{ID: "F2", Name: "effort"}},
	}

	task := parseTaskItem(item, fields)
	if task == nil {
		t.Fatal("task = nil")
	}
	if got := task.CustomFields["effort"]; got != "8" {
		t.Errorf(`CustomFields["effort"] = %q, want "8" (後勝ち)`, got)
	}
	if len(task.CustomFields) != 1 {
		t.Errorf("len(CustomFields) = %d, want 1", len(task.CustomFields))
	}
}

func TestParseTaskItemComments(t *testing.T) {
	item := projectItem{
		ID: "item1",
		Content: &itemContent{
			ID: "c1", Title: "task", Number: intPtr(5),
			URL: "https://github.com/o/r/issues/5",
		},
	}
	item.Content.Comments.Nodes = []commentNode{
		{ID: "cm1", Body: "最初のコメント", Author: &userNode{Login: "alice", Name: "Alice"}},
		{ID: "cm2", Body: ""},
		{ID: "cm3", Body: "botからのコメント", Author: &userNode{Login: "some-bot"}},
		{ID: "cm4", Body: "作成者情報なし"},
	}

	task := parseTaskItem(item, models.FieldMap{})
	if task == nil {
		t.Fatal("task = nil")
	}
	if len(task.Comments) != 3 {
		t.Fatalf("len(Comments) = %d, want 3 (空ボディは除外)", len(task.Comments))
	}
	if task.Comments[0].Author.Name != "Alice" {
		t.Errorf("Author.Name = %q, want %q", task.Comments[0].Author.Name, "Alice")
	}
	if task.Comments[1].Author.Name != "" {
		t.Errorf("User以外の作成者のnameは空であるべきです: %q", task.Comments[1].Author.Name)
	}
	if task.Comments[2].Author.Login != "" {
		t.Errorf("作成者なしのloginは空であるべきです: %q", task.Comments[2].Author.Login)
	}
}

func TestParseTaskItemRepositoryFlattening(t *testing.T) {
	item := projectItem{
		ID: "item1",
		Content: &itemContent{
			ID: "c1", Title: "task", Number: intPtr(1),
			URL: "https://github.com/octo/repo/issues/1",
		},
	}
	item.Content.Repository = &struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
	}{Name: "repo"}
	item.Content.Repository.Owner.Login = "octo"

	task := parseTaskItem(item, models.FieldMap{})
	if task == nil {
		t.Fatal("task = nil")
	}
	if task.Repository != "octo/repo" {
		t.Errorf("Repository = %q, want %q", task.Repository, "octo/repo")
	}
}

// pageJSON は1ページ分のGraphQLレスポンスを生成します
func pageJSON(itemIDs []string, hasNext bool, endCursor string) string {
	items := make([]string, 0, len(itemIDs))
	for i, id := range itemIDs {
		items = append(items, fmt.Sprintf(`{
			"id": %q,
			"type": "ISSUE",
			"fieldValues": {"nodes": []},
			"content": {
				"id": "content-%s",
				"title": "Task %d",
				"body": "",
				"number": %d,
				"url": "https://github.com/o/r/issues/%d"
			}
		}`, id, id, i+1, i+1, i+1))
	}
	return fmt.Sprintf(`{
		"data": {
			"node": {
				"id": "PVT_test",
				"title": "Test Project",
				"fields": {"nodes": []},
				"items": {
					"pageInfo": {"hasNextPage": %v, "endCursor": %q},
					"nodes": [%s]
				}
			}
		}
	}`, hasNext, endCursor, strings.Join(items, ","))
}

func TestGetProjectTasksPagination(t *testing.T) {
	fetches := 0
	var cursors []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++

		var req struct {
			Variables map[string]interface{} `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("リクエストのデコードに失敗: %v", err)
		}
		cursor, _ := req.Variables["cursor"].(string)
		cursors = append(cursors, cursor)

		switch fetches {
		case 1:
			w.Write([]byte(pageJSON([]string{"i1", "i2"}, true, "CUR1")))
		case 2:
			w.Write([]byte(pageJSON([]string{"i3"}, true, "CUR2")))
		default:
			w.Write([]byte(pageJSON([]string{"i4"}, false, "")))
		}
	}))
	defer server.Close()

	cfg := testServiceConfig(server.URL)
	exporter := NewExportService(cfg, api.NewGitHubClient(cfg))

	tasks, err := exporter.GetProjectTasks(context.Background())
	if err != nil {
		t.Fatalf("GetProjectTasks() エラー: %v", err)
	}

	if fetches != 3 {
		t.Errorf("fetches = %d, want 3", fetches)
	}
	if len(tasks) != 4 {
		t.Errorf("len(tasks) = %d, want 4 (全ページの累積)", len(tasks))
	}
	wantCursors := []string{"", "CUR1", "CUR2"}
	for i, want := range wantCursors {
		if cursors[i] != want {
			t.Errorf("cursors[%d] = %q, want %q", i, cursors[i], want)
		}
	}
}

func TestGetProjectTasksProjectNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"node": null}}`))
	}))
	defer server.Close()

	cfg := testServiceConfig(server.URL)
	exporter := NewExportService(cfg, api.NewGitHubClient(cfg))

	_, err := exporter.GetProjectTasks(context.Background())
	if err == nil {
		t.Fatal("エラーが返されるべきです")
	}
	if !strings.Contains(err.Error(), "プロジェクトが見つかりません") {
		t.Errorf("予期しないエラーメッセージ: %v", err)
	}
}
