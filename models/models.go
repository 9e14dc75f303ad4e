package models

import "strconv"

// コンテンツ種別を表す定数です
const (
	ContentTypeIssue       = "Issue"
	ContentTypePullRequest = "PullRequest"
	ContentTypeDraftIssue  = "DraftIssue"
)

// フィールドのデータ型を表す定数です
const (
	DataTypeText         = "TEXT"
	DataTypeNumber       = "NUMBER"
	DataTypeSingleSelect = "SINGLE_SELECT"
	DataTypeIteration    = "ITERATION"
)

// FieldOption は単一選択フィールドの選択肢を表します
type FieldOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Iteration はイテレーションフィールドの1つの区間を表します
type Iteration struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	StartDate string `json:"startDate"`
	Duration  int    `json:"duration"`
}

// IterationConfiguration はイテレーションフィールドの設定です
type IterationConfiguration struct {
	Iterations []Iteration `json:"iterations"`
}

// FieldDefinition はプロジェクトの1つのフィールド定義を表します
type FieldDefinition struct {
	ID            string                  `json:"id"`
	Name          string                  `json:"name"`
	DataType      string                  `json:"dataType"`
	Options       []FieldOption           `json:"options,omitempty"`
	Configuration *IterationConfiguration `json:"configuration,omitempty"`
}

// FieldMap はフィールドID→フィールド定義のマッピングです
// 実行開始時に一度だけ構築され、実行中は読み取り専用です
type FieldMap map[string]FieldDefinition

// FieldRef はフィールド値が参照するフィールドの識別情報です
type FieldRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FieldValue はGraphQLのフィールド値ユニオンをデコードしたものです
// text / number / 単一選択 / date / イテレーション のいずれか1つだけが設定されます
type FieldValue struct {
	Text           *string  `json:"text,omitempty"`
	Number         *float64 `json:"number,omitempty"`
	OptionID       *string  `json:"optionId,omitempty"`
	OptionName     *string  `json:"name,omitempty"`
	Date           *string  `json:"date,omitempty"`
	IterationTitle *string  `json:"title,omitempty"`
	Field          FieldRef `json:"field"`
}

// Extract は設定されている唯一の値を文字列として取り出します
// 値が空、またはいずれも設定されていない場合は ok=false を返します
func (v FieldValue) Extract() (string, bool) {
	switch {
	case v.Text != nil:
		return *v.Text, *v.Text != ""
	case v.Number != nil:
		return strconv.FormatFloat(*v.Number, 'f', -1, 64), true
	case v.OptionName != nil:
		return *v.OptionName, *v.OptionName != ""
	case v.Date != nil:
		return *v.Date, *v.Date != ""
	case v.IterationTitle != nil:
		return *v.IterationTitle, *v.IterationTitle != ""
	}
	return "", false
}

// CommentAuthor はコメントの作成者を表します
type CommentAuthor struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

// Comment はタスクに付いた1件のコメントを表します
type Comment struct {
	ID        string        `json:"id"`
	Body      string        `json:"body"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at"`
	Author    CommentAuthor `json:"author"`
}

// TaskInfo はエクスポートで得られる正規化済みのタスクレコードです
type TaskInfo struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	ContentType  string            `json:"content_type"`
	Description  string            `json:"description"`
	Status       string            `json:"status,omitempty"`
	Priority     string            `json:"priority,omitempty"`
	Size         string            `json:"size,omitempty"`
	Estimate     string            `json:"estimate,omitempty"`
	Assignees    []string          `json:"assignees"`
	Labels       []string          `json:"labels"`
	Milestone    string            `json:"milestone,omitempty"`
	Repository   string            `json:"repository,omitempty"`
	Number       int               `json:"number,omitempty"`
	URL          string            `json:"url,omitempty"`
	CreatedAt    string            `json:"created_at,omitempty"`
	UpdatedAt    string            `json:"updated_at,omitempty"`
	ClosedAt     string            `json:"closed_at,omitempty"`
	State        string            `json:"state,omitempty"`
	Comments     []Comment         `json:"comments"`
	CustomFields map[string]string `json:"custom_fields"`
}

// ImportItem はインポート対象の1レコードを表します
type ImportItem struct {
	Title       string   `json:"title"`
	ContentType string   `json:"content_type"`
	Description string   `json:"description,omitempty"`
	Assignees   []string `json:"assignees,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	Milestone   string   `json:"milestone,omitempty"`
	Status      string   `json:"status,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Estimate    string   `json:"estimate,omitempty"`
	Size        string   `json:"size,omitempty"`
	Repository  string   `json:"repository,omitempty"`
	IssueNumber int      `json:"issue_number,omitempty"`
}

// CSVRecord はCSVの1行を表します (ヘッダー名→値のマップ)
type CSVRecord map[string]string
