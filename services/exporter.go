package services

import (
	"context"
	"fmt"
	"strings"

	"ghprojectsync/api"
	"ghprojectsync/config"
	"ghprojectsync/models"
	"ghprojectsync/utils"
)

// projectTasksQuery はプロジェクトの全タスクをページ単位で取得するクエリです
const projectTasksQuery = `
query($projectId: ID!, $cursor: String) {
    node(id: $projectId) {
        ... on ProjectV2 {
            id
            title
            fields(first: 50) {
                nodes {
                    ... on ProjectV2Field {
                        id
                        name
                        dataType
                    }
                    ... on ProjectV2SingleSelectField {
                        id
                        name
                        dataType
                        options {
                            id
                            name
                        }
                    }
                    ... on ProjectV2IterationField {
                        id
                        name
                        dataType
                        configuration {
                            iterations {
                                id
                                title
                                startDate
                                duration
                            }
                        }
                    }
                }
            }
            items(first: 100, after: $cursor) {
                pageInfo {
                    hasNextPage
                    endCursor
                }
                nodes {
                    id
                    type
                    fieldValues(first: 20) {
                        nodes {
                            ... on ProjectV2ItemFieldTextValue {
                                text
                                field {
                                    ... on ProjectV2Field {
                                        id
                                        name
                                    }
                                }
                            }
                            ... on ProjectV2ItemFieldNumberValue {
                                number
                                field {
                                    ... on ProjectV2Field {
                                        id
                                        name
                                    }
                                }
                            }
                            ... on ProjectV2ItemFieldSingleSelectValue {
                                optionId
                                name
                                field {
                                    ... on ProjectV2SingleSelectField {
                                        id
                                        name
                                    }
                                }
                            }
                            ... on ProjectV2ItemFieldDateValue {
                                date
                                field {
                                    ... on ProjectV2Field {
                                        id
                                        name
                                    }
                                }
                            }
                            ... on ProjectV2ItemFieldIterationValue {
                                title
                                startDate
                                duration
                                field {
                                    ... on ProjectV2IterationField {
                                        id
                                        name
                                    }
                                }
                            }
                        }
                    }
                    content {
                        ... on Issue {
                            id
                            title
                            body
                            number
                            url
                            state
                            createdAt
                            updatedAt
                            closedAt
                            assignees(first: 10) {
                                nodes {
                                    login
                                    name
                                }
                            }
                            labels(first: 20) {
                                nodes {
                                    name
                                    color
                                }
                            }
                            milestone {
                                title
                            }
                            repository {
                                name
                                owner {
                                    login
                                }
                            }
                            comments(first: 50, orderBy: {field: UPDATED_AT, direction: ASC}) {
                                nodes {
                                    id
                                    body
                                    createdAt
                                    updatedAt
                                    author {
                                        login
                                        ... on User {
                                            name
                                        }
                                    }
                                }
                            }
                        }
                        ... on PullRequest {
                            id
                            title
                            body
                            number
                            url
                            state
                            createdAt
                            updatedAt
                            closedAt
                            assignees(first: 10) {
                                nodes {
                                    login
                                    name
                                }
                            }
                            labels(first: 20) {
                                nodes {
                                    name
                                    color
                                }
                            }
                            milestone {
                                title
                            }
                            repository {
                                name
                                owner {
                                    login
                                }
                            }
                            comments(first: 50, orderBy: {field: UPDATED_AT, direction: ASC}) {
                                nodes {
                                    id
                                    body
                                    createdAt
                                    updatedAt
                                    author {
                                        login
                                        ... on User {
                                            name
                                        }
                                    }
                                }
                            }
                        }
                        ... on DraftIssue {
                            id
                            title
                            body
                            createdAt
                            updatedAt
                            assignees(first: 10) {
                                nodes {
                                    login
                                    name
                                }
                            }
                        }
                    }
                }
            }
        }
    }
}
`

// pageInfo はページネーション情報です
type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// userNode はユーザー(assignee)のノードです
type userNode struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

// commentNode はコメントのノードです
type commentNode struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	CreatedAt string    `json:"createdAt"`
	UpdatedAt string    `json:"updatedAt"`
	Author    *userNode `json:"author"`
}

// itemContent はタスクの中身(Issue/PullRequest/DraftIssue)です
// ユニオン型のため、存在しないフィールドはゼロ値のままになります
type itemContent struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Number    *int   `json:"number"`
	URL       string `json:"url"`
	State     string `json:"state"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
	ClosedAt  string `json:"closedAt"`
	Assignees struct {
		Nodes []userNode `json:"nodes"`
	} `json:"assignees"`
	Labels struct {
		Nodes []struct {
			Name  string `json:"name"`
			Color string `json:"color"`
		} `json:"nodes"`
	} `json:"labels"`
	Milestone *struct {
		Title string `json:"title"`
	} `json:"milestone"`
	Repository *struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
	Comments struct {
		Nodes []commentNode `json:"nodes"`
	} `json:"comments"`
}

// projectItem はプロジェクトの1アイテムです
type projectItem struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	FieldValues struct {
		Nodes []models.FieldValue `json:"nodes"`
	} `json:"fieldValues"`
	Content *itemContent `json:"content"`
}

// projectNode はProjectV2ノードのデコード結果です
type projectNode struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Fields struct {
		Nodes []models.FieldDefinition `json:"nodes"`
	} `json:"fields"`
	Items struct {
		PageInfo pageInfo      `json:"pageInfo"`
		Nodes    []projectItem `json:"nodes"`
	} `json:"items"`
}

// projectTasksResponse はタスク取得クエリのdataオブジェクトです
type projectTasksResponse struct {
	Node *projectNode `json:"node"`
}

// ExportService はProjectV2からのタスクエクスポートを処理します
type ExportService struct {
	config *config.Config
	client *api.GitHubClient
}

// NewExportService は新しいエクスポートサービスを作成します
func NewExportService(cfg *config.Config, client *api.GitHubClient) *ExportService {
	return &ExportService{
		config: cfg,
		client: client,
	}
}

// GetProjectTasks はプロジェクト内の全タスクをページネーションで取得し、
// 正規化されたタスクレコードのリストを返します
func (s *ExportService) GetProjectTasks(ctx context.Context) ([]models.TaskInfo, error) {
	projectID := s.config.GitHub.DefaultProjectID
	allTasks := []models.TaskInfo{}
	cursor := ""

	for {
		variables := map[string]interface{}{"projectId": projectID}
		if cursor != "" {
			variables["cursor"] = cursor
		}

		var resp projectTasksResponse
		if err := s.client.Execute(ctx, projectTasksQuery, variables, &resp); err != nil {
			return nil, err
		}

		project := resp.Node
		if project == nil {
			return nil, fmt.Errorf("プロジェクトが見つかりません: %s", projectID)
		}

		if cursor == "" {
			utils.LogInfo("プロジェクト: %s", project.Title)
		}

		// フィールドカタログの構築
		fieldMap := buildFieldMap(project.Fields.Nodes)

		// タスクの処理
		for _, item := range project.Items.Nodes {
			if task := parseTaskItem(item, fieldMap); task != nil {
				allTasks = append(allTasks, *task)
			}
		}

		// ページネーションの確認
		page := project.Items.PageInfo
		if !page.HasNextPage {
			break
		}
		cursor = page.EndCursor

		utils.LogInfo("%d 件のタスクを取得しました。次のページを取得します...", len(allTasks))
	}

	return allTasks, nil
}

// buildFieldMap はフィールド定義リストからID→定義のマップを構築します
func buildFieldMap(defs []models.FieldDefinition) models.FieldMap {
	fieldMap := make(models.FieldMap, len(defs))
	for _, def := range defs {
		if def.ID != "" {
			fieldMap[def.ID] = def
		}
	}
	return fieldMap
}

// parseTaskItem は1つのアイテムを正規化されたタスクレコードに変換します
// contentを持たないアイテム(削除済みドラフトなど)はnilを返してスキップされます
func parseTaskItem(item projectItem, fields models.FieldMap) *models.TaskInfo {
	content := item.Content
	if content == nil || content.ID == "" {
		return nil
	}

	// コンテンツ種別の判定
	// ユニオン型レスポンスは実行時型を持たないため、numberの有無と
	// URLの "/pull/" で判定します (ベストエフォートな分類)
	contentType := models.ContentTypeDraftIssue
	if content.Number != nil {
		if strings.Contains(content.URL, "/pull/") {
			contentType = models.ContentTypePullRequest
		} else {
			contentType = models.ContentTypeIssue
		}
		if content.URL == "" {
			utils.LogDebug("アイテム %s はnumberを持ちますがURLが空です。Issueとして扱います", item.ID)
		}
	}

	task := &models.TaskInfo{
		ID:           item.ID,
		Title:        content.Title,
		ContentType:  contentType,
		Description:  content.Body,
		URL:          content.URL,
		CreatedAt:    content.CreatedAt,
		UpdatedAt:    content.UpdatedAt,
		ClosedAt:     content.ClosedAt,
		State:        content.State,
		Assignees:    []string{},
		Labels:       []string{},
		Comments:     []models.Comment{},
		CustomFields: map[string]string{},
	}
	if content.Number != nil {
		task.Number = *content.Number
	}

	// assigneesの処理
	for _, assignee := range content.Assignees.Nodes {
		if assignee.Login != "" {
			task.Assignees = append(task.Assignees, assignee.Login)
		}
	}

	// labelsの処理
	for _, label := range content.Labels.Nodes {
		if label.Name != "" {
			task.Labels = append(task.Labels, label.Name)
		}
	}

	// milestoneの処理
	if content.Milestone != nil {
		task.Milestone = content.Milestone.Title
	}

	// repositoryの処理 (owner/name 形式に平坦化)
	if content.Repository != nil {
		owner := content.Repository.Owner.Login
		repoName := content.Repository.Name
		if owner != "" && repoName != "" {
			task.Repository = fmt.Sprintf("%s/%s", owner, repoName)
		}
	}

	// commentsの処理 (本文が空のコメントは除外)
	for _, comment := range content.Comments.Nodes {
		if comment.Body == "" {
			continue
		}
		author := models.CommentAuthor{}
		if comment.Author != nil {
			author.Login = comment.Author.Login
			// User以外の作成者はnameを持たないため空文字列になります
			author.Name = comment.Author.Name
		}
		task.Comments = append(task.Comments, models.Comment{
			ID:        comment.ID,
			Body:      comment.Body,
			CreatedAt: comment.CreatedAt,
			UpdatedAt: comment.UpdatedAt,
			Author:    author,
		})
	}

	// カスタムフィールドの処理
	for _, fieldValue := range item.FieldValues.Nodes {
		if fieldValue.Field.ID == "" {
			continue
		}

		// フィールドIDからカタログの定義を解決
		fieldName := fieldValue.Field.Name
		if def, ok := fields[fieldValue.Field.ID]; ok {
			fieldName = def.Name
		}
		fieldName = strings.ToLower(fieldName)
		if fieldName == "" {
			continue
		}

		value, ok := fieldValue.Extract()
		if !ok {
			continue
		}

		// 同名フィールドは後勝ちで上書きされます
		task.CustomFields[fieldName] = value

		// 標準フィールドへのマッピング
		switch fieldName {
		case "status", "状态":
			task.Status = value
		case "priority", "优先级":
			task.Priority = value
		case "size", "大小", "尺寸":
			task.Size = value
		case "estimate", "估算", "工作量":
			task.Estimate = value
		}
	}

	return task
}
