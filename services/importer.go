package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ghprojectsync/api"
	"ghprojectsync/config"
	"ghprojectsync/models"
	"ghprojectsync/utils"
)

// projectInfoQuery はプロジェクトのフィールド定義カタログを取得するクエリです
const projectInfoQuery = `
query($projectId: ID!) {
    node(id: $projectId) {
        ... on ProjectV2 {
            id
            title
            fields(first: 20) {
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
                }
            }
        }
    }
}
`

const userIDQuery = `
query($login: String!) {
    user(login: $login) {
        id
    }
}
`

const issueIDQuery = `
query($owner: String!, $repo: String!, $number: Int!) {
    repository(owner: $owner, name: $repo) {
        issue(number: $number) {
            id
        }
    }
}
`

const pullRequestIDQuery = `
query($owner: String!, $repo: String!, $number: Int!) {
    repository(owner: $owner, name: $repo) {
        pullRequest(number: $number) {
            id
        }
    }
}
`

const createDraftIssueMutation = `
mutation($projectId: ID!, $title: String!, $body: String, $assigneeIds: [ID!]) {
    addProjectV2DraftIssue(input: {
        projectId: $projectId,
        title: $title,
        body: $body,
        assigneeIds: $assigneeIds
    }) {
        projectItem {
            id
        }
    }
}
`

const addExistingItemMutation = `
mutation($projectId: ID!, $contentId: ID!) {
    addProjectV2ItemById(input: {
        projectId: $projectId,
        contentId: $contentId
    }) {
        item {
            id
        }
    }
}
`

const updateSingleSelectMutation = `
mutation($projectId: ID!, $itemId: ID!, $fieldId: ID!, $singleSelectOptionId: String!) {
    updateProjectV2ItemFieldValue(input: {
        projectId: $projectId,
        itemId: $itemId,
        fieldId: $fieldId,
        value: {
            singleSelectOptionId: $singleSelectOptionId
        }
    }) {
        projectV2Item {
            id
        }
    }
}
`

const updateNumberMutation = `
mutation($projectId: ID!, $itemId: ID!, $fieldId: ID!, $number: Float!) {
    updateProjectV2ItemFieldValue(input: {
        projectId: $projectId,
        itemId: $itemId,
        fieldId: $fieldId,
        value: {
            number: $number
        }
    }) {
        projectV2Item {
            id
        }
    }
}
`

const updateTextMutation = `
mutation($projectId: ID!, $itemId: ID!, $fieldId: ID!, $text: String!) {
    updateProjectV2ItemFieldValue(input: {
        projectId: $projectId,
        itemId: $itemId,
        fieldId: $fieldId,
        value: {
            text: $text
        }
    }) {
        projectV2Item {
            id
        }
    }
}
`

// ProjectInfo はインポート先プロジェクトの情報です
type ProjectInfo struct {
	ID     string                   `json:"id"`
	Title  string                   `json:"title"`
	Fields []models.FieldDefinition `json:"-"`
}

// ImportService はCSVレコードのProjectV2へのインポートを処理します
type ImportService struct {
	config *config.Config
	client *api.GitHubClient
	sleep  func(time.Duration) // テストで差し替え可能
}

// NewImportService は新しいインポートサービスを作成します
func NewImportService(cfg *config.Config, client *api.GitHubClient) *ImportService {
	return &ImportService{
		config: cfg,
		client: client,
		sleep:  time.Sleep,
	}
}

// GetProjectInfo はプロジェクトのタイトルとフィールド定義カタログを取得します
func (s *ImportService) GetProjectInfo(ctx context.Context) (*ProjectInfo, error) {
	projectID := s.config.GitHub.DefaultProjectID

	var resp struct {
		Node *struct {
			ID     string `json:"id"`
			Title  string `json:"title"`
			Fields struct {
				Nodes []models.FieldDefinition `json:"nodes"`
			} `json:"fields"`
		} `json:"node"`
	}
	if err := s.client.Execute(ctx, projectInfoQuery, map[string]interface{}{"projectId": projectID}, &resp); err != nil {
		return nil, err
	}

	if resp.Node == nil {
		return nil, fmt.Errorf("プロジェクトが見つかりません: %s", projectID)
	}

	return &ProjectInfo{
		ID:     resp.Node.ID,
		Title:  resp.Node.Title,
		Fields: resp.Node.Fields.Nodes,
	}, nil
}

// GetUserID はユーザーのGitHubノードIDを取得します
// ユーザーが見つからない場合は警告を出して空文字列を返します
func (s *ImportService) GetUserID(ctx context.Context, login string) (string, error) {
	var resp struct {
		User *struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := s.client.Execute(ctx, userIDQuery, map[string]interface{}{"login": login}, &resp); err != nil {
		return "", err
	}

	if resp.User == nil {
		utils.LogWarn("ユーザーが見つかりません: %s", login)
		return "", nil
	}
	return resp.User.ID, nil
}

// CreateDraftIssue はプロジェクトにドラフトイシューを作成します
// 解決できないassigneeは警告を出してスキップされます
func (s *ImportService) CreateDraftIssue(ctx context.Context, item models.ImportItem) (string, error) {
	assigneeIDs := []string{}
	for _, login := range item.Assignees {
		userID, err := s.GetUserID(ctx, login)
		if err != nil {
			utils.LogWarn("ユーザー %s の情報取得に失敗しました: %v", login, err)
			continue
		}
		if userID != "" {
			assigneeIDs = append(assigneeIDs, userID)
		}
	}

	variables := map[string]interface{}{
		"projectId":   s.config.GitHub.DefaultProjectID,
		"title":       item.Title,
		"body":        item.Description,
		"assigneeIds": assigneeIDs,
	}

	var resp struct {
		AddProjectV2DraftIssue struct {
			ProjectItem struct {
				ID string `json:"id"`
			} `json:"projectItem"`
		} `json:"addProjectV2DraftIssue"`
	}
	if err := s.client.Execute(ctx, createDraftIssueMutation, variables, &resp); err != nil {
		return "", err
	}
	return resp.AddProjectV2DraftIssue.ProjectItem.ID, nil
}

// GetIssueID は既存のIssueまたはPRのGitHubノードIDを取得します
// まずIssueとして検索し、見つからなければPRとして検索します
func (s *ImportService) GetIssueID(ctx context.Context, repository string, number int) (string, error) {
	owner, repo := "", repository
	if idx := strings.Index(repository, "/"); idx >= 0 {
		owner, repo = repository[:idx], repository[idx+1:]
	}

	variables := map[string]interface{}{
		"owner":  owner,
		"repo":   repo,
		"number": number,
	}

	var issueResp struct {
		Repository *struct {
			Issue *struct {
				ID string `json:"id"`
			} `json:"issue"`
		} `json:"repository"`
	}
	if err := s.client.Execute(ctx, issueIDQuery, variables, &issueResp); err == nil &&
		issueResp.Repository != nil && issueResp.Repository.Issue != nil {
		return issueResp.Repository.Issue.ID, nil
	}

	var prResp struct {
		Repository *struct {
			PullRequest *struct {
				ID string `json:"id"`
			} `json:"pullRequest"`
		} `json:"repository"`
	}
	if err := s.client.Execute(ctx, pullRequestIDQuery, variables, &prResp); err == nil &&
		prResp.Repository != nil && prResp.Repository.PullRequest != nil {
		return prResp.Repository.PullRequest.ID, nil
	}

	return "", fmt.Errorf("%s に Issue/PR #%d が見つかりません", repository, number)
}

// AddExistingItem は既存のIssueまたはPRをプロジェクトに追加します
func (s *ImportService) AddExistingItem(ctx context.Context, contentID string) (string, error) {
	variables := map[string]interface{}{
		"projectId": s.config.GitHub.DefaultProjectID,
		"contentId": contentID,
	}

	var resp struct {
		AddProjectV2ItemByID struct {
			Item struct {
				ID string `json:"id"`
			} `json:"item"`
		} `json:"addProjectV2ItemById"`
	}
	if err := s.client.Execute(ctx, addExistingItemMutation, variables, &resp); err != nil {
		return "", err
	}
	return resp.AddProjectV2ItemByID.Item.ID, nil
}

// UpdateFieldValue はアイテムのフィールド値を更新します
// dataTypeに応じて適切なミューテーションを選択します
func (s *ImportService) UpdateFieldValue(ctx context.Context, itemID, fieldID, value, dataType string) error {
	variables := map[string]interface{}{
		"projectId": s.config.GitHub.DefaultProjectID,
		"itemId":    itemID,
		"fieldId":   fieldID,
	}

	var mutation string
	switch dataType {
	case models.DataTypeSingleSelect:
		mutation = updateSingleSelectMutation
		variables["singleSelectOptionId"] = value
	case models.DataTypeNumber:
		number, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("数値への変換エラー: %w", err)
		}
		mutation = updateNumberMutation
		variables["number"] = number
	default:
		mutation = updateTextMutation
		variables["text"] = value
	}

	return s.client.Execute(ctx, mutation, variables, nil)
}

// buildFieldNameMap はフィールド名(小文字)→定義のマップを構築します
func buildFieldNameMap(defs []models.FieldDefinition) map[string]models.FieldDefinition {
	byName := make(map[string]models.FieldDefinition, len(defs))
	for _, def := range defs {
		if def.Name != "" {
			byName[strings.ToLower(def.Name)] = def
		}
	}
	return byName
}

// ImportItem は1レコードをプロジェクトにインポートします
// repositoryとissue_numberが両方指定されている場合は既存アイテムの追加、
// それ以外の場合はドラフトイシューの作成として処理します
func (s *ImportService) ImportItem(ctx context.Context, item models.ImportItem, fieldsByName map[string]models.FieldDefinition) (string, error) {
	utils.LogInfo("条目をインポートしています: %s", item.Title)

	var itemID string
	var err error
	if item.Repository != "" && item.IssueNumber > 0 {
		// 既存のIssue/PRをプロジェクトに追加
		contentID, resolveErr := s.GetIssueID(ctx, item.Repository, item.IssueNumber)
		if resolveErr != nil {
			return "", resolveErr
		}
		itemID, err = s.AddExistingItem(ctx, contentID)
	} else {
		itemID, err = s.CreateDraftIssue(ctx, item)
	}
	if err != nil {
		return "", err
	}

	// 標準フィールドの値を反映
	fieldUpdates := []struct {
		name  string
		value string
	}{
		{"status", item.Status},
		{"priority", item.Priority},
		{"estimate", item.Estimate},
		{"size", item.Size},
	}

	for _, update := range fieldUpdates {
		if update.value == "" {
			continue
		}

		def, ok := fieldsByName[update.name]
		if !ok {
			utils.LogWarn("プロジェクトにフィールド '%s' がありません。スキップします", update.name)
			continue
		}

		switch def.DataType {
		case models.DataTypeSingleSelect:
			// 選択肢名を大文字小文字を無視して照合し、選択肢IDで更新
			optionID := ""
			for _, option := range def.Options {
				if strings.EqualFold(option.Name, update.value) {
					optionID = option.ID
					break
				}
			}
			if optionID == "" {
				utils.LogWarn("フィールド '%s' に選択肢 '%s' が見つかりません", update.name, update.value)
				continue
			}
			if err := s.UpdateFieldValue(ctx, itemID, def.ID, optionID, models.DataTypeSingleSelect); err != nil {
				utils.LogWarn("フィールド '%s' の更新に失敗しました: %v", update.name, err)
			}

		case models.DataTypeNumber:
			if _, err := strconv.ParseFloat(update.value, 64); err != nil {
				utils.LogWarn("フィールド '%s' の値 '%s' は有効な数値ではありません。更新をスキップします", update.name, update.value)
				continue
			}
			if err := s.UpdateFieldValue(ctx, itemID, def.ID, update.value, models.DataTypeNumber); err != nil {
				utils.LogWarn("フィールド '%s' の更新に失敗しました: %v", update.name, err)
			}

		default:
			if err := s.UpdateFieldValue(ctx, itemID, def.ID, update.value, models.DataTypeText); err != nil {
				utils.LogWarn("フィールド '%s' の更新に失敗しました: %v", update.name, err)
			}
		}
	}

	utils.LogInfo("インポート成功: %s", item.Title)
	return itemID, nil
}

// ImportAll は全レコードを順番にインポートします
// batch_size件ごとにbatch_delay秒待機してAPIレート制限を回避します
// 成功した件数を返します
func (s *ImportService) ImportAll(ctx context.Context, items []models.ImportItem, fields []models.FieldDefinition) int {
	fieldsByName := buildFieldNameMap(fields)
	total := len(items)
	successCount := 0

	batchSize := s.config.Import.BatchSize
	batchDelay := time.Duration(s.config.Import.BatchDelay * float64(time.Second))

	for i, item := range items {
		utils.LogInfo("条目 %d/%d を処理しています: %s", i+1, total, item.Title)

		if _, err := s.ImportItem(ctx, item, fieldsByName); err != nil {
			utils.LogError("'%s' のインポートに失敗しました: %v", item.Title, err)
			if !s.config.Import.ContinueOnError {
				utils.LogError("エラーが発生したためインポートを中止します")
				break
			}
		} else {
			successCount++
		}

		// バッチ間の待機 (最終レコードの後は不要)
		if (i+1)%batchSize == 0 && i+1 < total {
			utils.LogInfo("%d 件処理しました。%s 待機します...", i+1, batchDelay)
			s.sleep(batchDelay)
		}
	}

	utils.LogInfo("インポート完了: %d/%d 件のインポートに成功しました", successCount, total)
	return successCount
}
