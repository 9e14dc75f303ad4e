package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ghprojectsync/config"
	"ghprojectsync/utils"
)

// RetryPolicy は接続失敗時のリトライ方針を表します
// MaxRetries は総試行回数、RetryDelay は試行間の待機時間です
// Sleep はテストで差し替えられるように注入可能にしています
type RetryPolicy struct {
	MaxRetries int
	RetryDelay time.Duration
	Sleep      func(time.Duration)
}

// GitHubClient はGitHub GraphQL APIとのやり取りを処理します
type GitHubClient struct {
	endpoint string
	token    string
	client   *http.Client
	retry    RetryPolicy
}

// NewGitHubClient は新しいGitHubクライアントを作成します
func NewGitHubClient(cfg *config.Config) *GitHubClient {
	return &GitHubClient{
		endpoint: cfg.API.Endpoint,
		token:    cfg.GitHub.Token,
		client: &http.Client{
			Timeout: time.Duration(cfg.API.Timeout) * time.Second,
		},
		retry: RetryPolicy{
			MaxRetries: cfg.API.MaxRetries,
			RetryDelay: time.Duration(cfg.API.RetryDelay * float64(time.Second)),
			Sleep:      time.Sleep,
		},
	}
}

// graphQLRequest はGraphQLリクエストのボディです
type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// graphQLError はサーバーが報告する1件のエラーです
type graphQLError struct {
	Message string `json:"message"`
}

// graphQLResponse はGraphQLレスポンスのトップレベル構造です
type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// Execute はGraphQLクエリを実行し、dataオブジェクトをresultにデコードします
// 接続レベルの失敗のみリトライし、サーバーが応答を返した場合は
// ステータスやerrors配列の内容をそのままエラーとして返します
func (c *GitHubClient) Execute(ctx context.Context, query string, variables map[string]interface{}, result interface{}) error {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("JSONエンコードエラー: %w", err)
	}

	var resp *http.Response
	for attempt := 1; attempt <= c.retry.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("リクエスト作成エラー: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err = c.client.Do(req)
		if err == nil {
			break
		}
		if attempt == c.retry.MaxRetries {
			return fmt.Errorf("APIリクエスト失敗: %w", err)
		}
		utils.LogWarn("APIリクエスト失敗、%s後にリトライします... (試行 %d/%d)", c.retry.RetryDelay, attempt, c.retry.MaxRetries)
		c.retry.Sleep(c.retry.RetryDelay)
	}
	if resp == nil {
		return fmt.Errorf("APIリクエスト失敗: リトライ回数が不正です (%d)", c.retry.MaxRetries)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("レスポンス読み取りエラー: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GraphQLリクエスト失敗: %d - %s", resp.StatusCode, string(body))
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return fmt.Errorf("レスポンス解析エラー: %w", err)
	}

	if len(gqlResp.Errors) > 0 {
		messages := make([]string, 0, len(gqlResp.Errors))
		for _, e := range gqlResp.Errors {
			messages = append(messages, e.Message)
		}
		return fmt.Errorf("GraphQLエラー: %s", strings.Join(messages, "; "))
	}

	if result != nil && len(gqlResp.Data) > 0 {
		if err := json.Unmarshal(gqlResp.Data, result); err != nil {
			return fmt.Errorf("データ解析エラー: %w", err)
		}
	}

	return nil
}
