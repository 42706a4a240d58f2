package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/iudanet/deltasync/pkg/api"
)

// StatusError ответ узла с кодом вне 2xx
type StatusError struct {
	Message    string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// IsUnauthorized возвращает true, если узел отклонил токен
func IsUnauthorized(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized
}

// Client представляет HTTP клиент для взаимодействия с узлом
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	mu         sync.RWMutex
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// BaseURL возвращает адрес узла
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetToken устанавливает access token для последующих запросов
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
}

// Token возвращает текущий access token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.token
}

// RequestToken получает access token пира и сохраняет его в клиенте
func (c *Client) RequestToken(ctx context.Context, req api.TokenRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/token", req, &resp); err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	c.SetToken(resp.AccessToken)
	return &resp, nil
}

// Health проверяет доступность узла
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", nil, &resp); err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	return &resp, nil
}

// Clock получает текущие часы коллаборации
func (c *Client) Clock(ctx context.Context, collaboration string) (*api.ClockResponse, error) {
	var resp api.ClockResponse
	if err := c.doRequest(ctx, http.MethodGet, collabPath(collaboration, "clock"), nil, &resp); err != nil {
		return nil, fmt.Errorf("clock request failed: %w", err)
	}
	return &resp, nil
}

// Pull запрашивает записи, которых нет у пира с часами req.Since
func (c *Client) Pull(ctx context.Context, collaboration string, req api.PullRequest) (*api.PullResponse, error) {
	var resp api.PullResponse
	if err := c.doRequest(ctx, http.MethodPost, collabPath(collaboration, "pull"), req, &resp); err != nil {
		return nil, fmt.Errorf("pull request failed: %w", err)
	}
	return &resp, nil
}

// Push отправляет записи на узел
func (c *Client) Push(ctx context.Context, collaboration string, req api.PushRequest) (*api.PushResponse, error) {
	var resp api.PushResponse
	if err := c.doRequest(ctx, http.MethodPost, collabPath(collaboration, "push"), req, &resp); err != nil {
		return nil, fmt.Errorf("push request failed: %w", err)
	}
	return &resp, nil
}

// Snapshot получает полные снимки всех реплик коллаборации
func (c *Client) Snapshot(ctx context.Context, collaboration string) (*api.SnapshotResponse, error) {
	var resp api.SnapshotResponse
	if err := c.doRequest(ctx, http.MethodGet, collabPath(collaboration, "snapshot"), nil, &resp); err != nil {
		return nil, fmt.Errorf("snapshot request failed: %w", err)
	}
	return &resp, nil
}

// Value получает значение корневой (sub == "") или вложенной реплики
func (c *Client) Value(ctx context.Context, collaboration, sub string) (*api.ValueResponse, error) {
	path := collabPath(collaboration, "value")
	if sub != "" {
		path += "?sub=" + url.QueryEscape(sub)
	}

	var resp api.ValueResponse
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("value request failed: %w", err)
	}
	return &resp, nil
}

// Mutate выполняет мутацию на узле
func (c *Client) Mutate(ctx context.Context, collaboration string, req api.MutateRequest) (*api.MutateResponse, error) {
	var resp api.MutateResponse
	if err := c.doRequest(ctx, http.MethodPost, collabPath(collaboration, "mutate"), req, &resp); err != nil {
		return nil, fmt.Errorf("mutate request failed: %w", err)
	}
	return &resp, nil
}

func collabPath(collaboration, action string) string {
	return "/api/v1/collab/" + url.PathEscape(collaboration) + "/" + action
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path string, body, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Message: string(respBody)}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
			statusErr.Message = errResp.Message
		}
		return statusErr
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
