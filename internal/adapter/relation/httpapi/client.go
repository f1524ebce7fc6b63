// Package httpapi 通过数据服务的 HTTP JSON 接口拉取数据源的行集。
//
// 取数路径:
//
//	GET {base}/data/sources/{id}/data
//	GET {base}/data/organizations/{org}/projects/{proj}/data-sources/{id}/data
//
// 带组织与项目标识的数据源走第二种项目作用域路径。
// 响应体形如 {"data": [ {...}, {...} ]}。
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"VizQuery/internal/core/domain"
	"VizQuery/internal/core/port"

	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultTimeout = 15 * time.Second

	// 同一数据源的行集在短时间内会被多个不同查询重复使用，
	// 这里再加一层很短的取数缓存，与上层按查询文本区分的结果缓存互补。
	datasetTTL     = 30 * time.Second
	datasetCleanup = 2 * time.Minute

	maxResponseBytes = 64 << 20 // 64 MiB
)

// Client 是 port.RelationSource 的 HTTP 实现。
type Client struct {
	baseURL  string
	http     *http.Client
	datasets *gocache.Cache
}

var _ port.RelationSource = (*Client)(nil)

// New 创建 HTTP 取数客户端。baseURL 不能为空。
func New(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("httpapi.Client 初始化失败: baseURL 不能为空")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("httpapi.Client 初始化失败: 无效的 baseURL '%s': %w", baseURL, err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: timeout},
		datasets: gocache.New(datasetTTL, datasetCleanup),
	}, nil
}

func (c *Client) Type() string { return domain.SourceKindHTTP }

// Fetch 拉取数据源的完整行集。短 TTL 内的重复取数直接命中本地缓存。
func (c *Client) Fetch(ctx context.Context, source domain.SourceConfig) (domain.Relation, error) {
	path := c.dataPath(source)

	if cached, ok := c.datasets.Get(path); ok {
		return cached.(domain.Relation), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("构造取数请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: 请求数据服务失败: %v", port.ErrRelationUnavailable, err)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Printf("警告: [httpapi] 关闭响应体失败 (数据源 '%s'): %v", source.ID, errClose)
		}
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, port.ErrSourceNotFound
	case http.StatusForbidden, http.StatusUnauthorized:
		return nil, port.ErrPermissionDenied
	default:
		return nil, fmt.Errorf("%w: 数据服务返回状态码 %d", port.ErrRelationUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: 读取响应体失败: %v", port.ErrRelationUnavailable, err)
	}

	var payload struct {
		Data domain.Relation `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: 响应体不是合法的 JSON 行集: %v", port.ErrRelationUnavailable, err)
	}
	if payload.Data == nil {
		payload.Data = domain.Relation{}
	}

	c.datasets.Set(path, payload.Data, gocache.DefaultExpiration)
	return payload.Data, nil
}

// HealthCheck 探测数据服务是否可达。
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", port.ErrRelationUnavailable, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: 数据服务返回状态码 %d", port.ErrRelationUnavailable, resp.StatusCode)
	}
	return nil
}

// InvalidateDataset 丢弃某个数据源的取数缓存（管理端清缓存时一并调用）。
func (c *Client) InvalidateDataset(source domain.SourceConfig) {
	c.datasets.Delete(c.dataPath(source))
}

// dataPath 根据数据源是否携带组织/项目标识选择取数路径。
func (c *Client) dataPath(source domain.SourceConfig) string {
	if source.OrgID != "" && source.ProjectID != "" {
		return fmt.Sprintf("/data/organizations/%s/projects/%s/data-sources/%s/data",
			url.PathEscape(source.OrgID), url.PathEscape(source.ProjectID), url.PathEscape(source.ID))
	}
	return fmt.Sprintf("/data/sources/%s/data", url.PathEscape(source.ID))
}
