// file: internal/transport/http/router/router_test.go

package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"VizQuery/internal/core/domain"
	"VizQuery/internal/core/port"
	"VizQuery/internal/engine"
	"VizQuery/internal/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ============================================================================
//  测试替身 (Test Doubles)
// ============================================================================

// fakeConfigs 是 port.SourceConfigService 的内存实现，只认识 "sales" 数据源。
type fakeConfigs struct{}

func (f *fakeConfigs) GetSource(ctx context.Context, sourceID string) (*domain.SourceConfig, error) {
	if sourceID == "sales" {
		return &domain.SourceConfig{ID: "sales", Name: "Sales", Kind: domain.SourceKindFile, Enabled: true}, nil
	}
	return nil, port.ErrSourceNotFound
}
func (f *fakeConfigs) ListSources(ctx context.Context) ([]*domain.SourceConfig, error) {
	return []*domain.SourceConfig{
		{ID: "sales", Name: "Sales", Kind: domain.SourceKindFile, Enabled: true},
	}, nil
}
func (f *fakeConfigs) CreateSource(ctx context.Context, cfg domain.SourceConfig) (*domain.SourceConfig, error) {
	return &cfg, nil
}
func (f *fakeConfigs) UpdateSourceSettings(ctx context.Context, sourceID string, settings domain.SourceOverallSettings) error {
	return nil
}
func (f *fakeConfigs) DeleteSource(ctx context.Context, sourceID string) error { return nil }
func (f *fakeConfigs) InvalidateCacheForSource(sourceID string)                {}
func (f *fakeConfigs) InvalidateAllCaches()                                    {}
func (f *fakeConfigs) GetIPLimitSettings(ctx context.Context) (*domain.IPLimitSetting, error) {
	return nil, nil
}
func (f *fakeConfigs) UpdateIPLimitSettings(ctx context.Context, settings domain.IPLimitSetting) error {
	return nil
}
func (f *fakeConfigs) GetUserLimitSettings(ctx context.Context, userID int64) (*domain.UserLimitSetting, error) {
	return nil, nil
}
func (f *fakeConfigs) UpdateUserLimitSettings(ctx context.Context, userID int64, settings domain.UserLimitSetting) error {
	return nil
}
func (f *fakeConfigs) GetSourceRateLimitSettings(ctx context.Context, sourceID string) (*domain.SourceRateLimitSetting, error) {
	return nil, nil
}
func (f *fakeConfigs) UpdateSourceRateLimitSettings(ctx context.Context, sourceID string, settings domain.SourceRateLimitSetting) error {
	return nil
}

// fakeRelation 返回固定的内存关系
type fakeRelation struct{}

func (f *fakeRelation) Fetch(ctx context.Context, source domain.SourceConfig) (domain.Relation, error) {
	return domain.Relation{
		{"region": "East", "amount": float64(10)},
		{"region": "West", "amount": float64(5)},
	}, nil
}
func (f *fakeRelation) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeRelation) Type() string                          { return domain.SourceKindFile }

// ============================================================================
//  测试辅助函数 (Test Helpers)
// ============================================================================

func newTestRouter(t *testing.T) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("初始化sqlmock失败: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	query, err := engine.NewQueryService(&fakeConfigs{},
		map[string]port.RelationSource{domain.SourceKindFile: &fakeRelation{}}, engine.Options{})
	if err != nil {
		t.Fatalf("初始化QueryService失败: %v", err)
	}

	handler := New(Dependencies{
		Query:              query,
		ConfigService:      &fakeConfigs{},
		AuthDB:             db,
		SetupToken:         "test-token",
		SetupTokenDeadline: time.Now().Add(time.Hour),
	})
	return handler, mock
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("序列化请求体失败: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeResult(t *testing.T, rr *httptest.ResponseRecorder) *domain.QueryResult {
	t.Helper()
	var result domain.QueryResult
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("解析响应失败: %v (body: %s)", err, rr.Body.String())
	}
	return &result
}

// ============================================================================
//  测试用例 (Test Cases)
// ============================================================================

func TestQueryEndpoint_Success(t *testing.T) {
	handler, _ := newTestRouter(t)

	rr := postJSON(t, handler, "/api/v1/data/query", map[string]any{
		"data_source_id": "sales",
		"query":          "SELECT region, amount FROM data ORDER BY amount DESC",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("期望 200, 实际 %d (body: %s)", rr.Code, rr.Body.String())
	}
	result := decodeResult(t, rr)
	if !result.Success || result.RowCount != 2 {
		t.Fatalf("查询应成功且返回2行: %+v", result)
	}
	if result.Data[0]["region"] != "East" {
		t.Fatalf("排序结果不对: %+v", result.Data)
	}
}

// 失败响应契约：HTTP 200 + success=false + 空数组，保证仪表盘端形状一致
func TestQueryEndpoint_FailureShape(t *testing.T) {
	handler, _ := newTestRouter(t)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"语法错误", map[string]any{"data_source_id": "sales", "query": "SELECT FROM"}},
		{"数据源不存在", map[string]any{"data_source_id": "ghost", "query": "SELECT * FROM data"}},
		{"缺少必填字段", map[string]any{"query": "SELECT * FROM data"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := postJSON(t, handler, "/api/v1/data/query", tc.body)
			if rr.Code != http.StatusOK {
				t.Fatalf("失败响应必须仍是 HTTP 200, 实际 %d", rr.Code)
			}
			result := decodeResult(t, rr)
			if result.Success {
				t.Fatal("success 应为 false")
			}
			if result.Error == "" {
				t.Fatal("error 信息不能为空")
			}
			if result.Data == nil || len(result.Data) != 0 {
				t.Fatalf("data 应为空数组: %+v", result.Data)
			}
			if result.Columns == nil || len(result.Columns) != 0 {
				t.Fatalf("columns 应为空数组: %+v", result.Columns)
			}
			if result.RowCount != 0 {
				t.Fatalf("rowCount 应为 0: %d", result.RowCount)
			}
		})
	}
}

func TestBatchQueryEndpoint_PartialFailure(t *testing.T) {
	handler, _ := newTestRouter(t)

	rr := postJSON(t, handler, "/api/v1/data/query/batch", map[string]any{
		"queries": []map[string]any{
			{"data_source_id": "sales", "query": "SELECT COUNT(*) FROM data"},
			{"data_source_id": "ghost", "query": "SELECT * FROM data"},
		},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("期望 200, 实际 %d (body: %s)", rr.Code, rr.Body.String())
	}

	var resp struct {
		Results []*domain.QueryResult `json:"results"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("应返回2条结果: %+v", resp.Results)
	}
	if !resp.Results[0].Success {
		t.Fatalf("第一条查询应成功: %+v", resp.Results[0])
	}
	if resp.Results[1].Success {
		t.Fatal("第二条查询应失败但不影响整批")
	}
}

func TestPreviewEndpoint(t *testing.T) {
	handler, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/data/sources/sales/preview?limit=1", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("期望 200, 实际 %d (body: %s)", rr.Code, rr.Body.String())
	}
	result := decodeResult(t, rr)
	if !result.Success || result.RowCount != 1 {
		t.Fatalf("预览应返回1行: %+v", result)
	}

	req = httptest.NewRequest("GET", "/api/v1/data/sources/ghost/preview", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("未知数据源预览应返回 404, 实际 %d", rr.Code)
	}
}

func TestStatusEndpoint_NeedsSetup(t *testing.T) {
	handler, mock := newTestRouter(t)
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	req := httptest.NewRequest("GET", "/api/v1/system/status", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("期望 200, 实际 %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if resp["status"] != "needs_setup" {
		t.Fatalf("无用户时状态应为 needs_setup, 实际: %s", resp["status"])
	}
}

func TestAdminEndpoints_RequireAuth(t *testing.T) {
	handler, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/admin/cache/stats", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("无令牌访问管理端应返回 401, 实际 %d", rr.Code)
	}
}

func TestAdminCacheEndpoints_WithAdminToken(t *testing.T) {
	handler, mock := newTestRouter(t)

	token, err := service.GenToken(1, "admin")
	if err != nil {
		t.Fatalf("生成测试令牌失败: %v", err)
	}

	// 认证中间件会回查用户表确认用户仍存在
	mock.ExpectQuery("SELECT username, role FROM _user").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"username", "role"}).AddRow("admin", "admin"))

	req := httptest.NewRequest("GET", "/api/v1/admin/cache/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("管理员访问缓存统计应返回 200, 实际 %d (body: %s)", rr.Code, rr.Body.String())
	}

	mock.ExpectQuery("SELECT username, role FROM _user").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"username", "role"}).AddRow("admin", "admin"))

	rr2 := httptest.NewRecorder()
	body := bytes.NewReader([]byte(`{"data_source_id":"sales"}`))
	req2 := httptest.NewRequest("POST", "/api/v1/admin/cache/invalidate", body)
	req2.Header.Set("Content-Type", "application/json")
	req2.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rr2, req2)
	if rr2.Code != http.StatusOK {
		t.Fatalf("清除缓存应返回 200, 实际 %d (body: %s)", rr2.Code, rr2.Body.String())
	}
}
