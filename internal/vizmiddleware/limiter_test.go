// file: internal/vizmiddleware/limiter_test.go

package vizmiddleware_test

import (
	"VizQuery/internal/core/domain"
	"VizQuery/internal/service"
	"VizQuery/internal/vizmiddleware"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// ============================================================================
//  测试替身 (Test Doubles) / 模拟对象 (Mocks)
// ============================================================================

// mockSourceConfigService 是 port.SourceConfigService 接口的一个测试替身。
type mockSourceConfigService struct {
	GetIPLimitSettingsFunc         func(ctx context.Context) (*domain.IPLimitSetting, error)
	GetUserLimitSettingsFunc       func(ctx context.Context, userID int64) (*domain.UserLimitSetting, error)
	GetSourceRateLimitSettingsFunc func(ctx context.Context, sourceID string) (*domain.SourceRateLimitSetting, error)
}

func (m *mockSourceConfigService) GetIPLimitSettings(ctx context.Context) (*domain.IPLimitSetting, error) {
	if m.GetIPLimitSettingsFunc != nil {
		return m.GetIPLimitSettingsFunc(ctx)
	}
	return nil, nil
}
func (m *mockSourceConfigService) GetUserLimitSettings(ctx context.Context, userID int64) (*domain.UserLimitSetting, error) {
	if m.GetUserLimitSettingsFunc != nil {
		return m.GetUserLimitSettingsFunc(ctx, userID)
	}
	return nil, nil
}
func (m *mockSourceConfigService) GetSourceRateLimitSettings(ctx context.Context, sourceID string) (*domain.SourceRateLimitSetting, error) {
	if m.GetSourceRateLimitSettingsFunc != nil {
		return m.GetSourceRateLimitSettingsFunc(ctx, sourceID)
	}
	return nil, nil
}
func (m *mockSourceConfigService) GetSource(ctx context.Context, sourceID string) (*domain.SourceConfig, error) {
	return nil, nil
}
func (m *mockSourceConfigService) ListSources(ctx context.Context) ([]*domain.SourceConfig, error) {
	return nil, nil
}
func (m *mockSourceConfigService) CreateSource(ctx context.Context, cfg domain.SourceConfig) (*domain.SourceConfig, error) {
	return nil, nil
}
func (m *mockSourceConfigService) UpdateSourceSettings(ctx context.Context, sourceID string, settings domain.SourceOverallSettings) error {
	return nil
}
func (m *mockSourceConfigService) DeleteSource(ctx context.Context, sourceID string) error {
	return nil
}
func (m *mockSourceConfigService) UpdateIPLimitSettings(ctx context.Context, settings domain.IPLimitSetting) error {
	return nil
}
func (m *mockSourceConfigService) UpdateUserLimitSettings(ctx context.Context, userID int64, settings domain.UserLimitSetting) error {
	return nil
}
func (m *mockSourceConfigService) UpdateSourceRateLimitSettings(ctx context.Context, sourceID string, settings domain.SourceRateLimitSetting) error {
	return nil
}
func (m *mockSourceConfigService) InvalidateCacheForSource(sourceID string) {}
func (m *mockSourceConfigService) InvalidateAllCaches()                     {}

// ============================================================================
//  测试辅助函数 (Test Helpers)
// ============================================================================

var testHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
})

func addClaimToContext(r *http.Request, claim *service.Claim) *http.Request {
	return r.WithContext(service.ContextWithClaim(r.Context(), claim))
}

// ============================================================================
//  测试用例 (Test Cases)
// ============================================================================

func TestQueryRateLimiter_Global(t *testing.T) {
	mockService := &mockSourceConfigService{}
	limiter := vizmiddleware.NewQueryRateLimiter(mockService, 2, 2)
	middleware := limiter.Global(testHandler)

	t.Run("should allow initial requests", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			req := httptest.NewRequest("GET", "/", nil)
			rr := httptest.NewRecorder()
			middleware.ServeHTTP(rr, req)
			if status := rr.Code; status != http.StatusOK {
				t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
			}
		}
	})

	t.Run("should block subsequent requests", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		rr := httptest.NewRecorder()
		middleware.ServeHTTP(rr, req)
		if status := rr.Code; status != http.StatusTooManyRequests {
			t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusTooManyRequests)
		}
	})

	t.Run("should allow requests again after delay", func(t *testing.T) {
		time.Sleep(1 * time.Second)
		req := httptest.NewRequest("GET", "/", nil)
		rr := httptest.NewRecorder()
		middleware.ServeHTTP(rr, req)
		if status := rr.Code; status != http.StatusOK {
			t.Errorf("handler returned wrong status code after delay: got %v want %v", status, http.StatusOK)
		}
	})
}

func TestQueryRateLimiter_PerIP(t *testing.T) {
	limiter := vizmiddleware.NewQueryRateLimiter(nil, 100, 100)
	limiter.SetIPDefaultRateForTest(1, 1)
	middleware := limiter.PerIP(testHandler)

	t.Run("should limit requests from the same IP", func(t *testing.T) {
		req1 := httptest.NewRequest("GET", "/", nil)
		req1.RemoteAddr = "192.0.2.1:12345"
		rr1 := httptest.NewRecorder()
		middleware.ServeHTTP(rr1, req1)
		if rr1.Code != http.StatusOK {
			t.Fatal("First request from IP 1 should be allowed")
		}

		req2 := httptest.NewRequest("GET", "/", nil)
		req2.RemoteAddr = "192.0.2.1:12345"
		rr2 := httptest.NewRecorder()
		middleware.ServeHTTP(rr2, req2)
		if rr2.Code != http.StatusTooManyRequests {
			t.Errorf("Second request from IP 1 should be blocked, got %d", rr2.Code)
		}
	})

	t.Run("should not affect requests from a different IP", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "192.0.2.2:54321"
		rr := httptest.NewRecorder()
		middleware.ServeHTTP(rr, req)
		if status := rr.Code; status != http.StatusOK {
			t.Errorf("Request from IP 2 should be allowed, but got %v", status)
		}
	})
}

func TestQueryRateLimiter_PerUser(t *testing.T) {
	claimUser1 := &service.Claim{ID: 1, Role: "user"}
	claimUser2 := &service.Claim{ID: 2, Role: "user"}

	t.Run("should use default limit for user without specific settings", func(t *testing.T) {
		mockService := &mockSourceConfigService{}
		limiter := vizmiddleware.NewQueryRateLimiter(mockService, 100, 100)
		middleware := limiter.PerUser(testHandler)

		for i := 0; i < 5; i++ {
			req := httptest.NewRequest("GET", "/", nil)
			req = addClaimToContext(req, claimUser1)
			rr := httptest.NewRecorder()
			middleware.ServeHTTP(rr, req)
			if rr.Code != http.StatusOK {
				t.Fatalf("Request %d for user 1 should be allowed, got %d", i+1, rr.Code)
			}
		}
	})

	t.Run("should use specific limit for user with settings", func(t *testing.T) {
		mockService := &mockSourceConfigService{}
		mockService.GetUserLimitSettingsFunc = func(ctx context.Context, userID int64) (*domain.UserLimitSetting, error) {
			if userID == 2 {
				return &domain.UserLimitSetting{RateLimitPerSecond: 1.0, BurstSize: 1}, nil
			}
			return nil, nil
		}
		limiter := vizmiddleware.NewQueryRateLimiter(mockService, 100, 100)
		middleware := limiter.PerUser(testHandler)

		req1 := httptest.NewRequest("GET", "/", nil)
		req1 = addClaimToContext(req1, claimUser2)
		rr1 := httptest.NewRecorder()
		middleware.ServeHTTP(rr1, req1)
		if rr1.Code != http.StatusOK {
			t.Fatal("First request for user 2 should be allowed")
		}

		req2 := httptest.NewRequest("GET", "/", nil)
		req2 = addClaimToContext(req2, claimUser2)
		rr2 := httptest.NewRecorder()
		middleware.ServeHTTP(rr2, req2)
		if rr2.Code != http.StatusTooManyRequests {
			t.Errorf("Second request for user 2 should be blocked, got %d", rr2.Code)
		}
	})

	t.Run("should not limit unauthenticated users", func(t *testing.T) {
		mockService := &mockSourceConfigService{}
		limiter := vizmiddleware.NewQueryRateLimiter(mockService, 100, 100)
		middleware := limiter.PerUser(testHandler)

		req := httptest.NewRequest("GET", "/", nil)
		rr := httptest.NewRecorder()
		middleware.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("Unauthenticated request should pass, got %d", rr.Code)
		}
	})
}

func TestQueryRateLimiter_PerSource(t *testing.T) {
	mockService := &mockSourceConfigService{}
	limiter := vizmiddleware.NewQueryRateLimiter(mockService, 100, 100)
	middleware := limiter.PerSource(testHandler)

	mockService.GetSourceRateLimitSettingsFunc = func(ctx context.Context, sourceID string) (*domain.SourceRateLimitSetting, error) {
		if sourceID == "sales" || sourceID == "inventory" {
			return &domain.SourceRateLimitSetting{RateLimitPerSecond: 1.0, BurstSize: 1}, nil
		}
		return nil, nil
	}

	t.Run("should limit source from JSON body", func(t *testing.T) {
		jsonBody, _ := json.Marshal(map[string]string{"data_source_id": "sales"})
		req1 := httptest.NewRequest("POST", "/data/query", bytes.NewBuffer(jsonBody))
		req1.Header.Set("Content-Type", "application/json")
		rr1 := httptest.NewRecorder()
		middleware.ServeHTTP(rr1, req1)
		if rr1.Code != http.StatusOK {
			t.Fatalf("First request for source 'sales' should be allowed, got %d", rr1.Code)
		}

		jsonBody, _ = json.Marshal(map[string]string{"data_source_id": "sales"})
		req2 := httptest.NewRequest("POST", "/data/query", bytes.NewBuffer(jsonBody))
		req2.Header.Set("Content-Type", "application/json")
		rr2 := httptest.NewRecorder()
		middleware.ServeHTTP(rr2, req2)
		if rr2.Code != http.StatusTooManyRequests {
			t.Errorf("Second request for source 'sales' should be blocked, got %d", rr2.Code)
		}
	})

	t.Run("should limit source from URL query", func(t *testing.T) {
		req1 := httptest.NewRequest("GET", "/some_path?source=inventory", nil)
		rr1 := httptest.NewRecorder()
		middleware.ServeHTTP(rr1, req1)
		if rr1.Code != http.StatusOK {
			t.Fatal("First GET request for source 'inventory' should be allowed")
		}

		req2 := httptest.NewRequest("GET", "/some_path?source=inventory", nil)
		rr2 := httptest.NewRecorder()
		middleware.ServeHTTP(rr2, req2)
		if rr2.Code != http.StatusTooManyRequests {
			t.Errorf("Second GET request for source 'inventory' should be blocked, got %d", rr2.Code)
		}
	})

	t.Run("should not affect other sources", func(t *testing.T) {
		jsonBody, _ := json.Marshal(map[string]string{"data_source_id": "marketing"})
		req := httptest.NewRequest("POST", "/data/query", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		middleware.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("Request for source 'marketing' should be allowed, got %d", rr.Code)
		}
	})

	t.Run("should pass if no source id is provided", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/no_source_path", nil)
		rr := httptest.NewRecorder()
		middleware.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("Request without source id should pass, got %d", rr.Code)
		}
	})
}
