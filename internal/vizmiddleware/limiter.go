package vizmiddleware

import (
	"VizQuery/internal/core/port"
	"VizQuery/internal/service"
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// limiterEntry 存储限制器和最后访问时间，被 QueryRateLimiter 复用
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ============================================================================
//  查询性能限制器 (Query Performance Limiter)
// ============================================================================

// QueryRateLimiter 是一个统一的结构，管理所有查询性能相关的速率限制。
type QueryRateLimiter struct {
	configService port.SourceConfigService

	globalLimiter *rate.Limiter

	ipLimiters     map[string]*limiterEntry
	ipMu           sync.Mutex
	ipDefaultRate  rate.Limit
	ipDefaultBurst int

	userLimiters     map[int64]*limiterEntry
	userMu           sync.Mutex
	userDefaultRate  rate.Limit
	userDefaultBurst int

	sourceLimiters map[string]*limiterEntry
	sourceMu       sync.Mutex
}

// NewQueryRateLimiter 创建一个新的、功能完备的查询速率限制器。
func NewQueryRateLimiter(cs port.SourceConfigService, globalRate float64, globalBurst int) *QueryRateLimiter {
	qrl := &QueryRateLimiter{
		configService: cs,

		globalLimiter: rate.NewLimiter(rate.Limit(globalRate), globalBurst),

		ipLimiters:     make(map[string]*limiterEntry),
		ipDefaultRate:  1.0, // 默认 60 req/min
		ipDefaultBurst: 20,

		userLimiters:     make(map[int64]*limiterEntry),
		userDefaultRate:  5.0, // 已认证用户默认 5 req/s
		userDefaultBurst: 15,

		sourceLimiters: make(map[string]*limiterEntry),
	}

	qrl.loadIPDefaultSettings()
	go qrl.cleanupIPs()
	go qrl.cleanupUsers()
	go qrl.cleanupSources()

	log.Printf(
		"信息: [Query Limiter] 初始化完成。全局限制: %.2f req/s, 峰值: %d。IP默认限制: %.2f req/s, 峰值: %d",
		globalRate, globalBurst, qrl.ipDefaultRate, qrl.ipDefaultBurst,
	)

	return qrl
}

// loadIPDefaultSettings 从数据库加载IP限制的默认配置。
func (qrl *QueryRateLimiter) loadIPDefaultSettings() {
	if qrl.configService == nil {
		return
	}
	settings, err := qrl.configService.GetIPLimitSettings(context.Background())
	if err == nil && settings != nil {
		qrl.ipDefaultRate = rate.Limit(settings.RateLimitPerMinute / 60.0)
		qrl.ipDefaultBurst = settings.BurstSize
		log.Printf("信息: [Query Limiter] 已从数据库加载IP速率限制默认值 (Rate: %.2f/min, Burst: %d)", settings.RateLimitPerMinute, settings.BurstSize)
	} else if err != nil {
		log.Printf("警告: [Query Limiter] 从数据库加载IP速率限制默认值失败: %v。将使用硬编码的默认值。", err)
	}
}

// cleanupIPs 定期清理不活跃的IP条目
func (qrl *QueryRateLimiter) cleanupIPs() {
	for {
		time.Sleep(10 * time.Minute)
		qrl.ipMu.Lock()
		for ip, entry := range qrl.ipLimiters {
			if time.Since(entry.lastSeen) > 15*time.Minute {
				delete(qrl.ipLimiters, ip)
			}
		}
		qrl.ipMu.Unlock()
	}
}

// cleanupUsers 定期清理不活跃的用户条目
func (qrl *QueryRateLimiter) cleanupUsers() {
	for {
		time.Sleep(10 * time.Minute)
		qrl.userMu.Lock()
		for id, entry := range qrl.userLimiters {
			if time.Since(entry.lastSeen) > 15*time.Minute {
				delete(qrl.userLimiters, id)
			}
		}
		qrl.userMu.Unlock()
	}
}

// cleanupSources 定期清理不活跃的数据源条目
func (qrl *QueryRateLimiter) cleanupSources() {
	for {
		time.Sleep(10 * time.Minute)
		qrl.sourceMu.Lock()
		for id, entry := range qrl.sourceLimiters {
			if time.Since(entry.lastSeen) > 15*time.Minute {
				delete(qrl.sourceLimiters, id)
			}
		}
		qrl.sourceMu.Unlock()
	}
}

// SetIPDefaultRateForTest 仅供测试调整IP默认限速。
func (qrl *QueryRateLimiter) SetIPDefaultRateForTest(r rate.Limit, burst int) {
	qrl.ipMu.Lock()
	defer qrl.ipMu.Unlock()
	qrl.ipDefaultRate = r
	qrl.ipDefaultBurst = burst
}

// ==================================================================
//  模块化的中间件方法
// ==================================================================

// Global 返回全局限制中间件
func (qrl *QueryRateLimiter) Global(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !qrl.globalLimiter.Allow() {
			errResp(w, http.StatusTooManyRequests, "系统繁忙，请稍后再试 (global limit)")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PerIP 返回IP限制中间件
func (qrl *QueryRateLimiter) PerIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r)
		qrl.ipMu.Lock()
		entry, exists := qrl.ipLimiters[ip]
		if !exists {
			limiter := rate.NewLimiter(qrl.ipDefaultRate, qrl.ipDefaultBurst)
			entry = &limiterEntry{limiter: limiter, lastSeen: time.Now()}
			qrl.ipLimiters[ip] = entry
		}
		entry.lastSeen = time.Now()
		qrl.ipMu.Unlock()

		if !entry.limiter.Allow() {
			errResp(w, http.StatusTooManyRequests, "您的请求过于频繁，请稍后再试 (per-ip limit)")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PerUser 返回用户限制中间件
func (qrl *QueryRateLimiter) PerUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := service.ClaimFrom(r)
		if claims == nil { // 对于未认证用户，此中间件直接放行
			next.ServeHTTP(w, r)
			return
		}

		userID := claims.ID
		qrl.userMu.Lock()
		entry, exists := qrl.userLimiters[userID]
		if !exists {
			rateLimit, burstSize := qrl.userDefaultRate, qrl.userDefaultBurst // 先使用默认值
			if userSettings, err := qrl.configService.GetUserLimitSettings(r.Context(), userID); err == nil && userSettings != nil {
				rateLimit = rate.Limit(userSettings.RateLimitPerSecond)
				burstSize = userSettings.BurstSize
				log.Printf("调试: [Query Limiter] 为用户ID %d 加载了特定速率限制: %.2f req/s, burst %d", userID, rateLimit, burstSize)
			}
			limiter := rate.NewLimiter(rateLimit, burstSize)
			entry = &limiterEntry{limiter: limiter, lastSeen: time.Now()}
			qrl.userLimiters[userID] = entry
		}
		entry.lastSeen = time.Now()
		qrl.userMu.Unlock()

		if !entry.limiter.Allow() {
			errResp(w, http.StatusTooManyRequests, "您的账户请求过于频繁，请稍后再试 (per-user limit)")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PerSource 按数据源维度限流，可从 POST JSON 请求体或 URL 参数中识别数据源。
func (qrl *QueryRateLimiter) PerSource(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sourceID string

		// 优先尝试从JSON Body中解析 data_source_id，以适配查询 API
		if r.Method == http.MethodPost && strings.Contains(r.Header.Get("Content-Type"), "application/json") {
			bodyBytes, err := io.ReadAll(r.Body)
			if err != nil {
				log.Printf("WARN: [PerSource Limiter] 读取请求体失败: %v", err)
				next.ServeHTTP(w, r)
				return
			}
			// 关键：将读取过的内容重新放回 r.Body 中，以供后续的处理器使用
			r.Body.Close()
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

			// 只解析我们需要的字段，提高性能
			var extractor struct {
				DataSourceID string `json:"data_source_id"`
			}
			if err := json.Unmarshal(bodyBytes, &extractor); err == nil {
				sourceID = extractor.DataSourceID
			}
		}

		// 如果不是POST JSON请求，或解析失败，尝试回退到URL参数方式
		if sourceID == "" {
			sourceID = r.URL.Query().Get("source")
		}

		if sourceID == "" {
			next.ServeHTTP(w, r)
			return
		}

		qrl.sourceMu.Lock()
		entry, exists := qrl.sourceLimiters[sourceID]
		if !exists {
			rateLimit, burstSize := qrl.userDefaultRate, qrl.userDefaultBurst
			if srcSettings, err := qrl.configService.GetSourceRateLimitSettings(r.Context(), sourceID); err == nil && srcSettings != nil {
				rateLimit = rate.Limit(srcSettings.RateLimitPerSecond)
				burstSize = srcSettings.BurstSize
				log.Printf("调试: [Query Limiter] 为数据源 %s 加载了特定速率限制: %.2f req/s, burst %d", sourceID, rateLimit, burstSize)
			}
			limiter := rate.NewLimiter(rateLimit, burstSize)
			entry = &limiterEntry{limiter: limiter, lastSeen: time.Now()}
			qrl.sourceLimiters[sourceID] = entry
		}
		entry.lastSeen = time.Now()
		qrl.sourceMu.Unlock()

		if !entry.limiter.Allow() {
			errResp(w, http.StatusTooManyRequests, "此数据源请求过于频繁，请稍后再试 (per-source limit)")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// FullQueryChain 组合了所有四个限制层，用于核心查询API。
func (qrl *QueryRateLimiter) FullQueryChain(next http.Handler) http.Handler {
	// 顺序: Global -> IP -> User -> Source -> Handler
	return qrl.Global(qrl.PerIP(qrl.PerUser(qrl.PerSource(next))))
}

// LightweightChain 组合了基础的限制层，用于公共/轻量级API。
func (qrl *QueryRateLimiter) LightweightChain(next http.Handler) http.Handler {
	// 顺序: Global -> IP -> Handler
	return qrl.Global(qrl.PerIP(next))
}

// ==================================================================
//  按 IP 地址的严格速率限制器 (Strict Per-IP Rate Limiter)
// ==================================================================

// IPRateLimiter 结构体，用于管理IP速率限制
type IPRateLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewIPRateLimiter 创建一个新的IP速率限制器
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	limiter := &IPRateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     r,
		burst:    b,
	}
	go limiter.cleanupDaemon()
	return limiter
}

// getClientIP 从请求中获取客户端IP地址，考虑代理情况
func getClientIP(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	ip = strings.TrimSpace(strings.Split(ip, ",")[0])
	if ip != "" {
		return ip
	}
	ip = r.Header.Get("X-Real-IP")
	if ip != "" {
		return ip
	}
	ip, _, _ = net.SplitHostPort(r.RemoteAddr)
	return ip
}

// getLimiter 返回或创建指定IP的速率限制器
func (l *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, exists := l.limiters[ip]
	if !exists {
		limiter := rate.NewLimiter(l.rate, l.burst)
		l.limiters[ip] = &limiterEntry{limiter: limiter, lastSeen: time.Now()}
		return limiter
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// cleanupDaemon 定期清理不活跃的IP条目
func (l *IPRateLimiter) cleanupDaemon() {
	for {
		time.Sleep(10 * time.Minute)
		l.mu.Lock()
		for ip, entry := range l.limiters {
			if time.Since(entry.lastSeen) > 15*time.Minute {
				delete(l.limiters, ip)
			}
		}
		l.mu.Unlock()
	}
}

// Middleware 返回一个HTTP中间件
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r)
		limiter := l.getLimiter(ip)
		if !limiter.Allow() {
			errResp(w, http.StatusTooManyRequests, "请求过于频繁，请稍后再试。")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ============================================================================
//  失败计数与临时锁定 (Failure Counting & Temporary Lockout)
// ============================================================================

// LoginFailureLock 结构体，用于实现登录失败锁定逻辑
type LoginFailureLock struct {
	failureCache    *cache.Cache
	maxFailures     int
	lockoutDuration time.Duration
}

// NewLoginFailureLock 创建一个新的登录失败锁定器
func NewLoginFailureLock(maxFailures int, lockoutDuration time.Duration) *LoginFailureLock {
	return &LoginFailureLock{
		failureCache:    cache.New(5*time.Minute, 10*time.Minute),
		maxFailures:     maxFailures,
		lockoutDuration: lockoutDuration,
	}
}

// statusRecorder 是一个健壮的 http.ResponseWriter 包装器
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Flush() {
	if flusher, ok := rec.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rec.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// Middleware 返回一个特殊的中间件，用于包裹登录处理器
func (l *LoginFailureLock) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			errResp(w, http.StatusBadRequest, "无法解析表单数据: "+err.Error())
			return
		}
		username := strings.TrimSpace(r.FormValue("user"))
		ip := getClientIP(r)
		lockKey := "lock:" + ip + ":" + username

		if _, found := l.failureCache.Get(lockKey); found {
			log.Printf("警告: [Login Lock] 已锁定的账户 '%s' (来自IP: %s) 再次尝试登录。", username, ip)
			errResp(w, http.StatusUnauthorized, "用户名或密码无效")
			return
		}

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		if recorder.status == http.StatusUnauthorized {
			failureKey := "failures:" + ip + ":" + username

			// Increment 在 key 不存在时报错，此时设置初始值为 1。
			err := l.failureCache.Increment(failureKey, int64(1))
			if err != nil {
				l.failureCache.Set(failureKey, int64(1), cache.DefaultExpiration)
			}

			var currentFailures int
			if x, found := l.failureCache.Get(failureKey); found {
				currentFailures = int(x.(int64)) // 从缓存取出的值需要类型断言
			}

			log.Printf("信息: [Login Failure] 账户 '%s' (来自IP: %s) 登录失败，当前失败次数: %d", username, ip, currentFailures)

			if currentFailures >= l.maxFailures {
				l.failureCache.Set(lockKey, true, l.lockoutDuration)
				l.failureCache.Delete(failureKey)
				log.Printf("警告: [Login Lock] 账户 '%s' (来自IP: %s) 已被临时锁定 %v。", username, ip, l.lockoutDuration)
			}
		}

		if recorder.status == http.StatusOK {
			failureKey := "failures:" + ip + ":" + username
			l.failureCache.Delete(failureKey)
		}
	})
}

// errResp 的一个本地副本
func errResp(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
