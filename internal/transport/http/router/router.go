// file: internal/transport/http/router/router.go
package router

import (
	"VizQuery/internal/core/domain"
	"VizQuery/internal/core/port"
	"VizQuery/internal/engine"
	"VizQuery/internal/service"
	"VizQuery/internal/transport/http/middleware"
	"VizQuery/internal/vizmiddleware"
	"VizQuery/internal/vizobserve"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// batchMaxQueries 限制单次批量请求可携带的查询数量，防止单个请求占满执行资源。
const batchMaxQueries = 20

// Dependencies 结构体用于将所有依赖项注入到路由器中
type Dependencies struct {
	Query              *engine.QueryService
	ConfigService      port.SourceConfigService
	AuthDB             *sql.DB
	Limiter            *vizmiddleware.QueryRateLimiter
	LoginLock          *vizmiddleware.LoginFailureLock
	SetupToken         string
	SetupTokenDeadline time.Time
}

// New 创建并配置一个全新的、基于 Gin 的 HTTP 路由器 (V1 版本)
func New(deps Dependencies) http.Handler {
	router := gin.Default()

	// --- 配置全局中间件 ---
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(vizobserve.PrometheusMiddleware())
	router.Use(middleware.ErrorHandling())

	router.GET("/metrics", gin.WrapH(vizobserve.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authService := service.NewAuthenticator(deps.AuthDB)
	v1 := router.Group("/api/v1")
	{
		// --- 系统/认证平面 (System/Auth Plane) ---
		authGroup := v1.Group("/auth")
		{
			login := loginHandler(deps.AuthDB)
			if deps.LoginLock != nil {
				authGroup.POST("/login", wrapNetHTTP(deps.LoginLock.Middleware), login)
			} else {
				authGroup.POST("/login", login)
			}
			// 未来可在这里添加 /refresh, /logout 等
		}
		systemGroup := v1.Group("/system")
		{
			systemGroup.Any("/setup", setupHandler(deps.AuthDB, deps.SetupToken, deps.SetupTokenDeadline))
			systemGroup.GET("/status", statusHandler(deps.AuthDB))
		}

		// --- 元数据/发现平面 (Metadata/Discovery Plane) ---
		metaGroup := v1.Group("/meta")
		metaGroup.Use(authMiddleware(authService)) // 发现API也需要认证
		{
			metaGroup.GET("/sources", sourcesHandler(deps.ConfigService))
			metaGroup.GET("/sources/:sourceID/columns", columnsHandler(deps.Query))
		}

		// --- 数据平面 (Data Plane) ---
		dataGroup := v1.Group("/data")
		dataGroup.Use(authMiddleware(authService)) // 数据API需要认证
		if deps.Limiter != nil {
			dataGroup.Use(wrapNetHTTP(deps.Limiter.FullQueryChain))
		}
		{
			dataGroup.POST("/query", queryHandler(deps.Query))
			dataGroup.POST("/query/batch", batchQueryHandler(deps.Query))
			dataGroup.GET("/sources/:sourceID/preview", previewHandler(deps.Query))
		}

		// --- 控制平面 (Control Plane) ---
		adminGroup := v1.Group("/admin")
		adminGroup.Use(authMiddleware(authService), requireAdmin()) // 控制平面需要管理员权限
		{
			cacheGroup := adminGroup.Group("/cache")
			{
				cacheGroup.POST("/invalidate", adminInvalidateCacheHandler(deps.Query, deps.ConfigService))
				cacheGroup.GET("/stats", adminCacheStatsHandler(deps.Query))
			}

			securityGroup := adminGroup.Group("/security")
			{
				securityGroup.GET("/rate-limiting/global", adminGetIPLimitSettingsHandler(deps.ConfigService))
				securityGroup.PUT("/rate-limiting/global", adminUpdateIPLimitSettingsHandler(deps.ConfigService))
				securityGroup.GET("/rate-limiting/users/:userID", adminGetUserLimitHandler(deps.ConfigService))
				securityGroup.PUT("/rate-limiting/users/:userID", adminUpdateUserLimitHandler(deps.ConfigService))
			}

			// 按资源 "sources" 组织数据源相关的配置
			sourcesAdmin := adminGroup.Group("/resources/sources")
			{
				sourcesAdmin.GET("", adminListSourcesHandler(deps.ConfigService))
				sourcesAdmin.POST("", adminCreateSourceHandler(deps.ConfigService))

				sourceGroup := sourcesAdmin.Group("/:sourceID")
				{
					sourceGroup.GET("", adminGetSourceHandler(deps.ConfigService))
					sourceGroup.PUT("/settings", adminUpdateSourceSettingsHandler(deps.ConfigService))
					sourceGroup.DELETE("", adminDeleteSourceHandler(deps.ConfigService))
					sourceGroup.GET("/rate-limit", adminGetSourceRateLimitHandler(deps.ConfigService))
					sourceGroup.PUT("/rate-limit", adminUpdateSourceRateLimitHandler(deps.ConfigService))
				}
			}
		}
	}

	return router
}

// =============================================================================
//  Gin 中间件 (Middleware)
// =============================================================================

// wrapNetHTTP 将一个标准 net/http 中间件集成到 gin 流程中
func wrapNetHTTP(mw func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Request = r
			c.Next()
		}))
		handler.ServeHTTP(c.Writer, c.Request)
		if c.Writer.Written() {
			c.Abort()
		}
	}
}

// authMiddleware 是一个将 service.Authenticator 集成到 gin 流程的中间件
func authMiddleware(auth *service.Authenticator) gin.HandlerFunc {
	return wrapNetHTTP(auth.Middleware)
}

// requireAdmin 是一个确保只有管理员角色才能访问的中间件
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := service.ClaimFrom(c.Request)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "需要认证"})
			return
		}
		if claims.Role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "需要管理员权限"})
			return
		}
		c.Next()
	}
}

// =============================================================================
//  元数据平面处理器
// =============================================================================

// sourceSummary 是元数据接口返回的数据源摘要，不暴露 Location 等内部细节。
type sourceSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OrgID     string `json:"org_id,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
	Kind      string `json:"kind"`
	Enabled   bool   `json:"enabled"`
}

// sourcesHandler 返回所有已注册的数据源摘要
func sourcesHandler(configService port.SourceConfigService) gin.HandlerFunc {
	return func(c *gin.Context) {
		configs, err := configService.ListSources(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "获取数据源列表失败: " + err.Error()})
			return
		}
		summaries := make([]sourceSummary, 0, len(configs))
		for _, cfg := range configs {
			summaries = append(summaries, sourceSummary{
				ID:        cfg.ID,
				Name:      cfg.Name,
				OrgID:     cfg.OrgID,
				ProjectID: cfg.ProjectID,
				Kind:      cfg.Kind,
				Enabled:   cfg.Enabled,
			})
		}
		c.JSON(http.StatusOK, gin.H{"data": summaries})
	}
}

// columnsHandler 返回指定数据源的列名列表，用于图表配置界面的字段选择
func columnsHandler(query *engine.QueryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sourceID := c.Param("sourceID")
		cols, err := query.Columns(c.Request.Context(), sourceID)
		if err != nil {
			log.Printf("警告: [API /meta] 获取数据源 '%s' 列信息失败: %v", sourceID, err)
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": cols})
	}
}

// =============================================================================
//  数据平面处理器
// =============================================================================

// queryPayload 是单次查询请求的载荷
type queryPayload struct {
	DataSourceID string                    `json:"data_source_id" binding:"required"`
	Query        string                    `json:"query" binding:"required"`
	Filters      []domain.FilterDescriptor `json:"filters"`
}

// queryHandler 处理统一的数据查询请求。
// 约定：无论成功失败都返回 HTTP 200，失败时 success=false 且 data/columns 为空数组，
// 保证仪表盘端拿到的响应形状永远一致。
func queryHandler(query *engine.QueryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		vizobserve.TotalReq.Inc()

		var reqBody queryPayload
		if err := c.ShouldBindJSON(&reqBody); err != nil {
			vizobserve.FailReq.Inc()
			c.JSON(http.StatusOK, domain.FailedResult("无效的请求体: "+err.Error()))
			return
		}

		result, err := query.Execute(c.Request.Context(), reqBody.DataSourceID, reqBody.Query, reqBody.Filters)
		if err != nil {
			vizobserve.FailReq.Inc()
			log.Printf("警告: [API /data/query] 数据源 '%s' 查询失败: %v", reqBody.DataSourceID, err)
			c.JSON(http.StatusOK, domain.FailedResult(err.Error()))
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// batchQueryHandler 并发执行多条查询，常用于仪表盘整页刷新。
// 单条失败不影响其他条目，结果顺序与请求顺序一致。
func batchQueryHandler(query *engine.QueryService) gin.HandlerFunc {
	type requestBody struct {
		Queries []queryPayload `json:"queries" binding:"required"`
	}

	return func(c *gin.Context) {
		vizobserve.TotalReq.Inc()

		var reqBody requestBody
		if err := c.ShouldBindJSON(&reqBody); err != nil {
			vizobserve.FailReq.Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体: " + err.Error()})
			return
		}
		if len(reqBody.Queries) == 0 {
			c.JSON(http.StatusOK, gin.H{"results": []*domain.QueryResult{}})
			return
		}
		if len(reqBody.Queries) > batchMaxQueries {
			c.JSON(http.StatusBadRequest, gin.H{"error": "批量查询数量超出上限"})
			return
		}

		results := make([]*domain.QueryResult, len(reqBody.Queries))
		g, ctx := errgroup.WithContext(c.Request.Context())
		g.SetLimit(4)
		for i, q := range reqBody.Queries {
			g.Go(func() error {
				res, err := query.Execute(ctx, q.DataSourceID, q.Query, q.Filters)
				if err != nil {
					vizobserve.FailReq.Inc()
					results[i] = domain.FailedResult(err.Error())
					return nil // 单条失败不中断整批
				}
				results[i] = res
				return nil
			})
		}
		_ = g.Wait()

		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}

// previewHandler 返回数据源前若干行，供数据源配置界面快速确认数据形状
func previewHandler(query *engine.QueryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sourceID := c.Param("sourceID")
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit 参数必须是整数"})
				return
			}
			limit = parsed
		}

		result, err := query.Preview(c.Request.Context(), sourceID, limit)
		if err != nil {
			log.Printf("警告: [API /data] 预览数据源 '%s' 失败: %v", sourceID, err)
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// =============================================================================
//  系统与认证处理器
// =============================================================================

// statusHandler 返回系统状态，用于前端判断是否需要进入安装流程
func statusHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if service.UserCount(db) > 0 {
			c.JSON(http.StatusOK, gin.H{"status": "ready_for_login"})
		} else {
			c.JSON(http.StatusOK, gin.H{"status": "needs_setup"})
		}
	}
}

// loginHandler 处理用户登录请求
func loginHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			User string `form:"user" json:"user" binding:"required"`
			Pass string `form:"pass" json:"pass" binding:"required"`
		}
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "用户名或密码不能为空"})
			return
		}
		id, role, ok := service.CheckUser(db, req.User, req.Pass)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "用户名或密码无效"})
			return
		}
		token, err := service.GenToken(id, role)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "生成令牌失败"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "user": gin.H{"id": id, "username": req.User, "role": role}})
	}
}

// setupHandler 处理首次安装时的管理员创建请求
func setupHandler(db *sql.DB, token string, deadline time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			if service.UserCount(db) > 0 {
				c.JSON(http.StatusForbidden, gin.H{"error": "系统已安装，无法获取安装令牌"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"token": token})
			return
		}

		if c.Request.Method == http.MethodPost {
			if service.UserCount(db) > 0 {
				c.JSON(http.StatusForbidden, gin.H{"error": "系统已存在管理员账户，无法重复设置"})
				return
			}
			var req struct {
				Token string `form:"token" json:"token" binding:"required"`
				User  string `form:"user" json:"user" binding:"required"`
				Pass  string `form:"pass" json:"pass" binding:"required"`
			}
			if err := c.ShouldBind(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "令牌、用户名或密码不能为空"})
				return
			}
			if req.Token != token || token == "" || time.Now().After(deadline) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "无效或过期的安装令牌"})
				return
			}
			if err := service.CreateAdmin(db, req.User, req.Pass); err != nil {
				log.Printf("ERROR: [API /setup] 创建管理员 '%s' 失败: %v", req.User, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "创建管理员失败: " + err.Error()})
				return
			}
			id, _, _ := service.CheckUser(db, req.User, req.Pass)
			jwtToken, err := service.GenToken(id, "admin")
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "为新管理员生成令牌失败"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"token": jwtToken, "user": gin.H{"id": id, "username": req.User, "role": "admin"}})
			return
		}
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "仅支持 GET 和 POST 方法"})
	}
}

// =============================================================================
//  管理员 API 处理器
// =============================================================================

// adminInvalidateCacheHandler 清除查询结果缓存。
// 请求体中的 data_source_id 为空时清空全部缓存。
func adminInvalidateCacheHandler(query *engine.QueryService, configService port.SourceConfigService) gin.HandlerFunc {
	type invalidatePayload struct {
		DataSourceID string `json:"data_source_id"`
	}

	return func(c *gin.Context) {
		var payload invalidatePayload
		// 允许空请求体，等价于清空全部
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&payload); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "无效的JSON请求体: " + err.Error()})
				return
			}
		}

		query.InvalidateCache(payload.DataSourceID)
		if payload.DataSourceID == "" {
			configService.InvalidateAllCaches()
			log.Printf("信息: [API /admin/cache] 管理员清空了全部查询结果缓存")
		} else {
			log.Printf("信息: [API /admin/cache] 管理员清除了数据源 '%s' 的查询结果缓存", payload.DataSourceID)
		}
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	}
}

// adminCacheStatsHandler 返回结果缓存的当前状态
func adminCacheStatsHandler(query *engine.QueryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"entries": query.CacheLen()})
	}
}

func adminListSourcesHandler(configService port.SourceConfigService) gin.HandlerFunc {
	return func(c *gin.Context) {
		configs, err := configService.ListSources(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "获取数据源列表失败: " + err.Error()})
			return
		}
		if configs == nil {
			configs = []*domain.SourceConfig{}
		}
		c.JSON(http.StatusOK, gin.H{"data": configs})
	}
}

func adminCreateSourceHandler(configService port.SourceConfigService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload domain.SourceConfig
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的JSON请求体: " + err.Error()})
			return
		}
		created, err := configService.CreateSource(c.Request.Context(), payload)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "注册数据源失败: " + err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": created})
	}
}

func adminGetSourceHandler(configService port.SourceConfigService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sourceID := c.Param("sourceID")
		cfg, err := configService.GetSource(c.Request.Context(), sourceID)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": cfg})
	}
}

func adminUpdateSourceSettingsHandler(configService port.SourceConfigService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sourceID := c.Param("sourceID")
		// 使用 domain.SourceOverallSettings 来绑定 payload，支持部分更新
		var payload domain.SourceOverallSettings
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的JSON请求体: " + err.Error()})
			return
		}

		if err := configService.UpdateSourceSettings(c.Request.Context(), sourceID, payload); err != nil {
			if errors.Is(err, port.ErrSourceNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "数据源 '" + sourceID + "' 未找到"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "更新数据源设置失败: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "数据源配置已更新"})
	}
}

func adminDeleteSourceHandler(configService port.SourceConfigService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sourceID := c.Param("sourceID")
		if err := configService.DeleteSource(c.Request.Context(), sourceID); err != nil {
			if errors.Is(err, port.ErrSourceNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "数据源 '" + sourceID + "' 未找到"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "注销数据源失败: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	}
}

func adminGetIPLimitSettingsHandler(configService port.SourceConfigService) gin.HandlerFunc {
	return func(c *gin.Context) {
		settings, err := configService.GetIPLimitSettings(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "获取配置失败: " + err.Error()})
			return
		}
		if settings == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "未找到IP速率限制配置"})
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}

func adminUpdateIPLimitSettingsHandler(configService port.SourceConfigService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload domain.IPLimitSetting
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的JSON请求体: " + err.Error()})
			return
		}
		if err := configService.UpdateIPLimitSettings(c.Request.Context(), payload); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "更新配置失败: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	}
}

func adminGetUserLimitHandler(configService port.SourceConfigService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userID 必须是整数"})
			return
		}
		settings, err := configService.GetUserLimitSettings(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "获取配置失败: " + err.Error()})
			return
		}
		if settings == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "该用户未设置个性化速率限制"})
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}

func adminUpdateUserLimitHandler(configService port.SourceConfigService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userID 必须是整数"})
			return
		}
		var payload domain.UserLimitSetting
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的JSON请求体: " + err.Error()})
			return
		}
		if err := configService.UpdateUserLimitSettings(c.Request.Context(), userID, payload); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "更新配置失败: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	}
}

func adminGetSourceRateLimitHandler(configService port.SourceConfigService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sourceID := c.Param("sourceID")
		settings, err := configService.GetSourceRateLimitSettings(c.Request.Context(), sourceID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "获取配置失败: " + err.Error()})
			return
		}
		if settings == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "未找到该数据源的速率限制配置"})
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}

func adminUpdateSourceRateLimitHandler(configService port.SourceConfigService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sourceID := c.Param("sourceID")
		var payload domain.SourceRateLimitSetting
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的JSON请求体: " + err.Error()})
			return
		}
		if err := configService.UpdateSourceRateLimitSettings(c.Request.Context(), sourceID, payload); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "更新配置失败: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	}
}
