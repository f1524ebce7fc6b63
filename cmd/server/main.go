// file: cmd/server/main.go

package main

import (
	"VizQuery/internal/adapter/relation/file"
	"VizQuery/internal/adapter/relation/httpapi"
	"VizQuery/internal/core/port"
	"VizQuery/internal/engine"
	"VizQuery/internal/service"
	"VizQuery/internal/service/source_config"
	"VizQuery/internal/transport/http/router"
	"VizQuery/internal/vizmiddleware"
	"VizQuery/internal/vizobserve"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/viper"

	_ "modernc.org/sqlite"
)

const version = "v0.3.0"

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

type UpstreamConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type CacheConfig struct {
	Size              int `mapstructure:"size"`
	TTLSeconds        int `mapstructure:"ttl_seconds"`
	PreviewTTLSeconds int `mapstructure:"preview_ttl_seconds"`
}

type DatasetsConfig struct {
	Directory string `mapstructure:"directory"`
}

type RateLimitConfig struct {
	GlobalRate  float64 `mapstructure:"global_rate"`
	GlobalBurst int     `mapstructure:"global_burst"`
}

type ObservabilityConfig struct {
	PprofEnabled bool   `mapstructure:"pprof_enabled"`
	PprofAddr    string `mapstructure:"pprof_addr"`
}

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Upstream      UpstreamConfig      `mapstructure:"upstream"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Datasets      DatasetsConfig      `mapstructure:"datasets"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

func main() {
	// 在日志系统完全初始化前，使用标准 log
	log.Printf("VizQuery %s 正在启动...", version)

	exePath, err := os.Executable()
	if err != nil {
		log.Fatalf("CRITICAL: 无法获取可执行文件路径: %v", err)
	}
	rootDir := filepath.Dir(filepath.Dir(exePath))

	configFilePath := filepath.Join(rootDir, "configs", "config.yaml")
	viper.SetConfigFile(configFilePath)
	setConfigDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("CRITICAL: 读取配置文件 '%s' 失败: %v", configFilePath, err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("CRITICAL: 解析配置到结构体失败: %v", err)
	}

	vizobserve.InitLogger(config.Server.LogLevel)
	slog.Info("VizQuery starting up", "version", version)
	slog.Info("检测到项目根目录", "path", rootDir)
	slog.Info("配置加载并解析成功", "path", configFilePath)

	instanceDir := filepath.Join(rootDir, "instance")
	if _, err := os.Stat(instanceDir); os.IsNotExist(err) {
		_ = os.MkdirAll(instanceDir, 0755)
	}
	registryDbPath := filepath.Join(instanceDir, "registry.db")
	sysDB, err := initRegistryDB(registryDbPath)
	if err != nil {
		log.Fatalf("CRITICAL: 初始化系统数据库失败: %v", err)
	}
	defer func() {
		slog.Info("正在关闭系统数据库连接...")
		if err := sysDB.Close(); err != nil {
			slog.Error("关闭系统数据库时发生错误", "error", err)
		}
	}()

	// 确保表结构存在
	if err := service.InitPlatformTables(sysDB); err != nil {
		log.Fatalf("CRITICAL: 初始化平台系统表失败: %v", err)
	}

	configService, err := source_config.New(sysDB, 1000, 5*time.Minute)
	if err != nil {
		slog.Error("初始化 SourceConfigService 失败", "error", err)
		os.Exit(1)
	}
	slog.Info("服务层: SourceConfigService 初始化完成")

	// queryService 在适配器之后创建，文件监视回调通过闭包延迟解引用
	var queryService *engine.QueryService
	invalidateResults := func(sourceID string) {
		if queryService != nil {
			queryService.InvalidateCache(sourceID)
		}
	}

	adapters := make(map[string]port.RelationSource)

	datasetsDir := config.Datasets.Directory
	if !filepath.IsAbs(datasetsDir) {
		datasetsDir = filepath.Join(rootDir, datasetsDir)
	}
	if _, err := os.Stat(datasetsDir); os.IsNotExist(err) {
		_ = os.MkdirAll(datasetsDir, 0755)
	}
	fileStore, err := file.New(datasetsDir, invalidateResults)
	if err != nil {
		slog.Error("初始化文件数据集存储失败", "error", err)
		os.Exit(1)
	}
	adapters[fileStore.Type()] = fileStore
	slog.Info("适配器: 文件数据集存储初始化完成", "dir", datasetsDir)

	if config.Upstream.BaseURL != "" {
		httpClient, err := httpapi.New(config.Upstream.BaseURL,
			time.Duration(config.Upstream.TimeoutSeconds)*time.Second)
		if err != nil {
			slog.Error("初始化上游 HTTP 数据源客户端失败", "error", err)
			os.Exit(1)
		}
		adapters[httpClient.Type()] = httpClient
		slog.Info("适配器: 上游 HTTP 数据源客户端初始化完成", "base_url", config.Upstream.BaseURL)
	} else {
		slog.Warn("未配置 upstream.base_url，HTTP 类型数据源不可用")
	}

	queryService, err = engine.NewQueryService(configService, adapters, engine.Options{
		CacheSize:  config.Cache.Size,
		CacheTTL:   time.Duration(config.Cache.TTLSeconds) * time.Second,
		PreviewTTL: time.Duration(config.Cache.PreviewTTLSeconds) * time.Second,
	})
	if err != nil {
		slog.Error("初始化 QueryService 失败", "error", err)
		os.Exit(1)
	}
	slog.Info("服务层: QueryService 初始化完成")

	// 配置变更联动清除对应数据源的查询结果缓存
	configService.SetInvalidationHook(invalidateResults)

	if err := fileStore.StartWatcher(); err != nil {
		slog.Warn("启动数据集文件监视器失败，热加载功能不可用", "error", err)
	} else {
		slog.Info("后台任务: 数据集文件监视器已启动")
	}

	rateLimiter := vizmiddleware.NewQueryRateLimiter(configService,
		config.RateLimit.GlobalRate, config.RateLimit.GlobalBurst)
	loginLock := vizmiddleware.NewLoginFailureLock(5, 15*time.Minute)
	slog.Info("服务层: QueryRateLimiter 初始化完成")

	var setupToken string
	var setupTokenDeadline time.Time
	if service.UserCount(sysDB) == 0 {
		setupToken = genToken()
		setupTokenDeadline = time.Now().Add(30 * time.Minute)
		slog.Warn("系统中无管理员，安装令牌已生成 (30分钟内有效)", "setup_token", setupToken)
	}

	httpRouter := router.New(
		router.Dependencies{
			Query:              queryService,
			ConfigService:      configService,
			AuthDB:             sysDB,
			Limiter:            rateLimiter,
			LoginLock:          loginLock,
			SetupToken:         setupToken,
			SetupTokenDeadline: setupTokenDeadline,
		},
	)
	slog.Info("传输层: HTTP 路由器创建完成。")

	addr := fmt.Sprintf(":%d", config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           httpRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("VizQuery 启动成功，开始监听HTTP请求...", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP服务启动失败", "error", err)
			os.Exit(1)
		}
	}()

	if config.Observability.PprofEnabled {
		vizobserve.EnablePprof(config.Observability.PprofAddr)
	}
	vizobserve.Register()
	slog.Info("监控: metrics 已注册。")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("收到停机信号，准备优雅关闭...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("HTTP服务优雅关闭失败", "error", err)
		os.Exit(1)
	}

	slog.Info("HTTP服务已成功关闭。")
	slog.Info("程序即将退出。")
}

// setConfigDefaults 设置配置缺省值，缺失的配置项不应阻止服务启动
func setConfigDefaults() {
	viper.SetDefault("server.port", 8040)
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("upstream.timeout_seconds", 15)
	viper.SetDefault("cache.size", engine.DefaultCacheSize)
	viper.SetDefault("cache.ttl_seconds", 300)
	viper.SetDefault("cache.preview_ttl_seconds", 60)
	viper.SetDefault("datasets.directory", "datasets")
	viper.SetDefault("rate_limit.global_rate", 10)
	viper.SetDefault("rate_limit.global_burst", 30)
	viper.SetDefault("observability.pprof_enabled", false)
	viper.SetDefault("observability.pprof_addr", "0.0.0.0:6060")
}

// initRegistryDB 封装了系统数据库的初始化逻辑
func initRegistryDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_journal_mode=WAL&_foreign_keys=ON&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开/创建系统数据库 '%s' 失败: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("连接系统数据库 '%s' (Ping) 失败: %w", path, err)
	}
	return db, nil
}

// genToken 生成一次性的安装令牌
func genToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "fallback_token_generation_failed"
	}
	return hex.EncodeToString(b)
}
