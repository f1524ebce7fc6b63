// file: internal/service/db_init.go
package service

import (
	"database/sql"
	"fmt"
	"log"
)

// InitPlatformTables 负责在系统启动时，检查并创建/更新所有平台级的系统管理表。
func InitPlatformTables(db *sql.DB) error {
	if err := initUserTable(db); err != nil {
		return fmt.Errorf("初始化用户表失败: %w", err)
	}
	if err := initSourceConfigTables(db); err != nil {
		return fmt.Errorf("初始化数据源配置表失败: %w", err)
	}
	if err := initGlobalSettingsTable(db); err != nil {
		return fmt.Errorf("初始化全局设置表失败: %w", err)
	}

	log.Println("✅ 数据库: 所有系统表结构初始化/检查完成。")
	return nil
}

// initUserTable 创建用户表
func initUserTable(db *sql.DB) error {
	query := `
    CREATE TABLE IF NOT EXISTS _user(
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        username TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        role TEXT NOT NULL,
        rate_limit_per_second REAL, -- for user-specific rate limiting
        burst_size INTEGER
    );`
	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("创建 '_user' 表失败: %w", err)
	}
	// 为常用查询创建索引
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_user_username ON _user (username);`)
	return err
}

// initSourceConfigTables 创建数据源注册表与每数据源的速率限制表
func initSourceConfigTables(db *sql.DB) error {
	querySources := `
    CREATE TABLE IF NOT EXISTS source_configs (
        source_id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        org_id TEXT NOT NULL DEFAULT '',
        project_id TEXT NOT NULL DEFAULT '',
        kind TEXT NOT NULL DEFAULT 'http',
        location TEXT NOT NULL DEFAULT '',
        enabled BOOLEAN NOT NULL DEFAULT TRUE,
        cache_ttl_seconds INTEGER NOT NULL DEFAULT 0,   -- 0 表示使用全局默认
        preview_ttl_seconds INTEGER NOT NULL DEFAULT 0, -- 0 表示使用全局默认
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );`
	if _, err := db.Exec(querySources); err != nil {
		return fmt.Errorf("创建 'source_configs' 表失败: %w", err)
	}

	querySourceRateLimit := `
    CREATE TABLE IF NOT EXISTS source_ratelimit_settings (
        source_id TEXT PRIMARY KEY,
        rate_limit_per_second REAL NOT NULL DEFAULT 5.0,
        burst_size INTEGER NOT NULL DEFAULT 10,
        updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );`
	if _, err := db.Exec(querySourceRateLimit); err != nil {
		return fmt.Errorf("创建 'source_ratelimit_settings' 表失败: %w", err)
	}

	return nil
}

// initGlobalSettingsTable 创建全局设置表并写入默认值
func initGlobalSettingsTable(db *sql.DB) error {
	queryGlobal := `
	CREATE TABLE IF NOT EXISTS global_settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		description TEXT,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(queryGlobal); err != nil {
		return fmt.Errorf("创建 'global_settings' 表失败: %w", err)
	}
	// 插入默认的IP速率限制与缓存TTL，如果不存在的话
	insertGlobal := `
	INSERT OR IGNORE INTO global_settings (key, value, description) VALUES
		('ip_rate_limit_per_minute', '60', '未认证IP的默认每分钟请求数'),
		('ip_burst_size', '20', '未认证IP的默认瞬时请求峰值'),
		('result_cache_ttl_seconds', '300', '查询结果缓存的默认过期秒数'),
		('preview_cache_ttl_seconds', '60', '预览结果缓存的默认过期秒数');`
	if _, err := db.Exec(insertGlobal); err != nil {
		return fmt.Errorf("插入默认全局设置失败: %w", err)
	}
	return nil
}
