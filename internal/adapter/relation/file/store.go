// Package file 从本地目录提供 JSON 行集数据源。
//
// 目录下每个 <sourceID>.json 文件是一个数据源，内容为行对象数组
// （或 {"data": [...]} 包装形式，两种都接受）。文件变更通过 fsnotify
// 热加载，并在防抖后通知上层使对应数据源的查询缓存失效。
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"VizQuery/internal/core/domain"
	"VizQuery/internal/core/port"

	"github.com/fsnotify/fsnotify"
)

const debounceDuration = 200 * time.Millisecond

// Store 是 port.RelationSource 的本地文件实现。
type Store struct {
	root string

	mu        sync.RWMutex
	relations map[string]domain.Relation // sourceID -> 已加载行集

	eventTimersMu sync.Mutex
	eventTimers   map[string]*time.Timer

	// onChange 在某个数据源文件变更（防抖后）被调用，参数为 sourceID。
	// 用于联动清除上层查询结果缓存。
	onChange func(sourceID string)
}

var _ port.RelationSource = (*Store)(nil)

// New 创建文件数据源存储。rootDir 必须是已存在的目录。
func New(rootDir string, onChange func(sourceID string)) (*Store, error) {
	info, err := os.Stat(rootDir)
	if err != nil {
		return nil, fmt.Errorf("file.Store 初始化失败: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("file.Store 初始化失败: '%s' 不是目录", rootDir)
	}
	return &Store{
		root:        filepath.Clean(rootDir),
		relations:   make(map[string]domain.Relation),
		eventTimers: make(map[string]*time.Timer),
		onChange:    onChange,
	}, nil
}

func (s *Store) Type() string { return domain.SourceKindFile }

// Fetch 返回数据源的行集，首次访问时从磁盘加载。
func (s *Store) Fetch(_ context.Context, source domain.SourceConfig) (domain.Relation, error) {
	s.mu.RLock()
	rel, ok := s.relations[source.ID]
	s.mu.RUnlock()
	if ok {
		return rel, nil
	}
	return s.load(source.ID)
}

// HealthCheck 确认数据目录仍然可读。
func (s *Store) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(s.root); err != nil {
		return fmt.Errorf("%w: 数据目录不可访问: %v", port.ErrRelationUnavailable, err)
	}
	return nil
}

// load 从磁盘读取并解析 <root>/<sourceID>.json。
func (s *Store) load(sourceID string) (domain.Relation, error) {
	path := filepath.Join(s.root, sourceID+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, port.ErrSourceNotFound
		}
		return nil, fmt.Errorf("%w: 读取数据文件失败: %v", port.ErrRelationUnavailable, err)
	}

	rel, err := decodeRelation(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: 数据文件 '%s' 解析失败: %v", port.ErrRelationUnavailable, path, err)
	}

	s.mu.Lock()
	s.relations[sourceID] = rel
	s.mu.Unlock()
	return rel, nil
}

// decodeRelation 接受裸数组或 {"data": [...]} 两种文件格式。
func decodeRelation(raw []byte) (domain.Relation, error) {
	var rel domain.Relation
	if err := json.Unmarshal(raw, &rel); err == nil {
		return rel, nil
	}
	var wrapped struct {
		Data domain.Relation `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Data == nil {
		return domain.Relation{}, nil
	}
	return wrapped.Data, nil
}

// StartWatcher 启动文件监视器，热加载变更的数据文件。
func (s *Store) StartWatcher() error {
	log.Printf("[FileStore] 尝试启动文件监视器于目录: %s", s.root)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建 fsnotify watcher 失败: %w", err)
	}

	go func() {
		defer watcher.Close()
		log.Printf("信息: [FileStore] 文件监视 goroutine 已启动。")
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					log.Printf("警告: [FileStore] 文件监视器事件通道已关闭。")
					return
				}
				s.handleFsEvent(event)
			case errWatch, ok := <-watcher.Errors:
				if !ok {
					log.Printf("警告: [FileStore] 文件监视器错误通道已关闭。")
					return
				}
				log.Printf("错误: [FileStore] 文件监视器报告错误: %v", errWatch)
			}
		}
	}()

	if err := watcher.Add(s.root); err != nil {
		return fmt.Errorf("添加数据目录 '%s' 到监视器失败: %w", s.root, err)
	}
	log.Printf("信息: [FileStore] 已成功添加数据目录 '%s' 到监视器。", s.root)
	return nil
}

// handleFsEvent 对 .json 文件的变更做防抖处理。
func (s *Store) handleFsEvent(event fsnotify.Event) {
	cleanPath := filepath.Clean(event.Name)
	if !strings.HasSuffix(strings.ToLower(cleanPath), ".json") {
		return
	}

	s.eventTimersMu.Lock()
	defer s.eventTimersMu.Unlock()
	if timer, exists := s.eventTimers[cleanPath]; exists {
		timer.Stop()
	}
	s.eventTimers[cleanPath] = time.AfterFunc(debounceDuration, func() {
		s.processDebouncedEvent(cleanPath)
		s.eventTimersMu.Lock()
		delete(s.eventTimers, cleanPath)
		s.eventTimersMu.Unlock()
	})
}

// processDebouncedEvent 在防抖后丢弃内存中的旧行集并通知上层。
// 不立刻重读文件：下一次 Fetch 会按需加载，避免对从不查询的文件做无谓 IO。
func (s *Store) processDebouncedEvent(path string) {
	sourceID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	s.mu.Lock()
	delete(s.relations, sourceID)
	s.mu.Unlock()

	log.Printf("信息: [FileStore Debounced Event] 数据源 '%s' 的文件已变更，内存行集已丢弃。", sourceID)
	if s.onChange != nil {
		s.onChange(sourceID)
	}
}
