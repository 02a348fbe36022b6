package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/junbin-yang/go-fsm/pkg/logger"
)

// ConfigManager 通用配置管理器
type ConfigManager struct {
	instance         interface{}  // 配置实例
	configPath       string       // 配置文件路径
	appName          string       // 应用名称
	serializer       Serializer   // 当前使用的序列化器
	forceFormat      Serializer   // 强制指定的格式（优先级最高）
	supportedFormats []Serializer // 支持的配置格式列表
	defaultPaths     []string     // 默认配置路径模板
	once             sync.Once    // 确保配置只加载一次
	mu               sync.RWMutex // 读写锁
	loadErr          error        // 加载错误
	logger           logger.Logger

	// 配置监听相关
	enableWatch           bool              // 是否启用配置监听
	watchDebounceInterval time.Duration     // 防抖间隔
	watcher               *fsnotify.Watcher // 文件监听器
	watchQuit             chan struct{}     // 监听退出信号
	closeOnce             sync.Once

	// 配置变更回调
	callbacks []func(old, new interface{})
}

// NewConfigManager 创建配置管理器实例
// cfg: 配置结构体指针（必须传入指针）
func NewConfigManager(cfg interface{}, options ...Option) *ConfigManager {
	if cfg == nil {
		panic("config instance cannot be nil")
	}
	if reflect.ValueOf(cfg).Kind() != reflect.Ptr {
		panic("config instance must be a pointer")
	}

	cm := &ConfigManager{
		instance:         cfg,
		appName:          "app",
		serializer:       &YAMLSerializer{},
		supportedFormats: []Serializer{&YAMLSerializer{}, &JSONSerializer{}},
		defaultPaths: []string{
			"./{{.AppName}}",
			"{{.ExecDir}}/{{.AppName}}",
			"/etc/{{.AppName}}",
		},
		logger:                logger.Default(),
		watchDebounceInterval: 500 * time.Millisecond,
		watchQuit:             make(chan struct{}),
	}

	for _, opt := range options {
		opt(cm)
	}

	return cm
}

// LoadConfig 加载配置文件
// customPath: 自定义配置路径，空字符串使用默认路径
func (cm *ConfigManager) LoadConfig(customPath string) error {
	cm.once.Do(func() {
		var err error

		// 1. 处理自定义路径
		if customPath != "" {
			if err = validateConfigPath(customPath); err != nil {
				cm.loadErr = fmt.Errorf("invalid custom config path: %w", err)
				return
			}
			cm.configPath = customPath
			cm.chooseSerializer(customPath)
		} else {
			// 2. 查找默认路径
			if cm.configPath, err = cm.findDefaultConfigPath(); err != nil {
				cm.loadErr = fmt.Errorf("default config not found: %w", err)
				return
			}
		}

		// 3. 解析配置文件
		if err = cm.parseConfigFile(); err != nil {
			cm.loadErr = fmt.Errorf("parse config failed: %w", err)
			return
		}

		// 4. 应用环境变量覆盖
		if err = applyEnvOverrides(cm.instance); err != nil {
			cm.loadErr = fmt.Errorf("apply env overrides failed: %w", err)
			return
		}

		// 5. 启动配置监听（如果启用）
		if cm.enableWatch {
			if err = cm.startWatch(); err != nil {
				cm.loadErr = err
			}
		}
	})

	return cm.loadErr
}

// GetConfig 获取配置实例
func (cm *ConfigManager) GetConfig() (interface{}, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.loadErr != nil {
		return nil, cm.loadErr
	}
	if cm.configPath == "" {
		return nil, errors.New("config not initialized, call LoadConfig first")
	}
	return cm.instance, nil
}

// ConfigPath 返回实际加载的配置文件路径
func (cm *ConfigManager) ConfigPath() string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.configPath
}

// ReloadConfig 手动重新加载配置
func (cm *ConfigManager) ReloadConfig() error {
	cm.mu.RLock()
	currentPath := cm.configPath
	cm.mu.RUnlock()

	if currentPath == "" {
		return errors.New("config path not initialized")
	}
	if err := validateConfigPath(currentPath); err != nil {
		return fmt.Errorf("invalid config path: %w", err)
	}

	// 创建新实例避免覆盖原数据
	newInstance := cm.createNewInstance()

	data, err := os.ReadFile(currentPath)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := cm.serializer.Unmarshal(data, newInstance); err != nil {
		return fmt.Errorf("unmarshal config failed: %w", err)
	}
	if err := applyEnvOverrides(newInstance); err != nil {
		return fmt.Errorf("apply env overrides failed: %w", err)
	}

	cm.mu.Lock()
	oldInstance := cm.instance
	cm.instance = newInstance
	cm.loadErr = nil

	// 复制回调列表（避免死锁）
	callbacks := make([]func(old, new interface{}), len(cm.callbacks))
	copy(callbacks, cm.callbacks)
	cm.mu.Unlock()

	// 触发配置变更回调（在锁外执行）
	for _, callback := range callbacks {
		callback(oldInstance, newInstance)
	}

	return nil
}

// OnChange 注册配置变更回调
func (cm *ConfigManager) OnChange(callback func(old, new interface{})) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, callback)
}

// Close 关闭配置管理器（停止监听）
func (cm *ConfigManager) Close() {
	cm.closeOnce.Do(func() {
		close(cm.watchQuit)
		cm.mu.Lock()
		if cm.watcher != nil {
			_ = cm.watcher.Close()
			cm.watcher = nil
		}
		cm.mu.Unlock()
	})
}

/* ------------------------------ 内部方法 ------------------------------ */

// chooseSerializer 选择序列化器（强制格式 > 后缀识别 > 默认）
func (cm *ConfigManager) chooseSerializer(path string) {
	if cm.forceFormat != nil {
		cm.serializer = cm.forceFormat
		return
	}

	ext := filepath.Ext(path)
	for _, format := range cm.supportedFormats {
		for _, e := range format.GetFileExts() {
			if e == ext {
				cm.serializer = format
				return
			}
		}
	}
}

// findDefaultConfigPath 查找默认配置路径
func (cm *ConfigManager) findDefaultConfigPath() (string, error) {
	execPath, _ := os.Executable()
	execDir := filepath.Dir(execPath)

	for _, pathTpl := range cm.defaultPaths {
		basePath := replacePathVars(pathTpl, map[string]string{
			"AppName": cm.appName,
			"ExecDir": execDir,
		})

		// 先尝试无后缀文件
		if err := validateConfigPath(basePath); err == nil {
			cm.chooseSerializer(basePath)
			return basePath, nil
		}

		// 尝试带后缀的文件
		for _, format := range cm.supportedFormats {
			for _, ext := range format.GetFileExts() {
				fullPath := basePath + ext
				if err := validateConfigPath(fullPath); err == nil {
					cm.chooseSerializer(fullPath)
					return fullPath, nil
				}
			}
		}
	}

	return "", errors.New("no valid config file found (tried default paths and formats)")
}

// startWatch 启动配置文件监听
func (cm *ConfigManager) startWatch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher failed: %w", err)
	}

	// 监听所在目录，编辑器以重命名方式保存时文件监听会丢失
	if err = watcher.Add(filepath.Dir(cm.configPath)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("add watch path failed: %w", err)
	}

	cm.mu.Lock()
	cm.watcher = watcher
	cm.mu.Unlock()

	go cm.watchLoop(watcher)
	return nil
}

// watchLoop 监听文件变化循环
func (cm *ConfigManager) watchLoop(watcher *fsnotify.Watcher) {
	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	defer debounceTimer.Stop()

	target := filepath.Clean(cm.configPath)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			// 处理文件修改/创建/重命名事件
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounceTimer.Reset(cm.watchDebounceInterval)
			}

		case <-debounceTimer.C:
			if err := cm.ReloadConfig(); err != nil {
				cm.logger.Warn("config auto reload failed", logger.String("path", target), logger.GetError(err))
			} else {
				cm.logger.Info("config auto reloaded", logger.String("path", target))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			cm.logger.Error("config watch error", logger.GetError(err))

		case <-cm.watchQuit:
			return
		}
	}
}

// parseConfigFile 解析配置文件
func (cm *ConfigManager) parseConfigFile() error {
	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return fmt.Errorf("read file failed: %w", err)
	}

	if err := cm.serializer.Unmarshal(data, cm.instance); err != nil {
		return fmt.Errorf("unmarshal failed (%s): %w", cm.serializer.GetName(), err)
	}

	return nil
}

// createNewInstance 创建新的配置实例
func (cm *ConfigManager) createNewInstance() interface{} {
	val := reflect.ValueOf(cm.instance)
	return reflect.New(val.Elem().Type()).Interface()
}
