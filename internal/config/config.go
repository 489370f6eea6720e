package config

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// MeterConfig 仪表后端统一配置
type MeterConfig struct {
	Meter   MeterBehaviorConfig `mapstructure:"meter"`
	Feed    FeedConfig          `mapstructure:"feed"`
	Server  ServerConfig        `mapstructure:"server"`
	Storage StorageConfig       `mapstructure:"storage"`
	Upload  UploadConfig        `mapstructure:"upload"`
	Logging LoggingConfig       `mapstructure:"logging"`
}

// MeterBehaviorConfig 会话引擎行为开关
type MeterBehaviorConfig struct {
	ResetOnZoneChange      bool          `mapstructure:"reset_on_zone_change"`
	RemoveOverkillDamage   bool          `mapstructure:"remove_overkill_damage"`
	PauseOnPhaseTransition bool          `mapstructure:"pause_on_phase_transition"`
	BroadcastInterval      time.Duration `mapstructure:"broadcast_interval"`
	PhaseDebounce          time.Duration `mapstructure:"phase_debounce"`
	ResetDelay             time.Duration `mapstructure:"reset_delay"`
	PlayerTimeout          time.Duration `mapstructure:"player_timeout"`
	BossTimeout            time.Duration `mapstructure:"boss_timeout"`
	DefaultTimeout         time.Duration `mapstructure:"default_timeout"`
}

// FeedConfig feed协议配置
// 记录类型码随feed版本漂移，按版本下发映射而非硬编码
type FeedConfig struct {
	ProtocolVersion string         `mapstructure:"protocol_version"`
	KindCodes       map[string]int `mapstructure:"kind_codes"` // 记录类型名→类型码覆盖
	ListenAddr      string         `mapstructure:"listen_addr"` // 行feed TCP监听地址，空则仅stdin
}

// ServerConfig HTTP/WebSocket对外服务配置
type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	ReadBufferSize    int           `mapstructure:"read_buffer_size"`
	WriteBufferSize   int           `mapstructure:"write_buffer_size"`
	EnableCompression bool          `mapstructure:"enable_compression"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

// StorageConfig 遭遇战归档配置
type StorageConfig struct {
	EncounterDir string        `mapstructure:"encounter_dir"`
	Compress     bool          `mapstructure:"compress"`
	DatabaseDSN  string        `mapstructure:"database_dsn"` // 非空时同时归档到PostgreSQL
	MaxRecents   int           `mapstructure:"max_recents"`
	RecentsScan  time.Duration `mapstructure:"recents_scan"`
}

// UploadConfig 远端上传配置
type UploadConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	URL      string        `mapstructure:"url"`
	Key      string        `mapstructure:"key"`
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxRetry int           `mapstructure:"max_retry"`
}

// LoggingConfig 日志级别配置
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Manager viper配置管理器，支持文件监控热更新
type Manager struct {
	mu       sync.RWMutex
	v        *viper.Viper
	cfg      *MeterConfig
	path     string
	onChange func(*MeterConfig)
}

// Option 管理器选项
type Option func(*Manager)

// WithConfigPath 指定配置文件路径
func WithConfigPath(path string) Option {
	return func(m *Manager) { m.path = path }
}

// WithOnChange 注册配置热更新回调
func WithOnChange(fn func(*MeterConfig)) Option {
	return func(m *Manager) { m.onChange = fn }
}

// NewManager 创建配置管理器
func NewManager(opts ...Option) *Manager {
	m := &Manager{v: viper.New()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// setDefaults 写入全部默认值（与原行为保持一致）
func setDefaults(v *viper.Viper) {
	v.SetDefault("meter.reset_on_zone_change", true)
	v.SetDefault("meter.remove_overkill_damage", true)
	v.SetDefault("meter.pause_on_phase_transition", true)
	v.SetDefault("meter.broadcast_interval", 200*time.Millisecond)
	v.SetDefault("meter.phase_debounce", 100*time.Millisecond)
	v.SetDefault("meter.reset_delay", 2*time.Second)
	v.SetDefault("meter.player_timeout", 5*time.Minute)
	v.SetDefault("meter.boss_timeout", 5*time.Minute)
	v.SetDefault("meter.default_timeout", time.Minute)

	v.SetDefault("feed.protocol_version", "v2")
	v.SetDefault("feed.listen_addr", "")

	v.SetDefault("server.addr", ":8899")
	v.SetDefault("server.read_buffer_size", 1024)
	v.SetDefault("server.write_buffer_size", 1024)
	v.SetDefault("server.enable_compression", true)
	v.SetDefault("server.write_timeout", 5*time.Second)

	v.SetDefault("storage.encounter_dir", "encounters")
	v.SetDefault("storage.compress", true)
	v.SetDefault("storage.database_dsn", "")
	v.SetDefault("storage.max_recents", 10)
	v.SetDefault("storage.recents_scan", 5*time.Second)

	v.SetDefault("upload.enabled", false)
	v.SetDefault("upload.url", "https://api.dps.arsha.io/logs/upload")
	v.SetDefault("upload.timeout", 15*time.Second)
	v.SetDefault("upload.max_retry", 3)

	v.SetDefault("logging.level", "info")
}

// Load 加载配置；文件缺失时使用默认值
func (m *Manager) Load() (*MeterConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	setDefaults(m.v)

	if m.path != "" {
		m.v.SetConfigFile(m.path)
		if err := m.v.ReadInConfig(); err != nil {
			_, notFound := err.(viper.ConfigFileNotFoundError)
			if !notFound && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config failed: %w", err)
			}
		}
	}

	cfg := &MeterConfig{}
	if err := m.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	m.cfg = cfg
	return cfg, nil
}

// Watch 启动配置文件监控，变更后重新加载并回调
func (m *Manager) Watch() {
	if m.path == "" {
		return
	}
	m.v.OnConfigChange(func(e fsnotify.Event) {
		cfg := &MeterConfig{}
		if err := m.v.Unmarshal(cfg); err != nil {
			return
		}
		m.mu.Lock()
		m.cfg = cfg
		fn := m.onChange
		m.mu.Unlock()
		if fn != nil {
			fn(cfg)
		}
	})
	m.v.WatchConfig()
}

// Current 返回最近一次加载的配置
func (m *Manager) Current() *MeterConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}
