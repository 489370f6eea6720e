package meter

import (
	"time"

	"LoaDamageMeter/internal/encounter"
	"LoaDamageMeter/internal/loglines"
)

// ActiveUser 本地玩家最近一次已知身份
// 该玩家的Entity可能在新ID下重建，身份信息需随时可重放
type ActiveUser struct {
	ID        string
	Name      string
	RealName  string
	ClassID   int
	Level     int
	GearLevel float64
}

// Config 会话引擎行为配置
type Config struct {
	ResetOnZoneChange      bool
	RemoveOverkillDamage   bool
	PauseOnPhaseTransition bool
	UploadLogs             bool

	BroadcastInterval time.Duration
	PhaseDebounce     time.Duration
	ResetDelay        time.Duration

	PlayerTimeout  time.Duration
	BossTimeout    time.Duration
	DefaultTimeout time.Duration

	Format *loglines.LineFormat
}

// DefaultConfig 默认引擎配置（与上游默认行为一致）
func DefaultConfig() *Config {
	return &Config{
		ResetOnZoneChange:      true,
		RemoveOverkillDamage:   true,
		PauseOnPhaseTransition: true,
		UploadLogs:             false,
		BroadcastInterval:      200 * time.Millisecond,
		PhaseDebounce:          100 * time.Millisecond,
		ResetDelay:             2 * time.Second,
		PlayerTimeout:          5 * time.Minute,
		BossTimeout:            5 * time.Minute,
		DefaultTimeout:         time.Minute,
		Format:                 loglines.DefaultFormat(),
	}
}

// Sink 结算会话的持久化/上传协作方
// Archive在引擎之外的goroutine中执行，失败只记日志，不回滚内存态
type Sink interface {
	Archive(session *encounter.Session, upload bool)
}

// BossHealthNotice "show-boss-health"事件载荷：Boss及其血条数量
type BossHealthNotice struct {
	ID        string `json:"id"`
	NpcID     int    `json:"npcId"`
	Name      string `json:"name"`
	CurrentHP int64  `json:"currentHp"`
	MaxHP     int64  `json:"maxHp"`
	Bars      int    `json:"bars"`
}

// BossDamagedNotice "boss-damaged"事件载荷：只带新血量的轻量增量
type BossDamagedNotice struct {
	ID        string `json:"id"`
	CurrentHP int64  `json:"currentHp"`
	MaxHP     int64  `json:"maxHp"`
}
