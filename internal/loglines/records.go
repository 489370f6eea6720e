package loglines

// 字段缺失时的字符串哨兵值
const (
	UnknownEntity = "Unknown Entity"
	UnknownSkill  = "Unknown Skill"
	UnknownClass  = "Unknown Class"
)

// RaidResult 阶段转换记录携带的团本结果类型
type RaidResult int

const (
	RaidResultEnd  RaidResult = 0 // 团本结束（含失败退场）
	RaidResultDead RaidResult = 1 // 守护者死亡；Argos每阶段也会触发
	RaidResultWipe RaidResult = 2 // 非守护者Boss死亡或团灭
)

// HitFlag 伤害修饰字段低4位的命中标志
type HitFlag int

const (
	HitFlagNormal      HitFlag = 0
	HitFlagCritical    HitFlag = 1
	HitFlagMiss        HitFlag = 2
	HitFlagInvincible  HitFlag = 3
	HitFlagDot         HitFlag = 4
	HitFlagImmune      HitFlag = 5
	HitFlagDotCritical HitFlag = 6
)

// HitOption 伤害修饰字段位4-6的站位选项
type HitOption int

const (
	HitOptionNone    HitOption = -1
	HitOptionBack    HitOption = 0
	HitOptionFrontal HitOption = 1
	HitOptionFlank   HitOption = 2
)

// Record 一条解码后的类型化记录
type Record interface {
	RecordKind() Kind
	Time() int64 // unix毫秒时间戳
}

type base struct {
	kind      Kind
	Timestamp int64
}

func (b base) RecordKind() Kind { return b.kind }
func (b base) Time() int64      { return b.Timestamp }

// MessageRecord 系统消息
type MessageRecord struct {
	base
	Message string
}

// InitPCRecord 本地玩家初始化（身份信息）
type InitPCRecord struct {
	base
	ID        string
	Name      string
	ClassID   int
	Level     int
	GearLevel float64
}

// InitEnvRecord 区域/环境初始化（读图）
type InitEnvRecord struct {
	base
	PlayerID        string
	PlayerName      string
	PlayerGearLevel string
}

// PhaseTransitionRecord 阶段转换（团本结果）
type PhaseTransitionRecord struct {
	base
	Result RaidResult
}

// NewPCRecord 发现新玩家
type NewPCRecord struct {
	base
	ID        string
	Name      string
	ClassID   int
	Class     string
	Level     int
	GearLevel float64
	CurrentHP int64
	MaxHP     int64
}

// NewNPCRecord 发现新NPC
type NewNPCRecord struct {
	base
	ID        string
	NpcID     int
	Name      string
	CurrentHP int64
	MaxHP     int64
}

// DeathRecord 死亡
type DeathRecord struct {
	base
	ID         string
	Name       string
	KillerID   string
	KillerName string
}

// DamageRecord 伤害事件
type DamageRecord struct {
	base
	SourceID      string
	SourceName    string
	SkillID       int
	SkillName     string
	SkillEffectID int
	SkillEffect   string
	TargetID      string
	TargetName    string
	Damage        int64
	Modifier      int // 位打包的命中修饰
	CurrentHP     int64
	MaxHP         int64

	// 独立派生的布尔命中分类（显式列与打包修饰任一命中即为真）
	IsCrit        bool
	IsBackAttack  bool
	IsFrontAttack bool
	IsInvincible  bool
}

// HitFlagOf 提取修饰字段低4位的命中标志
func (d *DamageRecord) HitFlagOf() HitFlag {
	return HitFlag(d.Modifier & 0xf)
}

// HitOptionOf 提取修饰字段位4-6的站位选项
func (d *DamageRecord) HitOptionOf() HitOption {
	return HitOption(((d.Modifier >> 4) & 0x7) - 1)
}

// HealRecord 治疗
type HealRecord struct {
	base
	ID        string
	Name      string
	Amount    int64
	CurrentHP int64
}

// CounterRecord 反击（打断）
type CounterRecord struct {
	base
	ID         string
	Name       string
	TargetID   string
	TargetName string
}

// BattleItemRecord 战斗道具使用
type BattleItemRecord struct {
	base
	ID       string
	Name     string
	ItemID   int
	ItemName string
}

// UnhandledRecord 未建模的记录类型（skill-start/stage、buff等），引擎按空操作忽略
type UnhandledRecord struct {
	base
	Code int
}
