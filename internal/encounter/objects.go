package encounter

import (
	"strings"

	"github.com/google/uuid"
)

// EntityType 参战单位类型
type EntityType int

const (
	EntityUnknown  EntityType = -1
	EntityMonster  EntityType = 0
	EntityBoss     EntityType = 1
	EntityGuardian EntityType = 2
	EntityPlayer   EntityType = 3
)

func (t EntityType) String() string {
	switch t {
	case EntityMonster:
		return "MONSTER"
	case EntityBoss:
		return "BOSS"
	case EntityGuardian:
		return "GUARDIAN"
	case EntityPlayer:
		return "PLAYER"
	default:
		return "UNKNOWN"
	}
}

// Session 一次遭遇战的聚合状态，从首个伤害包到结算/重置
type Session struct {
	ID          string `json:"id"`
	Paused      bool   `json:"paused"`
	Live        bool   `json:"live"`
	FromArchive bool   `json:"fromArchive,omitempty"`
	// FirstPacket==0 表示尚未观测到伤害，阶段转换/切图不触发结算
	FirstPacket      int64             `json:"firstPacket"`
	LastPacket       int64             `json:"lastPacket"`
	Entities         []*Entity         `json:"entities"` // 插入序即发现序
	DamageStatistics *DamageStatistics `json:"damageStatistics"`
}

// NewSession 构建空会话，可携带上一会话筛选后保留的单位
func NewSession(entities []*Entity) *Session {
	if entities == nil {
		entities = []*Entity{}
	}
	return &Session{
		ID:               uuid.NewString(),
		Live:             true,
		Entities:         entities,
		DamageStatistics: &DamageStatistics{},
	}
}

// Clone 深拷贝会话；结算快照与在线会话互不共享单位
func (s *Session) Clone() *Session {
	clone := &Session{
		ID:          s.ID,
		Paused:      s.Paused,
		Live:        s.Live,
		FromArchive: s.FromArchive,
		FirstPacket: s.FirstPacket,
		LastPacket:  s.LastPacket,
		Entities:    make([]*Entity, 0, len(s.Entities)),
	}
	stats := *s.DamageStatistics
	clone.DamageStatistics = &stats
	for _, e := range s.Entities {
		clone.Entities = append(clone.Entities, e.Clone())
	}
	return clone
}

// CleanEntities 仅保留玩家与Boss/守护者单位（归档前调用）
func (s *Session) CleanEntities() {
	kept := s.Entities[:0]
	for _, e := range s.Entities {
		switch e.Type {
		case EntityPlayer, EntityBoss, EntityGuardian:
			kept = append(kept, e)
		}
	}
	s.Entities = kept
}

// DamageStatistics 会话级伤害总量与排行标记
type DamageStatistics struct {
	TotalDamageDealt int64   `json:"totalDamageDealt"`
	TotalDamageTaken int64   `json:"totalDamageTaken"`
	TopDamageDealt   int64   `json:"topDamageDealt"`
	TopDamageTaken   int64   `json:"topDamageTaken"`
	DPS              float64 `json:"dps"`
}

// Entity 一个参战单位（玩家/怪物/Boss/守护者/未识别）
// ID在会话内是主键但不稳定：同一逻辑单位可能中途换ID，
// 查找需按ID、再按名称回退，并在原记录上就地合并
type Entity struct {
	LastUpdate  int64               `json:"lastUpdate"` // unix毫秒
	ID          string              `json:"id"`
	NpcID       int                 `json:"npcId,omitempty"`
	Name        string              `json:"name"`
	Type        EntityType          `json:"type"`
	ClassID     int                 `json:"classId"`
	Class       string              `json:"class"`
	Level       int                 `json:"level"`
	GearLevel   float64             `json:"gearLevel"`
	CurrentHP   int64               `json:"currentHp"`
	MaxHP       int64               `json:"maxHp"`
	Skills      map[int]*Skill      `json:"skills"`
	BattleItems map[int]*BattleItem `json:"battleItems,omitempty"`
	Stats       *Stats              `json:"stats"`
}

// NewEntity 构建单位并规范化容器字段
func NewEntity(id, name string, typ EntityType) *Entity {
	return &Entity{
		ID:          id,
		Name:        name,
		Type:        typ,
		Skills:      make(map[int]*Skill),
		BattleItems: make(map[int]*BattleItem),
		Stats:       &Stats{},
	}
}

// Clone 深拷贝单位
func (e *Entity) Clone() *Entity {
	clone := *e
	clone.Skills = make(map[int]*Skill, len(e.Skills))
	for id, sk := range e.Skills {
		clone.Skills[id] = sk.Clone()
	}
	clone.BattleItems = make(map[int]*BattleItem, len(e.BattleItems))
	for id, bi := range e.BattleItems {
		c := *bi
		clone.BattleItems[id] = &c
	}
	stats := *e.Stats
	clone.Stats = &stats
	return &clone
}

// AddSkill 登记技能桶
func (e *Entity) AddSkill(id int, skill *Skill) {
	e.Skills[id] = skill
}

// ResetVolatile 清零易变聚合（保留身份字段），重置保留单位时调用
func (e *Entity) ResetVolatile(now int64) {
	e.LastUpdate = now
	e.Stats = &Stats{}
	e.Skills = make(map[int]*Skill)
	e.BattleItems = make(map[int]*BattleItem)
}

// Stats 单位级累计统计
type Stats struct {
	Hits        int64   `json:"hits"`
	Crits       int64   `json:"crits"`
	BackHits    int64   `json:"backHits"`
	FrontHits   int64   `json:"frontHits"`
	Counters    int64   `json:"counters"`
	DamageDealt int64   `json:"damageDealt"`
	Healing     int64   `json:"healing"`
	DamageTaken int64   `json:"damageTaken"`
	Deaths      int64   `json:"deaths"`
	DPS         float64 `json:"dps"`
}

// Skill 单位×技能的聚合桶
type Skill struct {
	ID        int               `json:"id"`
	Name      string            `json:"name"`
	Breakdown []*SkillBreakdown `json:"breakdown"` // 仅玩家来源追加，按时间序
	Stats     *SkillStats       `json:"stats"`
}

// NewSkill 构建技能桶；名称为空时回退哨兵值
func NewSkill(id int, name string) *Skill {
	if name == "" {
		name = "Unknown Skill"
	}
	return &Skill{
		ID:        id,
		Name:      name,
		Breakdown: []*SkillBreakdown{},
		Stats:     &SkillStats{},
	}
}

// Clone 深拷贝技能桶
func (s *Skill) Clone() *Skill {
	clone := *s
	stats := *s.Stats
	clone.Stats = &stats
	clone.Breakdown = make([]*SkillBreakdown, 0, len(s.Breakdown))
	for _, b := range s.Breakdown {
		c := *b
		clone.Breakdown = append(clone.Breakdown, &c)
	}
	return &clone
}

// SkillStats 技能级累计统计
type SkillStats struct {
	Hits        int64 `json:"hits"`
	Crits       int64 `json:"crits"`
	BackHits    int64 `json:"backHits"`
	FrontHits   int64 `json:"frontHits"`
	Counters    int64 `json:"counters"`
	DamageDealt int64 `json:"damageDealt"`
	TopDamage   int64 `json:"topDamage"`
}

// SkillBreakdown 单次命中明细，用于事后按时间窗重建DPS曲线
type SkillBreakdown struct {
	Timestamp    int64  `json:"timestamp"`
	Damage       int64  `json:"damage"`
	IsCrit       bool   `json:"isCrit"`
	IsBackHit    bool   `json:"isBackHit"`
	IsFrontHit   bool   `json:"isFrontHit"`
	TargetEntity string `json:"targetEntity"`
}

// BattleItem 战斗道具使用聚合（投掷物/消耗品）
type BattleItem struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Uses   int64  `json:"uses"`
	Damage int64  `json:"damage"`
}

// FormatGearLevel 装等的定点两位小数显示格式（小数点渲染为逗号）
func FormatGearLevel(gearLevel float64) string {
	s := strings.ReplaceAll(formatFixed2(gearLevel), ".", ",")
	return s
}
