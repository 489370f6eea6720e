package encounter

import "strconv"

// SimpleSession 面向展示层的会话降维投影
// 只携带展示所需字段，不含逐次命中明细（归档时才导出完整会话）
type SimpleSession struct {
	ID               string            `json:"id"`
	Paused           bool              `json:"paused"`
	Live             bool              `json:"live"`
	FromArchive      bool              `json:"fromArchive,omitempty"`
	FirstPacket      int64             `json:"firstPacket"`
	LastPacket       int64             `json:"lastPacket"`
	Entities         []*SimpleEntity   `json:"entities"`
	DamageStatistics *DamageStatistics `json:"damageStatistics"`
}

// SimpleEntity 单位的降维投影；装等格式化为定点字符串
type SimpleEntity struct {
	LastUpdate  int64          `json:"lastUpdate"`
	ID          string         `json:"id"`
	NpcID       int            `json:"npcId,omitempty"`
	Name        string         `json:"name"`
	Type        EntityType     `json:"type"`
	ClassID     int            `json:"classId"`
	GearLevel   string         `json:"gearLevel"`
	CurrentHP   int64          `json:"currentHp"`
	MaxHP       int64          `json:"maxHp"`
	Skills      []*SimpleSkill `json:"skills"`
	BattleItems []*BattleItem  `json:"battleItems,omitempty"`
	Stats       *Stats         `json:"stats"`
}

// SimpleSkill 技能的降维投影（无明细）
type SimpleSkill struct {
	ID    int         `json:"id"`
	Name  string      `json:"name"`
	Stats *SkillStats `json:"stats"`
}

// ToSimple 生成会话的降维投影
func (s *Session) ToSimple() *SimpleSession {
	simple := &SimpleSession{
		ID:               s.ID,
		Paused:           s.Paused,
		Live:             s.Live,
		FromArchive:      s.FromArchive,
		FirstPacket:      s.FirstPacket,
		LastPacket:       s.LastPacket,
		Entities:         make([]*SimpleEntity, 0, len(s.Entities)),
		DamageStatistics: s.DamageStatistics,
	}
	for _, e := range s.Entities {
		simple.Entities = append(simple.Entities, e.ToSimple())
	}
	return simple
}

// ToSimple 生成单位的降维投影
func (e *Entity) ToSimple() *SimpleEntity {
	simple := &SimpleEntity{
		LastUpdate: e.LastUpdate,
		ID:         e.ID,
		NpcID:      e.NpcID,
		Name:       e.Name,
		Type:       e.Type,
		ClassID:    e.ClassID,
		GearLevel:  FormatGearLevel(e.GearLevel),
		CurrentHP:  e.CurrentHP,
		MaxHP:      e.MaxHP,
		Skills:     make([]*SimpleSkill, 0, len(e.Skills)),
		Stats:      e.Stats,
	}
	for _, sk := range e.Skills {
		simple.Skills = append(simple.Skills, &SimpleSkill{ID: sk.ID, Name: sk.Name, Stats: sk.Stats})
	}
	for _, bi := range e.BattleItems {
		simple.BattleItems = append(simple.BattleItems, bi)
	}
	return simple
}

func formatFixed2(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
