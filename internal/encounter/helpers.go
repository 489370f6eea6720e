package encounter

import "time"

// UploadWindow 上传校验允许的最近伤害时间窗
const UploadWindow = 10 * time.Minute

// SessionDPS 会话总DPS：玩家伤害合计 / 会话时长
func SessionDPS(s *Session) float64 {
	duration := float64(s.LastPacket-s.FirstPacket) / 1000
	var total int64
	for _, e := range s.Entities {
		if e.Type != EntityPlayer {
			continue
		}
		total += e.Stats.DamageDealt
	}
	if duration <= 0 || total <= 0 {
		return 0
	}
	return float64(total) / duration
}

// EntityDPS 单位DPS：单位伤害 / [begin, end]时长
func EntityDPS(e *Entity, begin, end int64) float64 {
	duration := float64(end-begin) / 1000
	if duration <= 0 || e.Stats.DamageDealt <= 0 {
		return 0
	}
	return float64(e.Stats.DamageDealt) / duration
}

// HasBoss 判断单位集中是否存在Boss/守护者
// mustBeAlive=false时放宽为"出现过即可"（归档判定用）
func HasBoss(entities []*Entity, mustBeAlive bool) bool {
	for _, e := range entities {
		if e.Type != EntityBoss && e.Type != EntityGuardian {
			continue
		}
		if !mustBeAlive || e.CurrentHP > 0 {
			return true
		}
	}
	return false
}

// CurrentBoss 返回当前Boss：Boss/守护者中LastUpdate最新者，无则nil
func CurrentBoss(entities []*Entity) *Entity {
	var boss *Entity
	for _, e := range entities {
		if e.Type != EntityBoss && e.Type != EntityGuardian {
			continue
		}
		if boss == nil || e.LastUpdate > boss.LastUpdate {
			boss = e
		}
	}
	return boss
}

// ValidateUpload 上传有效性判定：
// 必须出现过Boss、至少一名有技能记录的玩家、
// 最近时间窗内观测过伤害、且当前Boss已不存活
func ValidateUpload(s *Session) bool {
	if !HasBoss(s.Entities, false) {
		return false
	}

	hasActivePlayer := false
	for _, e := range s.Entities {
		if e.Type == EntityPlayer && len(e.Skills) > 0 {
			hasActivePlayer = true
			break
		}
	}
	if !hasActivePlayer {
		return false
	}

	if s.LastPacket == 0 || time.Since(time.UnixMilli(s.LastPacket)) > UploadWindow {
		return false
	}

	if boss := CurrentBoss(s.Entities); boss != nil && boss.CurrentHP > 0 {
		return false
	}
	return true
}
