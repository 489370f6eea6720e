package meter

import (
	"time"

	"LoaDamageMeter/internal/encounter"
)

// resetSession 排定一次会话重置（调用方须持锁）
// 已有待定重置时为空操作：先到的重置胜出
// Boss出现过（无论死活）才克隆归档；upload同时受有效性判定约束
func (e *Engine) resetSession(keepEntities bool, delay time.Duration, persist, upload bool) {
	if e.resetTimer != nil {
		return
	}
	e.log.Info().Bool("keepEntities", keepEntities).Msg("resetting session")

	if persist && e.sink != nil && encounter.HasBoss(e.session.Entities, false) {
		clone := e.session.Clone()
		clone.CleanEntities()
		clone.DamageStatistics.DPS = encounter.SessionDPS(clone)
		for _, ent := range clone.Entities {
			ent.Stats.DPS = encounter.EntityDPS(ent, clone.FirstPacket, clone.LastPacket)
		}

		// 持久化/上传绝不阻塞解码聚合路径；失败只记日志
		go e.sink.Archive(clone, upload && encounter.ValidateUpload(clone))
	}

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		// 槽位已被更新的重置替换：本回调作废
		if e.resetTimer != t {
			return
		}

		if keepEntities {
			e.session = encounter.NewSession(e.resetEntities())
		} else {
			e.session = encounter.NewSession(nil)
		}

		e.hasBossEntity = encounter.HasBoss(e.session.Entities, true)
		e.resetTimer = nil
		e.resetCount.Add(1)

		e.log.Debug().Str("sessionId", e.session.ID).Msg("session reset complete")
		e.emitter.Emit(EventResetSession, e.session.ToSimple())
	})
	e.resetTimer = t
}

// resetEntities 重置存活筛选：
// 超时未活跃的丢弃（本地玩家豁免）、非玩家且血量≤0的丢弃、
// 普通怪/未识别类型丢弃；幸存者清零易变聚合并刷新活跃时间
func (e *Engine) resetEntities() []*encounter.Entity {
	now := e.now().UnixMilli()
	kept := make([]*encounter.Entity, 0, len(e.session.Entities))

	for _, ent := range e.session.Entities {
		timeout := e.cfg.DefaultTimeout
		switch ent.Type {
		case encounter.EntityPlayer:
			timeout = e.cfg.PlayerTimeout
		case encounter.EntityBoss, encounter.EntityGuardian:
			timeout = e.cfg.BossTimeout
		}

		isActiveUser := ent.ID == e.activeUser.ID || ent.Name == e.activeUser.Name
		if !isActiveUser && now-ent.LastUpdate > timeout.Milliseconds() {
			e.log.Debug().Str("id", ent.ID).Str("name", ent.Name).Msg("expiring timed out entity")
			continue
		}

		if ent.Type != encounter.EntityPlayer && ent.CurrentHP <= 0 {
			e.log.Debug().Str("id", ent.ID).Str("name", ent.Name).Msg("expiring dead entity")
			continue
		}

		if ent.Type == encounter.EntityMonster || ent.Type == encounter.EntityUnknown {
			e.log.Debug().Str("id", ent.ID).Str("name", ent.Name).Msg("expiring unknown/monster entity")
			continue
		}

		clone := ent.Clone()
		clone.ResetVolatile(now)
		kept = append(kept, clone)
	}

	return kept
}

// Pause 指令入口：暂停会话
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log.Debug().Msg("pausing session")
	e.session.Paused = true
	e.emitter.Emit(EventPauseSession, e.session.ToSimple())
}

// Resume 指令入口：恢复会话
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log.Debug().Msg("resuming session")
	e.session.Paused = false
	e.emitter.Emit(EventResumeSession, e.session.ToSimple())
}

// Reset 指令入口：重置会话；force时不保留任何单位
// 已有待定重置时为空操作
func (e *Engine) Reset(force bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.previous = nil
	e.resetSession(!force, 0, true, false)
}

// ResetPrevious 清除结算快照，恢复实时广播
func (e *Engine) ResetPrevious() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.previous = nil
}

// LoadArchived 把归档会话装入结算快照位展示
// 存在进行中的会话时拒绝
func (e *Engine) LoadArchived(s *encounter.Session) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session.FirstPacket > 0 {
		return ErrSessionActive
	}

	s.Live = false
	s.FromArchive = true
	e.previous = s
	e.emitter.Emit(EventRaidEnd, s.ToSimple())
	return nil
}

// Snapshot 在线会话的降维快照
func (e *Engine) Snapshot() *encounter.SimpleSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.ToSimple()
}

// Previous 结算快照（可能为nil）
func (e *Engine) Previous() *encounter.SimpleSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.previous == nil {
		return nil
	}
	return e.previous.ToSimple()
}

// ActiveUserInfo 当前本地玩家身份
func (e *Engine) ActiveUserInfo() ActiveUser {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeUser
}

// GetStats 引擎运行统计
func (e *Engine) GetStats() map[string]interface{} {
	e.mu.Lock()
	entities := len(e.session.Entities)
	paused := e.session.Paused
	hasBoss := e.hasBossEntity
	e.mu.Unlock()

	return map[string]interface{}{
		"running":       e.running.Load(),
		"parsed_lines":  e.parsedLines.Load(),
		"dropped_lines": e.droppedLines.Load(),
		"damage_events": e.damageEvents.Load(),
		"rejected_hits": e.rejectedHits.Load(),
		"reset_count":   e.resetCount.Load(),
		"entities":      entities,
		"paused":        paused,
		"has_boss":      hasBoss,
	}
}
