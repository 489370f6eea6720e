package meter

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"LoaDamageMeter/internal/encounter"
	"LoaDamageMeter/internal/gamedata"
	"LoaDamageMeter/internal/loglines"
)

// ErrSessionActive 存在进行中的会话时拒绝加载归档
var ErrSessionActive = errors.New("an active session is present")

// brokenDamageNpcs Valtan一阶段的异常流血伤害来源，按上游行为原样剔除
var brokenDamageNpcs = map[int]bool{
	480005: true, 480006: true, 480009: true, 480010: true,
	480011: true, 480026: true, 480031: true, 480032: true,
}

// Engine 会话引擎：持有唯一在线Session，消费解码记录并维护战斗聚合
//
// 所有可变状态由单把锁串行化：记录入口、指令入口、定时回调与广播tick
// 都先取锁再变更；待定重置计时器只有一个槽位，取消即替换
type Engine struct {
	mu  sync.Mutex
	log zerolog.Logger
	cfg *Config

	session       *encounter.Session
	previous      *encounter.Session // 结算快照，展示到下一次伤害为止
	activeUser    ActiveUser
	hasBossEntity bool

	resetTimer *time.Timer // 单槽位：同一时刻至多一个待定重置
	phaseTimer *time.Timer // 阶段转换去抖

	broadcastStop chan struct{}
	broadcastOnce sync.Once
	running       atomic.Bool

	emitter *Emitter
	sink    Sink

	// 统计计数器
	parsedLines  atomic.Int64
	droppedLines atomic.Int64
	damageEvents atomic.Int64
	rejectedHits atomic.Int64
	resetCount   atomic.Int64

	now func() time.Time
}

// New 创建会话引擎
func New(cfg *Config, log zerolog.Logger, sink Sink) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Format == nil {
		cfg.Format = loglines.DefaultFormat()
	}

	return &Engine{
		log:     log,
		cfg:     cfg,
		session: encounter.NewSession(nil),
		activeUser: ActiveUser{
			ID:    "0",
			Name:  "You",
			Level: 1,
		},
		broadcastStop: make(chan struct{}),
		emitter:       NewEmitter(),
		sink:          sink,
		now:           time.Now,
	}
}

// Events 返回事件分发器供协作方订阅
func (e *Engine) Events() *Emitter {
	return e.emitter
}

// Start 启动周期广播
func (e *Engine) Start() {
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	go e.broadcastLoop()
	e.log.Info().Dur("interval", e.cfg.BroadcastInterval).Msg("session engine started")
}

// Stop 停止广播并取消全部待定计时器
func (e *Engine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	e.broadcastOnce.Do(func() { close(e.broadcastStop) })

	e.mu.Lock()
	if e.resetTimer != nil {
		e.resetTimer.Stop()
		e.resetTimer = nil
	}
	if e.phaseTimer != nil {
		e.phaseTimer.Stop()
		e.phaseTimer = nil
	}
	e.mu.Unlock()
	e.log.Info().Msg("session engine stopped")
}

// broadcastLoop 广播调度：固定节拍发出在线会话降维快照
// 结算快照展示期间完全抑制，避免实时视图闪覆结算画面
func (e *Engine) broadcastLoop() {
	ticker := time.NewTicker(e.cfg.BroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.broadcastStop:
			return
		case <-ticker.C:
			e.mu.Lock()
			if e.previous != nil {
				e.mu.Unlock()
				continue
			}
			snapshot := e.session.ToSimple()
			e.emitter.Emit(EventSessionBroadcast, snapshot)
			e.mu.Unlock()
		}
	}
}

// Parse 单行入口：解码失败只记日志丢行，引擎状态不被触碰
func (e *Engine) Parse(line string) {
	record, err := loglines.Decode(line, e.cfg.Format)
	if err != nil {
		e.droppedLines.Add(1)
		e.log.Warn().Err(err).Str("line", line).Msg("dropping malformed line")
		return
	}
	e.parsedLines.Add(1)

	e.mu.Lock()
	defer e.mu.Unlock()

	switch r := record.(type) {
	case *loglines.MessageRecord:
		e.onMessage(r)
	case *loglines.InitPCRecord:
		e.onInitPC(r)
	case *loglines.InitEnvRecord:
		e.onInitEnv(r)
	case *loglines.PhaseTransitionRecord:
		e.onPhaseTransition(r)
	case *loglines.NewPCRecord:
		e.onNewPC(r)
	case *loglines.NewNPCRecord:
		e.onNewNPC(r)
	case *loglines.DeathRecord:
		e.onDeath(r)
	case *loglines.DamageRecord:
		e.onDamage(r)
	case *loglines.HealRecord:
		e.onHeal(r)
	case *loglines.CounterRecord:
		e.onCounter(r)
	case *loglines.BattleItemRecord:
		e.onBattleItem(r)
	default:
		// 未建模记录：空操作
	}

	if !e.session.Paused && record.Time() > 0 {
		e.session.LastPacket = record.Time()
	}
}

// getEntity 按ID查找单位
func (e *Engine) getEntity(id string) *encounter.Entity {
	for _, ent := range e.session.Entities {
		if ent.ID == id {
			return ent
		}
	}
	return nil
}

// getEntityByName 按名称查找单位（ID失配时的回退路径）
func (e *Engine) getEntityByName(name string) *encounter.Entity {
	for _, ent := range e.session.Entities {
		if ent.Name == name {
			return ent
		}
	}
	return nil
}

// removeEntity 从会话中移除单位
func (e *Engine) removeEntity(id string) {
	for i, ent := range e.session.Entities {
		if ent.ID == id {
			e.session.Entities = append(e.session.Entities[:i], e.session.Entities[i+1:]...)
			return
		}
	}
}

// onMessage 系统消息
func (e *Engine) onMessage(r *loglines.MessageRecord) {
	e.log.Info().Str("message", r.Message).Msg("feed message")
	e.emitter.Emit(EventMessage, r.Message)
}

// onInitPC 本地玩家初始化：更新ActiveUser身份
func (e *Engine) onInitPC(r *loglines.InitPCRecord) {
	e.activeUser.ID = r.ID
	e.activeUser.ClassID = r.ClassID
	e.activeUser.RealName = r.Name
	e.activeUser.GearLevel = r.GearLevel
	if r.Level > 60 || r.Level < 0 {
		e.activeUser.Level = 0
	} else {
		e.activeUser.Level = r.Level
	}
	e.log.Info().Str("id", r.ID).Int("classId", r.ClassID).Msg("updated active user identity")
}

// onInitEnv 切图：校正本地玩家ID、失效陈旧Boss血量、取消并重排重置
// 读图不是遭遇战：该路径丢弃全部单位且不归档
func (e *Engine) onInitEnv(r *loglines.InitEnvRecord) {
	e.log.Debug().Str("playerId", r.PlayerID).Msg("zone change: updating active user id")

	// 本地玩家换了ID：就地校正既有单位，不产生副本
	if ent := e.getEntityByName(e.activeUser.Name); ent != nil && r.PlayerID != "" {
		ent.ID = r.PlayerID
	}
	if r.PlayerID != "" {
		e.activeUser.ID = r.PlayerID
	}

	// 切图后陈旧的Boss血量读数不可信，强制为未知哨兵
	if boss := encounter.CurrentBoss(e.session.Entities); boss != nil && boss.CurrentHP >= 0 {
		boss.CurrentHP = -1
	}

	e.emitter.Emit(EventZoneChange, nil)

	if !e.cfg.ResetOnZoneChange {
		return
	}

	// 新的切图记录清除待定重置并重排自己的（至多一个在途）
	// 重置带短去抖：连续两条切图记录只落一次重置
	if e.resetTimer != nil {
		e.resetTimer.Stop()
		e.resetTimer = nil
	}
	e.resetSession(false, e.cfg.PhaseDebounce, false, false)
}

// onPhaseTransition 阶段转换（团本结果）
// 尚未观测到伤害或已暂停时为良性空操作；否则去抖后冻结、克隆、结算
func (e *Engine) onPhaseTransition(r *loglines.PhaseTransitionRecord) {
	if !e.cfg.PauseOnPhaseTransition {
		return
	}
	if e.session.FirstPacket == 0 || e.session.Paused {
		e.log.Debug().Msg("encounter not started or already paused; skipping phase transition")
		return
	}
	if e.phaseTimer != nil {
		return
	}

	keepEntities := r.Result == loglines.RaidResultEnd

	// 阶段包先于/同时于最后一个伤害包到达，短暂去抖让其落地
	e.phaseTimer = time.AfterFunc(e.cfg.PhaseDebounce, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.phaseTimer = nil

		if e.session.FirstPacket == 0 || e.session.Paused {
			return
		}

		e.session.Paused = true
		e.previous = e.session.Clone()
		e.previous.Live = false

		e.resetSession(keepEntities, e.cfg.ResetDelay, true, e.cfg.UploadLogs)
		e.emitter.Emit(EventRaidEnd, e.previous.ToSimple())
	})
}

// onNewPC 发现新玩家：两段式查找（ID→名称回退），命中则就地合并
func (e *Engine) onNewPC(r *loglines.NewPCRecord) {
	// feed偶发把ID塞进名称字段的畸形行
	if r.ID == r.Name {
		e.log.Debug().Str("id", r.ID).Msg("new pc id equals name; skipping")
		return
	}

	user := e.getEntity(r.ID)
	if user == nil {
		user = e.getEntityByName(r.Name)
	}

	now := e.now().UnixMilli()
	if user == nil {
		user = encounter.NewEntity(r.ID, r.Name, encounter.EntityPlayer)
		user.ClassID = r.ClassID
		user.Class = r.Class
		user.Level = r.Level
		user.GearLevel = r.GearLevel
		user.CurrentHP = r.CurrentHP
		user.MaxHP = r.MaxHP
		user.LastUpdate = now

		if user.ClassID == 0 {
			user.ClassID = gamedata.ClassID(user.Class)
			user.Class = gamedata.ClassName(user.ClassID)
		}

		if user.ID == e.activeUser.ID {
			user.Name = e.activeUser.Name
			user.Level = e.activeUser.Level
			user.GearLevel = e.activeUser.GearLevel
		}

		e.session.Entities = append(e.session.Entities, user)
	} else {
		// ID中途漂移：更新既有记录的ID而不是造一个旧名新ID的副本
		e.log.Debug().Str("id", r.ID).Str("name", r.Name).Msg("merging existing pc")
		user.ID = r.ID
		user.Class = r.Class
		user.ClassID = r.ClassID
		user.Type = encounter.EntityPlayer

		if user.ID == e.activeUser.ID {
			user.Name = e.activeUser.Name
			user.Level = e.activeUser.Level
			user.GearLevel = e.activeUser.GearLevel
		}
		user.LastUpdate = now
	}

	e.emitter.Emit(EventNewPC, user.ToSimple())
}

// onNewNPC 发现新NPC：Boss/守护者判定为静态成员测试
// 普通怪不入会话单位表，控制内存
func (e *Engine) onNewNPC(r *loglines.NewNPCRecord) {
	typ := encounter.EntityMonster
	if gamedata.IsRaidBoss(r.NpcID) {
		typ = encounter.EntityBoss
	} else if gamedata.IsGuardian(r.NpcID) {
		typ = encounter.EntityGuardian
	}

	npc := e.getEntity(r.ID)
	if npc != nil {
		npc.CurrentHP = r.CurrentHP
		npc.MaxHP = r.MaxHP
		npc.Name = r.Name
		npc.LastUpdate = e.now().UnixMilli()
	} else {
		npc = encounter.NewEntity(r.ID, r.Name, typ)
		npc.NpcID = r.NpcID
		npc.CurrentHP = r.CurrentHP
		npc.MaxHP = r.MaxHP
		npc.LastUpdate = e.now().UnixMilli()

		if typ == encounter.EntityBoss || typ == encounter.EntityGuardian {
			e.session.Entities = append(e.session.Entities, npc)
		}
	}

	e.hasBossEntity = encounter.HasBoss(e.session.Entities, true)
	e.emitter.Emit(EventNewNPC, npc.ToSimple())
}

// onDeath 死亡：玩家计数死亡；非Boss/守护者NPC直接移出会话
func (e *Engine) onDeath(r *loglines.DeathRecord) {
	target := e.getEntity(r.ID)
	if target == nil {
		return
	}

	switch target.Type {
	case encounter.EntityBoss, encounter.EntityGuardian:
		// Boss死亡由阶段转换记录驱动结算，这里不动
	case encounter.EntityPlayer:
		target.Stats.Deaths++
		target.LastUpdate = e.now().UnixMilli()
	default:
		e.removeEntity(r.ID)
	}
}

// onDamage 伤害事件核心算法
func (e *Engine) onDamage(r *loglines.DamageRecord) {
	e.damageEvents.Add(1)

	// 1. 解析源与目标；源缺失时制造占位单位（后续凭技能史归类才保留）
	source := e.getEntity(r.SourceID)
	if source == nil {
		source = encounter.NewEntity(r.SourceID, r.SourceName, encounter.EntityUnknown)
		source.LastUpdate = e.now().UnixMilli()
		e.session.Entities = append(e.session.Entities, source)
	}

	target := e.getEntity(r.TargetID)
	if target == nil {
		// 目标不可解析：静默丢弃，不为其捏造单位
		return
	}

	if source.Type == encounter.EntityPlayer && source.ClassID == 0 {
		e.trySetClassFromSkills(source)
	}
	if target.Type == encounter.EntityPlayer && target.ClassID == 0 {
		e.trySetClassFromSkills(target)
	}

	// 2. 前置拒绝：目标为普通怪/未识别、会话无Boss、已暂停、无敌命中
	if target.Type == encounter.EntityMonster || target.Type == encounter.EntityUnknown ||
		!e.hasBossEntity || e.session.Paused || r.IsInvincible {
		e.rejectedHits.Add(1)
		return
	}

	// 3. 刷新目标血量与双方活跃时间
	now := e.now().UnixMilli()
	target.CurrentHP = r.CurrentHP
	target.MaxHP = r.MaxHP
	target.LastUpdate = now
	source.LastUpdate = now

	// 4. 过量伤害修正：非玩家目标报告负血量时，把溢出量从计入伤害中扣除，
	//    使仪表总量与Boss血条显示一致
	damage := r.Damage
	if target.Type != encounter.EntityPlayer && e.cfg.RemoveOverkillDamage && r.CurrentHP < 0 {
		e.hasBossEntity = encounter.HasBoss(e.session.Entities, true)
		damage += r.CurrentHP
	}

	// Valtan一阶段的异常流血包，按上游行为剔除
	if (r.SkillName == "Bleed" || r.SkillID == 0) && brokenDamageNpcs[target.NpcID] {
		return
	}

	// 5./6. 命中分类与路由：战斗道具效果入道具桶，否则入技能桶（二选一）
	var critCount, backCount, frontCount int64
	if r.IsCrit {
		critCount = 1
	}
	if r.IsBackAttack {
		backCount = 1
	}
	if r.IsFrontAttack {
		frontCount = 1
	}

	if gamedata.IsBattleItem(r.SkillEffectID) {
		item, ok := source.BattleItems[r.SkillEffectID]
		if !ok {
			item = &encounter.BattleItem{ID: r.SkillEffectID, Name: gamedata.BattleItemName(r.SkillEffectID)}
			source.BattleItems[r.SkillEffectID] = item
		}
		item.Damage += damage
	} else {
		skill, ok := source.Skills[r.SkillID]
		if !ok {
			skill = encounter.NewSkill(r.SkillID, r.SkillName)
			source.AddSkill(r.SkillID, skill)
		}

		skill.Stats.DamageDealt += damage
		if damage > skill.Stats.TopDamage {
			skill.Stats.TopDamage = damage
		}
		skill.Stats.Hits++
		skill.Stats.Crits += critCount
		skill.Stats.BackHits += backCount
		skill.Stats.FrontHits += frontCount

		// 7. 仅玩家来源记录逐次命中明细，供事后时间窗DPS重建
		if source.Type == encounter.EntityPlayer {
			skill.Breakdown = append(skill.Breakdown, &encounter.SkillBreakdown{
				Timestamp:    now,
				Damage:       damage,
				IsCrit:       r.IsCrit,
				IsBackHit:    r.IsBackAttack,
				IsFrontHit:   r.IsFrontAttack,
				TargetEntity: target.ID,
			})
		}
	}

	source.Stats.DamageDealt += damage
	target.Stats.DamageTaken += damage
	source.Stats.Hits++
	source.Stats.Crits += critCount
	source.Stats.BackHits += backCount
	source.Stats.FrontHits += frontCount

	if source.Type == encounter.EntityPlayer {
		e.session.DamageStatistics.TotalDamageDealt += damage
		if source.Stats.DamageDealt > e.session.DamageStatistics.TopDamageDealt {
			e.session.DamageStatistics.TopDamageDealt = source.Stats.DamageDealt
		}
	}
	if target.Type == encounter.EntityPlayer {
		e.session.DamageStatistics.TotalDamageTaken += damage
		if target.Stats.DamageTaken > e.session.DamageStatistics.TopDamageTaken {
			e.session.DamageStatistics.TopDamageTaken = target.Stats.DamageTaken
		}
	}

	// 8. 占位单位凭技能史归类：解析出职业即提升为玩家
	if source.Type == encounter.EntityUnknown {
		e.trySetClassFromSkills(source)
	}

	// 9. 新会话首个伤害包：盖戳、清除结算快照、按需发Boss血条信号
	if e.session.FirstPacket == 0 {
		e.session.FirstPacket = r.Time()
		e.previous = nil

		if boss := encounter.CurrentBoss(e.session.Entities); boss != nil {
			if bars := gamedata.BossHealthBars(boss.NpcID); bars > 0 {
				e.emitter.Emit(EventShowBossHealth, &BossHealthNotice{
					ID:        boss.ID,
					NpcID:     boss.NpcID,
					Name:      boss.Name,
					CurrentHP: boss.CurrentHP,
					MaxHP:     boss.MaxHP,
					Bars:      bars,
				})
			}
		}
	}

	// 10. 当前Boss被打：发只带血量的轻量增量，不等广播节拍
	if boss := encounter.CurrentBoss(e.session.Entities); boss != nil && boss.ID == target.ID {
		e.emitter.Emit(EventBossDamaged, &BossDamagedNotice{
			ID:        boss.ID,
			CurrentHP: boss.CurrentHP,
			MaxHP:     boss.MaxHP,
		})
	}
}

// trySetClassFromSkills 根据技能史反推职业；成功后占位单位提升为玩家
func (e *Engine) trySetClassFromSkills(ent *encounter.Entity) {
	for skillID := range ent.Skills {
		if classID := gamedata.ClassFromSkillID(skillID); classID != 0 {
			ent.ClassID = classID
			ent.Class = gamedata.ClassName(classID)
			ent.Type = encounter.EntityPlayer
			e.log.Debug().Str("id", ent.ID).Str("class", ent.Class).Msg("inferred class from skills")
			return
		}
	}
}

// onHeal 治疗：可解析时累加，不为治疗记录捏造单位
func (e *Engine) onHeal(r *loglines.HealRecord) {
	source := e.getEntity(r.ID)
	if source == nil {
		return
	}
	source.LastUpdate = e.now().UnixMilli()
	source.Stats.Healing += r.Amount
}

// onCounter 反击：ID→名称回退解析后计数
func (e *Engine) onCounter(r *loglines.CounterRecord) {
	source := e.getEntity(r.ID)
	if source == nil {
		source = e.getEntityByName(r.Name)
	}
	if source == nil {
		return
	}
	source.LastUpdate = e.now().UnixMilli()
	source.Stats.Counters++
}

// onBattleItem 战斗道具使用：使用次数累加（伤害归因走伤害事件路由）
func (e *Engine) onBattleItem(r *loglines.BattleItemRecord) {
	source := e.getEntity(r.ID)
	if source == nil {
		source = e.getEntityByName(r.Name)
	}
	if source == nil {
		return
	}

	item, ok := source.BattleItems[r.ItemID]
	if !ok {
		name := r.ItemName
		if name == "" {
			name = gamedata.BattleItemName(r.ItemID)
		}
		item = &encounter.BattleItem{ID: r.ItemID, Name: name}
		source.BattleItems[r.ItemID] = item
	}
	item.Uses++
	source.LastUpdate = e.now().UnixMilli()
}
