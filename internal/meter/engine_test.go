package meter

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LoaDamageMeter/internal/encounter"
)

// captureSink 测试用归档：记录每次归档调用
type captureSink struct {
	mu       sync.Mutex
	sessions []*encounter.Session
	uploads  []bool
}

func (s *captureSink) Archive(session *encounter.Session, upload bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, session)
	s.uploads = append(s.uploads, upload)
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// newTestEngine 短定时器配置的引擎，不启动广播循环
func newTestEngine(t *testing.T) (*Engine, *captureSink) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.PhaseDebounce = 20 * time.Millisecond
	cfg.ResetDelay = 20 * time.Millisecond

	sink := &captureSink{}
	engine := New(cfg, zerolog.Nop(), sink)
	return engine, sink
}

// feedGuardian 灌入一条守护者进场记录（存活Boss单位前置条件）
func feedGuardian(e *Engine, ts string) {
	e.Parse(fmt.Sprintf("4|%s|B1|512002|Boss|5000|5000", ts))
}

func nowStamp() string {
	return time.Now().Format(time.RFC3339Nano)
}

// TestDamageAggregation 完整伤害行驱动全部聚合更新
func TestDamageAggregation(t *testing.T) {
	engine, _ := newTestEngine(t)
	ts := nowStamp()

	engine.Parse(fmt.Sprintf("3|%s|P1|Hero|502|Sharpshooter|60|1580.00|200000|200000", ts))
	feedGuardian(engine, ts)
	engine.Parse(fmt.Sprintf("8|%s|P1|Hero|100|Slash|0||B1|Boss|500|0|1|0|0|4500|5000", ts))

	engine.mu.Lock()
	defer engine.mu.Unlock()
	session := engine.session

	require.NotZero(t, session.FirstPacket, "首个伤害包应盖戳")
	assert.Equal(t, session.LastPacket, session.FirstPacket)

	boss := engine.getEntity("B1")
	require.NotNil(t, boss)
	assert.Equal(t, int64(4500), boss.CurrentHP, "目标血量应取伤害行读数")
	assert.Equal(t, int64(500), boss.Stats.DamageTaken)

	player := engine.getEntity("P1")
	require.NotNil(t, player)
	assert.Equal(t, int64(500), player.Stats.DamageDealt)
	assert.Equal(t, int64(1), player.Stats.Hits)
	assert.Equal(t, int64(1), player.Stats.Crits, "显式暴击列应计数")

	skill := player.Skills[100]
	require.NotNil(t, skill, "技能桶应按技能ID建立")
	assert.Equal(t, "Slash", skill.Name)
	assert.Equal(t, int64(500), skill.Stats.DamageDealt)
	assert.Equal(t, int64(500), skill.Stats.TopDamage)
	require.Len(t, skill.Breakdown, 1, "玩家来源应记录逐次明细")
	assert.Equal(t, int64(500), skill.Breakdown[0].Damage)

	assert.Equal(t, int64(500), session.DamageStatistics.TotalDamageDealt)
	assert.Equal(t, int64(500), session.DamageStatistics.TopDamageDealt)
}

// TestBossHealthSignals 首个伤害包发血条信号，后续每次命中Boss发血量增量
func TestBossHealthSignals(t *testing.T) {
	engine, _ := newTestEngine(t)
	ts := nowStamp()

	var mu sync.Mutex
	var health []*BossHealthNotice
	var damaged []*BossDamagedNotice
	engine.Events().On(EventShowBossHealth, func(_ Event, payload interface{}) {
		mu.Lock()
		health = append(health, payload.(*BossHealthNotice))
		mu.Unlock()
	})
	engine.Events().On(EventBossDamaged, func(_ Event, payload interface{}) {
		mu.Lock()
		damaged = append(damaged, payload.(*BossDamagedNotice))
		mu.Unlock()
	})

	engine.Parse(fmt.Sprintf("3|%s|P1|Hero|502|Sharpshooter|60|1580.00|200000|200000", ts))
	engine.Parse(fmt.Sprintf("4|%s|B1|634000|Argos|100000000|100000000", ts))
	engine.Parse(fmt.Sprintf("8|%s|P1|Hero|100|Slash|0||B1|Argos|500|0|0|0|0|99999500|100000000", ts))

	mu.Lock()
	require.Len(t, health, 1, "首个伤害包应发一次血条信号")
	assert.Equal(t, "B1", health[0].ID)
	assert.Equal(t, 634000, health[0].NpcID)
	assert.Equal(t, "Argos", health[0].Name)
	assert.Equal(t, 30, health[0].Bars)
	assert.Equal(t, int64(99999500), health[0].CurrentHP)
	assert.Equal(t, int64(100000000), health[0].MaxHP)

	require.Len(t, damaged, 1)
	assert.Equal(t, "B1", damaged[0].ID)
	assert.Equal(t, int64(99999500), damaged[0].CurrentHP)
	mu.Unlock()

	engine.Parse(fmt.Sprintf("8|%s|P1|Hero|100|Slash|0||B1|Argos|500|0|0|0|0|99999000|100000000", ts))

	mu.Lock()
	assert.Len(t, health, 1, "血条信号只在首个伤害包发一次")
	require.Len(t, damaged, 2, "每次命中当前Boss都应发血量增量")
	assert.Equal(t, int64(99999000), damaged[1].CurrentHP)
	assert.Equal(t, int64(100000000), damaged[1].MaxHP)
	mu.Unlock()
}

// TestDamageRejectedWithoutBoss 会话内无存活Boss时伤害被拒
func TestDamageRejectedWithoutBoss(t *testing.T) {
	engine, _ := newTestEngine(t)
	ts := nowStamp()

	engine.Parse(fmt.Sprintf("3|%s|P1|Hero|502|Sharpshooter|60|1580.00|200000|200000", ts))
	engine.Parse(fmt.Sprintf("8|%s|P1|Hero|100|Slash|0||P1|Hero|500|0|0|0|0|199500|200000", ts))

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Zero(t, engine.session.FirstPacket, "无Boss时伤害不应开启会话")
	assert.Zero(t, engine.session.DamageStatistics.TotalDamageDealt)
	assert.Equal(t, int64(1), engine.rejectedHits.Load())
}

// TestDamageRejectedWhilePaused 暂停的会话拒绝伤害
func TestDamageRejectedWhilePaused(t *testing.T) {
	engine, _ := newTestEngine(t)
	ts := nowStamp()

	feedGuardian(engine, ts)
	engine.Pause()
	engine.Parse(fmt.Sprintf("8|%s|P1|Hero|100|Slash|0||B1|Boss|500|0|0|0|0|4500|5000", ts))

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Zero(t, engine.session.FirstPacket)
	assert.Equal(t, int64(1), engine.rejectedHits.Load())
}

// TestInvincibleHitRejected 无敌命中标志的伤害被拒
func TestInvincibleHitRejected(t *testing.T) {
	engine, _ := newTestEngine(t)
	ts := nowStamp()

	feedGuardian(engine, ts)
	// 修饰字段低4位=3：无敌命中
	engine.Parse(fmt.Sprintf("8|%s|P1|Hero|100|Slash|0||B1|Boss|500|3|0|0|0|4500|5000", ts))

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Zero(t, engine.session.DamageStatistics.TotalDamageDealt)
	assert.Equal(t, int64(1), engine.rejectedHits.Load())
}

// TestOverkillClamp 过量击杀时溢出伤害按报告血量回折
func TestOverkillClamp(t *testing.T) {
	engine, _ := newTestEngine(t)
	ts := nowStamp()

	engine.Parse(fmt.Sprintf("3|%s|P1|Hero|502|Sharpshooter|60|1580.00|200000|200000", ts))
	feedGuardian(engine, ts)
	// 报告伤害800，Boss血量打成-300：计入伤害应为500
	engine.Parse(fmt.Sprintf("8|%s|P1|Hero|100|Slash|0||B1|Boss|800|0|0|0|0|-300|5000", ts))

	engine.mu.Lock()
	defer engine.mu.Unlock()
	player := engine.getEntity("P1")
	require.NotNil(t, player)
	assert.Equal(t, int64(500), player.Stats.DamageDealt, "计入伤害=报告伤害+负血量")
	assert.Equal(t, int64(500), engine.session.DamageStatistics.TotalDamageDealt)
	assert.False(t, engine.hasBossEntity, "Boss被打死后存活Boss标志应刷新")
}

// TestOverkillClampDisabled 关闭过量修正时按报告伤害全额计入
func TestOverkillClampDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RemoveOverkillDamage = false
	engine := New(cfg, zerolog.Nop(), &captureSink{})
	ts := nowStamp()

	engine.Parse(fmt.Sprintf("3|%s|P1|Hero|502|Sharpshooter|60|1580.00|200000|200000", ts))
	feedGuardian(engine, ts)
	engine.Parse(fmt.Sprintf("8|%s|P1|Hero|100|Slash|0||B1|Boss|800|0|0|0|0|-300|5000", ts))

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Equal(t, int64(800), engine.getEntity("P1").Stats.DamageDealt)
}

// TestPhaseTransitionBeforeDamageIsNoop 尚未观测到伤害时阶段转换为空操作
func TestPhaseTransitionBeforeDamageIsNoop(t *testing.T) {
	engine, sink := newTestEngine(t)
	ts := nowStamp()

	feedGuardian(engine, ts)
	engine.Parse(fmt.Sprintf("2|%s|1", ts))

	time.Sleep(100 * time.Millisecond)

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.False(t, engine.session.Paused)
	assert.Nil(t, engine.previous)
	assert.Nil(t, engine.phaseTimer)
	assert.Zero(t, sink.count(), "未开始的会话不应归档")
}

// TestPhaseTransitionSettlesSession 阶段转换去抖后冻结并结算会话
func TestPhaseTransitionSettlesSession(t *testing.T) {
	engine, sink := newTestEngine(t)
	ts := nowStamp()

	var raidEnd *encounter.SimpleSession
	var mu sync.Mutex
	engine.Events().On(EventRaidEnd, func(_ Event, payload interface{}) {
		mu.Lock()
		raidEnd = payload.(*encounter.SimpleSession)
		mu.Unlock()
	})

	later := time.Now().Add(2 * time.Second).Format(time.RFC3339Nano)

	engine.Parse(fmt.Sprintf("3|%s|P1|Hero|502|Sharpshooter|60|1580.00|200000|200000", ts))
	feedGuardian(engine, ts)
	engine.Parse(fmt.Sprintf("8|%s|P1|Hero|100|Slash|0||B1|Boss|500|0|0|0|0|4500|5000", ts))
	engine.Parse(fmt.Sprintf("8|%s|P1|Hero|100|Slash|0||B1|Boss|300|0|0|0|0|4200|5000", later))
	engine.Parse(fmt.Sprintf("2|%s|1", later)) // 守护者死亡

	// 去抖窗口内引擎未动
	engine.mu.Lock()
	assert.False(t, engine.session.Paused)
	engine.mu.Unlock()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	require.NotNil(t, raidEnd, "结算后应发出raid-end")
	assert.False(t, raidEnd.Live)
	assert.Equal(t, int64(800), raidEnd.DamageStatistics.TotalDamageDealt)
	mu.Unlock()

	require.Equal(t, 1, sink.count(), "结算应触发一次归档")
	sink.mu.Lock()
	archived := sink.sessions[0]
	sink.mu.Unlock()
	assert.Equal(t, int64(800), archived.DamageStatistics.TotalDamageDealt)
	assert.Greater(t, archived.DamageStatistics.DPS, 0.0, "归档前应填充DPS")

	// 重置延迟过后在线会话翻新
	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Zero(t, engine.session.FirstPacket, "重置后的新会话未开始")
	assert.NotNil(t, engine.previous, "结算快照应保留展示")
}

// TestPhaseTransitionDebounceCoalesces 去抖窗口内的重复阶段记录合并为一次结算
func TestPhaseTransitionDebounceCoalesces(t *testing.T) {
	engine, sink := newTestEngine(t)
	ts := nowStamp()

	engine.Parse(fmt.Sprintf("3|%s|P1|Hero|502|Sharpshooter|60|1580.00|200000|200000", ts))
	feedGuardian(engine, ts)
	engine.Parse(fmt.Sprintf("8|%s|P1|Hero|100|Slash|0||B1|Boss|500|0|0|0|0|4500|5000", ts))
	engine.Parse(fmt.Sprintf("2|%s|1", ts))
	engine.Parse(fmt.Sprintf("2|%s|1", ts))
	engine.Parse(fmt.Sprintf("2|%s|1", ts))

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, sink.count())
}

// TestNextDamageClearsSettled 新会话首个伤害包清除结算快照
func TestNextDamageClearsSettled(t *testing.T) {
	engine, _ := newTestEngine(t)
	ts := nowStamp()

	engine.Parse(fmt.Sprintf("3|%s|P1|Hero|502|Sharpshooter|60|1580.00|200000|200000", ts))
	feedGuardian(engine, ts)
	engine.Parse(fmt.Sprintf("8|%s|P1|Hero|100|Slash|0||B1|Boss|500|0|0|0|0|4500|5000", ts))
	engine.Parse(fmt.Sprintf("2|%s|0", ts))
	time.Sleep(100 * time.Millisecond)

	require.NotNil(t, engine.Previous())

	// 保留重置后单位仍在，新的伤害直接开启下一场
	ts2 := nowStamp()
	feedGuardian(engine, ts2)
	engine.Parse(fmt.Sprintf("8|%s|P1|Hero|100|Slash|0||B1|Boss|300|0|0|0|0|4200|5000", ts2))

	assert.Nil(t, engine.Previous(), "首个伤害包应清除结算快照")
	snapshot := engine.Snapshot()
	assert.NotZero(t, snapshot.FirstPacket)
	assert.Equal(t, int64(300), snapshot.DamageStatistics.TotalDamageDealt)
}

// TestZoneChangeResetsSession 切图丢弃全部单位且不归档
func TestZoneChangeResetsSession(t *testing.T) {
	engine, sink := newTestEngine(t)
	ts := nowStamp()

	engine.Parse(fmt.Sprintf("3|%s|P1|Hero|502|Sharpshooter|60|1580.00|200000|200000", ts))
	feedGuardian(engine, ts)
	engine.Parse(fmt.Sprintf("8|%s|P1|Hero|100|Slash|0||B1|Boss|500|0|0|0|0|4500|5000", ts))

	engine.Parse(fmt.Sprintf("1|%s|NEWID|You|1580.00", ts))
	time.Sleep(150 * time.Millisecond)

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Empty(t, engine.session.Entities, "切图重置不保留单位")
	assert.Zero(t, engine.session.FirstPacket)
	assert.Zero(t, sink.count(), "读图不是遭遇战，不归档")
	assert.Equal(t, "NEWID", engine.activeUser.ID)
}

// TestDoubleZoneChangeSingleReset 连续两条切图记录只落一次重置
func TestDoubleZoneChangeSingleReset(t *testing.T) {
	engine, _ := newTestEngine(t)
	ts := nowStamp()

	engine.Parse(fmt.Sprintf("1|%s|ID1|You|1580.00", ts))
	engine.Parse(fmt.Sprintf("1|%s|ID2|You|1580.00", ts))

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int64(1), engine.resetCount.Load())
}

// TestZoneChangeInvalidatesBossHP 切图后陈旧Boss血量失效为未知哨兵
func TestZoneChangeInvalidatesBossHP(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResetOnZoneChange = false // 只看血量失效路径
	engine := New(cfg, zerolog.Nop(), &captureSink{})
	ts := nowStamp()

	feedGuardian(engine, ts)
	engine.Parse(fmt.Sprintf("1|%s|NEWID|You|1580.00", ts))

	engine.mu.Lock()
	defer engine.mu.Unlock()
	boss := engine.getEntity("B1")
	require.NotNil(t, boss)
	assert.Equal(t, int64(-1), boss.CurrentHP)
}

// TestNewPCNameFallbackMerge ID漂移时按名称回退就地合并，不产生副本
func TestNewPCNameFallbackMerge(t *testing.T) {
	engine, _ := newTestEngine(t)
	ts := nowStamp()

	engine.Parse(fmt.Sprintf("3|%s|OLD|Hero|502|Sharpshooter|60|1580.00|200000|200000", ts))
	engine.Parse(fmt.Sprintf("3|%s|NEW|Hero|502|Sharpshooter|60|1580.00|200000|200000", ts))

	engine.mu.Lock()
	defer engine.mu.Unlock()
	require.Len(t, engine.session.Entities, 1, "同名玩家不应出现两份")
	assert.Equal(t, "NEW", engine.session.Entities[0].ID, "既有记录的ID应就地更新")
	assert.Nil(t, engine.getEntity("OLD"))
}

// TestNewPCIDEqualsNameSkipped ID与名称相同的畸形行被跳过
func TestNewPCIDEqualsNameSkipped(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.Parse(fmt.Sprintf("3|%s|Hero|Hero|502|Sharpshooter|60|1580.00|200000|200000", nowStamp()))

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Empty(t, engine.session.Entities)
}

// TestActiveUserIdentityApplied 本地玩家进场时应用身份信息
func TestActiveUserIdentityApplied(t *testing.T) {
	engine, _ := newTestEngine(t)
	ts := nowStamp()

	engine.Parse(fmt.Sprintf("0|%s|ME|RealName|502|55|1575.83", ts))
	engine.Parse(fmt.Sprintf("3|%s|ME|SomeName|502|Sharpshooter|1|0|200000|200000", ts))

	engine.mu.Lock()
	defer engine.mu.Unlock()
	me := engine.getEntity("ME")
	require.NotNil(t, me)
	assert.Equal(t, "You", me.Name, "本地玩家使用显示别名")
	assert.Equal(t, 55, me.Level)
	assert.InDelta(t, 1575.83, me.GearLevel, 0.001)

	user := engine.activeUser
	assert.Equal(t, "RealName", user.RealName)
	assert.Equal(t, 502, user.ClassID)
}

// TestInitPCLevelClamp 等级越界时清零
func TestInitPCLevelClamp(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.Parse(fmt.Sprintf("0|%s|ME|Name|502|70|1575.00", nowStamp()))
	assert.Zero(t, engine.ActiveUserInfo().Level)
}

// TestPlainMonsterNotTracked 普通怪不入会话单位表
func TestPlainMonsterNotTracked(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.Parse(fmt.Sprintf("4|%s|M1|999999|Trash Mob|1000|1000", nowStamp()))

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Empty(t, engine.session.Entities)
	assert.False(t, engine.hasBossEntity)
}

// TestDeathHandling 玩家死亡计数；普通NPC移出；Boss不动
func TestDeathHandling(t *testing.T) {
	engine, _ := newTestEngine(t)
	ts := nowStamp()

	engine.Parse(fmt.Sprintf("3|%s|P1|Hero|502|Sharpshooter|60|1580.00|200000|200000", ts))
	feedGuardian(engine, ts)

	engine.Parse(fmt.Sprintf("5|%s|P1|Hero|B1|Boss", ts))
	engine.Parse(fmt.Sprintf("5|%s|B1|Boss|P1|Hero", ts))

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Equal(t, int64(1), engine.getEntity("P1").Stats.Deaths)
	assert.NotNil(t, engine.getEntity("B1"), "Boss死亡由阶段记录驱动，不应移出")
}

// TestUnknownSourcePromotedBySkills 占位单位凭技能史提升为玩家
func TestUnknownSourcePromotedBySkills(t *testing.T) {
	engine, _ := newTestEngine(t)
	ts := nowStamp()

	feedGuardian(engine, ts)
	// 未进场的来源使用吟游诗人技能21170
	engine.Parse(fmt.Sprintf("8|%s|X1|Mystery|21170|Symphonia|0||B1|Boss|100|0|0|0|0|4900|5000", ts))

	engine.mu.Lock()
	defer engine.mu.Unlock()
	source := engine.getEntity("X1")
	require.NotNil(t, source)
	assert.Equal(t, encounter.EntityPlayer, source.Type, "解析出职业后应提升为玩家")
	assert.Equal(t, 204, source.ClassID)
	assert.Equal(t, "Bard", source.Class)
}

// TestResetWithKeepFiltersEntities 保留重置的幸存筛选
func TestResetWithKeepFiltersEntities(t *testing.T) {
	engine, _ := newTestEngine(t)
	now := engine.now().UnixMilli()

	engine.mu.Lock()
	alive := encounter.NewEntity("P1", "Hero", encounter.EntityPlayer)
	alive.LastUpdate = now
	stale := encounter.NewEntity("P2", "Gone", encounter.EntityPlayer)
	stale.LastUpdate = now - (6 * time.Minute).Milliseconds()
	deadBoss := encounter.NewEntity("B1", "Boss", encounter.EntityBoss)
	deadBoss.CurrentHP = 0
	deadBoss.LastUpdate = now
	liveBoss := encounter.NewEntity("B2", "Guardian", encounter.EntityGuardian)
	liveBoss.CurrentHP = 100
	liveBoss.LastUpdate = now
	monster := encounter.NewEntity("M1", "Add", encounter.EntityMonster)
	monster.CurrentHP = 100
	monster.LastUpdate = now

	engine.session.Entities = []*encounter.Entity{alive, stale, deadBoss, liveBoss, monster}
	kept := engine.resetEntities()
	engine.mu.Unlock()

	ids := make([]string, 0, len(kept))
	for _, e := range kept {
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, []string{"P1", "B2"}, ids,
		"超时玩家、死亡Boss与普通怪应被淘汰")
}

// TestResetKeepExemptsActiveUser 本地玩家豁免超时淘汰
func TestResetKeepExemptsActiveUser(t *testing.T) {
	engine, _ := newTestEngine(t)
	now := engine.now().UnixMilli()

	engine.mu.Lock()
	engine.activeUser.ID = "ME"
	me := encounter.NewEntity("ME", "You", encounter.EntityPlayer)
	me.LastUpdate = now - (30 * time.Minute).Milliseconds()
	engine.session.Entities = []*encounter.Entity{me}
	kept := engine.resetEntities()
	engine.mu.Unlock()

	require.Len(t, kept, 1)
	assert.Equal(t, "ME", kept[0].ID)
}

// TestForceResetDropsEntities 强制重置不保留任何单位
func TestForceResetDropsEntities(t *testing.T) {
	engine, _ := newTestEngine(t)
	ts := nowStamp()

	engine.Parse(fmt.Sprintf("3|%s|P1|Hero|502|Sharpshooter|60|1580.00|200000|200000", ts))
	feedGuardian(engine, ts)

	engine.Reset(true)
	time.Sleep(50 * time.Millisecond)

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Empty(t, engine.session.Entities)
}

// TestBattleItemRouting 战斗道具效果入道具桶而非技能桶
func TestBattleItemRouting(t *testing.T) {
	engine, _ := newTestEngine(t)
	ts := nowStamp()

	engine.Parse(fmt.Sprintf("3|%s|P1|Hero|502|Sharpshooter|60|1580.00|200000|200000", ts))
	feedGuardian(engine, ts)
	// 技能效果ID 32270 是战斗道具（旋风手雷）
	engine.Parse(fmt.Sprintf("8|%s|P1|Hero|0||32270|Whirlwind Grenade|B1|Boss|400|0|0|0|0|4600|5000", ts))

	engine.mu.Lock()
	defer engine.mu.Unlock()
	player := engine.getEntity("P1")
	require.NotNil(t, player)

	item := player.BattleItems[32270]
	require.NotNil(t, item, "道具伤害应归入道具桶")
	assert.Equal(t, int64(400), item.Damage)
	assert.Empty(t, player.Skills, "道具伤害不应建立技能桶")
	assert.Equal(t, int64(400), player.Stats.DamageDealt, "单位总伤仍然累计")
}

// TestBattleItemUseCounted 道具使用记录计数（v2新增记录类型）
func TestBattleItemUseCounted(t *testing.T) {
	engine, _ := newTestEngine(t)
	ts := nowStamp()

	engine.Parse(fmt.Sprintf("3|%s|P1|Hero|502|Sharpshooter|60|1580.00|200000|200000", ts))
	engine.Parse(fmt.Sprintf("13|%s|P1|Hero|32100|HP Potion", ts))
	engine.Parse(fmt.Sprintf("13|%s|P1|Hero|32100|HP Potion", ts))

	engine.mu.Lock()
	defer engine.mu.Unlock()
	item := engine.getEntity("P1").BattleItems[32100]
	require.NotNil(t, item)
	assert.Equal(t, int64(2), item.Uses)
}

// TestHealAndCounter 治疗与反击聚合
func TestHealAndCounter(t *testing.T) {
	engine, _ := newTestEngine(t)
	ts := nowStamp()

	engine.Parse(fmt.Sprintf("3|%s|P1|Hero|502|Sharpshooter|60|1580.00|200000|200000", ts))
	engine.Parse(fmt.Sprintf("9|%s|P1|Hero|1500|200000", ts))
	engine.Parse(fmt.Sprintf("12|%s|P1|Hero|B1|Boss", ts))

	engine.mu.Lock()
	defer engine.mu.Unlock()
	player := engine.getEntity("P1")
	assert.Equal(t, int64(1500), player.Stats.Healing)
	assert.Equal(t, int64(1), player.Stats.Counters)
}

// TestHealUnknownSourceIgnored 治疗不为未知来源捏造单位
func TestHealUnknownSourceIgnored(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.Parse(fmt.Sprintf("9|%s|GHOST|Ghost|1500|200000", nowStamp()))

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Empty(t, engine.session.Entities)
}

// TestLoadArchivedRejectsActiveSession 进行中的会话拒绝加载归档
func TestLoadArchivedRejectsActiveSession(t *testing.T) {
	engine, _ := newTestEngine(t)
	ts := nowStamp()

	archived := encounter.NewSession(nil)

	require.NoError(t, engine.LoadArchived(archived))
	assert.NotNil(t, engine.Previous())

	engine.ResetPrevious()
	engine.Parse(fmt.Sprintf("3|%s|P1|Hero|502|Sharpshooter|60|1580.00|200000|200000", ts))
	feedGuardian(engine, ts)
	engine.Parse(fmt.Sprintf("8|%s|P1|Hero|100|Slash|0||B1|Boss|500|0|0|0|0|4500|5000", ts))

	err := engine.LoadArchived(encounter.NewSession(nil))
	assert.ErrorIs(t, err, ErrSessionActive)
}

// TestMalformedLineDropped 解码失败的行不触碰引擎状态
func TestMalformedLineDropped(t *testing.T) {
	engine, _ := newTestEngine(t)

	engine.Parse("garbage without format")
	engine.Parse("")

	assert.Equal(t, int64(2), engine.droppedLines.Load())
	assert.Zero(t, engine.parsedLines.Load())
}

// TestGetStats 运行统计快照
func TestGetStats(t *testing.T) {
	engine, _ := newTestEngine(t)
	feedGuardian(engine, nowStamp())

	stats := engine.GetStats()
	assert.Equal(t, int64(1), stats["parsed_lines"])
	assert.Equal(t, 1, stats["entities"])
	assert.Equal(t, true, stats["has_boss"])
}
