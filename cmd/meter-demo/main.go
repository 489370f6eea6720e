package main

import (
	"fmt"
	"sort"
	"time"

	"LoaDamageMeter/internal/encounter"
	"LoaDamageMeter/internal/gamedata"
	"LoaDamageMeter/internal/logger"
	"LoaDamageMeter/internal/meter"
)

// noopSink 演示用归档：只打印，不落盘
type noopSink struct{}

func (noopSink) Archive(session *encounter.Session, upload bool) {
	fmt.Printf("💾 归档会话 %s (上传=%v, 总伤害=%d)\n",
		session.ID, upload, session.DamageStatistics.TotalDamageDealt)
}

func main() {
	fmt.Println("🗡️  伤害统计引擎演示 - 合成阿尔高斯讨伐")
	fmt.Println("====================================")
	fmt.Println()

	cfg := meter.DefaultConfig()
	cfg.BroadcastInterval = 50 * time.Millisecond

	engine := meter.New(cfg, logger.New("demo", "warn"), noopSink{})

	// 订阅关键事件
	engine.Events().On(meter.EventShowBossHealth, func(_ meter.Event, payload interface{}) {
		if n, ok := payload.(*meter.BossHealthNotice); ok {
			fmt.Printf("👹 Boss现身: %s (HP %d/%d, %d条血)\n", n.Name, n.CurrentHP, n.MaxHP, n.Bars)
		}
	})
	engine.Events().On(meter.EventRaidEnd, func(_ meter.Event, payload interface{}) {
		fmt.Println("🏁 讨伐结束，会话已结算")
	})

	engine.Start()
	defer engine.Stop()

	now := time.Now().Format(time.RFC3339Nano)

	// 1. 玩家与Boss进场
	fmt.Println("🚀 灌入合成战斗日志...")
	engine.Parse(fmt.Sprintf("0|%s|P1|Hawkeye|502|60|1580.00", now))
	engine.Parse(fmt.Sprintf("3|%s|P2|Songbird|204|Bard|60|1557.50|200000|200000", now))
	engine.Parse(fmt.Sprintf("4|%s|B1|634000|Argos|100000000|100000000", now))

	// 2. 伤害交换
	hits := []struct {
		sourceID, name, skill string
		skillID               int
		damage                int64
		crit                  int
	}{
		{"P1", "Hawkeye", "Salvo", 28090, 1250000, 1},
		{"P1", "Hawkeye", "Salvo", 28090, 980000, 0},
		{"P2", "Songbird", "Symphonia", 21170, 320000, 0},
		{"P1", "Hawkeye", "Snipe", 28110, 2100000, 1},
	}
	bossHP := int64(100000000)
	for _, hit := range hits {
		bossHP -= hit.damage
		engine.Parse(fmt.Sprintf("8|%s|%s|%s|%d|%s|0||B1|Argos|%d|0|%d|0|0|%d|100000000",
			now, hit.sourceID, hit.name, hit.skillID, hit.skill, hit.damage, hit.crit, bossHP))
	}

	time.Sleep(200 * time.Millisecond)

	// 3. 打印实时快照
	snapshot := engine.Snapshot()
	fmt.Println()
	fmt.Printf("📊 实时快照 (持续 %.1fs, 总伤害 %d):\n",
		float64(snapshot.LastPacket-snapshot.FirstPacket)/1000,
		snapshot.DamageStatistics.TotalDamageDealt)

	entities := make([]*encounter.SimpleEntity, 0, len(snapshot.Entities))
	for _, ent := range snapshot.Entities {
		entities = append(entities, ent)
	}
	sort.Slice(entities, func(i, j int) bool {
		return entities[i].Stats.DamageDealt > entities[j].Stats.DamageDealt
	})
	for _, ent := range entities {
		if ent.Stats.DamageDealt == 0 {
			continue
		}
		fmt.Printf("   %-14s %-12s 伤害: %10d  暴击: %d/%d\n",
			ent.Name, gamedata.ClassName(ent.ClassID), ent.Stats.DamageDealt, ent.Stats.Crits, ent.Stats.Hits)
	}

	// 4. 阶段转换结算
	fmt.Println()
	fmt.Println("⏹️  触发阶段转换(讨伐成功)...")
	engine.Parse(fmt.Sprintf("2|%s|0", now))

	time.Sleep(3 * time.Second)

	stats := engine.GetStats()
	fmt.Println()
	fmt.Println("📋 引擎统计:")
	fmt.Printf("   已解析行: %v\n", stats["parsed_lines"])
	fmt.Printf("   伤害事件: %v\n", stats["damage_events"])
	fmt.Printf("   拒绝命中: %v\n", stats["rejected_hits"])
	fmt.Printf("   重置次数: %v\n", stats["reset_count"])
	fmt.Println()
	fmt.Println("✅ 演示完成!")
}
