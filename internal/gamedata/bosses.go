package gamedata

// raidBosses 军团长/深渊团本Boss的NPC ID集合
var raidBosses = map[int]bool{
	// Valtan Gate 1/2
	480005: true,
	480006: true,
	480009: true,
	480010: true,
	480011: true,
	480026: true,
	480031: true,
	480032: true,
	// Vykas
	480208: true,
	480209: true,
	480210: true,
	// Argos
	634000: true,
	634010: true,
	634020: true,
	// Abyss dungeon bosses
	494206: true,
	494207: true,
	494209: true,
	494210: true,
}

// guardians 讨伐战守护者的NPC ID集合
var guardians = map[int]bool{
	509006: true, // Ur'nil
	512002: true, // Lumerus
	512004: true, // Icy Legoros
	512006: true, // Vertus
	512008: true, // Chromanium
	512009: true, // Nacrasena
	512011: true, // Flame Fox Yoho
	512012: true, // Tytalos
	512013: true, // Dark Legoros
	512014: true, // Helgaia
	512015: true, // Calventus
	512016: true, // Achates
	512017: true, // Frost Helgaia
	512019: true, // Lava Chromanium
	512020: true, // Levanos
	512022: true, // Alberhastic
	512023: true, // Armored Nacrasena
	512025: true, // Igrexion
	512027: true, // Night Fox Yoho
	512029: true, // Velganos
	620010: true, // Deskaluda
	620020: true, // Kungelanium
}

// abyssRaids 深渊团本（Argos等）按阶段出现的守护者型Boss
var abyssRaids = map[int]bool{
	634000: true,
	634010: true,
	634020: true,
}

// bossHealthBars 需要额外血条显示的Boss及其血条数量
// 部分Boss同时持有多条血条
var bossHealthBars = map[int]int{
	480005: 50,
	480009: 160,
	480010: 180,
	480208: 180,
	634000: 30,
	634010: 30,
	634020: 30,
	620010: 1,
	620020: 1,
}

// IsRaidBoss 判断NPC是否为团本Boss
func IsRaidBoss(npcID int) bool {
	return raidBosses[npcID]
}

// IsGuardian 判断NPC是否为守护者（含深渊团本阶段Boss）
func IsGuardian(npcID int) bool {
	return guardians[npcID] || abyssRaids[npcID]
}

// BossHealthBars 返回Boss的血条数量，0表示无需额外血条显示
func BossHealthBars(npcID int) int {
	return bossHealthBars[npcID]
}
