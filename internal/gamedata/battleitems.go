package gamedata

// battleItems 战斗道具（投掷物/消耗品）的效果ID集合
// 伤害事件的skillEffectId命中该集合时，伤害记入道具桶而非技能桶
var battleItems = map[int]string{
	32100: "Flame Grenade",
	32102: "Frost Grenade",
	32270: "Whirlwind Grenade",
	32271: "Whirlwind Grenade",
	32300: "Destruction Bomb",
	32301: "Destruction Bomb",
	32380: "Clay Grenade",
	32402: "Electric Grenade",
	32403: "Electric Grenade",
	33500: "Dark Grenade",
}

// IsBattleItem 判断效果ID是否为战斗道具
func IsBattleItem(effectID int) bool {
	_, ok := battleItems[effectID]
	return ok
}

// BattleItemName 返回战斗道具名称，未知返回"Unknown Item"
func BattleItemName(effectID int) string {
	if name, ok := battleItems[effectID]; ok {
		return name
	}
	return "Unknown Item"
}
