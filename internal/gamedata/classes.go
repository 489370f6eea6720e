package gamedata

// 职业ID与名称的双向映射表
// 来源为游戏客户端数据，随版本更新维护
var classNames = map[int]string{
	101: "Warrior",
	102: "Berserker",
	103: "Destroyer",
	104: "Gunlancer",
	105: "Paladin",
	201: "Mage",
	202: "Arcana",
	203: "Summoner",
	204: "Bard",
	205: "Sorceress",
	301: "MartialArtist",
	302: "Wardancer",
	303: "Scrapper",
	304: "Soulfist",
	305: "Glaivier",
	311: "MaleMartialArtist",
	312: "Striker",
	401: "Assassin",
	402: "Deathblade",
	403: "Shadowhunter",
	404: "Reaper",
	501: "Gunner",
	502: "Sharpshooter",
	503: "Deadeye",
	504: "Artillerist",
	505: "Machinist",
	511: "FemaleGunner",
	512: "Gunslinger",
}

var classIDs = func() map[string]int {
	m := make(map[string]int, len(classNames)+1)
	for id, name := range classNames {
		m[name] = id
	}
	// 旧拼写别名
	m["Glavier"] = 305
	m["Scouter"] = 505
	return m
}()

// ClassName 根据职业ID返回职业名称，未知ID返回"Unknown Class"
func ClassName(id int) string {
	if name, ok := classNames[id]; ok {
		return name
	}
	return "Unknown Class"
}

// ClassID 根据职业名称返回职业ID，未知名称返回0
func ClassID(name string) int {
	if id, ok := classIDs[name]; ok {
		return id
	}
	return 0
}
