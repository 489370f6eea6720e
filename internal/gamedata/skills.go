package gamedata

// classSkills 按职业ID分组的技能表（技能ID → 技能名）
// 用于在玩家职业未知时根据已使用技能反推职业
// 完整表随游戏版本同步，以下覆盖当前支持的职业技能段
var classSkills = map[int]map[int]string{
	102: { // Berserker
		16000: "Basic Attack",
		16030: "Power Break",
		16050: "Crime Hazard",
		16060: "Shoulder Charge",
		16070: "Whirlwind",
		16080: "Hell Blade",
		16100: "Double Slash",
		16110: "Assault Blade",
		16120: "Red Dust",
		16140: "Bloody Rush",
		16190: "Tempest Slash",
		16220: "Mountain Crash",
		16300: "Finish Strike",
		16600: "Sword Storm",
		16700: "Chain of Vengeance",
		16710: "Berserk Fury",
	},
	103: { // Destroyer
		18000: "Basic 3 Chain Hits",
		18011: "Vortex Gravity",
		18050: "Heavy Crush",
		18060: "Gravity Impact",
		18070: "Full Swing",
		18080: "Earth Smasher",
		18110: "Dreadnaught",
		18120: "Terra Break",
		18130: "Seismic Hammer",
		18150: "Earth Eater",
		18170: "Perfect Swing",
		18230: "Big Bang",
	},
	104: { // Gunlancer
		17000: "Basic Attack 3 Combo Hits",
		17040: "Bash",
		17050: "Shield Charge",
		17070: "Rising Gunlance",
		17090: "Hook Chain",
		17100: "Shield Shock",
		17110: "Leap Attack",
		17150: "Shield Bash",
		17160: "Gunlance Shot",
		17200: "Surge Cannon",
		17210: "Charged Stinger",
		17220: "Lance of Judgment",
	},
	105: { // Paladin
		36000: "Basic Attack",
		36050: "Light Shock",
		36060: "Sword of Justice",
		36080: "Holy Explosion",
		36100: "Punishment",
		36120: "Flash Thrust",
		36150: "Godsent Law",
		36170: "Holy Sword",
		36200: "Executor's Sword",
		36210: "Light's Vestige",
	},
	204: { // Bard
		21000: "Basic Attack",
		21040: "Heavenly Tune",
		21050: "Wind of Music",
		21060: "Music Notes",
		21070: "Sound Shock",
		21080: "Prelude of Storm",
		21100: "Sonic Vibration",
		21140: "Sonatina",
		21160: "Rhapsody of Light",
		21170: "Symphonia",
		21230: "Oratorio",
		21250: "Guardian Tune",
	},
	205: { // Sorceress
		37000: "Basic Attack",
		37100: "Blaze",
		37110: "Frost's Call",
		37120: "Rime Arrow",
		37140: "Seraphic Hail",
		37150: "Punishing Strike",
		37160: "Lightning Vortex",
		37170: "Esoteric Reaction",
		37200: "Reverse Gravity",
		37230: "Doomsday",
		37260: "Explosion",
		37350: "Squall",
	},
	302: { // Wardancer
		22000: "Basic Attack",
		22040: "Triple Fist",
		22060: "Lightning Kick",
		22080: "Roar of Courage",
		22100: "Moon Flash Kick",
		22120: "Sky Shattering Blow",
		22140: "Sweeping Kick",
		22160: "Flash Heat Fang",
		22340: "Call of the Wind God",
	},
	303: { // Scrapper
		23000: "Basic Attack",
		23050: "Roundup Sweep",
		23070: "Death Rattle",
		23090: "Iron Cannon Blow",
		23110: "Dragon Advent",
		23130: "Chain Destruction Fist",
		23230: "Instant Hit",
		23310: "Judgment",
	},
	304: { // Soulfist
		24000: "Basic Attack",
		24050: "Heavenly Squash",
		24070: "Flash Step",
		24090: "Bolting Crash",
		24110: "Force Orb",
		24150: "Merciless Pummel",
		24200: "World Decimation",
		24230: "Annihilating Ray",
	},
	402: { // Deathblade
		25000: "Basic Attack",
		25040: "Spincutter",
		25060: "Wind Cut",
		25080: "Maelstrom",
		25100: "Blitz Rush",
		25120: "Void Strike",
		25160: "Earth Cleaver",
		25180: "Flash Blink",
		25350: "Blade Assault",
		25400: "Zero-sum Strike",
	},
	403: { // Shadowhunter
		26000: "Basic Attack",
		26040: "Demonic Slash",
		26060: "Cruel Cutter",
		26080: "Demon Vision",
		26110: "Howl",
		26140: "Demonic Clone",
		26180: "Sharpened Cut",
		26220: "Demonic Grip",
		26800: "Demonization",
	},
	502: { // Sharpshooter
		28000: "Basic Attack",
		28040: "Atomic Arrow",
		28060: "Deadly Slash",
		28090: "Salvo",
		28110: "Snipe",
		28130: "Moving Slash",
		28170: "Arrow Wave",
		28220: "Golden Eye",
	},
	504: { // Artillerist
		30000: "Basic Attack",
		30050: "Napalm Shot",
		30070: "Enhanced Shell",
		30090: "Multiple Rocket Launcher",
		30110: "Swing",
		30130: "Gatling Gun",
		30180: "Air Raid",
		30260: "Missile Barrage",
		30290: "Heavy Turret",
	},
	512: { // Gunslinger
		38000: "Basic Attack",
		38040: "Peacekeeper",
		38060: "Spiral Tracker",
		38110: "AT02 Grenade",
		38130: "Sharpshooter",
		38160: "Catastrophe",
		38190: "Perfect Shot",
		38230: "High-Caliber HE Bullet",
	},
}

// ClassFromSkillID 根据技能ID反查职业ID，查不到返回0
func ClassFromSkillID(skillID int) int {
	for classID, skills := range classSkills {
		if _, ok := skills[skillID]; ok {
			return classID
		}
	}
	return 0
}

// SkillName 根据技能ID返回技能名，查不到返回"Unknown Skill"
func SkillName(skillID int) string {
	for _, skills := range classSkills {
		if name, ok := skills[skillID]; ok {
			return name
		}
	}
	return "Unknown Skill"
}
