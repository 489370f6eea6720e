package loglines

// Kind 记录类型（解码后的事件种类）
type Kind string

const (
	KindMessage         Kind = "MESSAGE"
	KindInitPC          Kind = "INIT_PC"
	KindInitEnv         Kind = "INIT_ENV"
	KindPhaseTransition Kind = "PHASE_TRANSITION"
	KindNewPC           Kind = "NEW_PC"
	KindNewNPC          Kind = "NEW_NPC"
	KindDeath           Kind = "DEATH"
	KindSkillStart      Kind = "SKILL_START"
	KindSkillStage      Kind = "SKILL_STAGE"
	KindDamage          Kind = "DAMAGE"
	KindHeal            Kind = "HEAL"
	KindBuff            Kind = "BUFF"
	KindCounter         Kind = "COUNTER"
	KindBattleItem      Kind = "BATTLE_ITEM"
)

// LineFormat 描述一个feed协议版本下 数字类型码→记录类型 的映射
// 类型码随feed版本漂移（历史上死亡码从11移到12、新增了战斗道具码），
// 因此映射作为版本化配置下发，不硬编码单一真值
type LineFormat struct {
	Version string
	kinds   map[int]Kind
}

// NewLineFormat 从 记录类型→类型码 的配置表构建LineFormat
func NewLineFormat(version string, codes map[Kind]int) *LineFormat {
	kinds := make(map[int]Kind, len(codes))
	for kind, code := range codes {
		kinds[code] = kind
	}
	return &LineFormat{Version: version, kinds: kinds}
}

// KindOf 返回类型码对应的记录类型，未映射返回false
func (f *LineFormat) KindOf(code int) (Kind, bool) {
	k, ok := f.kinds[code]
	return k, ok
}

// DefaultKindCodes 返回指定feed协议版本的默认类型码表
// 未知版本退回当前版本("v2")
func DefaultKindCodes(version string) map[Kind]int {
	switch version {
	case "v1":
		return map[Kind]int{
			KindMessage:         -1,
			KindInitPC:          0,
			KindInitEnv:         1,
			KindPhaseTransition: 2,
			KindNewPC:           3,
			KindNewNPC:          4,
			KindDeath:           5,
			KindSkillStart:      6,
			KindSkillStage:      7,
			KindDamage:          8,
			KindHeal:            9,
			KindBuff:            10,
			KindCounter:         11,
		}
	default: // v2: 计数反击码11→12，新增战斗道具码13
		return map[Kind]int{
			KindMessage:         -1,
			KindInitPC:          0,
			KindInitEnv:         1,
			KindPhaseTransition: 2,
			KindNewPC:           3,
			KindNewNPC:          4,
			KindDeath:           5,
			KindSkillStart:      6,
			KindSkillStage:      7,
			KindDamage:          8,
			KindHeal:            9,
			KindBuff:            10,
			KindCounter:         12,
			KindBattleItem:      13,
		}
	}
}

// DefaultFormat 当前feed协议版本的默认格式
func DefaultFormat() *LineFormat {
	return NewLineFormat("v2", DefaultKindCodes("v2"))
}
