package loglines

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// SplitChar 行内字段分隔符
const SplitChar = "|"

var (
	ErrEmptyLine    = errors.New("empty line")
	ErrTooFewFields = errors.New("too few fields")
	ErrInvalidKind  = errors.New("invalid record kind")
)

// TryParseInt 防御性整数解析：解析失败返回0
// feed偶发畸形字段（截断的名称、非数字占位符），不因此中断整行
func TryParseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// TryParseInt64 防御性int64解析：解析失败返回0
func TryParseInt64(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// TryParseFloat 防御性浮点解析：解析失败返回0
func TryParseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// parseTimestamp 解析时间戳字段：优先RFC3339，其次unix毫秒数字，失败返回0
func parseTimestamp(s string) int64 {
	if s == "" {
		return 0
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UnixMilli()
	}
	if t, err := time.Parse("2006-01-02 15:04:05.999", s); err == nil {
		return t.UnixMilli()
	}
	return TryParseInt64(s)
}

// field 越界安全的字段访问
func field(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return fields[i]
}

// fieldOr 越界/为空时回退哨兵值的字段访问
func fieldOr(fields []string, i int, fallback string) string {
	if s := field(fields, i); s != "" {
		return s
	}
	return fallback
}

// Decode 将一行原始文本解码为类型化记录
// 首字段为数字类型码，次字段恒为时间戳；类型码缺失或非数字时关闭失败：
// 返回错误而不进入调用方状态，由调用方记日志后丢弃该行
func Decode(line string, format *LineFormat) (Record, error) {
	if format == nil {
		format = DefaultFormat()
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return nil, ErrEmptyLine
	}

	fields := strings.Split(line, SplitChar)
	if len(fields) < 2 || fields[0] == "" {
		return nil, ErrTooFewFields
	}

	code, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return nil, ErrInvalidKind
	}

	ts := parseTimestamp(field(fields, 1))

	kind, ok := format.KindOf(code)
	if !ok {
		return &UnhandledRecord{base: base{kind: "", Timestamp: ts}, Code: code}, nil
	}

	switch kind {
	case KindMessage:
		return &MessageRecord{
			base:    base{kind: kind, Timestamp: ts},
			Message: field(fields, 2),
		}, nil

	case KindInitPC:
		return &InitPCRecord{
			base:      base{kind: kind, Timestamp: ts},
			ID:        field(fields, 2),
			Name:      fieldOr(fields, 3, UnknownEntity),
			ClassID:   TryParseInt(field(fields, 4)),
			Level:     TryParseInt(field(fields, 5)),
			GearLevel: TryParseFloat(field(fields, 6)),
		}, nil

	case KindInitEnv:
		return &InitEnvRecord{
			base:            base{kind: kind, Timestamp: ts},
			PlayerID:        field(fields, 2),
			PlayerName:      fieldOr(fields, 3, UnknownEntity),
			PlayerGearLevel: field(fields, 4),
		}, nil

	case KindPhaseTransition:
		result := RaidResult(TryParseInt(field(fields, 2)))
		if result < RaidResultEnd || result > RaidResultWipe {
			result = RaidResultEnd
		}
		return &PhaseTransitionRecord{
			base:   base{kind: kind, Timestamp: ts},
			Result: result,
		}, nil

	case KindNewPC:
		return &NewPCRecord{
			base:      base{kind: kind, Timestamp: ts},
			ID:        field(fields, 2),
			Name:      fieldOr(fields, 3, UnknownEntity),
			ClassID:   TryParseInt(field(fields, 4)),
			Class:     fieldOr(fields, 5, UnknownClass),
			Level:     TryParseInt(field(fields, 6)),
			GearLevel: TryParseFloat(field(fields, 7)),
			CurrentHP: TryParseInt64(field(fields, 8)),
			MaxHP:     TryParseInt64(field(fields, 9)),
		}, nil

	case KindNewNPC:
		return &NewNPCRecord{
			base:      base{kind: kind, Timestamp: ts},
			ID:        field(fields, 2),
			NpcID:     TryParseInt(field(fields, 3)),
			Name:      fieldOr(fields, 4, UnknownEntity),
			CurrentHP: TryParseInt64(field(fields, 5)),
			MaxHP:     TryParseInt64(field(fields, 6)),
		}, nil

	case KindDeath:
		return &DeathRecord{
			base:       base{kind: kind, Timestamp: ts},
			ID:         field(fields, 2),
			Name:       fieldOr(fields, 3, UnknownEntity),
			KillerID:   field(fields, 4),
			KillerName: fieldOr(fields, 5, UnknownEntity),
		}, nil

	case KindDamage:
		return decodeDamage(fields, ts), nil

	case KindHeal:
		return &HealRecord{
			base:      base{kind: kind, Timestamp: ts},
			ID:        field(fields, 2),
			Name:      fieldOr(fields, 3, UnknownEntity),
			Amount:    TryParseInt64(field(fields, 4)),
			CurrentHP: TryParseInt64(field(fields, 5)),
		}, nil

	case KindCounter:
		return &CounterRecord{
			base:       base{kind: kind, Timestamp: ts},
			ID:         field(fields, 2),
			Name:       fieldOr(fields, 3, UnknownEntity),
			TargetID:   field(fields, 4),
			TargetName: fieldOr(fields, 5, UnknownEntity),
		}, nil

	case KindBattleItem:
		itemID := TryParseInt(field(fields, 4))
		return &BattleItemRecord{
			base:     base{kind: kind, Timestamp: ts},
			ID:       field(fields, 2),
			Name:     fieldOr(fields, 3, UnknownEntity),
			ItemID:   itemID,
			ItemName: field(fields, 5),
		}, nil

	default:
		// skill-start/stage、buff：上游未实现明细，解码为空操作记录
		return &UnhandledRecord{base: base{kind: kind, Timestamp: ts}, Code: code}, nil
	}
}

// decodeDamage 解码伤害记录并派生命中分类
// 显式标志列与位打包修饰字段相互独立，任一命中即置位（非互斥）
func decodeDamage(fields []string, ts int64) *DamageRecord {
	d := &DamageRecord{
		base:          base{kind: KindDamage, Timestamp: ts},
		SourceID:      field(fields, 2),
		SourceName:    fieldOr(fields, 3, UnknownEntity),
		SkillID:       TryParseInt(field(fields, 4)),
		SkillName:     fieldOr(fields, 5, UnknownSkill),
		SkillEffectID: TryParseInt(field(fields, 6)),
		SkillEffect:   field(fields, 7),
		TargetID:      field(fields, 8),
		TargetName:    fieldOr(fields, 9, UnknownEntity),
		Damage:        TryParseInt64(field(fields, 10)),
		Modifier:      TryParseInt(field(fields, 11)),
		CurrentHP:     TryParseInt64(field(fields, 15)),
		MaxHP:         TryParseInt64(field(fields, 16)),
	}

	flag := d.HitFlagOf()
	option := d.HitOptionOf()

	d.IsCrit = field(fields, 12) == "1" || flag == HitFlagCritical || flag == HitFlagDotCritical
	d.IsBackAttack = field(fields, 13) == "1" || option == HitOptionBack
	d.IsFrontAttack = field(fields, 14) == "1" || option == HitOptionFrontal
	d.IsInvincible = flag == HitFlagInvincible

	return d
}
