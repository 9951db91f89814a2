package mdb

import "strings"

// AlarmLevel 报警级别
type AlarmLevel string

const (
	LevelOkay     AlarmLevel = "OKAY"
	LevelWatch    AlarmLevel = "WATCH"
	LevelWarning  AlarmLevel = "WARNING"
	LevelDistress AlarmLevel = "DISTRESS"
	LevelCritical AlarmLevel = "CRITICAL"
	LevelSevere   AlarmLevel = "SEVERE"
)

var levelRank = map[AlarmLevel]int{
	LevelOkay:     0,
	LevelWatch:    1,
	LevelWarning:  2,
	LevelDistress: 3,
	LevelCritical: 4,
	LevelSevere:   5,
}

// Rank 严重程度排序值，未知级别返回 -1
func (l AlarmLevel) Rank() int {
	if r, ok := levelRank[l]; ok {
		return r
	}
	return -1
}

// ParseAlarmLevel 解析报警级别（不区分大小写）
func ParseAlarmLevel(s string) (AlarmLevel, bool) {
	l := AlarmLevel(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := levelRank[l]
	return l, ok
}

// EnumerationAlarm 枚举标签对应的报警级别
type EnumerationAlarm struct {
	Level AlarmLevel `json:"level" yaml:"level"`
	Label string     `json:"label" yaml:"label"`
}

// AlarmInfo 报警定义（默认或上下文）
type AlarmInfo struct {
	MinViolations     int                `json:"minViolations,omitempty" yaml:"minViolations,omitempty"`
	EnumerationAlarms []EnumerationAlarm `json:"enumerationAlarm,omitempty" yaml:"enumerationAlarm,omitempty"`
}

// ContextAlarmInfo 带上下文条件的报警定义
type ContextAlarmInfo struct {
	Context string     `json:"context" yaml:"context"`
	Alarm   *AlarmInfo `json:"alarm" yaml:"alarm"`
}

// LookupAlarmLevel 按声明顺序查找第一个标签完全相等的条目
func LookupAlarmLevel(alarm *AlarmInfo, v EnumValue) (AlarmLevel, bool) {
	if alarm == nil {
		return "", false
	}
	for _, ea := range alarm.EnumerationAlarms {
		if ea.Label == v.Label {
			if level, ok := ParseAlarmLevel(string(ea.Level)); ok {
				return level, true
			}
			return ea.Level, true
		}
	}
	return "", false
}

// DefaultAlarmLevel 查找类型默认报警中枚举值的级别
func DefaultAlarmLevel(t *Type, v EnumValue) (AlarmLevel, bool) {
	if t == nil {
		return "", false
	}
	return LookupAlarmLevel(t.DefaultAlarm, v)
}

// ContextAlarmLevel 查找某个上下文报警中枚举值的级别
func ContextAlarmLevel(ca ContextAlarmInfo, v EnumValue) (AlarmLevel, bool) {
	return LookupAlarmLevel(ca.Alarm, v)
}

// EnumAlarmRow 参数详情页中一个枚举值的报警级别汇总
type EnumAlarmRow struct {
	Value         EnumValue    `json:"value"`
	DefaultLevel  AlarmLevel   `json:"defaultLevel,omitempty"`
	ContextLevels []AlarmLevel `json:"contextLevels,omitempty"`
	WorstLevel    AlarmLevel   `json:"worstLevel,omitempty"`
}

// EnumAlarmTable 为类型的每个枚举值生成默认/上下文报警级别
// ContextLevels 与 t.ContextAlarms 一一对应，未匹配为空字符串
func EnumAlarmTable(t *Type) []EnumAlarmRow {
	if t == nil || len(t.EnumValues) == 0 {
		return nil
	}
	rows := make([]EnumAlarmRow, 0, len(t.EnumValues))
	for _, v := range t.EnumValues {
		row := EnumAlarmRow{Value: v}
		if level, ok := DefaultAlarmLevel(t, v); ok {
			row.DefaultLevel = level
		}
		if len(t.ContextAlarms) > 0 {
			row.ContextLevels = make([]AlarmLevel, len(t.ContextAlarms))
			for i, ca := range t.ContextAlarms {
				if level, ok := ContextAlarmLevel(ca, v); ok {
					row.ContextLevels[i] = level
				}
			}
		}
		if worst, ok := HighestLevel(append([]AlarmLevel{row.DefaultLevel}, row.ContextLevels...)...); ok {
			row.WorstLevel = worst
		}
		rows = append(rows, row)
	}
	return rows
}

// HighestLevel 返回集合中最严重的级别
func HighestLevel(levels ...AlarmLevel) (AlarmLevel, bool) {
	var best AlarmLevel
	found := false
	for _, l := range levels {
		if l.Rank() < 0 {
			continue
		}
		if !found || l.Rank() > best.Rank() {
			best = l
			found = true
		}
	}
	return best, found
}
