package mdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupAlarmLevel(t *testing.T) {
	alarm := &AlarmInfo{EnumerationAlarms: []EnumerationAlarm{
		{Label: "A", Level: LevelWarning},
		{Label: "B", Level: LevelCritical},
		{Label: "B", Level: LevelWatch},
	}}

	level, ok := LookupAlarmLevel(alarm, EnumValue{Label: "B"})
	require.True(t, ok)
	assert.Equal(t, LevelCritical, level)

	_, ok = LookupAlarmLevel(alarm, EnumValue{Label: "C"})
	assert.False(t, ok)

	// 精确匹配，不区分大小写的标签不算
	_, ok = LookupAlarmLevel(alarm, EnumValue{Label: "b"})
	assert.False(t, ok)

	_, ok = LookupAlarmLevel(nil, EnumValue{Label: "A"})
	assert.False(t, ok)
}

func TestEnumAlarmTable(t *testing.T) {
	typ := &Type{
		EngType: "enumeration",
		EnumValues: []EnumValue{
			{Value: 0, Label: "OFF"},
			{Value: 1, Label: "ON"},
			{Value: 2, Label: "FAULT"},
		},
		DefaultAlarm: &AlarmInfo{EnumerationAlarms: []EnumerationAlarm{
			{Label: "FAULT", Level: LevelCritical},
		}},
		ContextAlarms: []ContextAlarmInfo{
			{Context: "/YSS/SIMULATOR/Mode == 'SAFE'", Alarm: &AlarmInfo{EnumerationAlarms: []EnumerationAlarm{
				{Label: "ON", Level: LevelWarning},
				{Label: "UNKNOWN", Level: LevelSevere},
			}}},
		},
	}

	rows := EnumAlarmTable(typ)
	require.Len(t, rows, 3)

	assert.Equal(t, AlarmLevel(""), rows[0].DefaultLevel)
	assert.Equal(t, []AlarmLevel{""}, rows[0].ContextLevels)

	assert.Equal(t, AlarmLevel(""), rows[1].DefaultLevel)
	assert.Equal(t, []AlarmLevel{LevelWarning}, rows[1].ContextLevels)

	assert.Equal(t, LevelCritical, rows[2].DefaultLevel)
	assert.Equal(t, []AlarmLevel{""}, rows[2].ContextLevels)

	assert.Equal(t, AlarmLevel(""), rows[0].WorstLevel)
	assert.Equal(t, LevelWarning, rows[1].WorstLevel)
	assert.Equal(t, LevelCritical, rows[2].WorstLevel)

	assert.Nil(t, EnumAlarmTable(&Type{EngType: "integer"}))
}

func TestLookupAlarmLevel_NormalizesCase(t *testing.T) {
	alarm := &AlarmInfo{EnumerationAlarms: []EnumerationAlarm{{Label: "HOT", Level: "warning"}}}
	level, ok := LookupAlarmLevel(alarm, EnumValue{Value: 3, Label: "HOT"})
	require.True(t, ok)
	assert.Equal(t, LevelWarning, level)
}

func TestAlarmLevelRank(t *testing.T) {
	assert.Less(t, LevelWatch.Rank(), LevelWarning.Rank())
	assert.Less(t, LevelCritical.Rank(), LevelSevere.Rank())
	assert.Equal(t, -1, AlarmLevel("BOGUS").Rank())

	level, ok := ParseAlarmLevel(" distress ")
	require.True(t, ok)
	assert.Equal(t, LevelDistress, level)

	best, ok := HighestLevel(LevelWatch, "BOGUS", LevelCritical, LevelWarning)
	require.True(t, ok)
	assert.Equal(t, LevelCritical, best)

	_, ok = HighestLevel()
	assert.False(t, ok)
}
