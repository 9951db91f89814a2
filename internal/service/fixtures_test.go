package service

import (
	"testing"

	"telemetry-mdb/internal/mdb"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func floatPtr(f float64) *float64 { return &f }

func boolPtr(b bool) *bool { return &b }

func simulatorParameters() []*mdb.Parameter {
	floatType := &mdb.Type{EngType: "float", Shape: mdb.Scalar{}}
	modeType := &mdb.Type{
		EngType: "enumeration",
		EnumValues: []mdb.EnumValue{
			{Value: 0, Label: "SAFE"},
			{Value: 1, Label: "NOMINAL"},
		},
		DefaultAlarm: &mdb.AlarmInfo{EnumerationAlarms: []mdb.EnumerationAlarm{
			{Label: "SAFE", Level: mdb.LevelWarning},
		}},
		ContextAlarms: []mdb.ContextAlarmInfo{{
			Context: "/YSS/SIMULATOR/Phase == 'LAUNCH'",
			Alarm: &mdb.AlarmInfo{EnumerationAlarms: []mdb.EnumerationAlarm{
				{Label: "NOMINAL", Level: mdb.LevelCritical},
			}},
		}},
		Shape: mdb.Scalar{},
	}
	return []*mdb.Parameter{
		{
			QualifiedName: "/YSS/SIMULATOR/BatteryVoltage1",
			Description:   "Battery 1 voltage",
			DataSource:    "TELEMETERED",
			Aliases:       []string{"MDB:OPS Name/SIMULATOR_BatteryVoltage1"},
			Type:          &mdb.Type{EngType: "integer", Signed: boolPtr(false), Shape: mdb.Scalar{}},
		},
		{
			QualifiedName: "/YSS/SIMULATOR/BatteryVoltage2",
			Description:   "Battery 2 voltage",
			DataSource:    "TELEMETERED",
			Type:          &mdb.Type{EngType: "integer", Signed: boolPtr(false), Shape: mdb.Scalar{}},
		},
		{
			QualifiedName: "/YSS/SIMULATOR/Mode",
			DataSource:    "DERIVED",
			Type:          modeType,
		},
		{
			QualifiedName: "/YSS/SIMULATOR/Orbit",
			Description:   "Orbit state",
			DataSource:    "TELEMETERED",
			Type: &mdb.Type{EngType: "aggregate", Shape: mdb.Aggregate{Members: []mdb.Member{
				{Name: "position", Type: &mdb.Type{EngType: "array", Shape: mdb.Array{Elem: floatType, Dimensions: []int{3}}}},
				{Name: "mode", Description: "Attitude mode", Type: modeType},
			}}},
		},
		{
			QualifiedName: "/YSS/SIMULATOR/Power/Bus",
			DataSource:    "TELEMETERED",
			Type:          floatType,
		},
		{
			QualifiedName: "/YSS/Uptime",
			DataSource:    "SYSTEM",
			Type:          &mdb.Type{EngType: "integer", Shape: mdb.Scalar{}},
		},
	}
}

func simulatorCommands() []*mdb.Command {
	return []*mdb.Command{
		{
			QualifiedName: "/YSS/SIMULATOR/SWITCH_VOLTAGE_ON",
			Arguments: []mdb.Argument{{
				Name: "voltage_num",
				Type: &mdb.Type{EngType: "integer", Signed: boolPtr(false), RangeMin: floatPtr(1), RangeMax: floatPtr(3), Shape: mdb.Scalar{}},
			}},
		},
		{
			QualifiedName: "/YSS/SIMULATOR/SET_GAINS",
			Arguments: []mdb.Argument{
				{
					Name: "gains",
					Type: &mdb.Type{EngType: "array", Shape: mdb.Array{
						Elem:       &mdb.Type{EngType: "integer", RangeMax: floatPtr(255), Shape: mdb.Scalar{}},
						Dimensions: []int{2, 2},
					}},
				},
				{
					Name:         "mode",
					InitialValue: "SAFE",
					Type: &mdb.Type{EngType: "enumeration", EnumValues: []mdb.EnumValue{
						{Value: 0, Label: "SAFE"}, {Value: 1, Label: "NOMINAL"},
					}, Shape: mdb.Scalar{}},
				},
				{
					Name: "target",
					Type: &mdb.Type{EngType: "aggregate", Shape: mdb.Aggregate{Members: []mdb.Member{
						{Name: "x", Type: &mdb.Type{EngType: "float", Shape: mdb.Scalar{}}},
						{Name: "y", Type: &mdb.Type{EngType: "float", RangeMin: floatPtr(0), Shape: mdb.Scalar{}}},
					}}},
				},
			},
		},
		{
			QualifiedName: "/YSS/SIMULATOR/ABSTRACT_BASE",
			Abstract:      true,
		},
	}
}

func newTestSnapshot(t *testing.T) *mdb.Snapshot {
	t.Helper()
	snap, err := mdb.NewSnapshot("simulator", simulatorParameters(), simulatorCommands())
	require.NoError(t, err)
	return snap
}

func newTestService(t *testing.T) *MdbService {
	t.Helper()
	registry := NewRegistry(zap.NewNop())
	registry.Replace(newTestSnapshot(t))
	return NewMdbService(registry, 100, 1000, zap.NewNop())
}
