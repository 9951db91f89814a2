package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportParameters(t *testing.T) {
	svc := newTestService(t)

	data, err := svc.ExportParameters("simulator", ListOptions{System: "/YSS/SIMULATOR"})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{exportSheet}, f.GetSheetList())

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, exportHeaders, rows[0])

	assert.Equal(t, "/YSS/SIMULATOR/BatteryVoltage1", rows[1][0])
	assert.Equal(t, "integer", rows[1][2])
	assert.Equal(t, "MDB:OPS Name/SIMULATOR_BatteryVoltage1", rows[1][7])

	mode := rows[3]
	assert.Equal(t, "/YSS/SIMULATOR/Mode", mode[0])
	assert.Equal(t, "0=SAFE, 1=NOMINAL", mode[6])
}

func TestExportParameters_UnknownInstance(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.ExportParameters("other", ListOptions{})
	assert.Error(t, err)
}
