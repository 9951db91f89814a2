package mdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validateInt(t *Type, value any, hex bool) *ValidationError {
	return Validate(BuildValidators(t), Input{Value: value, Hex: hex})
}

func TestBuildValidators_IntegerOrder(t *testing.T) {
	u8 := &Type{EngType: "integer", Signed: boolPtr(false), RangeMin: floatPtr(0), RangeMax: floatPtr(255)}

	// unsigned 先于 range
	err := validateInt(u8, "-1", false)
	require.NotNil(t, err)
	assert.Equal(t, CodeUnsigned, err.Code)

	err = validateInt(u8, "256", false)
	require.NotNil(t, err)
	assert.Equal(t, CodeMax, err.Code)
	require.NotNil(t, err.Limit)
	assert.Equal(t, 255.0, *err.Limit)

	assert.Nil(t, validateInt(u8, "255", false))
	assert.Nil(t, validateInt(u8, "0", false))
	assert.Nil(t, validateInt(u8, float64(12), false))
}

func TestBuildValidators_RequiredBeforeRange(t *testing.T) {
	typ := &Type{EngType: "integer", RangeMin: floatPtr(10), RangeMax: floatPtr(20)}

	for _, empty := range []any{nil, ""} {
		err := validateInt(typ, empty, false)
		require.NotNil(t, err)
		assert.Equal(t, CodeRequired, err.Code)
	}
}

func TestBuildValidators_IntegerLiteral(t *testing.T) {
	typ := &Type{EngType: "integer"}

	for _, bad := range []string{"1.5", "12a", "+3", " 4", "0x10", "--1", "1e3"} {
		err := validateInt(typ, bad, false)
		require.NotNil(t, err, bad)
		assert.Equal(t, CodeInteger, err.Code, bad)
		assert.Equal(t, bad, err.Actual)
	}
	for _, good := range []string{"0", "-42", "123456789012345678901234567890"} {
		assert.Nil(t, validateInt(typ, good, false), good)
	}
}

func TestBuildValidators_HexMode(t *testing.T) {
	typ := &Type{EngType: "integer", RangeMax: floatPtr(100)}

	assert.Nil(t, validateInt(typ, "0x64", true))

	err := validateInt(typ, "0x65", true)
	require.NotNil(t, err)
	assert.Equal(t, CodeMax, err.Code)

	// 未开启 hex 时 0x 前缀不是整数
	err = validateInt(typ, "0x64", false)
	require.NotNil(t, err)
	assert.Equal(t, CodeInteger, err.Code)

	// hex 模式仍接受十进制
	assert.Nil(t, validateInt(typ, "99", true))
}

func TestBuildValidators_NegativeHex(t *testing.T) {
	unsigned := &Type{EngType: "integer", Signed: boolPtr(false)}
	err := validateInt(unsigned, "-0x1", true)
	require.NotNil(t, err)
	assert.Equal(t, CodeUnsigned, err.Code)

	signed := &Type{EngType: "integer", RangeMin: floatPtr(-16)}
	assert.Nil(t, validateInt(signed, "-0x10", true))
	err = validateInt(signed, "-0x11", true)
	require.NotNil(t, err)
	assert.Equal(t, CodeMin, err.Code)
}

func TestBuildValidators_SignedByDefault(t *testing.T) {
	typ := &Type{EngType: "integer"}
	assert.Nil(t, validateInt(typ, "-5", false))
	assert.False(t, typ.IsUnsigned())
}

func TestBuildValidators_Float(t *testing.T) {
	typ := &Type{EngType: "float", RangeMin: floatPtr(-1.5), RangeMax: floatPtr(1.5)}
	v := BuildValidators(typ)

	assert.Nil(t, Validate(v, Input{Value: "0.25"}))
	assert.Nil(t, Validate(v, Input{Value: "-1.5"}))

	err := Validate(v, Input{Value: "abc"})
	require.NotNil(t, err)
	assert.Equal(t, CodeFloat, err.Code)

	err = Validate(v, Input{Value: "1.75"})
	require.NotNil(t, err)
	assert.Equal(t, CodeMax, err.Code)
}

func TestBuildValidators_ConstraintsWithoutEngType(t *testing.T) {
	u8 := &Type{Signed: boolPtr(false), RangeMin: floatPtr(0), RangeMax: floatPtr(255)}

	err := validateInt(u8, "-1", false)
	require.NotNil(t, err)
	assert.Equal(t, CodeUnsigned, err.Code)

	err = validateInt(u8, "999", false)
	require.NotNil(t, err)
	assert.Equal(t, CodeMax, err.Code)

	err = validateInt(u8, "abc", false)
	require.NotNil(t, err)
	assert.Equal(t, CodeInteger, err.Code)

	assert.Nil(t, validateInt(u8, "255", false))

	max100 := &Type{RangeMax: floatPtr(100)}
	assert.Nil(t, validateInt(max100, "0x64", true))
	err = validateInt(max100, "0x65", true)
	require.NotNil(t, err)
	assert.Equal(t, CodeMax, err.Code)
}

func TestBuildValidators_EngTypeCaseInsensitive(t *testing.T) {
	err := validateInt(&Type{EngType: "INTEGER", Signed: boolPtr(false)}, "-1", false)
	require.NotNil(t, err)
	assert.Equal(t, CodeUnsigned, err.Code)

	err = Validate(BuildValidators(&Type{EngType: "Float", RangeMax: floatPtr(1)}), Input{Value: "1.5"})
	require.NotNil(t, err)
	assert.Equal(t, CodeMax, err.Code)

	// 无约束的字符串类型只做必填校验
	assert.Len(t, BuildValidators(&Type{EngType: "string"}), 1)
}

func TestBuildValidators_Enumeration(t *testing.T) {
	typ := &Type{EngType: "enumeration", EnumValues: []EnumValue{{Value: 0, Label: "OFF"}, {Value: 1, Label: "ON"}}}
	v := BuildValidators(typ)

	assert.Nil(t, Validate(v, Input{Value: "ON"}))
	err := Validate(v, Input{Value: "on"})
	require.NotNil(t, err)
	assert.Equal(t, CodeEnum, err.Code)
}

func TestBuildValidators_NilType(t *testing.T) {
	v := BuildValidators(nil)
	require.Len(t, v, 1)
	assert.Equal(t, CodeRequired, Validate(v, Input{}).Code)
	assert.Nil(t, Validate(v, Input{Value: "anything"}))
}

func TestParseInteger(t *testing.T) {
	n, ok := ParseInteger("0xFF", true)
	require.True(t, ok)
	assert.Equal(t, int64(255), n.Int64())

	_, ok = ParseInteger("0xFF", false)
	assert.False(t, ok)

	n, ok = ParseInteger(int64(-7), false)
	require.True(t, ok)
	assert.Equal(t, int64(-7), n.Int64())
}
