package mdb

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// ErrorCode 校验错误码
type ErrorCode string

const (
	CodeRequired ErrorCode = "required"
	CodeInteger  ErrorCode = "integer"
	CodeFloat    ErrorCode = "float"
	CodeUnsigned ErrorCode = "unsigned"
	CodeMax      ErrorCode = "max"
	CodeMin      ErrorCode = "min"
	CodeEnum     ErrorCode = "enumeration"
	CodeLength   ErrorCode = "length"
)

// ValidationError 单个输入值的校验结果（错误码 + 违反的约束）
type ValidationError struct {
	Code   ErrorCode `json:"code"`
	Limit  *float64  `json:"limit,omitempty"`
	Actual string    `json:"actual,omitempty"`
}

func (e *ValidationError) Error() string {
	if e.Limit != nil {
		return fmt.Sprintf("%s: %q violates limit %v", e.Code, e.Actual, *e.Limit)
	}
	if e.Actual == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %q", e.Code, e.Actual)
}

// Input 表单输入值，Hex 表示用户打开了十六进制输入
type Input struct {
	Value any
	Hex   bool
}

// Validator 校验函数，通过返回 nil
type Validator func(in Input) *ValidationError

var (
	decimalPattern = regexp.MustCompile(`^-?[0-9]+$`)
	hexPattern     = regexp.MustCompile(`^-?0[xX][0-9a-fA-F]+$`)
	floatPattern   = regexp.MustCompile(`^-?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][-+]?[0-9]+)?$`)
)

func valueString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// ParseInteger 解析整数输入；十六进制形式只在 hex 模式下接受
func ParseInteger(v any, hex bool) (*big.Int, bool) {
	s := valueString(v)
	switch {
	case decimalPattern.MatchString(s):
		n, ok := new(big.Int).SetString(s, 10)
		return n, ok
	case hex && hexPattern.MatchString(s):
		neg := strings.HasPrefix(s, "-")
		digits := strings.TrimPrefix(s, "-")[2:]
		n, ok := new(big.Int).SetString(digits, 16)
		if !ok {
			return nil, false
		}
		if neg {
			n.Neg(n)
		}
		return n, true
	}
	return nil, false
}

// numericValue 整数（含 hex）或十进制浮点字面量
func numericValue(in Input) (*big.Float, bool) {
	if n, ok := ParseInteger(in.Value, in.Hex); ok {
		return new(big.Float).SetInt(n), true
	}
	s := valueString(in.Value)
	if !floatPattern.MatchString(s) {
		return nil, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return nil, false
	}
	return big.NewFloat(f), true
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	}
	return false
}

// Required 空值（nil 或空字符串）不通过
func Required(in Input) *ValidationError {
	if isEmpty(in.Value) {
		return &ValidationError{Code: CodeRequired}
	}
	return nil
}

// RequireInteger 必须是十进制整数（hex 模式下也接受 0x 前缀）
func RequireInteger(in Input) *ValidationError {
	if isEmpty(in.Value) {
		return nil
	}
	if _, ok := ParseInteger(in.Value, in.Hex); !ok {
		return &ValidationError{Code: CodeInteger, Actual: valueString(in.Value)}
	}
	return nil
}

// RequireFloat 必须是数字字面量
func RequireFloat(in Input) *ValidationError {
	if isEmpty(in.Value) {
		return nil
	}
	if _, ok := numericValue(in); !ok {
		return &ValidationError{Code: CodeFloat, Actual: valueString(in.Value)}
	}
	return nil
}

// RequireUnsigned 数值不能为负
func RequireUnsigned(in Input) *ValidationError {
	f, ok := numericValue(in)
	if !ok {
		return nil
	}
	if f.Sign() < 0 {
		return &ValidationError{Code: CodeUnsigned, Actual: valueString(in.Value)}
	}
	return nil
}

// Max 数值不能大于 limit
func Max(limit float64) Validator {
	return func(in Input) *ValidationError {
		f, ok := numericValue(in)
		if !ok || math.IsNaN(limit) {
			return nil
		}
		if f.Cmp(big.NewFloat(limit)) > 0 {
			l := limit
			return &ValidationError{Code: CodeMax, Limit: &l, Actual: valueString(in.Value)}
		}
		return nil
	}
}

// Min 数值不能小于 limit
func Min(limit float64) Validator {
	return func(in Input) *ValidationError {
		f, ok := numericValue(in)
		if !ok || math.IsNaN(limit) {
			return nil
		}
		if f.Cmp(big.NewFloat(limit)) < 0 {
			l := limit
			return &ValidationError{Code: CodeMin, Limit: &l, Actual: valueString(in.Value)}
		}
		return nil
	}
}

// OneOfLabels 值必须是枚举标签之一（精确匹配）
func OneOfLabels(values []EnumValue) Validator {
	return func(in Input) *ValidationError {
		if isEmpty(in.Value) {
			return nil
		}
		s := valueString(in.Value)
		for _, v := range values {
			if v.Label == s {
				return nil
			}
		}
		return &ValidationError{Code: CodeEnum, Actual: s}
	}
}

// BuildValidators 按类型约束生成有序校验链
// 数值：required -> integer|float -> unsigned -> max -> min
// engType 不区分大小写；未声明 engType 但带符号或范围约束时按整数处理
func BuildValidators(t *Type) []Validator {
	validators := []Validator{Required}
	if t == nil {
		return validators
	}
	switch kind := strings.ToLower(strings.TrimSpace(t.EngType)); {
	case kind == "enumeration":
		return append(validators, OneOfLabels(t.EnumValues))
	case kind == "float":
		validators = append(validators, RequireFloat)
	case kind == "integer", hasNumericConstraints(t):
		validators = append(validators, RequireInteger)
	default:
		return validators
	}
	if t.IsUnsigned() {
		validators = append(validators, RequireUnsigned)
	}
	return appendRange(validators, t)
}

func hasNumericConstraints(t *Type) bool {
	return t.Signed != nil || t.RangeMin != nil || t.RangeMax != nil
}

func appendRange(validators []Validator, t *Type) []Validator {
	if t.RangeMax != nil {
		validators = append(validators, Max(*t.RangeMax))
	}
	if t.RangeMin != nil {
		validators = append(validators, Min(*t.RangeMin))
	}
	return validators
}

// Validate 依次执行校验链，返回第一个错误
func Validate(validators []Validator, in Input) *ValidationError {
	for _, v := range validators {
		if err := v(in); err != nil {
			return err
		}
	}
	return nil
}
