package mdb

import (
	"fmt"
	"strconv"
	"strings"
)

// ElementCount 数组元素总数（各维大小之积）
func ElementCount(dims []int) int {
	if len(dims) == 0 {
		return 0
	}
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

// UnflattenIndex 把平铺下标拆成各维下标（行优先，最后一维变化最快）
func UnflattenIndex(index int, dims []int) ([]int, error) {
	total := ElementCount(dims)
	if index < 0 || index >= total {
		return nil, fmt.Errorf("index %d out of range for dimensions %v", index, dims)
	}
	out := make([]int, len(dims))
	for i := len(dims) - 1; i >= 0; i-- {
		out[i] = index % dims[i]
		index /= dims[i]
	}
	return out, nil
}

// FlattenIndex UnflattenIndex 的逆运算
func FlattenIndex(index []int, dims []int) (int, error) {
	if len(index) != len(dims) {
		return 0, fmt.Errorf("index %v does not match dimensions %v", index, dims)
	}
	flat := 0
	for i, idx := range index {
		if idx < 0 || idx >= dims[i] {
			return 0, fmt.Errorf("index %v out of range for dimensions %v", index, dims)
		}
		flat = flat*dims[i] + idx
	}
	return flat, nil
}

// IndexLabel 生成 [i][j] 形式的标签
func IndexLabel(index []int) string {
	var sb strings.Builder
	for _, i := range index {
		sb.WriteByte('[')
		sb.WriteString(strconv.Itoa(i))
		sb.WriteByte(']')
	}
	return sb.String()
}

// FlatIndexLabel 平铺下标直接转标签，例如 dims [2,3] 下标 5 -> "[1][2]"
func FlatIndexLabel(index int, dims []int) (string, error) {
	idx, err := UnflattenIndex(index, dims)
	if err != nil {
		return "", err
	}
	return IndexLabel(idx), nil
}

// ArgumentLabel 表单控件标签：顶层参数用名称，数组元素用下标
func ArgumentLabel(name string, index *int, dims []int) string {
	if index == nil {
		return name
	}
	label, err := FlatIndexLabel(*index, dims)
	if err != nil {
		return name
	}
	return label
}
