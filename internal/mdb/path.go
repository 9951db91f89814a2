package mdb

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNotFound 参数、成员或数组元素不存在
	ErrNotFound = errors.New("not found")
	// ErrInvalidPath 偏移路径语法错误（同样按“未找到”处理）
	ErrInvalidPath = fmt.Errorf("invalid path: %w", ErrNotFound)
)

// PathError 偏移路径解析/定位失败
type PathError struct {
	Path   string
	Step   int
	Reason string
	Err    error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path %q step %d: %s", e.Path, e.Step, e.Reason)
}

func (e *PathError) Unwrap() error { return e.Err }

// PathElement 路径中的一步：成员名（可为空）加可选的各维下标
type PathElement struct {
	Name  string `json:"name,omitempty"`
	Index []int  `json:"index,omitempty"`
}

func (pe PathElement) String() string {
	if pe.Name == "" {
		return IndexLabel(pe.Index)
	}
	return "." + pe.Name + IndexLabel(pe.Index)
}

// Path 偏移路径
type Path []PathElement

func (p Path) String() string {
	var sb strings.Builder
	for _, pe := range p {
		sb.WriteString(pe.String())
	}
	return sb.String()
}

// ParsePath 解析偏移路径，例如 ".position[1][2].x" 或 "[3]"
// 不以 '.' 或 '[' 开头时视为省略了前导 '.'
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, nil
	}
	src := s
	if s[0] != '.' && s[0] != '[' {
		s = "." + s
	}

	var path Path
	i := 0
	for i < len(s) {
		switch s[i] {
		case '.':
			j := i + 1
			for j < len(s) && s[j] != '.' && s[j] != '[' && s[j] != ']' {
				j++
			}
			name := s[i+1 : j]
			if name == "" {
				return nil, &PathError{Path: src, Step: len(path), Reason: "empty member name", Err: ErrInvalidPath}
			}
			path = append(path, PathElement{Name: name})
			i = j
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, &PathError{Path: src, Step: len(path), Reason: "unterminated index", Err: ErrInvalidPath}
			}
			raw := s[i+1 : i+end]
			idx, err := strconv.Atoi(raw)
			if err != nil {
				return nil, &PathError{Path: src, Step: len(path), Reason: fmt.Sprintf("bad index %q", raw), Err: ErrInvalidPath}
			}
			if len(path) == 0 {
				path = append(path, PathElement{})
			}
			last := &path[len(path)-1]
			last.Index = append(last.Index, idx)
			i += end + 1
		default:
			return nil, &PathError{Path: src, Step: len(path), Reason: fmt.Sprintf("unexpected %q", s[i]), Err: ErrInvalidPath}
		}
	}
	return path, nil
}

// FindSeparator 返回限定名中聚合/数组部分的起始位置（最后一个 '/' 之后第一个 '.' 或 '['），没有则 -1
func FindSeparator(name string) int {
	start := strings.LastIndexByte(name, '/')
	if start < 0 {
		start = 0
	}
	dot := strings.IndexByte(name[start:], '.')
	bracket := strings.IndexByte(name[start:], '[')
	sep := -1
	switch {
	case dot >= 0 && bracket >= 0:
		sep = min(dot, bracket)
	case dot >= 0:
		sep = dot
	case bracket >= 0:
		sep = bracket
	}
	if sep < 0 {
		return -1
	}
	return start + sep
}

// SplitQualifiedName 把 "/YSS/SIM/Orbit.position[1]" 拆成参数名和偏移
func SplitQualifiedName(name string) (string, string) {
	sep := FindSeparator(name)
	if sep < 0 {
		return name, ""
	}
	return name[:sep], name[sep:]
}

// SplitNamespace 拆分命名空间与名称，名称为空时返回 false
func SplitNamespace(name string) (string, string, bool) {
	slash := strings.LastIndexByte(name, '/')
	if slash < 0 || slash == len(name)-1 {
		return "", "", false
	}
	return name[:slash], name[slash+1:], true
}
