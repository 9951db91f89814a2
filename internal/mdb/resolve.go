package mdb

import "fmt"

// Resolve 沿偏移路径定位叶子类型；空路径返回根类型
func Resolve(root *Type, offset string) (*Type, error) {
	path, err := ParsePath(offset)
	if err != nil {
		return nil, err
	}
	t, _, err := walk(root, path, offset)
	return t, err
}

func walk(root *Type, path Path, src string) (*Type, *Member, error) {
	if root == nil {
		return nil, nil, &PathError{Path: src, Reason: "no type", Err: ErrNotFound}
	}
	cur := root
	var member *Member
	for step, pe := range path {
		if pe.Name != "" {
			switch cur.Shape.(type) {
			case Aggregate:
				m, ok := cur.Member(pe.Name)
				if !ok {
					return nil, nil, &PathError{Path: src, Step: step, Reason: fmt.Sprintf("no member %q", pe.Name), Err: ErrNotFound}
				}
				member = m
				cur = m.Type
			case Array, Scalar, nil:
				return nil, nil, &PathError{Path: src, Step: step, Reason: fmt.Sprintf("member %q on non-aggregate type", pe.Name), Err: ErrNotFound}
			}
			if cur == nil {
				return nil, nil, &PathError{Path: src, Step: step, Reason: fmt.Sprintf("member %q has no type", pe.Name), Err: ErrNotFound}
			}
		}
		if len(pe.Index) > 0 {
			switch s := cur.Shape.(type) {
			case Array:
				if _, err := FlattenIndex(pe.Index, s.Dimensions); err != nil {
					return nil, nil, &PathError{Path: src, Step: step, Reason: err.Error(), Err: ErrNotFound}
				}
				if s.Elem == nil {
					return nil, nil, &PathError{Path: src, Step: step, Reason: "array without element type", Err: ErrNotFound}
				}
				member = &Member{Name: IndexLabel(pe.Index), Type: s.Elem}
				cur = s.Elem
			case Aggregate, Scalar, nil:
				return nil, nil, &PathError{Path: src, Step: step, Reason: "index on non-array type", Err: ErrNotFound}
			}
		}
	}
	return cur, member, nil
}

// Entry 参数或其内部成员/数组元素（参数详情页展示的对象）
type Entry struct {
	// Name 带偏移的完整名称
	Name      string     `json:"name"`
	Parameter *Parameter `json:"parameter"`
	// Member 为空表示条目就是参数本身
	Member *Member `json:"member,omitempty"`
	Path   Path    `json:"path,omitempty"`
	Type   *Type   `json:"type,omitempty"`
}

// IsMember 条目是否为聚合成员或数组元素
func (e *Entry) IsMember() bool {
	return e.Member != nil
}

// ResolveEntry 按偏移定位参数内部条目
func ResolveEntry(p *Parameter, offset string) (*Entry, error) {
	if p == nil {
		return nil, &PathError{Path: offset, Reason: "no parameter", Err: ErrNotFound}
	}
	path, err := ParsePath(offset)
	if err != nil {
		return nil, err
	}
	if len(path) == 0 {
		return &Entry{Name: p.QualifiedName, Parameter: p, Type: p.Type}, nil
	}
	t, m, err := walk(p.Type, path, offset)
	if err != nil {
		return nil, err
	}
	return &Entry{
		Name:      p.QualifiedName + path.String(),
		Parameter: p,
		Member:    m,
		Path:      path,
		Type:      t,
	}, nil
}
