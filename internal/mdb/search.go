package mdb

import "strings"

// Matcher 多关键词匹配：所有词都出现在名称/别名/描述中（不区分大小写）
type Matcher struct {
	terms []string
}

// NewMatcher 按空白切分查询串
func NewMatcher(q string) *Matcher {
	return &Matcher{terms: strings.Fields(strings.ToLower(q))}
}

// Empty 查询串没有任何关键词
func (m *Matcher) Empty() bool {
	return len(m.terms) == 0
}

// MatchesParameter 匹配参数的限定名、别名和描述
func (m *Matcher) MatchesParameter(p *Parameter) bool {
	fields := make([]string, 0, 2+len(p.Aliases))
	fields = append(fields, strings.ToLower(p.QualifiedName), strings.ToLower(p.Description))
	for _, a := range p.Aliases {
		fields = append(fields, strings.ToLower(a))
	}
	return m.matchAll(fields)
}

// MatchesCommand 匹配指令的限定名和描述
func (m *Matcher) MatchesCommand(c *Command) bool {
	return m.matchAll([]string{strings.ToLower(c.QualifiedName), strings.ToLower(c.Description)})
}

// MatchesName 只匹配一个名称
func (m *Matcher) MatchesName(name string) bool {
	return m.matchAll([]string{strings.ToLower(name)})
}

func (m *Matcher) matchAll(fields []string) bool {
	for _, term := range m.terms {
		found := false
		for _, f := range fields {
			if strings.Contains(f, term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// EntryMatch 参数内部命中查询的成员路径
type EntryMatch struct {
	Parameter *Parameter
	Path      Path
}

// Name 带路径的完整名称
func (em EntryMatch) Name() string {
	return em.Parameter.QualifiedName + em.Path.String()
}

// SearchEntries 在聚合参数的成员路径中查找匹配项
// 数组元素没有固定下标，不向下展开
func SearchEntries(p *Parameter, m *Matcher) []EntryMatch {
	if p == nil || p.Type == nil || m.Empty() {
		return nil
	}
	var matches []EntryMatch
	var visit func(t *Type, prefix Path)
	visit = func(t *Type, prefix Path) {
		if t == nil {
			return
		}
		agg, ok := t.Shape.(Aggregate)
		if !ok {
			return
		}
		for _, member := range agg.Members {
			path := make(Path, len(prefix), len(prefix)+1)
			copy(path, prefix)
			path = append(path, PathElement{Name: member.Name})
			em := EntryMatch{Parameter: p, Path: path}
			if m.MatchesName(em.Name()) {
				matches = append(matches, em)
			}
			visit(member.Type, path)
		}
	}
	visit(p.Type, nil)
	return matches
}
