package mdb

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Snapshot 某个实例的 MDB 只读快照，整体替换、不做原地修改
type Snapshot struct {
	ID         string       `json:"id"`
	Instance   string       `json:"instance"`
	LoadedAt   time.Time    `json:"loadedAt"`
	Parameters []*Parameter `json:"parameters"`
	Commands   []*Command   `json:"commands"`

	params   map[string]*Parameter
	aliases  map[string]*Parameter
	commands map[string]*Command
}

// NewSnapshot 创建快照并建立索引
func NewSnapshot(instance string, params []*Parameter, commands []*Command) (*Snapshot, error) {
	s := &Snapshot{
		ID:         uuid.New().String(),
		Instance:   instance,
		LoadedAt:   time.Now().UTC(),
		Parameters: params,
		Commands:   commands,
	}
	if err := s.reindex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Snapshot) reindex() error {
	s.params = make(map[string]*Parameter, len(s.Parameters))
	s.aliases = make(map[string]*Parameter)
	s.commands = make(map[string]*Command, len(s.Commands))
	for _, p := range s.Parameters {
		if p == nil || p.QualifiedName == "" {
			return fmt.Errorf("parameter without qualified name in instance %q", s.Instance)
		}
		if _, dup := s.params[p.QualifiedName]; dup {
			return fmt.Errorf("duplicate parameter %q", p.QualifiedName)
		}
		if p.Name == "" {
			if _, name, ok := SplitNamespace(p.QualifiedName); ok {
				p.Name = name
			}
		}
		s.params[p.QualifiedName] = p
		for _, a := range p.Aliases {
			s.aliases[a] = p
		}
	}
	for _, c := range s.Commands {
		if c == nil || c.QualifiedName == "" {
			return fmt.Errorf("command without qualified name in instance %q", s.Instance)
		}
		if _, dup := s.commands[c.QualifiedName]; dup {
			return fmt.Errorf("duplicate command %q", c.QualifiedName)
		}
		s.commands[c.QualifiedName] = c
	}
	return nil
}

type snapshotJSON Snapshot

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw snapshotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Snapshot(raw)
	return s.reindex()
}

func (s *Snapshot) findParameter(namespace, name string) *Parameter {
	if p, ok := s.params[namespace+"/"+name]; ok {
		return p
	}
	if p, ok := s.aliases[namespace+"/"+name]; ok {
		return p
	}
	return nil
}

// Parameter 按限定名（不含偏移）查找参数
func (s *Snapshot) Parameter(qualifiedName string) (*Parameter, bool) {
	p, ok := s.params[qualifiedName]
	return p, ok
}

// LookupParameter 解析带偏移的名称并定位条目
// 命名空间先按带前导 '/' 查找，再按原样（如 "MDB:OPS Name"）查找
func (s *Snapshot) LookupParameter(name string) (*Entry, error) {
	base, offset := SplitQualifiedName(name)
	namespace, short, ok := SplitNamespace(base)
	if !ok {
		return nil, fmt.Errorf("no such parameter %q (missing namespace?): %w", name, ErrNotFound)
	}
	var p *Parameter
	if !strings.HasPrefix(namespace, "/") {
		p = s.findParameter("/"+namespace, short)
	}
	if p == nil {
		p = s.findParameter(namespace, short)
	}
	if p == nil {
		return nil, fmt.Errorf("no parameter named %q: %w", name, ErrNotFound)
	}
	entry, err := ResolveEntry(p, offset)
	if err != nil {
		return nil, fmt.Errorf("nonexistent array/aggregate path in name %q: %w", name, err)
	}
	return entry, nil
}

// Command 按限定名查找指令（允许省略前导 '/'）
func (s *Snapshot) Command(name string) (*Command, bool) {
	if c, ok := s.commands[name]; ok {
		return c, true
	}
	if !strings.HasPrefix(name, "/") {
		c, ok := s.commands["/"+name]
		return c, ok
	}
	return nil, false
}

// SpaceSystems 所有参数和指令所在的系统（含上级），排序后返回
func (s *Snapshot) SpaceSystems() []string {
	set := map[string]bool{}
	add := func(qn string) {
		ns, _, ok := SplitNamespace(qn)
		for ok && ns != "" {
			set[ns] = true
			slash := strings.LastIndexByte(ns, '/')
			if slash <= 0 {
				break
			}
			ns = ns[:slash]
		}
	}
	for _, p := range s.Parameters {
		add(p.QualifiedName)
	}
	for _, c := range s.Commands {
		add(c.QualifiedName)
	}
	out := make([]string, 0, len(set))
	for ns := range set {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}
