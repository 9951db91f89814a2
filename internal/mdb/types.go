package mdb

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// EnumValue 枚举值（标签 + 数值）
type EnumValue struct {
	Value       int64  `json:"value" yaml:"value"`
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Shape 类型结构（标量 / 聚合 / 数组）
// 只允许本包内的三种实现，调用方用 type switch 穷举处理
type Shape interface {
	shape()
}

// Scalar 标量类型（整数、浮点、枚举、字符串等）
type Scalar struct{}

// Aggregate 聚合类型，成员按声明顺序排列，名称唯一
type Aggregate struct {
	Members []Member
}

// Array 数组类型，Dimensions 为每一维的大小（行优先）
type Array struct {
	Elem       *Type
	Dimensions []int
}

func (Scalar) shape()    {}
func (Aggregate) shape() {}
func (Array) shape()     {}

// Member 聚合类型的成员
type Member struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"shortDescription,omitempty" yaml:"description,omitempty"`
	Type        *Type  `json:"type" yaml:"type"`
}

// Type 参数/参数类型描述（ParameterType 与 ArgumentType 结构相同）
type Type struct {
	Name          string
	EngType       string
	Signed        *bool
	RangeMin      *float64
	RangeMax      *float64
	EnumValues    []EnumValue
	DefaultAlarm  *AlarmInfo
	ContextAlarms []ContextAlarmInfo
	Shape         Shape
}

// IsUnsigned signed 显式为 false 时才视为无符号
func (t *Type) IsUnsigned() bool {
	return t != nil && t.Signed != nil && !*t.Signed
}

// Member 按名称查找成员，仅聚合类型有效
func (t *Type) Member(name string) (*Member, bool) {
	if t == nil {
		return nil, false
	}
	agg, ok := t.Shape.(Aggregate)
	if !ok {
		return nil, false
	}
	for i := range agg.Members {
		if agg.Members[i].Name == name {
			return &agg.Members[i], true
		}
	}
	return nil, false
}

// typeDoc 序列化格式（与 Yamcs REST 的 ParameterTypeInfo 字段对齐）
type typeDoc struct {
	Name          string             `json:"name,omitempty" yaml:"name,omitempty"`
	EngType       string             `json:"engType,omitempty" yaml:"engType,omitempty"`
	Signed        *bool              `json:"signed,omitempty" yaml:"signed,omitempty"`
	RangeMin      *float64           `json:"rangeMin,omitempty" yaml:"rangeMin,omitempty"`
	RangeMax      *float64           `json:"rangeMax,omitempty" yaml:"rangeMax,omitempty"`
	EnumValues    []EnumValue        `json:"enumValue,omitempty" yaml:"enumValue,omitempty"`
	DefaultAlarm  *AlarmInfo         `json:"defaultAlarm,omitempty" yaml:"defaultAlarm,omitempty"`
	ContextAlarms []ContextAlarmInfo `json:"contextAlarm,omitempty" yaml:"contextAlarm,omitempty"`
	Members       []Member           `json:"member,omitempty" yaml:"member,omitempty"`
	ArrayInfo     *arrayDoc          `json:"arrayInfo,omitempty" yaml:"arrayInfo,omitempty"`
}

type arrayDoc struct {
	Type       *Type `json:"type" yaml:"type"`
	Dimensions []int `json:"dimensions" yaml:"dimensions"`
}

func (t *Type) toDoc() typeDoc {
	doc := typeDoc{
		Name:          t.Name,
		EngType:       t.EngType,
		Signed:        t.Signed,
		RangeMin:      t.RangeMin,
		RangeMax:      t.RangeMax,
		EnumValues:    t.EnumValues,
		DefaultAlarm:  t.DefaultAlarm,
		ContextAlarms: t.ContextAlarms,
	}
	switch s := t.Shape.(type) {
	case Aggregate:
		doc.Members = s.Members
	case Array:
		doc.ArrayInfo = &arrayDoc{Type: s.Elem, Dimensions: s.Dimensions}
	case Scalar, nil:
	}
	return doc
}

func (t *Type) fromDoc(doc typeDoc) error {
	if len(doc.Members) > 0 && doc.ArrayInfo != nil {
		return fmt.Errorf("type %q declares both members and array info", doc.Name)
	}
	*t = Type{
		Name:          doc.Name,
		EngType:       doc.EngType,
		Signed:        doc.Signed,
		RangeMin:      doc.RangeMin,
		RangeMax:      doc.RangeMax,
		EnumValues:    doc.EnumValues,
		DefaultAlarm:  doc.DefaultAlarm,
		ContextAlarms: doc.ContextAlarms,
		Shape:         Scalar{},
	}
	switch {
	case len(doc.Members) > 0:
		seen := make(map[string]bool, len(doc.Members))
		for _, m := range doc.Members {
			if seen[m.Name] {
				return fmt.Errorf("type %q: duplicate member %q", doc.Name, m.Name)
			}
			seen[m.Name] = true
		}
		t.Shape = Aggregate{Members: doc.Members}
	case doc.ArrayInfo != nil:
		if doc.ArrayInfo.Type == nil {
			return fmt.Errorf("type %q: array without element type", doc.Name)
		}
		if len(doc.ArrayInfo.Dimensions) == 0 {
			return fmt.Errorf("type %q: array without dimensions", doc.Name)
		}
		for _, d := range doc.ArrayInfo.Dimensions {
			if d < 0 {
				return fmt.Errorf("type %q: negative dimension %d", doc.Name, d)
			}
		}
		t.Shape = Array{Elem: doc.ArrayInfo.Type, Dimensions: doc.ArrayInfo.Dimensions}
	}
	return nil
}

func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.toDoc())
}

func (t *Type) UnmarshalJSON(data []byte) error {
	var doc typeDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	return t.fromDoc(doc)
}

func (t *Type) UnmarshalYAML(node *yaml.Node) error {
	var doc typeDoc
	if err := node.Decode(&doc); err != nil {
		return err
	}
	return t.fromDoc(doc)
}

// Parameter 遥测参数定义
type Parameter struct {
	Name          string   `json:"name" yaml:"name"`
	QualifiedName string   `json:"qualifiedName" yaml:"qualifiedName"`
	Description   string   `json:"shortDescription,omitempty" yaml:"description,omitempty"`
	DataSource    string   `json:"dataSource,omitempty" yaml:"dataSource,omitempty"`
	Aliases       []string `json:"alias,omitempty" yaml:"alias,omitempty"`
	Type          *Type    `json:"type,omitempty" yaml:"type,omitempty"`
}

// Argument 指令参数定义，结构与 Parameter 平行
type Argument struct {
	Name         string `json:"name" yaml:"name"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	InitialValue string `json:"initialValue,omitempty" yaml:"initialValue,omitempty"`
	Type         *Type  `json:"type,omitempty" yaml:"type,omitempty"`
}

// Command 指令定义
type Command struct {
	Name          string     `json:"name" yaml:"name"`
	QualifiedName string     `json:"qualifiedName" yaml:"qualifiedName"`
	Description   string     `json:"shortDescription,omitempty" yaml:"description,omitempty"`
	Abstract      bool       `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Arguments     []Argument `json:"argument,omitempty" yaml:"argument,omitempty"`
}

// Argument 按名称查找指令参数
func (c *Command) Argument(name string) (*Argument, bool) {
	for i := range c.Arguments {
		if c.Arguments[i].Name == name {
			return &c.Arguments[i], true
		}
	}
	return nil, false
}
