package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"telemetry-mdb/internal/mdb"

	"go.uber.org/zap"
)

var (
	// ErrAbstractCommand 抽象指令不能直接发送
	ErrAbstractCommand = errors.New("command is abstract")
	// ErrInvalidRequest 请求参数错误
	ErrInvalidRequest = errors.New("invalid request")
)

// MdbService MDB 查询与校验服务
type MdbService struct {
	registry     *Registry
	defaultLimit int
	maxLimit     int
	logger       *zap.Logger
}

// NewMdbService 创建 MDB 服务
func NewMdbService(registry *Registry, defaultLimit, maxLimit int, logger *zap.Logger) *MdbService {
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &MdbService{
		registry:     registry,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		logger:       logger,
	}
}

// ============================================
// 参数详情
// ============================================

// ParameterDetail 参数（或成员/数组元素）详情
type ParameterDetail struct {
	Entry *mdb.Entry `json:"entry"`
	// ParameterType 条目为成员或数组元素时所属参数的类型
	ParameterType *mdb.Type `json:"parameterType,omitempty"`
	// EnumAlarms 条目类型每个枚举值的默认/上下文报警级别
	EnumAlarms []mdb.EnumAlarmRow `json:"enumAlarms,omitempty"`
	// Contexts 与 EnumAlarms[*].ContextLevels 对应的上下文表达式
	Contexts []string `json:"contexts,omitempty"`
}

// GetParameter 按（可带偏移的）限定名或别名查询参数详情
func (s *MdbService) GetParameter(instance, name string) (*ParameterDetail, error) {
	snap, err := s.registry.Get(instance)
	if err != nil {
		return nil, err
	}
	entry, err := snap.LookupParameter(name)
	if err != nil {
		return nil, err
	}

	detail := &ParameterDetail{
		Entry:      entry,
		EnumAlarms: mdb.EnumAlarmTable(entry.Type),
	}
	if entry.IsMember() {
		detail.ParameterType = entry.Parameter.Type
	}
	if entry.Type != nil {
		for _, ca := range entry.Type.ContextAlarms {
			detail.Contexts = append(detail.Contexts, ca.Context)
		}
	}
	return detail, nil
}

// BatchEntry 批量查询中的一项，ID 为请求中的名称
type BatchEntry struct {
	ID    string     `json:"id"`
	Entry *mdb.Entry `json:"entry"`
}

// BatchGetParameters 按请求顺序批量查询参数（名称可带偏移或为别名）
// 任一名称无效时整个请求失败
func (s *MdbService) BatchGetParameters(instance string, names []string) ([]BatchEntry, error) {
	snap, err := s.registry.Get(instance)
	if err != nil {
		return nil, err
	}
	out := make([]BatchEntry, 0, len(names))
	for _, name := range names {
		entry, err := snap.LookupParameter(name)
		if err != nil {
			return nil, fmt.Errorf("invalid parameter name %q: %w", name, ErrInvalidRequest)
		}
		out = append(out, BatchEntry{ID: name, Entry: entry})
	}
	return out, nil
}

// ============================================
// 参数列表
// ============================================

// ListOptions 参数列表查询条件
type ListOptions struct {
	// System 只列出该系统下的参数
	System string
	// Query 多关键词查询
	Query string
	// Types 工程类型过滤（不区分大小写）
	Types []string
	// Source 数据源过滤（不区分大小写）
	Source string
	// SearchMembers 查询时同时匹配聚合参数内的成员路径
	SearchMembers bool
	Pos           int
	Limit         int
	// Next 上一页返回的 continuation token，优先于 Pos
	Next string
}

// ListResult 参数列表
type ListResult struct {
	// SpaceSystems 浏览系统（无查询）时的直接子系统
	SpaceSystems      []string         `json:"spaceSystems,omitempty"`
	Parameters        []*mdb.Parameter `json:"parameters"`
	ContinuationToken string           `json:"continuationToken,omitempty"`
	TotalSize         int              `json:"totalSize"`
}

// ListParameters 按条件列出参数，结果按限定名排序并分页
func (s *MdbService) ListParameters(instance string, opts ListOptions) (*ListResult, error) {
	snap, err := s.registry.Get(instance)
	if err != nil {
		return nil, err
	}

	matches := s.matchParameters(snap, opts)
	page, token, err := paginate(matches, func(p *mdb.Parameter) string { return p.QualifiedName }, opts.Pos, s.pageLimit(opts.Limit), opts.Next)
	if err != nil {
		return nil, err
	}

	result := &ListResult{
		Parameters:        page,
		ContinuationToken: token,
		TotalSize:         len(matches),
	}
	if opts.System != "" && strings.TrimSpace(opts.Query) == "" {
		result.SpaceSystems = subSystems(snap, opts.System)
	}
	return result, nil
}

// AllParameters 不分页的匹配结果（导出用）
func (s *MdbService) AllParameters(instance string, opts ListOptions) ([]*mdb.Parameter, error) {
	snap, err := s.registry.Get(instance)
	if err != nil {
		return nil, err
	}
	return s.matchParameters(snap, opts), nil
}

func (s *MdbService) matchParameters(snap *mdb.Snapshot, opts ListOptions) []*mdb.Parameter {
	matcher := mdb.NewMatcher(opts.Query)
	system := strings.TrimSuffix(opts.System, "/")
	// 无查询时只列出系统的直接参数，有查询时递归
	direct := system != "" && matcher.Empty()

	types := make(map[string]bool, len(opts.Types))
	for _, t := range opts.Types {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			types[t] = true
		}
	}

	var out []*mdb.Parameter
	for _, p := range snap.Parameters {
		if system != "" {
			ns, _, _ := mdb.SplitNamespace(p.QualifiedName)
			if direct && ns != system {
				continue
			}
			if !direct && ns != system && !strings.HasPrefix(ns, system+"/") {
				continue
			}
		}
		if opts.Source != "" && !strings.EqualFold(p.DataSource, opts.Source) {
			continue
		}

		if len(types) == 0 || (p.Type != nil && types[strings.ToLower(p.Type.EngType)]) {
			if matcher.Empty() || matcher.MatchesParameter(p) {
				out = append(out, p)
			}
		}
		if opts.SearchMembers && !matcher.Empty() {
			for _, em := range mdb.SearchEntries(p, matcher) {
				member := memberParameter(em)
				if member == nil {
					continue
				}
				if len(types) > 0 && (member.Type == nil || !types[strings.ToLower(member.Type.EngType)]) {
					continue
				}
				out = append(out, member)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].QualifiedName < out[j].QualifiedName
	})
	return out
}

// memberParameter 把匹配的成员路径表示成一个参数条目
func memberParameter(em mdb.EntryMatch) *mdb.Parameter {
	entry, err := mdb.ResolveEntry(em.Parameter, em.Path.String())
	if err != nil || entry.Member == nil {
		return nil
	}
	return &mdb.Parameter{
		Name:          entry.Member.Name,
		QualifiedName: entry.Name,
		Description:   entry.Member.Description,
		DataSource:    em.Parameter.DataSource,
		Type:          entry.Type,
	}
}

func subSystems(snap *mdb.Snapshot, system string) []string {
	system = strings.TrimSuffix(system, "/")
	var out []string
	for _, ss := range snap.SpaceSystems() {
		parent, _, ok := mdb.SplitNamespace(ss)
		if ok && parent == system {
			out = append(out, ss)
		}
	}
	return out
}

func (s *MdbService) pageLimit(limit int) int {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	return limit
}

// paginate 对按名称排序的结果分页；next 优先于 pos
func paginate[T any](items []T, name func(T) string, pos, limit int, next string) ([]T, string, error) {
	if pos < 0 {
		return nil, "", fmt.Errorf("pos must not be negative: %w", ErrInvalidRequest)
	}
	start := pos
	if next != "" {
		after, err := decodeToken(next)
		if err != nil {
			return nil, "", err
		}
		start = sort.Search(len(items), func(i int) bool {
			return name(items[i]) > after
		})
	}
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	token := ""
	if end < len(items) {
		token = encodeToken(name(items[end-1]))
	}
	return items[start:end], token, nil
}

func encodeToken(last string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(last))
}

func decodeToken(token string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("bad continuation token: %w", ErrInvalidRequest)
	}
	return string(b), nil
}

// SpaceSystems 实例的全部系统
func (s *MdbService) SpaceSystems(instance string) ([]string, error) {
	snap, err := s.registry.Get(instance)
	if err != nil {
		return nil, err
	}
	return snap.SpaceSystems(), nil
}

// ============================================
// 指令
// ============================================

// GetCommand 按限定名查询指令
func (s *MdbService) GetCommand(instance, name string) (*mdb.Command, error) {
	snap, err := s.registry.Get(instance)
	if err != nil {
		return nil, err
	}
	cmd, ok := snap.Command(name)
	if !ok {
		return nil, fmt.Errorf("no command named %q: %w", name, mdb.ErrNotFound)
	}
	return cmd, nil
}

// CommandListOptions 指令列表查询条件
type CommandListOptions struct {
	System string
	Query  string
	// NoAbstract 排除抽象指令
	NoAbstract bool
	Pos        int
	Limit      int
	Next       string
}

// CommandListResult 指令列表
type CommandListResult struct {
	SpaceSystems      []string       `json:"spaceSystems,omitempty"`
	Commands          []*mdb.Command `json:"commands"`
	ContinuationToken string         `json:"continuationToken,omitempty"`
	TotalSize         int            `json:"totalSize"`
}

// ListCommands 按系统和关键词列出指令
// 指定系统且无查询时只列出直接指令和直接子系统，有查询时递归
func (s *MdbService) ListCommands(instance string, opts CommandListOptions) (*CommandListResult, error) {
	snap, err := s.registry.Get(instance)
	if err != nil {
		return nil, err
	}
	matcher := mdb.NewMatcher(opts.Query)
	system := strings.TrimSuffix(opts.System, "/")
	direct := system != "" && matcher.Empty()

	var matches []*mdb.Command
	for _, c := range snap.Commands {
		if system != "" {
			ns, _, _ := mdb.SplitNamespace(c.QualifiedName)
			if direct && ns != system {
				continue
			}
			if !direct && ns != system && !strings.HasPrefix(ns, system+"/") {
				continue
			}
		}
		if opts.NoAbstract && c.Abstract {
			continue
		}
		if !matcher.Empty() && !matcher.MatchesCommand(c) {
			continue
		}
		matches = append(matches, c)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].QualifiedName < matches[j].QualifiedName
	})

	page, token, err := paginate(matches, func(c *mdb.Command) string { return c.QualifiedName }, opts.Pos, s.pageLimit(opts.Limit), opts.Next)
	if err != nil {
		return nil, err
	}
	result := &CommandListResult{
		Commands:          page,
		ContinuationToken: token,
		TotalSize:         len(matches),
	}
	if direct {
		result.SpaceSystems = commandSubSystems(snap, system)
	}
	return result, nil
}

// commandSubSystems 含有指令的直接子系统
func commandSubSystems(snap *mdb.Snapshot, system string) []string {
	prefix := system + "/"
	set := map[string]bool{}
	for _, c := range snap.Commands {
		ns, _, ok := mdb.SplitNamespace(c.QualifiedName)
		if !ok || !strings.HasPrefix(ns, prefix) {
			continue
		}
		child, _, _ := strings.Cut(strings.TrimPrefix(ns, prefix), "/")
		set[prefix+child] = true
	}
	out := make([]string, 0, len(set))
	for ss := range set {
		out = append(out, ss)
	}
	sort.Strings(out)
	return out
}

// ArgumentInput 一个指令参数的表单输入
type ArgumentInput struct {
	// Value 标量为字符串或数字，数组为列表（行优先平铺），聚合为对象
	Value any  `json:"value"`
	Hex   bool `json:"hex,omitempty"`
}

// ArgumentIssue 一个输入控件的校验错误
type ArgumentIssue struct {
	Argument string `json:"argument"`
	// Path 控件在参数内的位置，如 "matrix[1][0]" 或 "pos.x"
	Path string `json:"path"`
	// Label 控件标签：顶层为参数名，数组元素为下标，聚合成员为成员名
	Label string               `json:"label"`
	Error *mdb.ValidationError `json:"error"`
}

// ValidationResult 指令参数校验结果
type ValidationResult struct {
	Valid  bool            `json:"valid"`
	Issues []ArgumentIssue `json:"issues,omitempty"`
}

// ValidateArguments 校验一组指令参数，每个控件只报告第一个错误
// 未提供的参数使用 initialValue
func (s *MdbService) ValidateArguments(instance, name string, inputs map[string]ArgumentInput) (*ValidationResult, error) {
	cmd, err := s.GetCommand(instance, name)
	if err != nil {
		return nil, err
	}
	if cmd.Abstract {
		return nil, fmt.Errorf("%s: %w", cmd.QualifiedName, ErrAbstractCommand)
	}
	for argName := range inputs {
		if _, ok := cmd.Argument(argName); !ok {
			return nil, fmt.Errorf("command %s has no argument %q: %w", cmd.QualifiedName, argName, ErrInvalidRequest)
		}
	}

	result := &ValidationResult{}
	for _, arg := range cmd.Arguments {
		in, ok := inputs[arg.Name]
		if !ok && arg.InitialValue != "" {
			in = ArgumentInput{Value: arg.InitialValue}
		}
		v := argumentValidator{arg: arg.Name, hex: in.Hex}
		v.check(arg.Type, in.Value, arg.Name, arg.Name)
		result.Issues = append(result.Issues, v.issues...)
	}
	result.Valid = len(result.Issues) == 0

	s.logger.Debug("Validated command arguments",
		zap.String("instance", instance),
		zap.String("command", cmd.QualifiedName),
		zap.Int("issue_count", len(result.Issues)),
	)
	return result, nil
}

type argumentValidator struct {
	arg    string
	hex    bool
	issues []ArgumentIssue
}

func (v *argumentValidator) check(t *mdb.Type, value any, path, label string) {
	if t == nil {
		v.scalar(t, value, path, label)
		return
	}
	switch s := t.Shape.(type) {
	case mdb.Array:
		values, ok := value.([]any)
		if !ok {
			v.fail(path, label, &mdb.ValidationError{Code: mdb.CodeRequired})
			return
		}
		count := mdb.ElementCount(s.Dimensions)
		if len(values) > count {
			limit := float64(count)
			v.fail(path, label, &mdb.ValidationError{Code: mdb.CodeLength, Limit: &limit, Actual: strconv.Itoa(len(values))})
		}
		for i := 0; i < count; i++ {
			var elem any
			if i < len(values) {
				elem = values[i]
			}
			label := mdb.ArgumentLabel(v.arg, &i, s.Dimensions)
			v.check(s.Elem, elem, path+label, label)
		}
	case mdb.Aggregate:
		values, ok := value.(map[string]any)
		if !ok {
			v.fail(path, label, &mdb.ValidationError{Code: mdb.CodeRequired})
			return
		}
		for _, m := range s.Members {
			v.check(m.Type, values[m.Name], path+"."+m.Name, m.Name)
		}
	default:
		v.scalar(t, value, path, label)
	}
}

func (v *argumentValidator) scalar(t *mdb.Type, value any, path, label string) {
	if err := mdb.Validate(mdb.BuildValidators(t), mdb.Input{Value: value, Hex: v.hex}); err != nil {
		v.fail(path, label, err)
	}
}

func (v *argumentValidator) fail(path, label string, err *mdb.ValidationError) {
	v.issues = append(v.issues, ArgumentIssue{Argument: v.arg, Path: path, Label: label, Error: err})
}
