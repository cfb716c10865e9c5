package search

import (
	"fmt"
	"strings"
)

// 检索语法中需要转义的字符（Lucene 风格）。
const specialChars = `\+-!(){}[]^"~*?:=&|<>/ `

// SortOrder 描述排序方向。
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// 默认排序与允许排序的字段。
const (
	DefaultSortField = "created_at"
	DefaultSortOrder = SortDesc
)

var sortableFields = map[string]struct{}{
	"created_at":  {},
	"uploaded_at": {},
	"public_id":   {},
	"filename":    {},
	"format":      {},
	"bytes":       {},
	"width":       {},
	"height":      {},
}

// Filter 是检索条件的结构化表示：文件夹范围 + 可选关键字。
type Filter struct {
	Folder string
	Term   string
}

// Expression 生成远端检索表达式。
func (f Filter) Expression() string {
	return Compile(f.Folder, f.Term)
}

// Matches 对不支持检索语法的存储后端提供与 Expression 一致的关键字匹配：
// 关键字（去除首尾空白后）为空时总是匹配，否则对 filename 或 public_id 做不区分大小写的子串匹配。
func (f Filter) Matches(publicID, filename string) bool {
	term := strings.ToLower(strings.TrimSpace(f.Term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(filename), term) ||
		strings.Contains(strings.ToLower(publicID), term)
}

// Compile 将文件夹与关键字编译成单个检索表达式。
// 表达式总是以 folder:<folder> 开头；关键字非空时追加
// AND (filename:*term* OR public_id:*term*)。
func Compile(folder, term string) string {
	expr := "folder:" + escape(folder, "/-")

	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return expr
	}

	escaped := escape(trimmed, "")
	return fmt.Sprintf("%s AND (filename:*%s* OR public_id:*%s*)", expr, escaped, escaped)
}

// escape 为检索语法中的特殊字符加反斜杠，keep 中的字符原样保留。
// 文件夹路径中的 / 与 - 保留原样。
func escape(value, keep string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if strings.ContainsRune(specialChars, r) && !strings.ContainsRune(keep, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Query 是一次检索的完整参数。
type Query struct {
	Filter
	SortField  string
	SortOrder  SortOrder
	MaxResults int
	Cursor     string
}

// Normalize 填充排序默认值并校验字段。
func (q *Query) Normalize() error {
	if q.SortField == "" {
		q.SortField = DefaultSortField
	}
	if _, ok := sortableFields[q.SortField]; !ok {
		return fmt.Errorf("unsupported sort field %q", q.SortField)
	}

	order, err := ParseSortOrder(string(q.SortOrder))
	if err != nil {
		return err
	}
	q.SortOrder = order

	if q.MaxResults <= 0 {
		return fmt.Errorf("max_results must be positive")
	}
	return nil
}

// Expression 返回查询的检索表达式。
func (q Query) Expression() string {
	return q.Filter.Expression()
}

// ParseSortOrder 解析排序方向，空值返回默认值。
func ParseSortOrder(raw string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(raw))) {
	case "":
		return DefaultSortOrder, nil
	case SortAsc:
		return SortAsc, nil
	case SortDesc:
		return SortDesc, nil
	default:
		return "", fmt.Errorf("unsupported sort order %q (must be asc or desc)", raw)
	}
}

// IsSortable 判断字段是否允许用于排序。
func IsSortable(field string) bool {
	_, ok := sortableFields[field]
	return ok
}
