// Package filter compiles partially-trusted query parameters into
// parameterized SQL. Caller-supplied values only ever appear as bound
// parameters; caller-influenced identifiers are validated against
// allow-lists fixed at construction time.
package filter

import (
	"fmt"
	"strings"
)

// Pagination limits.
const (
	DefaultSize = 20
	MaxSize     = 100
)

// DefaultOrderColumn is the fallback sort column when the requested one is
// not on the allow-list.
const DefaultOrderColumn = "updated_at"

// comparison operators accepted in "op:value" range filters
var cmpOperators = map[string]string{
	"gte": ">=",
	"lte": "<=",
	"eq":  "=",
}

// Builder accumulates predicates for one table and renders matching data
// and count queries.
type Builder struct {
	table        string
	allowedCols  map[string]struct{}
	allowedOrder map[string]struct{}
	decimalCols  map[string]struct{}

	predicates []string
	args       []any

	orderColumn    string
	orderDirection string
	page           int
	size           int
}

// NewBuilder creates a builder for the given table. filterCols and
// orderCols are the identifier allow-lists; anything outside them is
// silently dropped at query time.
func NewBuilder(table string, filterCols, orderCols []string) *Builder {
	allowed := make(map[string]struct{}, len(filterCols))
	for _, c := range filterCols {
		allowed[c] = struct{}{}
	}

	order := make(map[string]struct{}, len(orderCols))
	for _, c := range orderCols {
		order[c] = struct{}{}
	}

	return &Builder{
		table:          table,
		allowedCols:    allowed,
		allowedOrder:   order,
		decimalCols:    make(map[string]struct{}),
		orderColumn:    DefaultOrderColumn,
		orderDirection: "DESC",
		page:           1,
		size:           DefaultSize,
	}
}

// DecimalColumns marks allow-listed columns as arbitrary-precision decimal
// strings so sorting on them stays numeric.
func (b *Builder) DecimalColumns(columns ...string) *Builder {
	for _, c := range columns {
		b.decimalCols[c] = struct{}{}
	}
	return b
}

// WhereIn adds an exact-match predicate over a value list. Unknown columns
// and empty lists are ignored.
func (b *Builder) WhereIn(column string, values []string) *Builder {
	if len(values) == 0 {
		return b
	}
	if _, ok := b.allowedCols[column]; !ok {
		return b
	}

	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		b.args = append(b.args, v)
	}
	b.predicates = append(b.predicates, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))

	return b
}

// WhereCmp adds range predicates from "op:value" entries with
// op in {gte, lte, eq}. Malformed entries and unknown columns are ignored.
func (b *Builder) WhereCmp(column string, entries []string) *Builder {
	if _, ok := b.allowedCols[column]; !ok {
		return b
	}

	for _, entry := range entries {
		op, value, ok := ParseRHS(entry)
		if !ok {
			continue
		}
		b.predicates = append(b.predicates, fmt.Sprintf("%s %s ?", column, op))
		b.args = append(b.args, value)
	}

	return b
}

// WhereCmpDecimal adds range predicates for TEXT columns holding
// arbitrary-precision decimal strings (amounts, token ids). Comparing by
// length first and lexicographically second keeps the comparison exact for
// values beyond float precision.
func (b *Builder) WhereCmpDecimal(column string, entries []string) *Builder {
	if _, ok := b.allowedCols[column]; !ok {
		return b
	}

	for _, entry := range entries {
		op, value, ok := ParseRHS(entry)
		if !ok {
			continue
		}

		switch op {
		case "=":
			b.predicates = append(b.predicates, fmt.Sprintf("%s = ?", column))
			b.args = append(b.args, value)
		case ">=":
			b.predicates = append(b.predicates, fmt.Sprintf(
				"(LENGTH(%s) > LENGTH(?) OR (LENGTH(%s) = LENGTH(?) AND %s >= ?))", column, column, column))
			b.args = append(b.args, value, value, value)
		case "<=":
			b.predicates = append(b.predicates, fmt.Sprintf(
				"(LENGTH(%s) < LENGTH(?) OR (LENGTH(%s) = LENGTH(?) AND %s <= ?))", column, column, column))
			b.args = append(b.args, value, value, value)
		}
	}

	return b
}

// WhereAnyLike adds a disjunction of LIKE predicates with bound patterns,
// used for comma-delimited set columns (abilities). Unknown columns and
// empty lists are ignored.
func (b *Builder) WhereAnyLike(column string, values []string) *Builder {
	if len(values) == 0 {
		return b
	}
	if _, ok := b.allowedCols[column]; !ok {
		return b
	}

	likes := make([]string, len(values))
	for i, v := range values {
		likes[i] = fmt.Sprintf("(',' || %s || ',') LIKE ?", column)
		b.args = append(b.args, "%,"+v+",%")
	}
	b.predicates = append(b.predicates, "("+strings.Join(likes, " OR ")+")")

	return b
}

// WhereLike adds a single substring predicate with a bound pattern.
func (b *Builder) WhereLike(column, value string) *Builder {
	if value == "" {
		return b
	}
	if _, ok := b.allowedCols[column]; !ok {
		return b
	}

	b.predicates = append(b.predicates, fmt.Sprintf("%s LIKE ?", column))
	b.args = append(b.args, "%"+value+"%")

	return b
}

// OrderBy sets the sort column and direction. A column outside the order
// allow-list falls back to the default; any direction other than "asc"
// sorts descending.
func (b *Builder) OrderBy(column, direction string) *Builder {
	if _, ok := b.allowedOrder[column]; ok {
		b.orderColumn = column
	} else {
		b.orderColumn = DefaultOrderColumn
	}

	if strings.EqualFold(direction, "asc") {
		b.orderDirection = "ASC"
	} else {
		b.orderDirection = "DESC"
	}

	return b
}

// Paginate sets the page number and size. The size is capped at MaxSize
// and defaults when not positive; the page is at least 1.
func (b *Builder) Paginate(page, size int) *Builder {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}

	b.page = page
	b.size = size

	return b
}

// Page returns the effective page number.
func (b *Builder) Page() int { return b.page }

// Size returns the effective page size.
func (b *Builder) Size() int { return b.size }

// Build renders the data query with ORDER BY/LIMIT/OFFSET and the count
// query sharing the same predicate list. Soft-deleted rows are always
// excluded.
func (b *Builder) Build() (dataSQL string, dataArgs []any, countSQL string, countArgs []any) {
	where := "WHERE deleted = 0"
	if len(b.predicates) > 0 {
		where += " AND " + strings.Join(b.predicates, " AND ")
	}

	offset := (b.page - 1) * b.size

	orderClause := fmt.Sprintf("%s %s", b.orderColumn, b.orderDirection)
	if _, ok := b.decimalCols[b.orderColumn]; ok {
		orderClause = fmt.Sprintf("LENGTH(%s) %s, %s %s",
			b.orderColumn, b.orderDirection, b.orderColumn, b.orderDirection)
	}

	dataSQL = fmt.Sprintf("SELECT * FROM %s %s ORDER BY %s LIMIT ? OFFSET ?",
		b.table, where, orderClause)
	dataArgs = append(append([]any{}, b.args...), b.size, offset)

	countSQL = fmt.Sprintf("SELECT COUNT(*) FROM %s %s", b.table, where)
	countArgs = append([]any{}, b.args...)

	return dataSQL, dataArgs, countSQL, countArgs
}

// ParseRHS splits an "op:value" range entry. It reports false for entries
// without a recognized operator or with an empty value.
func ParseRHS(entry string) (op, value string, ok bool) {
	name, value, found := strings.Cut(entry, ":")
	if !found || value == "" {
		return "", "", false
	}

	op, ok = cmpOperators[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", "", false
	}

	return op, strings.TrimSpace(value), true
}
