package filter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestBuilder() *Builder {
	return NewBuilder("hero_orders",
		[]string{"status", "seller_address", "rarity", "level", "amount", "abilities"},
		[]string{"updated_at", "block_number", "level", "amount"},
	).DecimalColumns("amount")
}

func TestBuilder_Defaults(t *testing.T) {
	t.Parallel()

	dataSQL, dataArgs, countSQL, countArgs := newTestBuilder().Build()

	require.Equal(t, "SELECT * FROM hero_orders WHERE deleted = 0 ORDER BY updated_at DESC LIMIT ? OFFSET ?", dataSQL)
	require.Equal(t, []any{DefaultSize, 0}, dataArgs)
	require.Equal(t, "SELECT COUNT(*) FROM hero_orders WHERE deleted = 0", countSQL)
	require.Empty(t, countArgs)
}

func TestBuilder_WhereIn(t *testing.T) {
	t.Parallel()

	dataSQL, dataArgs, countSQL, countArgs := newTestBuilder().
		WhereIn("status", []string{"listing", "sold"}).
		WhereIn("rarity", []string{"3"}).
		Build()

	require.Contains(t, dataSQL, "status IN (?, ?)")
	require.Contains(t, dataSQL, "rarity IN (?)")
	require.Equal(t, []any{"listing", "sold", "3", DefaultSize, 0}, dataArgs)
	require.Contains(t, countSQL, "status IN (?, ?)")
	require.Equal(t, []any{"listing", "sold", "3"}, countArgs)
}

func TestBuilder_WhereInUnknownColumnIgnored(t *testing.T) {
	t.Parallel()

	dataSQL, dataArgs, _, _ := newTestBuilder().
		WhereIn("secret_column", []string{"x"}).
		Build()

	require.NotContains(t, dataSQL, "secret_column")
	require.Equal(t, []any{DefaultSize, 0}, dataArgs)
}

func TestBuilder_WhereCmp(t *testing.T) {
	t.Parallel()

	dataSQL, dataArgs, _, _ := newTestBuilder().
		WhereCmp("level", []string{"gte:3", "lte:7"}).
		Build()

	require.Contains(t, dataSQL, "level >= ?")
	require.Contains(t, dataSQL, "level <= ?")
	require.Equal(t, []any{"3", "7", DefaultSize, 0}, dataArgs)
}

func TestBuilder_WhereCmpMalformedIgnored(t *testing.T) {
	t.Parallel()

	dataSQL, dataArgs, _, _ := newTestBuilder().
		WhereCmp("level", []string{"gt:3", "gte", "gte:", "", ":5", "banana"}).
		Build()

	require.Equal(t, "SELECT * FROM hero_orders WHERE deleted = 0 ORDER BY updated_at DESC LIMIT ? OFFSET ?", dataSQL)
	require.Equal(t, []any{DefaultSize, 0}, dataArgs)
}

func TestBuilder_WhereCmpDecimal(t *testing.T) {
	t.Parallel()

	dataSQL, dataArgs, _, _ := newTestBuilder().
		WhereCmpDecimal("amount", []string{"gte:1000"}).
		Build()

	require.Contains(t, dataSQL, "LENGTH(amount) > LENGTH(?)")
	require.Contains(t, dataSQL, "amount >= ?")
	require.Equal(t, []any{"1000", "1000", "1000", DefaultSize, 0}, dataArgs)
}

func TestBuilder_WhereAnyLike(t *testing.T) {
	t.Parallel()

	dataSQL, dataArgs, _, _ := newTestBuilder().
		WhereAnyLike("abilities", []string{"1", "13"}).
		Build()

	require.Contains(t, dataSQL, "(',' || abilities || ',') LIKE ?")
	require.Contains(t, dataSQL, " OR ")
	require.Equal(t, []any{"%,1,%", "%,13,%", DefaultSize, 0}, dataArgs)
}

func TestBuilder_WhereAnyLikeInjectionStaysBound(t *testing.T) {
	t.Parallel()

	crafted := "1'; DROP TABLE hero_orders; --"

	dataSQL, dataArgs, _, _ := newTestBuilder().
		WhereAnyLike("abilities", []string{crafted}).
		Build()

	// The crafted value never appears in the SQL text, only as a bound arg
	require.NotContains(t, dataSQL, "DROP TABLE")
	require.Contains(t, dataArgs, "%,"+crafted+",%")
}

func TestBuilder_WhereLike(t *testing.T) {
	t.Parallel()

	dataSQL, dataArgs, _, _ := newTestBuilder().
		WhereLike("seller_address", "0xaa").
		Build()

	require.Contains(t, dataSQL, "seller_address LIKE ?")
	require.Equal(t, []any{"%0xaa%", DefaultSize, 0}, dataArgs)

	// Unknown column and empty value are ignored
	dataSQL, dataArgs, _, _ = newTestBuilder().
		WhereLike("secret_column", "x").
		WhereLike("seller_address", "").
		Build()

	require.NotContains(t, dataSQL, "secret_column")
	require.Equal(t, []any{DefaultSize, 0}, dataArgs)
}

func TestBuilder_OrderByAllowList(t *testing.T) {
	t.Parallel()

	dataSQL, _, _, _ := newTestBuilder().OrderBy("level", "asc").Build()
	require.Contains(t, dataSQL, "ORDER BY level ASC")

	// Unknown column falls back to the default
	dataSQL, _, _, _ = newTestBuilder().OrderBy("level; DROP TABLE hero_orders", "asc").Build()
	require.Contains(t, dataSQL, "ORDER BY updated_at ASC")
	require.NotContains(t, dataSQL, "DROP TABLE")

	// Unknown direction sorts descending
	dataSQL, _, _, _ = newTestBuilder().OrderBy("level", "sideways").Build()
	require.Contains(t, dataSQL, "ORDER BY level DESC")
}

func TestBuilder_OrderByDecimalColumn(t *testing.T) {
	t.Parallel()

	dataSQL, _, _, _ := newTestBuilder().OrderBy("amount", "desc").Build()
	require.Contains(t, dataSQL, "ORDER BY LENGTH(amount) DESC, amount DESC")
}

func TestBuilder_Paginate(t *testing.T) {
	t.Parallel()

	b := newTestBuilder().Paginate(3, 50)
	dataSQL, dataArgs, _, _ := b.Build()

	require.True(t, strings.HasSuffix(dataSQL, "LIMIT ? OFFSET ?"))
	require.Equal(t, []any{50, 100}, dataArgs)
	require.Equal(t, 3, b.Page())
	require.Equal(t, 50, b.Size())
}

func TestBuilder_PaginateCapsSize(t *testing.T) {
	t.Parallel()

	b := newTestBuilder().Paginate(1, 10000)
	_, dataArgs, _, _ := b.Build()

	require.Equal(t, []any{MaxSize, 0}, dataArgs)
	require.Equal(t, MaxSize, b.Size())

	b = newTestBuilder().Paginate(0, -5)
	require.Equal(t, 1, b.Page())
	require.Equal(t, DefaultSize, b.Size())
}

func TestParseRHS(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		entry string
		op    string
		value string
		ok    bool
	}{
		{entry: "gte:100", op: ">=", value: "100", ok: true},
		{entry: "lte:50", op: "<=", value: "50", ok: true},
		{entry: "eq:7", op: "=", value: "7", ok: true},
		{entry: "GTE:100", op: ">=", value: "100", ok: true},
		{entry: "gt:100", ok: false},
		{entry: "gte:", ok: false},
		{entry: "100", ok: false},
		{entry: "", ok: false},
	}

	for _, tc := range testCases {
		op, value, ok := ParseRHS(tc.entry)
		require.Equal(t, tc.ok, ok, "entry %q", tc.entry)
		if tc.ok {
			require.Equal(t, tc.op, op)
			require.Equal(t, tc.value, value)
		}
	}
}

func TestNewPage(t *testing.T) {
	t.Parallel()

	page := NewPage([]int{1, 2, 3}, 45, 2, 20)
	require.Equal(t, 45, page.TotalCount)
	require.Equal(t, 3, page.TotalPages)
	require.Equal(t, 2, page.Page)
	require.True(t, page.HasMore)

	page = NewPage(nil, 45, 3, 20)
	require.False(t, page.HasMore)

	page = NewPage(nil, 0, 1, 20)
	require.Zero(t, page.TotalPages)
	require.False(t, page.HasMore)

	page = NewPage(nil, 40, 2, 20)
	require.Equal(t, 2, page.TotalPages)
	require.False(t, page.HasMore)
}
