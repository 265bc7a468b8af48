package sqlfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat_UppercasesKeywords(t *testing.T) {
	got := Format("select name from system.tables where database = 'app' order by name")
	assert.Equal(t, "SELECT name FROM system.tables WHERE database = 'app' ORDER BY name", got)
}

func TestFormat_PreservesFunctionCasing(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "toDateTime survives",
			in:   "select todatetime(ts) from t",
			want: "SELECT toDateTime(ts) FROM t",
		},
		{
			name: "canonical casing restored",
			in:   "SELECT ARRAYJOIN(tables) FROM system.query_log",
			want: "SELECT arrayJoin(tables) FROM system.query_log",
		},
		{
			name: "aggregate combinators",
			in:   "select countif(x > 0), uniqexact(id) from t group by y",
			want: "SELECT countIf(x > 0), uniqExact(id) FROM t GROUP BY y",
		},
		{
			name: "function name only before paren",
			in:   "select todate from t", // a column named todate, not a call
			want: "SELECT todate FROM t",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.in))
		})
	}
}

func TestFormat_LeavesStringLiteralsAlone(t *testing.T) {
	got := Format("select * from t where msg = 'select from where'")
	assert.Equal(t, "SELECT * FROM t WHERE msg = 'select from where'", got)
}

func TestFormat_EscapedQuoteInLiteral(t *testing.T) {
	got := Format(`select 'it\'s from here' from t`)
	assert.Equal(t, `SELECT 'it\'s from here' FROM t`, got)
}

func TestFormat_BacktickedIdentifiers(t *testing.T) {
	got := Format("select `from` from t")
	assert.Equal(t, "SELECT `from` FROM t", got)
}

func TestFormat_IdentifiersUntouched(t *testing.T) {
	got := Format("select user_name, total_bytes from disk_usage")
	assert.Equal(t, "SELECT user_name, total_bytes FROM disk_usage", got)
}

func TestFormat_Empty(t *testing.T) {
	assert.Equal(t, "", Format(""))
}

func TestFormat_ClickHouseQuery(t *testing.T) {
	in := "select database, table, sum(bytes_on_disk) as size from system.parts where active group by database, table order by size desc limit 10"
	want := "SELECT database, table, sum(bytes_on_disk) AS size FROM system.parts WHERE active GROUP BY database, table ORDER BY size DESC LIMIT 10"
	assert.Equal(t, want, Format(in))
}
