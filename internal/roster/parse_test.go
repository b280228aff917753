package roster

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCSV_HeaderColumn(t *testing.T) {
	text := "name,workerId\n张三,w1\n李四,w2\n"

	res, err := ParseCSV(text, "2026-10-14")
	require.NoError(t, err)
	require.Equal(t, []string{"w1", "w2"}, res.WorkerIDs)
	require.Zero(t, res.Duplicates)
	require.Zero(t, res.Skipped)
}

func TestParseCSV_HeaderVariants(t *testing.T) {
	for _, header := range []string{"worker_id", "ID", "社员番号", "工号", "Worker Id"} {
		res, err := ParseCSV(header+"\nw9\n", "2026-10-14")
		require.NoError(t, err, header)
		require.Equal(t, []string{"w9"}, res.WorkerIDs, header)
	}
}

func TestParseCSV_NoHeaderUsesFirstColumn(t *testing.T) {
	res, err := ParseCSV("w1,张三\nw2,李四\n", "2026-10-14")
	require.NoError(t, err)
	require.Equal(t, []string{"w1", "w2"}, res.WorkerIDs)
}

func TestParseCSV_DateColumnFiltersRows(t *testing.T) {
	text := "date,workerId\n2026-10-14,w1\n2026/10/15,w2\n2026/10/14,w3\nbad,w4\n"

	res, err := ParseCSV(text, "2026-10-14")
	require.NoError(t, err)
	require.Equal(t, []string{"w1", "w3"}, res.WorkerIDs)
	require.Equal(t, 2, res.Skipped)
}

func TestParseCSV_DuplicatesKeepFirstPosition(t *testing.T) {
	text := "workerId\nw2\nw1\nw2\n\n  \nw3\n"

	res, err := ParseCSV(text, "2026-10-14")
	require.NoError(t, err)
	require.Equal(t, []string{"w2", "w1", "w3"}, res.WorkerIDs)
	require.Equal(t, 1, res.Duplicates)
	require.Equal(t, 1, res.Skipped)
}

func TestParseCSV_ByteOrderMark(t *testing.T) {
	res, err := ParseCSV("\ufeffworkerId\nw1\n", "2026-10-14")
	require.NoError(t, err)
	require.Equal(t, []string{"w1"}, res.WorkerIDs)
}

func TestParseCSV_Empty(t *testing.T) {
	res, err := ParseCSV("", "2026-10-14")
	require.NoError(t, err)
	require.Empty(t, res.WorkerIDs)
}
