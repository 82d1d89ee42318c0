package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slackharvest/pkg/slack"
)

func TestWriteThreadsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threads.csv")

	threads := []slack.ThreadRecord{
		{TS: "1.0", User: "U1", Text: "hello, world", ThreadTS: "1.0", ReplyCount: 3, Subtype: "normal_message", Permalink: "https://x/p1"},
		{TS: "2.0", User: "Unknown", Text: "no link", ThreadTS: "2.0", ReplyCount: 1, Subtype: "bot_message"},
	}
	require.NoError(t, WriteThreadsCSV(path, threads))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"ts", "user", "text", "thread_ts", "reply_count", "subtype", "thread_url"}, rows[0])
	assert.Equal(t, []string{"1.0", "U1", "hello, world", "1.0", "3", "normal_message", "https://x/p1"}, rows[1])
	assert.Equal(t, []string{"2.0", "Unknown", "no link", "2.0", "1", "bot_message", ""}, rows[2])
}

func TestWriteThreadsCSVEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threads.csv")
	require.NoError(t, WriteThreadsCSV(path, nil))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
}

func TestWriteThreadsCSVBadPath(t *testing.T) {
	err := WriteThreadsCSV(filepath.Join(t.TempDir(), "missing", "threads.csv"), nil)
	assert.Error(t, err)
}
