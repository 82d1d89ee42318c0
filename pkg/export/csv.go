package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"slackharvest/pkg/slack"
)

var csvHeader = []string{"ts", "user", "text", "thread_ts", "reply_count", "subtype", "thread_url"}

// WriteThreadsCSV renders the thread snapshot as a CSV file next to the
// JSON output. The column set mirrors the JSON record shape.
func WriteThreadsCSV(path string, threads []slack.ThreadRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, t := range threads {
		row := []string{
			t.TS,
			t.User,
			t.Text,
			t.ThreadTS,
			strconv.Itoa(t.ReplyCount),
			t.Subtype,
			t.Permalink,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
