package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"slackharvest/pkg/logger"
	"slackharvest/pkg/slack"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	log, err := logger.New(logger.Options{Level: "disabled"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	store, err := NewStore(t.TempDir(), Files{
		Threads:  "threads.json",
		Replies:  "replies.json",
		Progress: "progress.json",
	}, log)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestThreadsRoundTrip(t *testing.T) {
	store := newTestStore(t)

	threads := []slack.ThreadRecord{
		{TS: "1.0", User: "U1", Text: "first", ThreadTS: "1.0", ReplyCount: 2, Subtype: "normal_message", Permalink: "https://x/p1"},
		{TS: "2.0", User: "U2", Text: "second", ThreadTS: "2.0", ReplyCount: 1, Subtype: "normal_message"},
	}
	if err := store.SaveThreads(threads); err != nil {
		t.Fatalf("failed to save threads: %v", err)
	}

	loaded := store.LoadThreads()
	if len(loaded) != 2 {
		t.Fatalf("expected 2 threads, got %d", len(loaded))
	}
	if loaded[0] != threads[0] {
		t.Errorf("thread mismatch: got %+v, want %+v", loaded[0], threads[0])
	}
	if loaded[1].Permalink != "" {
		t.Errorf("expected empty permalink, got %q", loaded[1].Permalink)
	}
}

func TestRepliesRoundTrip(t *testing.T) {
	store := newTestStore(t)

	replies := []slack.Message{
		{TS: "1.1", ThreadTS: "1.0", User: "U1", Text: "a reply"},
		{TS: "1.2", ThreadTS: "1.0", User: "U2", Text: "another"},
	}
	if err := store.SaveReplies(replies); err != nil {
		t.Fatalf("failed to save replies: %v", err)
	}

	loaded := store.LoadReplies()
	if len(loaded) != 2 {
		t.Fatalf("expected 2 replies, got %d", len(loaded))
	}
	if loaded[1].TS != "1.2" {
		t.Errorf("expected ts 1.2, got %s", loaded[1].TS)
	}
}

func TestMissingStateIsEmpty(t *testing.T) {
	store := newTestStore(t)

	if got := store.LoadThreads(); len(got) != 0 {
		t.Errorf("expected no threads, got %d", len(got))
	}
	if got := store.LoadReplies(); len(got) != 0 {
		t.Errorf("expected no replies, got %d", len(got))
	}
	p := store.LoadProgress()
	if p.NextIndex != 0 || p.LastSeenTS != "" {
		t.Errorf("expected zero marker, got %+v", p)
	}
}

func TestCorruptStateIsEmpty(t *testing.T) {
	store := newTestStore(t)

	for _, name := range []string{"threads.json", "replies.json", "progress.json"} {
		if err := os.WriteFile(store.Path(name), []byte("{truncated"), 0644); err != nil {
			t.Fatalf("failed to plant corrupt file: %v", err)
		}
	}

	if got := store.LoadThreads(); len(got) != 0 {
		t.Errorf("corrupt threads should load empty, got %d", len(got))
	}
	if got := store.LoadReplies(); len(got) != 0 {
		t.Errorf("corrupt replies should load empty, got %d", len(got))
	}
	if p := store.LoadProgress(); p.NextIndex != 0 {
		t.Errorf("corrupt progress should load zero, got %+v", p)
	}
}

func TestNegativeIndexIsZero(t *testing.T) {
	store := newTestStore(t)

	if err := os.WriteFile(store.Path("progress.json"), []byte(`{"last_processed_index": -3}`), 0644); err != nil {
		t.Fatalf("failed to plant progress file: %v", err)
	}

	if p := store.LoadProgress(); p.NextIndex != 0 {
		t.Errorf("negative index should clamp to zero, got %d", p.NextIndex)
	}
}

func TestProgressRoundTrip(t *testing.T) {
	store := newTestStore(t)

	if err := store.SaveProgress(Progress{NextIndex: 7, LastSeenTS: "9.0"}); err != nil {
		t.Fatalf("failed to save progress: %v", err)
	}

	p := store.LoadProgress()
	if p.NextIndex != 7 {
		t.Errorf("expected index 7, got %d", p.NextIndex)
	}
	if p.LastSeenTS != "9.0" {
		t.Errorf("expected boundary 9.0, got %s", p.LastSeenTS)
	}
	if p.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be stamped")
	}
}

func TestResetIndexPreservesBoundary(t *testing.T) {
	store := newTestStore(t)

	if err := store.SaveProgress(Progress{NextIndex: 12, LastSeenTS: "42.0"}); err != nil {
		t.Fatalf("failed to save progress: %v", err)
	}
	if err := store.ResetIndex(); err != nil {
		t.Fatalf("failed to reset index: %v", err)
	}

	p := store.LoadProgress()
	if p.NextIndex != 0 {
		t.Errorf("expected index reset to 0, got %d", p.NextIndex)
	}
	if p.LastSeenTS != "42.0" {
		t.Errorf("boundary must survive the reset, got %s", p.LastSeenTS)
	}
}

func TestWriteLeavesNoTempFile(t *testing.T) {
	store := newTestStore(t)

	if err := store.SaveThreads([]slack.ThreadRecord{{TS: "1.0"}}); err != nil {
		t.Fatalf("failed to save threads: %v", err)
	}

	if _, err := os.Stat(store.Path("threads.json") + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file must not survive a successful write")
	}
}

func TestOverwriteReplacesWhole(t *testing.T) {
	store := newTestStore(t)

	if err := store.SaveThreads([]slack.ThreadRecord{{TS: "1.0"}, {TS: "2.0"}}); err != nil {
		t.Fatalf("failed to save threads: %v", err)
	}
	if err := store.SaveThreads([]slack.ThreadRecord{{TS: "3.0"}}); err != nil {
		t.Fatalf("failed to overwrite threads: %v", err)
	}

	loaded := store.LoadThreads()
	if len(loaded) != 1 || loaded[0].TS != "3.0" {
		t.Errorf("expected single replaced record, got %+v", loaded)
	}
}

func TestSaveNilWritesEmptyArray(t *testing.T) {
	store := newTestStore(t)

	if err := store.SaveThreads(nil); err != nil {
		t.Fatalf("failed to save nil threads: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(store.dir, "threads.json"))
	if err != nil {
		t.Fatalf("failed to read threads file: %v", err)
	}
	if string(data) != "[]\n" {
		t.Errorf("expected empty JSON array, got %q", string(data))
	}
}
