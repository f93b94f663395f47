package db

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "data", "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	return store
}

func sampleInput(n int) ChatRecordInput {
	return ChatRecordInput{
		PromptID:         "math",
		PromptName:       "math tutor",
		ModelID:          "m1",
		ModelName:        "Model One",
		UserMessage:      fmt.Sprintf("question %d", n),
		AssistantMessage: fmt.Sprintf("answer %d", n),
	}
}

func TestInsertGetRoundTrip(t *testing.T) {
	store := openTestStore(t)

	in := ChatRecordInput{
		PromptID:         "math",
		PromptName:       "math tutor",
		ModelID:          "m1",
		ModelName:        "Model One",
		UserMessage:      "2+2?",
		AssistantMessage: "4",
		HasImages:        true,
	}
	id, err := store.Insert(in)
	if err != nil {
		t.Fatal(err)
	}
	if id <= 0 {
		t.Fatalf("id = %d, want positive", id)
	}

	got, err := store.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if got.PromptID != in.PromptID || got.PromptName != in.PromptName ||
		got.ModelID != in.ModelID || got.ModelName != in.ModelName ||
		got.UserMessage != in.UserMessage || got.AssistantMessage != in.AssistantMessage {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.HasImages != 1 {
		t.Errorf("has_images = %d, want 1", got.HasImages)
	}
	if got.CreatedAt == "" {
		t.Error("created_at not assigned by store")
	}
}

func TestInsertAllowsDuplicates(t *testing.T) {
	store := openTestStore(t)

	first, err := store.Insert(sampleInput(1))
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.Insert(sampleInput(1))
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if second <= first {
		t.Errorf("ids not monotonically increasing: %d then %d", first, second)
	}
}

func TestListNewestFirstWithTotal(t *testing.T) {
	store := openTestStore(t)

	const n = 45
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		id, err := store.Insert(sampleInput(i))
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	records, total, err := store.List(20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != n {
		t.Errorf("total = %d, want %d", total, n)
	}
	if len(records) != 20 {
		t.Fatalf("got %d records, want 20", len(records))
	}
	// all inserts land in the same localtime second, so the id tiebreak
	// decides: most recent insert first
	for i, r := range records {
		if want := ids[n-1-i]; r.ID != want {
			t.Errorf("records[%d].ID = %d, want %d", i, r.ID, want)
		}
	}

	// total is independent of the window
	if _, total, err = store.List(5, 40); err != nil {
		t.Fatal(err)
	} else if total != n {
		t.Errorf("total = %d, want %d regardless of limit/offset", total, n)
	}
}

func TestListHugeLimit(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Insert(sampleInput(1)); err != nil {
		t.Fatal(err)
	}
	// the limit must never drive the allocation: a caller asking for
	// MaxInt32 records gets the one that exists, not an out-of-memory
	records, total, err := store.List(1<<31-1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || total != 1 {
		t.Errorf("got %d records total %d, want 1 and 1", len(records), total)
	}
}

func TestListOffsetPastEnd(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Insert(sampleInput(1)); err != nil {
		t.Fatal(err)
	}
	records, total, err := store.List(10, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 || total != 1 {
		t.Errorf("got %d records total %d, want 0 records total 1", len(records), total)
	}
}

func TestGetMissing(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Get(12345); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	store := openTestStore(t)

	id, err := store.Insert(sampleInput(1))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(id); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete: err = %v, want ErrNotFound", err)
	}
	// deleting again, or deleting something that never existed, succeeds
	if err := store.Delete(id); err != nil {
		t.Errorf("second delete: %v", err)
	}
	if err := store.Delete(99999); err != nil {
		t.Errorf("delete missing id: %v", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	id, err := store.Insert(sampleInput(1))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if err := reopened.Init(); err != nil {
		t.Fatal(err)
	}
	got, err := reopened.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if got.UserMessage != "question 1" {
		t.Errorf("user_message = %q after reopen", got.UserMessage)
	}
}
