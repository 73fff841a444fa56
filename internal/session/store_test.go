package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, "session:test:", ttl), mr
}

func TestOpenWithoutIDCreatesFreshSession(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	sess, err := store.Open(context.Background(), "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if sess.ID == "" {
		t.Fatalf("fresh session must get an id")
	}
	if !sess.Empty() {
		t.Fatalf("fresh session should be empty: %+v", sess)
	}
}

func TestSaveOpenRoundTrip(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	sess, err := store.Open(ctx, "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sess.InitTranscript("You are a friendly AI interviewer.")
	sess.AppendAssistant("Hello, shall we begin?")
	sess.AppendUser("yes")
	sess.Voice = "en-GB-OliverNeural"
	sess.Avatar = "avatar_4"
	sess.AddMetric("coachQuestionsAsked", 1)

	if stored, err := store.Save(ctx, sess); err != nil || !stored {
		t.Fatalf("Save() stored=%v err=%v", stored, err)
	}

	got, err := store.Open(ctx, sess.ID)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	if got.ID != sess.ID {
		t.Fatalf("ID = %q, want %q", got.ID, sess.ID)
	}
	if got.Prompt != sess.Prompt || got.Voice != sess.Voice || got.Avatar != sess.Avatar {
		t.Fatalf("fields did not round-trip: %+v", got)
	}
	if len(got.Transcript) != 3 {
		t.Fatalf("transcript length = %d, want 3", len(got.Transcript))
	}
	for i, turn := range sess.Transcript {
		if got.Transcript[i] != turn {
			t.Fatalf("turn %d = %+v, want %+v", i, got.Transcript[i], turn)
		}
	}
	if got.Metrics["coachQuestionsAsked"] != 1 {
		t.Fatalf("metrics did not round-trip: %+v", got.Metrics)
	}
	if got.Dirty() {
		t.Fatalf("freshly loaded session should not be dirty")
	}
}

func TestOpenRepairsIdentityMismatch(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	ctx := context.Background()

	mr.Set("session:test:abc", `{"_id":"zzz","prompt":"p"}`)
	sess, err := store.Open(ctx, "abc")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if sess.ID != "abc" {
		t.Fatalf("ID = %q, want storage key %q", sess.ID, "abc")
	}
	if !sess.Dirty() {
		t.Fatalf("repaired session must be marked dirty")
	}
}

func TestTTLExpiryYieldsFreshSession(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	sess, _ := store.Open(ctx, "")
	sess.InitTranscript("prompt")
	if _, err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	mr.FastForward(2 * time.Minute)

	got, err := store.Open(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Open() after expiry error = %v", err)
	}
	if !got.Empty() {
		t.Fatalf("expired session should come back empty: %+v", got)
	}
	if got.ID != sess.ID {
		t.Fatalf("fresh session should keep presented id %q, got %q", sess.ID, got.ID)
	}
}

func TestSaveSlidesTTL(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	sess, _ := store.Open(ctx, "")
	sess.InitTranscript("prompt")
	if _, err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	mr.FastForward(40 * time.Second)
	reopened, err := store.Open(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := store.Save(ctx, reopened); err != nil {
		t.Fatalf("re-Save() error = %v", err)
	}

	mr.FastForward(40 * time.Second)
	got, err := store.Open(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got.Empty() {
		t.Fatalf("session should still be live after TTL refresh")
	}
}

func TestClearedSessionIsDeletedOnSave(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	ctx := context.Background()

	sess, _ := store.Open(ctx, "")
	sess.InitTranscript("prompt")
	if _, err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	sess.Clear()
	stored, err := store.Save(ctx, sess)
	if err != nil {
		t.Fatalf("Save() after clear error = %v", err)
	}
	if stored {
		t.Fatalf("cleared session must not be stored")
	}
	if mr.Exists("session:test:" + sess.ID) {
		t.Fatalf("backing record should be deleted")
	}
}

func TestOpenSurfacesStoreOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(client, "session:test:", time.Hour)
	mr.Close()

	_, err := store.Open(context.Background(), "some-id")
	if err == nil {
		t.Fatalf("expected error when store is unreachable")
	}
}

func TestConcurrentDoubleOpenWithoutRecordsYieldsDistinctIDs(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	a, err := store.Open(ctx, "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	b, err := store.Open(ctx, "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	// No coordination between id-less opens: each mints its own identity.
	if a.ID == b.ID {
		t.Fatalf("two fresh opens produced the same id %q", a.ID)
	}
}
