package fscache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/unkn0wn-root/bytecache/codec"
	"github.com/unkn0wn-root/bytecache/store"
)

type entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newEntryCache(t *testing.T, optsOpt func(*Options[entry])) *Cache[entry] {
	t.Helper()
	opts := Options[entry]{
		Dir:   t.TempDir(),
		Codec: codec.JSON[entry]{},
	}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func TestNewValidatesOptions(t *testing.T) {
	if _, err := New(Options[entry]{Codec: codec.JSON[entry]{}}); err == nil {
		t.Fatal("expected error for missing dir")
	}
	if _, err := New(Options[entry]{Dir: t.TempDir()}); err == nil {
		t.Fatal("expected error for missing codec")
	}
}

func TestSetGetRoundtrip(t *testing.T) {
	ctx := context.Background()
	c := newEntryCache(t, nil)

	want := entry{ID: "1", Name: "Ada"}
	if err := c.Set(ctx, "user:1", want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := c.Get(ctx, "user:1")
	if err != nil || !ok || got != want {
		t.Fatalf("Get: ok=%v err=%v got=%v", ok, err, got)
	}
}

func TestMissOnUnknownKey(t *testing.T) {
	c := newEntryCache(t, nil)
	if _, ok, err := c.Get(context.Background(), "nope"); err != nil || ok {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}
}

func TestEmptyKeyRejected(t *testing.T) {
	ctx := context.Background()
	c := newEntryCache(t, nil)
	if err := c.Set(ctx, "", entry{}); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("Set: err=%v, want ErrEmptyKey", err)
	}
	if _, _, err := c.Get(ctx, ""); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("Get: err=%v, want ErrEmptyKey", err)
	}
}

// Keys land in sharded subdirectories with a meta sidecar next to the blob.
func TestShardedLayoutOnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := New(Options[string]{Dir: dir, Codec: codec.String{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Set(ctx, "aabbcc", "payload"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	blob := filepath.Join(dir, "aa", "bb", "cc", "aabbcc")
	if _, err := os.Stat(blob); err != nil {
		t.Fatalf("blob not at sharded path: %v", err)
	}
	if _, err := os.Stat(blob + ".meta"); err != nil {
		t.Fatalf("meta sidecar missing: %v", err)
	}

	raw, err := os.ReadFile(blob)
	if err != nil || string(raw) != "payload" {
		t.Fatalf("blob contents %q err=%v", raw, err)
	}
}

// Negative Subdirs disables sharding; blobs land directly under Dir.
func TestFlatLayout(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := New(Options[string]{Dir: dir, Codec: codec.String{}, Subdirs: -1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Set(ctx, "aabbcc", "flat"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "aabbcc")); err != nil {
		t.Fatalf("blob not at flat path: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "aabbcc.meta")); err != nil {
		t.Fatalf("meta sidecar missing: %v", err)
	}
	if v, ok, err := c.Get(ctx, "aabbcc"); err != nil || !ok || v != "flat" {
		t.Fatalf("Get: ok=%v err=%v v=%q", ok, err, v)
	}
}

func TestDeleteRemovesFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := New(Options[string]{Dir: dir, Codec: codec.String{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Set(ctx, "aabbcc", "x"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	existed, err := c.Delete(ctx, "aabbcc")
	if err != nil || !existed {
		t.Fatalf("Delete: existed=%v err=%v", existed, err)
	}
	if _, ok, _ := c.Get(ctx, "aabbcc"); ok {
		t.Fatal("deleted key must miss")
	}
	if _, err := os.Stat(filepath.Join(dir, "aa", "bb", "cc", "aabbcc")); !os.IsNotExist(err) {
		t.Fatalf("blob still on disk: %v", err)
	}
	if c.Usage() != 0 {
		t.Fatalf("usage=%d after delete", c.Usage())
	}

	existed, err = c.Delete(ctx, "aabbcc")
	if err != nil || existed {
		t.Fatalf("second Delete: existed=%v err=%v", existed, err)
	}
}

// Aged-out entries are reclaimed from disk to admit new payloads.
func TestBudgetEvictsAgedOutFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := New(Options[string]{
		Dir:                 dir,
		Codec:               codec.String{},
		Limit:               10,
		GenerationThreshold: 2,
		GenerationCount:     2,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	keys := []string{"ka", "kb", "kc", "kd", "ke", "kf"}
	for _, k := range keys {
		if err := c.Set(ctx, k, "xy"); err != nil {
			t.Fatalf("Set %q: %v", k, err)
		}
	}
	if c.Usage() > c.Limit() {
		t.Fatalf("usage=%d exceeds limit", c.Usage())
	}
	if _, ok, _ := c.Get(ctx, "ka"); ok {
		t.Fatal("oldest entry should have been evicted")
	}
	if _, err := os.Stat(filepath.Join(dir, "ka", "ka")); !os.IsNotExist(err) {
		t.Fatalf("evicted blob still on disk: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "kf"); !ok {
		t.Fatal("newest entry must be stored")
	}
}

// Replacing an entry that already aged into the reclamation band gets no
// credit for the old blob: the spill deletes it, so the full payload must fit.
func TestBudgetReplaceAgedOutChargesFullCost(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := New(Options[string]{
		Dir:                 dir,
		Codec:               codec.String{},
		Limit:               10,
		GenerationThreshold: 2,
		GenerationCount:     2,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := c.Set(ctx, "ka", "aaaa"); err != nil {
		t.Fatalf("Set ka: %v", err)
	}
	for _, k := range []string{"kb", "kc", "kd"} {
		if err := c.Set(ctx, k, "xy"); err != nil {
			t.Fatalf("Set %q: %v", k, err)
		}
	}
	// "ka" has aged out of every generation; usage sits at the limit
	if c.Usage() != 10 {
		t.Fatalf("usage=%d want 10", c.Usage())
	}

	// 8 new bytes minus the old 4 would fit, but the spill deletes the old
	// blob anyway and the full 8 next to the recent entries does not.
	if err := c.Set(ctx, "ka", "aaaaaaaa"); !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("err=%v, want ErrOutOfMemory", err)
	}
	if c.Usage() > c.Limit() {
		t.Fatalf("usage=%d exceeds limit %d", c.Usage(), c.Limit())
	}
	if _, ok, _ := c.Get(ctx, "ka"); ok {
		t.Fatal("failed replacement must drop the key")
	}
	if _, err := os.Stat(filepath.Join(dir, "ka", "ka")); !os.IsNotExist(err) {
		t.Fatalf("dropped blob still on disk: %v", err)
	}
}

func TestBudgetRejectsOversized(t *testing.T) {
	ctx := context.Background()
	c, err := New(Options[string]{
		Dir:   t.TempDir(),
		Codec: codec.String{},
		Limit: 8,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Set(ctx, "big", string(make([]byte, 64))); !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("err=%v, want ErrOutOfMemory", err)
	}
	if _, ok, _ := c.Get(ctx, "big"); ok {
		t.Fatal("rejected key must miss")
	}
}

// Corrupt sidecars are dropped on read and reported as misses.
func TestSelfHealOnCorruptMeta(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := New(Options[string]{Dir: dir, Codec: codec.String{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Set(ctx, "aabbcc", "x"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	metaPath := filepath.Join(dir, "aa", "bb", "cc", "aabbcc.meta")
	if err := os.WriteFile(metaPath, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("corrupt meta: %v", err)
	}

	if _, ok, err := c.Get(ctx, "aabbcc"); err != nil || ok {
		t.Fatalf("corrupt entry should miss cleanly, ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "aa", "bb", "cc", "aabbcc")); !os.IsNotExist(err) {
		t.Fatalf("corrupt entry's blob not dropped: %v", err)
	}
	if c.Usage() != 0 {
		t.Fatalf("usage=%d after self-heal", c.Usage())
	}
}

func TestSelfHealOnMissingBlob(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := New(Options[string]{Dir: dir, Codec: codec.String{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Set(ctx, "aabbcc", "x"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "aa", "bb", "cc", "aabbcc")); err != nil {
		t.Fatalf("remove blob: %v", err)
	}

	if _, ok, err := c.Get(ctx, "aabbcc"); err != nil || ok {
		t.Fatalf("missing blob should miss cleanly, ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "aa", "bb", "cc", "aabbcc.meta")); !os.IsNotExist(err) {
		t.Fatalf("orphan meta not dropped: %v", err)
	}
}

// Reopening a cache dir picks up what is already stored.
func TestReopenRehydratesUsage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	c, err := New(Options[string]{Dir: dir, Codec: codec.String{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := c.Set(ctx, fmt.Sprintf("key%d", i), "abcd"); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	if err := c.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	re, err := New(Options[string]{Dir: dir, Codec: codec.String{}})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if re.Usage() != 12 {
		t.Fatalf("rehydrated usage=%d want 12", re.Usage())
	}
	if v, ok, err := re.Get(ctx, "key1"); err != nil || !ok || v != "abcd" {
		t.Fatalf("Get after reopen: ok=%v err=%v v=%q", ok, err, v)
	}
}

func TestClearDropsEverything(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	hot, err := store.NewMem(1 << 16)
	if err != nil {
		t.Fatalf("NewMem: %v", err)
	}
	c, err := New(Options[string]{Dir: dir, Codec: codec.String{}, Hot: hot})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Set(ctx, "aabbcc", "x"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if c.Usage() != 0 {
		t.Fatalf("usage=%d after clear", c.Usage())
	}
	// the warmed hot entry must not resurrect the value
	if _, ok, err := c.Get(ctx, "aabbcc"); err != nil || ok {
		t.Fatalf("cleared key should miss, ok=%v err=%v", ok, err)
	}
}

func TestHotTierServesAfterBlobLoss(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	hot, err := store.NewMem(1 << 16)
	if err != nil {
		t.Fatalf("NewMem: %v", err)
	}
	c, err := New(Options[string]{Dir: dir, Codec: codec.String{}, Hot: hot})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Set(ctx, "aabbcc", "warm"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// lose the disk copy; the hot tier still answers
	if err := os.Remove(filepath.Join(dir, "aa", "bb", "cc", "aabbcc")); err != nil {
		t.Fatalf("remove blob: %v", err)
	}
	if v, ok, err := c.Get(ctx, "aabbcc"); err != nil || !ok || v != "warm" {
		t.Fatalf("hot tier miss: ok=%v err=%v v=%q", ok, err, v)
	}
}

// The value codec is pluggable; msgpack roundtrips structs the same way.
func TestMsgpackCodecRoundtrip(t *testing.T) {
	ctx := context.Background()
	c, err := New(Options[entry]{
		Dir:   t.TempDir(),
		Codec: codec.Msgpack[entry]{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := entry{ID: "7", Name: "Grace"}
	if err := c.Set(ctx, "user:7", want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := c.Get(ctx, "user:7")
	if err != nil || !ok || got != want {
		t.Fatalf("Get: ok=%v err=%v got=%v", ok, err, got)
	}
}
