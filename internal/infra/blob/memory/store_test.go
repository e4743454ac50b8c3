package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"custodycore/internal/blob/core"
)

func TestPutGetDelete(t *testing.T) {
	store := New()
	ctx := context.Background()

	info, err := store.Put(ctx, "animals/a1/p.jpg", strings.NewReader("bytes"), core.PutOptions{ContentType: "image/jpeg"})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if info.Size != 5 || info.ContentType != "image/jpeg" {
		t.Fatalf("unexpected info: %+v", info)
	}
	if _, err := store.Put(ctx, "animals/a1/p.jpg", strings.NewReader("again"), core.PutOptions{}); err == nil {
		t.Fatal("expected create-only semantics")
	}

	_, rc, err := store.Get(ctx, "animals/a1/p.jpg")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "bytes" {
		t.Fatalf("content mismatch: %q", data)
	}

	existed, err := store.Delete(ctx, "animals/a1/p.jpg")
	if err != nil || !existed {
		t.Fatalf("Delete failed: existed=%v err=%v", existed, err)
	}
	if _, _, err := store.Get(ctx, "animals/a1/p.jpg"); err == nil {
		t.Fatal("expected miss after delete")
	}
}

func TestListByPrefix(t *testing.T) {
	store := New()
	ctx := context.Background()
	for _, key := range []string{"a/1", "a/2", "b/1"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("Put %s failed: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "a/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 keys under a/, got %d", len(infos))
	}
}

func TestPresignUnsupported(t *testing.T) {
	store := New()
	if _, err := store.PresignURL(context.Background(), "k", core.SignedURLOptions{}); err != core.ErrUnsupported {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
