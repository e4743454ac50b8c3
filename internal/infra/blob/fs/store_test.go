package fs

import (
	"context"
	"io"
	"strings"
	"testing"

	"custodycore/internal/blob/core"
)

func TestPutGetRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	info, err := store.Put(ctx, "animals/a1/photo.jpg", strings.NewReader("jpeg-bytes"), core.PutOptions{
		ContentType: "image/jpeg",
		Metadata:    map[string]string{"animal_id": "a1"},
	})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if info.Size != int64(len("jpeg-bytes")) || info.ETag == "" {
		t.Fatalf("unexpected info: %+v", info)
	}

	got, rc, err := store.Get(ctx, "animals/a1/photo.jpg")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Fatalf("content mismatch: %q", data)
	}
	if got.ContentType != "image/jpeg" || got.Metadata["animal_id"] != "a1" {
		t.Fatalf("metadata lost: %+v", got)
	}
}

func TestPutRefusesOverwrite(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()
	if _, err := store.Put(ctx, "k", strings.NewReader("one"), core.PutOptions{}); err != nil {
		t.Fatalf("first put failed: %v", err)
	}
	if _, err := store.Put(ctx, "k", strings.NewReader("two"), core.PutOptions{}); err == nil {
		t.Fatal("expected create-only semantics")
	}
}

func TestSanitizeKeyRejectsTraversal(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for _, key := range []string{"../escape", "a/../../b", "/abs", ""} {
		if _, err := store.Put(context.Background(), key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("expected rejection of key %q", key)
		}
	}
}

func TestDeleteAndList(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"animals/a1/p.jpg", "animals/a2/p.jpg", "other/x.bin"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("Put %s failed: %v", key, err)
		}
	}

	infos, err := store.List(ctx, "animals/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 keys under animals/, got %d", len(infos))
	}
	if infos[0].Key != "animals/a1/p.jpg" {
		t.Fatalf("expected sorted keys, got %v", infos[0].Key)
	}

	existed, err := store.Delete(ctx, "animals/a1/p.jpg")
	if err != nil || !existed {
		t.Fatalf("Delete failed: existed=%v err=%v", existed, err)
	}
	existed, err = store.Delete(ctx, "animals/a1/p.jpg")
	if err != nil || existed {
		t.Fatalf("second delete should be a no-op: existed=%v err=%v", existed, err)
	}
}

func TestPresignURLMethodCheck(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	url, err := store.PresignURL(context.Background(), "k", core.SignedURLOptions{Method: "GET"})
	if err != nil || url == "" {
		t.Fatalf("GET presign failed: %q %v", url, err)
	}
	if _, err := store.PresignURL(context.Background(), "k", core.SignedURLOptions{Method: "PUT"}); err != core.ErrUnsupported {
		t.Fatalf("expected ErrUnsupported for PUT, got %v", err)
	}
}
