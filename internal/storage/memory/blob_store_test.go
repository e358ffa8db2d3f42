package memory

import (
	"context"
	"testing"
)

func TestBlobStoreSaveCopiesData(t *testing.T) {
	t.Parallel()

	store := New()
	data := []byte("<html>listing</html>")
	if err := store.Save(context.Background(), "artesia/listing.html", data); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data[0] = 'X'
	got, ok := store.Get("artesia/listing.html")
	if !ok {
		t.Fatal("expected object to exist")
	}
	if string(got) != "<html>listing</html>" {
		t.Fatalf("expected stored copy to be unchanged, got %q", got)
	}
	if store.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", store.Len())
	}

	if _, ok := store.Get("missing"); ok {
		t.Fatal("expected missing object to report !ok")
	}
}
