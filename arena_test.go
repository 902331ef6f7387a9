package texres

import "testing"

func TestArenaHandleGenerations(t *testing.T) {
	var a textureArena

	t1 := &Texture{}
	h1 := a.insert(t1)
	if a.get(h1) != t1 {
		t.Fatal("fresh handle did not resolve")
	}
	if t1.Handle() != h1 {
		t.Fatal("texture not stamped with its handle")
	}

	if got := a.remove(h1); got != t1 {
		t.Fatal("remove returned the wrong texture")
	}
	if a.get(h1) != nil {
		t.Fatal("stale handle resolved after removal")
	}

	// The slot is recycled with a bumped generation; the old handle must
	// stay dead.
	t2 := &Texture{}
	h2 := a.insert(t2)
	if h2.index != h1.index {
		t.Fatalf("slot not recycled: index %d, want %d", h2.index, h1.index)
	}
	if h2.gen == h1.gen {
		t.Fatal("generation not bumped on reuse")
	}
	if a.get(h1) != nil {
		t.Fatal("pre-recycle handle aliases the new texture")
	}
	if a.get(h2) != t2 {
		t.Fatal("recycled handle did not resolve")
	}
}

func TestArenaNilHandle(t *testing.T) {
	var a textureArena
	if a.get(NilHandle) != nil {
		t.Fatal("NilHandle resolved on empty arena")
	}
	a.insert(&Texture{})
	if a.get(NilHandle) != nil {
		t.Fatal("NilHandle resolved against a live slot")
	}
	if a.remove(NilHandle) != nil {
		t.Fatal("remove(NilHandle) returned a texture")
	}
}

func TestArenaLen(t *testing.T) {
	var a textureArena
	if a.len() != 0 {
		t.Fatalf("len = %d, want 0", a.len())
	}
	h := a.insert(&Texture{})
	a.insert(&Texture{})
	if a.len() != 2 {
		t.Fatalf("len = %d, want 2", a.len())
	}
	a.remove(h)
	if a.len() != 1 {
		t.Fatalf("len = %d, want 1", a.len())
	}
}
