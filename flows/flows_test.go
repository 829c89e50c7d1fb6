package flows

import (
	"testing"
	"time"
)

func TestPutGetTake(t *testing.T) {
	r := NewRegistry(time.Minute)
	r.Put(Pending{OwnerUserID: "u1", Kind: KindConfirmDelete, Count: 10})

	p, ok := r.Get("u1", KindConfirmDelete)
	if !ok || p.Count != 10 {
		t.Fatalf("Get() = %+v, %v", p, ok)
	}

	p, ok = r.Take("u1", KindConfirmDelete)
	if !ok || p.Count != 10 {
		t.Fatalf("Take() = %+v, %v", p, ok)
	}
	if _, ok := r.Get("u1", KindConfirmDelete); ok {
		t.Fatalf("Get() after Take() should be absent")
	}
}

func TestGetMissingEntry(t *testing.T) {
	r := NewRegistry(time.Minute)
	if _, ok := r.Get("nobody", KindConfirmDelete); ok {
		t.Fatalf("Get() for unknown user should be absent")
	}
	if _, ok := r.Take("nobody", KindPaginate); ok {
		t.Fatalf("Take() for unknown user should be absent")
	}
}

func TestPutReplacesSameUserAndKind(t *testing.T) {
	r := NewRegistry(time.Minute)
	r.Put(Pending{OwnerUserID: "u1", Kind: KindPaginate, Page: 1, TotalPages: 3})
	r.Put(Pending{OwnerUserID: "u1", Kind: KindPaginate, Page: 2, TotalPages: 3})
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
	p, _ := r.Get("u1", KindPaginate)
	if p.Page != 2 {
		t.Fatalf("Page = %d, want 2", p.Page)
	}
}

func TestKindsAreIndependent(t *testing.T) {
	r := NewRegistry(time.Minute)
	r.Put(Pending{OwnerUserID: "u1", Kind: KindPaginate, Page: 1})
	r.Put(Pending{OwnerUserID: "u1", Kind: KindConfirmDelete, Count: 5})
	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
}

func TestExpiredEntriesAreAbsent(t *testing.T) {
	r := NewRegistry(time.Minute)
	current := time.Now()
	r.now = func() time.Time { return current }
	r.Put(Pending{OwnerUserID: "u1", Kind: KindConfirmDelete, Count: 3})

	current = current.Add(2 * time.Minute)
	if _, ok := r.Get("u1", KindConfirmDelete); ok {
		t.Fatalf("Get() returned an expired entry")
	}
	if r.Len() != 0 {
		t.Fatalf("Len() = %d after expiry read, want 0", r.Len())
	}
}

func TestPrune(t *testing.T) {
	r := NewRegistry(time.Minute)
	current := time.Now()
	r.now = func() time.Time { return current }
	r.Put(Pending{OwnerUserID: "u1", Kind: KindConfirmDelete})
	r.Put(Pending{OwnerUserID: "u2", Kind: KindPaginate})

	current = current.Add(90 * time.Second)
	r.Put(Pending{OwnerUserID: "u3", Kind: KindPaginate})

	if removed := r.Prune(); removed != 2 {
		t.Fatalf("Prune() = %d, want 2", removed)
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
}

func TestClampPage(t *testing.T) {
	cases := []struct {
		page, total, want int
	}{
		{page: 0, total: 3, want: 1},
		{page: 1, total: 3, want: 1},
		{page: 2, total: 3, want: 2},
		{page: 4, total: 3, want: 3},
		{page: 5, total: 0, want: 1},
	}
	for _, tc := range cases {
		if got := ClampPage(tc.page, tc.total); got != tc.want {
			t.Fatalf("ClampPage(%d, %d) = %d, want %d", tc.page, tc.total, got, tc.want)
		}
	}
}
