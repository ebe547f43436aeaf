package ids

import "testing"

func TestNewIsSortable(t *testing.T) {
	prev := New()
	for i := 0; i < 100; i++ {
		next := New()
		if next <= prev {
			t.Fatalf("ids not monotonic: %s then %s", prev, next)
		}
		prev = next
	}
	if len(prev) != 26 {
		t.Fatalf("unexpected ulid length %d", len(prev))
	}
}

func TestSequence(t *testing.T) {
	gen := Sequence("acc")
	if got := gen(); got != "acc-1" {
		t.Fatalf("first id = %s", got)
	}
	if got := gen(); got != "acc-2" {
		t.Fatalf("second id = %s", got)
	}
}
