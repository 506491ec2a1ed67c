package mailbox

import (
	"sync"
	"testing"
)

func TestPushTakeKeepsOrder(t *testing.T) {
	m := New[int]()
	for i := range 500 {
		m.Push(i)
	}
	if m.Len() != 500 {
		t.Fatalf("Len() = %d, want 500", m.Len())
	}
	got := m.Take()
	for i, v := range got {
		if v != i {
			t.Fatalf("item %d = %d", i, v)
		}
	}
	if len(got) != 500 {
		t.Fatalf("Take() returned %d items, want 500", len(got))
	}
	if rest := m.Take(); len(rest) != 0 {
		t.Errorf("second Take() = %v, want empty", rest)
	}
}

func TestConcurrentProducersLoseNothing(t *testing.T) {
	m := New[int]()
	const producers, each = 8, 1000

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range each {
				m.Push(p*each + i)
			}
		}()
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	seen := make(map[int]struct{})
	for finished := false; !finished; {
		select {
		case <-m.Ready():
		case <-done:
			finished = true
		}
		for _, v := range m.Take() {
			seen[v] = struct{}{}
		}
	}
	for _, v := range m.Take() {
		seen[v] = struct{}{}
	}
	if len(seen) != producers*each {
		t.Errorf("received %d distinct values, want %d", len(seen), producers*each)
	}
}

func TestReadySignalledAfterPush(t *testing.T) {
	m := New[string]()
	select {
	case <-m.Ready():
		t.Fatal("Ready signalled on an empty mailbox")
	default:
	}
	m.Push("a")
	m.Push("b")
	select {
	case <-m.Ready():
	default:
		t.Fatal("Ready not signalled after Push")
	}
	if got := m.Take(); len(got) != 2 {
		t.Errorf("Take() = %v, want [a b]", got)
	}
}
