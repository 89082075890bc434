package feed

import (
	"fmt"
	"sync"
	"testing"

	"github.com/webitel/feed-relay-service/internal/domain/model"
)

func replayed(b *Buffer) []any {
	var out []any
	b.Replay(func(p *model.Packet) { out = append(out, p.Data()) })
	return out
}

func TestPushEvictsOldestBeyondCapacity(t *testing.T) {
	evicted := 0
	b := NewBuffer(3, WithEvictHook(func(*model.Packet) { evicted++ }))

	for i := 1; i <= 10; i++ {
		b.Push("n", i)
	}

	got := replayed(b)
	want := []any{10, 9, 8}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("replay = %v, want %v", got, want)
	}
	if b.Len() != 3 {
		t.Fatalf("len = %d", b.Len())
	}
	if evicted != 7 {
		t.Fatalf("evicted = %d, want 7", evicted)
	}
}

func TestReplayEmpty(t *testing.T) {
	b := NewBuffer(5)
	calls := 0
	b.Replay(func(*model.Packet) { calls++ })
	if calls != 0 {
		t.Fatalf("expected no callbacks, got %d", calls)
	}
}

func TestReplayIsNewestFirst(t *testing.T) {
	b := NewBuffer(3)
	b.Push("tweet", "A")
	b.Push("tweet", "B")
	b.Push("tweet", "C")

	if got := fmt.Sprint(replayed(b)); got != "[C B A]" {
		t.Fatalf("replay = %s", got)
	}
}

func TestReplayIsIdempotent(t *testing.T) {
	b := NewBuffer(4)
	for _, v := range []string{"A", "B", "C"} {
		b.Push("tweet", v)
	}
	first := fmt.Sprint(replayed(b))
	second := fmt.Sprint(replayed(b))
	if first != second {
		t.Fatalf("replay changed without push: %s vs %s", first, second)
	}
}

func TestEveryPushAnnouncesOnce(t *testing.T) {
	var seen []uint64
	b := NewBuffer(2)
	b.Subscribe(func(p *model.Packet) { seen = append(seen, p.Seq()) })

	if len(seen) != 0 {
		t.Fatalf("announcement without push")
	}
	for i := 0; i < 5; i++ {
		b.Push("tweet", i)
	}
	if fmt.Sprint(seen) != "[1 2 3 4 5]" {
		t.Fatalf("announcements = %v", seen)
	}
}

func TestDefaultCapacity(t *testing.T) {
	if c := NewBuffer(0).Capacity(); c != DefaultCapacity {
		t.Fatalf("capacity = %d", c)
	}
}

func TestJoinThenLiveHasNoDuplicates(t *testing.T) {
	b := NewBuffer(5)

	var (
		mu       sync.Mutex
		attached bool
		live     []any
	)
	b.Subscribe(func(p *model.Packet) {
		mu.Lock()
		defer mu.Unlock()
		if attached {
			live = append(live, p.Data())
		}
	})

	b.Push("tweet", "A")
	b.Push("tweet", "B")
	b.Push("tweet", "C")

	var replay []any
	b.Join(func(p *model.Packet) { replay = append(replay, p.Data()) }, func() {
		mu.Lock()
		attached = true
		mu.Unlock()
	})

	b.Push("tweet", "D")

	if fmt.Sprint(replay) != "[C B A]" {
		t.Fatalf("replay = %v", replay)
	}
	if fmt.Sprint(live) != "[D]" {
		t.Fatalf("live = %v", live)
	}
}

func TestConcurrentJoinSeesEveryPacketOnce(t *testing.T) {
	const total = 500
	b := NewBuffer(total)

	var (
		mu       sync.Mutex
		attached bool
		counts   = make(map[uint64]int)
	)
	b.Subscribe(func(p *model.Packet) {
		mu.Lock()
		defer mu.Unlock()
		if attached {
			counts[p.Seq()]++
		}
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			b.Push("n", i)
		}
	}()

	b.Join(func(p *model.Packet) {
		mu.Lock()
		counts[p.Seq()]++
		mu.Unlock()
	}, func() {
		mu.Lock()
		attached = true
		mu.Unlock()
	})
	wg.Wait()

	if len(counts) != total {
		t.Fatalf("saw %d distinct packets, want %d", len(counts), total)
	}
	for seq, n := range counts {
		if n != 1 {
			t.Fatalf("packet %d delivered %d times", seq, n)
		}
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	b := NewBuffer(2)
	b.Push("tweet", "A")
	snap := b.Snapshot()
	snap[0] = nil

	if got := fmt.Sprint(replayed(b)); got != "[A]" {
		t.Fatalf("buffer mutated through snapshot: %s", got)
	}
}
