package fn

import (
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

// --- Result ---

func TestOkAndErr(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("Ok should be ok")
	}
	v, err := r.Unwrap()
	if v != 42 || err != nil {
		t.Fatal("wrong unwrap")
	}

	e := Err[int](errors.New("fail"))
	if e.IsOk() || !e.IsErr() {
		t.Fatal("Err should be err")
	}
}

func TestErrf(t *testing.T) {
	r := Errf[string]("code %d", 404)
	_, err := r.Unwrap()
	if err == nil || err.Error() != "code 404" {
		t.Fatal("Errf wrong message")
	}
}

func TestUnwrapOr(t *testing.T) {
	if Ok(1).UnwrapOr(9) != 1 {
		t.Fatal("should return value")
	}
	if Err[int](errors.New("x")).UnwrapOr(9) != 9 {
		t.Fatal("should return fallback")
	}
}

func TestFromPair(t *testing.T) {
	if FromPair(3, nil).IsErr() {
		t.Fatal("nil error should be Ok")
	}
	if FromPair(0, errors.New("x")).IsOk() {
		t.Fatal("error should be Err")
	}
}

// --- slices ---

func TestMap(t *testing.T) {
	got := Map([]int{1, 2, 3}, strconv.Itoa)
	if len(got) != 3 || got[0] != "1" || got[2] != "3" {
		t.Fatalf("got %v", got)
	}
}

func TestFilter(t *testing.T) {
	got := Filter([]int{1, 2, 3, 4}, func(n int) bool { return n%2 == 0 })
	if len(got) != 2 || got[0] != 2 || got[1] != 4 {
		t.Fatalf("got %v", got)
	}
}

func TestFlatMap(t *testing.T) {
	got := FlatMap([]int{1, 2}, func(n int) []int { return []int{n, n * 10} })
	if len(got) != 4 || got[1] != 10 || got[3] != 20 {
		t.Fatalf("got %v", got)
	}
}

func TestUniqueBy_FirstWins(t *testing.T) {
	type item struct{ key, val string }
	got := UniqueBy([]item{
		{"a", "first"},
		{"b", "only"},
		{"a", "second"},
	}, func(i item) string { return i.key })
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if got[0].val != "first" {
		t.Error("first occurrence should win")
	}
}

// --- parallel ---

func TestParMapPreservesOrder(t *testing.T) {
	in := []int{5, 1, 4, 2, 3}
	got := ParMap(in, 2, func(n int) int {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 2
	})
	for i, v := range got {
		if v != in[i]*2 {
			t.Fatalf("order broken at %d: got %v", i, got)
		}
	}
}

func TestParMapBoundsConcurrency(t *testing.T) {
	var cur, max atomic.Int32
	ParMap(make([]int, 20), 3, func(int) int {
		n := cur.Add(1)
		for {
			m := max.Load()
			if n <= m || max.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		cur.Add(-1)
		return 0
	})
	if max.Load() > 3 {
		t.Fatalf("concurrency exceeded bound: %d", max.Load())
	}
}

func TestParMapEmpty(t *testing.T) {
	got := ParMap(nil, 4, func(n int) int { return n })
	if len(got) != 0 {
		t.Fatal("empty input, empty output")
	}
}

func TestFanOutOrder(t *testing.T) {
	got := FanOut(
		func() string { time.Sleep(10 * time.Millisecond); return "slow" },
		func() string { return "fast" },
	)
	if got[0] != "slow" || got[1] != "fast" {
		t.Fatalf("result order should follow argument order, got %v", got)
	}
}
