package sequence

import (
	"errors"
	"fmt"
	"testing"

	"jsxhost/internal/script"
	"jsxhost/internal/testkit"
)

func descriptors(n int) []script.Descriptor {
	out := make([]script.Descriptor, n)
	for i := range out {
		out[i] = script.Descriptor{Position: i, Origin: fmt.Sprintf("https://example.test/%d.js", i)}
	}
	return out
}

type recorder struct {
	calls   []int
	content map[int]string
	failAt  map[int]error
}

func newRecorder() *recorder {
	return &recorder{content: map[int]string{}, failAt: map[int]error{}}
}

func (r *recorder) exec(pos int, content, url string) error {
	r.calls = append(r.calls, pos)
	r.content[pos] = content
	return r.failAt[pos]
}

func TestOrderInvariantOverPermutations(t *testing.T) {
	const n = 6
	for _, perm := range testkit.Permutations(n, 40, 7) {
		rec := newRecorder()
		seq := New(descriptors(n), rec.exec, FailFast)
		for _, pos := range perm {
			if err := seq.NotifyLoaded(pos, fmt.Sprintf("s%d", pos), ""); err != nil {
				t.Fatalf("perm %v: NotifyLoaded(%d): %v", perm, pos, err)
			}
			if err := testkit.CheckStates(seq.Snapshot(), seq.Cursor()); err != nil {
				t.Fatalf("perm %v: %v", perm, err)
			}
		}
		if !seq.Done() {
			t.Fatalf("perm %v: not done, cursor=%d", perm, seq.Cursor())
		}
		if err := testkit.CheckExecutionOrder(rec.calls, n, nil); err != nil {
			t.Fatalf("perm %v: %v", perm, err)
		}
		if len(rec.calls) != n {
			t.Fatalf("perm %v: executed %d of %d", perm, len(rec.calls), n)
		}
		for pos, c := range rec.content {
			if c != fmt.Sprintf("s%d", pos) {
				t.Fatalf("perm %v: slot %d ran %q", perm, pos, c)
			}
		}
	}
}

func TestAtMostOnce(t *testing.T) {
	rec := newRecorder()
	seq := New(descriptors(2), rec.exec, FailFast)

	for range 3 {
		if err := seq.NotifyLoaded(0, "a", ""); err != nil {
			t.Fatal(err)
		}
		if err := seq.Drain(); err != nil {
			t.Fatal(err)
		}
	}
	if len(rec.calls) != 1 {
		t.Fatalf("slot 0 executed %d times", len(rec.calls))
	}

	_ = seq.NotifyLoaded(1, "b", "")
	_ = seq.NotifyLoaded(1, "b again", "")
	_ = seq.Drain()
	if len(rec.calls) != 2 || rec.content[1] != "b" {
		t.Fatalf("unexpected calls %v / content %q", rec.calls, rec.content[1])
	}
}

func TestGapBlocking(t *testing.T) {
	rec := newRecorder()
	seq := New(descriptors(3), rec.exec, FailFast)

	_ = seq.NotifyLoaded(0, "a", "")
	_ = seq.NotifyLoaded(2, "c", "")
	if len(rec.calls) != 1 || seq.Cursor() != 1 {
		t.Fatalf("slot 2 must wait for slot 1: calls=%v cursor=%d", rec.calls, seq.Cursor())
	}
	if st := seq.Snapshot(); st[2] != script.Loaded {
		t.Fatalf("slot 2 should be loaded, got %s", st[2])
	}

	_ = seq.NotifyLoaded(1, "b", "")
	if fmt.Sprint(rec.calls) != "[0 1 2]" {
		t.Fatalf("expected [0 1 2], got %v", rec.calls)
	}
}

func TestFailFastIsSticky(t *testing.T) {
	boom := errors.New("boom")
	rec := newRecorder()
	rec.failAt[1] = boom
	seq := New(descriptors(4), rec.exec, FailFast)

	_ = seq.NotifyLoaded(2, "c", "")
	_ = seq.NotifyLoaded(0, "a", "")
	err := seq.NotifyLoaded(1, "b", "")

	var abort *AbortError
	if !errors.As(err, &abort) || abort.Position != 1 || !errors.Is(err, boom) {
		t.Fatalf("expected abort at 1 wrapping boom, got %v", err)
	}
	if err.Error() != "boom" {
		t.Fatalf("abort must keep the original message, got %q", err.Error())
	}
	if fmt.Sprint(rec.calls) != "[0 1]" {
		t.Fatalf("nothing after the failure may run: %v", rec.calls)
	}

	// всё последующее возвращает ту же ошибку
	if got := seq.NotifyLoaded(3, "d", ""); got != err {
		t.Fatalf("later notification: want same abort, got %v", got)
	}
	if got := seq.Drain(); got != err {
		t.Fatalf("later drain: want same abort, got %v", got)
	}
	if got := seq.Aborted(); got != err {
		t.Fatalf("Aborted() = %v", got)
	}
	if fmt.Sprint(rec.calls) != "[0 1]" {
		t.Fatalf("aborted sequencer executed more: %v", rec.calls)
	}

	st := seq.Snapshot()
	if st[1] != script.Loaded || st[2] != script.Loaded || st[3] != script.Pending {
		t.Fatalf("unexpected states after abort: %v", st)
	}
	if fmt.Sprint(seq.Unexecuted()) != "[1 2 3]" {
		t.Fatalf("unexpected unexecuted slots %v", seq.Unexecuted())
	}
	if seq.Done() {
		t.Fatal("aborted run is not done")
	}
}

func TestIsolateContinues(t *testing.T) {
	boom := errors.New("boom")
	rec := newRecorder()
	rec.failAt[1] = boom
	seq := New(descriptors(3), rec.exec, Isolate)

	for _, pos := range []int{2, 1, 0} {
		if err := seq.NotifyLoaded(pos, "x", ""); err != nil {
			t.Fatalf("isolate policy must not surface errors: %v", err)
		}
	}
	if !seq.Done() {
		t.Fatal("expected all slots processed")
	}
	if fmt.Sprint(seq.Order()) != "[0 2]" {
		t.Fatalf("unexpected order %v", seq.Order())
	}
	if err := testkit.CheckExecutionOrder(seq.Order(), 3, map[int]bool{1: true}); err != nil {
		t.Fatal(err)
	}
	f := seq.Failures()
	if len(f) != 1 || f[0].Position != 1 || !errors.Is(f[0].Err, boom) {
		t.Fatalf("unexpected failures %+v", f)
	}
	if seq.Snapshot()[1] != script.Failed {
		t.Fatal("failing slot should be Failed")
	}
	if len(seq.Unexecuted()) != 0 {
		t.Fatalf("unexpected unexecuted %v", seq.Unexecuted())
	}
}

func TestUnknownSlot(t *testing.T) {
	seq := New(descriptors(1), newRecorder().exec, FailFast)
	for _, pos := range []int{-1, 1, 99} {
		if err := seq.NotifyLoaded(pos, "x", ""); !errors.Is(err, ErrUnknownSlot) {
			t.Errorf("position %d: expected ErrUnknownSlot, got %v", pos, err)
		}
	}
}

func TestEmptySequencer(t *testing.T) {
	seq := New(nil, newRecorder().exec, FailFast)
	if !seq.Done() || seq.Drain() != nil || seq.Len() != 0 {
		t.Fatal("empty sequencer is trivially done")
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy("isolate"); err != nil || p != Isolate {
		t.Fatalf("got %v %v", p, err)
	}
	if p, err := ParsePolicy(""); err != nil || p != FailFast {
		t.Fatalf("got %v %v", p, err)
	}
	if _, err := ParsePolicy("retry"); err == nil {
		t.Fatal("expected error")
	}
}
