package queue

import "testing"

func TestAppendPeekConsume(t *testing.T) {
	q := New()
	defer q.Release()

	q.Append([]byte("hello"))
	q.Append([]byte(" world"))

	if q.Len() != 11 {
		t.Fatalf("Len() = %d, want 11", q.Len())
	}
	if got := string(q.Peek(5)); got != "hello" {
		t.Errorf("Peek(5) = %q, want hello", got)
	}
	// Spans the chunk boundary: must coalesce correctly.
	if got := string(q.Peek(8)); got != "hello wo" {
		t.Errorf("Peek(8) = %q, want \"hello wo\"", got)
	}
	q.Consume(6)
	if q.Len() != 5 {
		t.Fatalf("Len() after Consume(6) = %d, want 5", q.Len())
	}
	if got := string(q.Peek(5)); got != "world" {
		t.Errorf("Peek(5) after consume = %q, want world", got)
	}
}

func TestPeekBeyondAvailable(t *testing.T) {
	q := New()
	defer q.Release()
	q.Append([]byte("ab"))
	if got := string(q.Peek(10)); got != "ab" {
		t.Errorf("Peek(10) = %q, want ab", got)
	}
}

func TestFind(t *testing.T) {
	q := New()
	defer q.Release()
	q.Append([]byte("abc"))
	q.Append([]byte("def"))

	if idx, ok := q.Find('d'); !ok || idx != 3 {
		t.Errorf("Find('d') = (%d, %v), want (3, true)", idx, ok)
	}
	if _, ok := q.Find('z'); ok {
		t.Error("Find('z') = true, want false")
	}
}

func TestFindDelimAcrossChunks(t *testing.T) {
	q := New()
	defer q.Release()
	q.Append([]byte("foo--boun"))
	q.Append([]byte("dary-bar"))

	idx, ok := q.FindDelim([]byte("--boundary"))
	if !ok || idx != 3 {
		t.Fatalf("FindDelim = (%d, %v), want (3, true)", idx, ok)
	}
}

func TestFindDelimNotYetBuffered(t *testing.T) {
	q := New()
	defer q.Release()
	q.Append([]byte("foo--bou"))

	if _, ok := q.FindDelim([]byte("--boundary")); ok {
		t.Error("FindDelim found a match on a not-yet-fully-buffered needle")
	}
}

func TestSplitAt(t *testing.T) {
	q := New()
	defer q.Release()
	q.Append([]byte("abcdef"))

	head, tail := q.SplitAt(3)
	if string(head) != "abc" || string(tail) != "def" {
		t.Errorf("SplitAt(3) = (%q, %q), want (abc, def)", head, tail)
	}
	if q.Len() != 6 {
		t.Error("SplitAt must not consume")
	}
}

func TestConsumeAcrossMultipleChunks(t *testing.T) {
	q := New()
	defer q.Release()
	q.Append([]byte("aa"))
	q.Append([]byte("bb"))
	q.Append([]byte("cc"))

	q.Consume(5)
	if got := string(q.Peek(1)); got != "c" {
		t.Errorf("Peek(1) after Consume(5) = %q, want c", got)
	}
}
