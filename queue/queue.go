// Package queue implements the byte queue ("brigade") that feeds every
// incremental parser in reqdata: a logical FIFO of byte slices that
// supports peeking, bounded consumption, and delimiter search without
// forcing a copy when the requested span already lives in one owned
// chunk. Chunks are leased from a shared bytebufferpool.Pool so that a
// request's read loop does not churn the GC on its hot path, the same
// pooling idiom the fasthttp-adjacent members of the example pack use
// for their per-connection buffers.
package queue

import "github.com/valyala/bytebufferpool"

var pool bytebufferpool.Pool

// Queue is an append-only, consume-from-the-front FIFO of bytes. The
// queue owns the memory of its chunks: Append copies its argument, so a
// caller may reuse a slice after passing it to Append.
type Queue struct {
	chunks []*bytebufferpool.ByteBuffer
	off    int // consumed offset within chunks[0]
	length int // total unconsumed bytes across all chunks
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{}
}

// Append copies b into a pooled chunk and enqueues it. A zero-length b
// is a no-op.
func (q *Queue) Append(b []byte) {
	if len(b) == 0 {
		return
	}
	buf := pool.Get()
	buf.Write(b)
	q.chunks = append(q.chunks, buf)
	q.length += len(b)
}

// Len returns the number of unconsumed bytes.
func (q *Queue) Len() int {
	return q.length
}

// Release returns every owned chunk to the pool. Call once the queue
// will no longer be used; it is safe to call on an already-empty queue.
func (q *Queue) Release() {
	for _, c := range q.chunks {
		pool.Put(c)
	}
	q.chunks = nil
	q.off = 0
	q.length = 0
}

// chunkBytes returns the unconsumed bytes of chunk i (0 is the front).
func (q *Queue) chunkBytes(i int) []byte {
	b := q.chunks[i].B
	if i == 0 {
		return b[q.off:]
	}
	return b
}

// Peek returns up to n unconsumed bytes from the front of the queue
// without consuming them. It returns fewer than n only when fewer than
// n bytes are available (end of buffered input); it never returns an
// error. When the requested span lies entirely within the front chunk,
// the returned slice aliases the queue's own storage (zero-copy);
// otherwise the span is coalesced into a freshly allocated slice.
func (q *Queue) Peek(n int) []byte {
	if n > q.length {
		n = q.length
	}
	if n <= 0 {
		return nil
	}
	if len(q.chunks) == 0 {
		return nil
	}
	front := q.chunkBytes(0)
	if n <= len(front) {
		return front[:n]
	}
	out := make([]byte, n)
	copy(out, front)
	filled := len(front)
	for i := 1; i < len(q.chunks) && filled < n; i++ {
		c := q.chunkBytes(i)
		k := copy(out[filled:], c)
		filled += k
	}
	return out
}

// Consume discards the first n unconsumed bytes. n must not exceed
// Len(); callers are expected to have checked availability via Len or
// Peek first.
func (q *Queue) Consume(n int) {
	if n <= 0 {
		return
	}
	if n > q.length {
		n = q.length
	}
	q.length -= n
	for n > 0 && len(q.chunks) > 0 {
		front := q.chunkBytes(0)
		if n < len(front) {
			q.off += n
			n = 0
			break
		}
		n -= len(front)
		pool.Put(q.chunks[0])
		q.chunks = q.chunks[1:]
		q.off = 0
	}
}

// byteAt returns the byte at logical offset i (0 is the oldest
// unconsumed byte) and whether i was in range.
func (q *Queue) byteAt(i int) (byte, bool) {
	if i < 0 || i >= q.length {
		return 0, false
	}
	remaining := i
	for idx := 0; idx < len(q.chunks); idx++ {
		c := q.chunkBytes(idx)
		if remaining < len(c) {
			return c[remaining], true
		}
		remaining -= len(c)
	}
	return 0, false
}

// Find returns the offset of the first occurrence of b in the unconsumed
// bytes, or (0, false) if b does not appear.
func (q *Queue) Find(b byte) (int, bool) {
	for i := 0; i < q.length; i++ {
		c, _ := q.byteAt(i)
		if c == b {
			return i, true
		}
	}
	return 0, false
}

// FindDelim returns the offset of the first occurrence of needle in the
// unconsumed bytes, or (0, false) if it does not appear (including when
// it may appear but is not yet fully buffered). Callers that need to
// distinguish "not present" from "not yet buffered" should compare
// against Len()-len(needle)+1, per the boundary-scanning algorithm of
// spec section 4.7.1.
func (q *Queue) FindDelim(needle []byte) (int, bool) {
	if len(needle) == 0 || q.length < len(needle) {
		return 0, false
	}
	limit := q.length - len(needle)
	for start := 0; start <= limit; start++ {
		matched := true
		for j := 0; j < len(needle); j++ {
			c, _ := q.byteAt(start + j)
			if c != needle[j] {
				matched = false
				break
			}
		}
		if matched {
			return start, true
		}
	}
	return 0, false
}

// SplitAt returns the unconsumed bytes split into [0,offset) and
// [offset,Len()) without consuming anything. offset is clamped to
// [0,Len()].
func (q *Queue) SplitAt(offset int) (head, tail []byte) {
	if offset < 0 {
		offset = 0
	}
	if offset > q.length {
		offset = q.length
	}
	head = q.Peek(offset)
	full := q.Peek(q.length)
	tail = full[offset:]
	return head, tail
}
