package protocol

// Queue is a fixed-capacity byte buffer with independent read and write
// cursors. It never grows; every access is bounds checked.
type Queue struct {
	buf  []byte
	getc int
	putc int
}

func NewQueue(capacity int) *Queue {
	return &Queue{buf: make([]byte, capacity)}
}

// Reset empties the queue.
func (q *Queue) Reset() { q.getc, q.putc = 0, 0 }

// Rewind moves the read cursor back to the start, keeping the contents.
func (q *Queue) Rewind() { q.getc = 0 }

func (q *Queue) Cap() int { return len(q.buf) }

// Len is the number of written bytes not yet read.
func (q *Queue) Len() int { return q.putc - q.getc }

func (q *Queue) Free() int { return len(q.buf) - q.putc }

func (q *Queue) GetCursor() int { return q.getc }

func (q *Queue) PutCursor() int { return q.putc }

// Bytes returns everything written so far.
func (q *Queue) Bytes() []byte { return q.buf[:q.putc] }

func (q *Queue) Put(b byte) error {
	if q.putc >= len(q.buf) {
		return ErrQueueFull
	}
	q.buf[q.putc] = b
	q.putc++
	return nil
}

// Write appends p, or nothing when p does not fit.
func (q *Queue) Write(p []byte) (int, error) {
	if len(p) > q.Free() {
		return 0, ErrQueueFull
	}
	n := copy(q.buf[q.putc:], p)
	q.putc += n
	return n, nil
}

func (q *Queue) Get() (byte, error) {
	if q.getc >= q.putc {
		return 0, ErrQueueEmpty
	}
	b := q.buf[q.getc]
	q.getc++
	return b, nil
}

// Peek returns the byte i positions after the read cursor.
func (q *Queue) Peek(i int) (byte, error) {
	if i < 0 || q.getc+i >= q.putc {
		return 0, ErrQueueEmpty
	}
	return q.buf[q.getc+i], nil
}

// Skip advances the read cursor by n written bytes.
func (q *Queue) Skip(n int) error {
	if n < 0 || q.getc+n > q.putc {
		return ErrQueueEmpty
	}
	q.getc += n
	return nil
}

// Span returns n bytes of backing storage starting at absolute offset start.
// The slice may reach past the write cursor but never past capacity.
func (q *Queue) Span(start, n int) ([]byte, error) {
	if start < 0 || n < 0 || start+n > len(q.buf) {
		return nil, ErrQueueFull
	}
	return q.buf[start : start+n], nil
}
