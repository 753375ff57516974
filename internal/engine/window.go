package engine

// window is a FIFO ring buffer of tokens, oldest first. Its backing array
// grows on demand up to capacity so a large configured bound costs nothing
// until the stream actually fills it.
type window struct {
	buf      []string
	head     int
	size     int
	capacity int
}

func newWindow(capacity int) *window {
	return &window{capacity: capacity}
}

func (w *window) len() int {
	return w.size
}

func (w *window) full() bool {
	return w.size == w.capacity
}

// push appends token at the back. Callers evict before pushing into a full
// window.
func (w *window) push(token string) {
	if w.size == len(w.buf) {
		w.grow()
	}
	w.buf[(w.head+w.size)%len(w.buf)] = token
	w.size++
}

// pop removes and returns the oldest token.
func (w *window) pop() string {
	token := w.buf[w.head]
	w.buf[w.head] = ""
	w.head = (w.head + 1) % len(w.buf)
	w.size--
	return token
}

func (w *window) grow() {
	n := max(2*len(w.buf), 16)
	n = min(n, w.capacity)
	buf := make([]string, n)
	for i := 0; i < w.size; i++ {
		buf[i] = w.buf[(w.head+i)%len(w.buf)]
	}
	w.buf = buf
	w.head = 0
}

// tokens returns a copy of the window contents, oldest first.
func (w *window) tokens() []string {
	out := make([]string, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.buf[(w.head+i)%len(w.buf)]
	}
	return out
}

func (w *window) reset() {
	w.buf = nil
	w.head = 0
	w.size = 0
}
