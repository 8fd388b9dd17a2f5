package lexer

// Stream is a character cursor over source text with one-character
// push-back and line tracking, the way the teacher's scanner tracks
// position over a rune slice.
type Stream struct {
	src  []rune
	pos  int
	line int

	pushedBack bool
	backRune   rune
	backLine   int
}

// NewStream creates a Stream positioned at the start of src, on line 1.
func NewStream(src string) *Stream {
	return &Stream{src: []rune(src), pos: 0, line: 1}
}

// Next consumes and returns the next rune, or (0, false) at end of input.
func (s *Stream) Next() (rune, bool) {
	if s.pushedBack {
		s.pushedBack = false
		s.line = s.backLine
		return s.backRune, true
	}
	if s.pos >= len(s.src) {
		return 0, false
	}
	r := s.src[s.pos]
	s.pos++
	if r == '\n' {
		s.line++
	}
	return r, true
}

// Peek returns the next rune without consuming it, or (0, false) at EOF.
func (s *Stream) Peek() (rune, bool) {
	if s.pushedBack {
		return s.backRune, true
	}
	if s.pos >= len(s.src) {
		return 0, false
	}
	return s.src[s.pos], true
}

// PeekAt returns the rune offset positions ahead of the cursor (0 == Peek),
// ignoring any pushed-back rune (offset is relative to the underlying buffer).
func (s *Stream) PeekAt(offset int) (rune, bool) {
	idx := s.pos + offset
	if idx < 0 || idx >= len(s.src) {
		return 0, false
	}
	return s.src[idx], true
}

// PushBack returns r to the stream; at most one rune may be pushed back
// at a time.
func (s *Stream) PushBack(r rune) {
	s.pushedBack = true
	s.backRune = r
	s.backLine = s.line
	if r == '\n' {
		s.line--
	}
}

// Line returns the current 1-based line number.
func (s *Stream) Line() int {
	return s.line
}
