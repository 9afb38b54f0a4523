package session

// MinSpan is the smallest width or height accepted as a selection. Anything
// narrower is treated as an accidental click.
const MinSpan = 3

// Point is a pointer position in raw virtual-screen pixels.
type Point struct {
	X int
	Y int
}

// Rect is a normalized capture rectangle.
type Rect struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// Session is the mutable record of one in-progress capture attempt.
// It is owned by the capture orchestrator and only touched from the event loop goroutine.
type Session struct {
	Start   *Point
	Current *Point
	Final   *Point
}

// New returns an empty session.
func New() *Session {
	return &Session{}
}

// Press records the pointer going down. A press after the selection was
// finished is ignored so Final is never paired with a different Start.
func (s *Session) Press(p Point) {
	if s.Final != nil {
		return
	}
	start, cur := p, p
	s.Start = &start
	s.Current = &cur
}

// Move tracks the pointer while the button is held.
func (s *Session) Move(p Point) {
	if s.Start == nil || s.Final != nil {
		return
	}
	cur := p
	s.Current = &cur
}

// Release records the final position. It reports true only for the release
// that completes the session, so callers emit exactly one completion signal.
func (s *Session) Release(p Point) bool {
	if s.Start == nil || s.Final != nil {
		return false
	}
	final := p
	s.Final = &final
	return true
}

// Completed reports whether a release has been recorded.
func (s *Session) Completed() bool {
	return s.Final != nil
}

// Bounds normalizes Start and Final into a rectangle. It returns false when
// either endpoint is missing or the selection is smaller than MinSpan.
func (s *Session) Bounds() (Rect, bool) {
	if s == nil || s.Start == nil || s.Final == nil {
		return Rect{}, false
	}
	left := min(s.Start.X, s.Final.X)
	top := min(s.Start.Y, s.Final.Y)
	width := max(s.Start.X, s.Final.X) - left
	height := max(s.Start.Y, s.Final.Y) - top
	if width < MinSpan || height < MinSpan {
		return Rect{}, false
	}
	return Rect{Left: left, Top: top, Width: width, Height: height}, true
}

// Right returns the exclusive right edge.
func (r Rect) Right() int { return r.Left + r.Width }

// Bottom returns the exclusive bottom edge.
func (r Rect) Bottom() int { return r.Top + r.Height }
