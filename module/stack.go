package module

// Stack is the per-environment stack of module paths being loaded. It is
// owned by a single goroutine and is not safe for concurrent use.
type Stack struct {
	frames []string
}

// Push records path as the module now loading and returns the func that
// pops it again. Pushing a path that is already on the stack fails with a
// *CycleError and leaves the stack unchanged.
func (s *Stack) Push(path string) (pop func(), err error) {
	for i, frame := range s.frames {
		if frame == path {
			chain := append(append([]string(nil), s.frames[i:]...), path)
			return func() {}, &CycleError{Chain: chain}
		}
	}
	depth := len(s.frames)
	s.frames = append(s.frames, path)
	return func() { s.frames = s.frames[:depth] }, nil
}

// Top returns the path of the innermost module being loaded.
func (s *Stack) Top() (string, bool) {
	if len(s.frames) == 0 {
		return "", false
	}
	return s.frames[len(s.frames)-1], true
}

// Len returns the number of in-progress loads.
func (s *Stack) Len() int {
	return len(s.frames)
}

// Frames returns a copy of the stack, outermost first.
func (s *Stack) Frames() []string {
	return append([]string(nil), s.frames...)
}
