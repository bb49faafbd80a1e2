package compute

import "sync"

// Context is the resolved precision/device/library selection shared by
// all core components. A Context is immutable; derived contexts are
// created with With.
type Context struct {
	prec    Precision
	dev     Device
	library string
	threads int
}

func NewContext(prec Precision, dev Device, library string, threads int) *Context {
	if threads < 1 {
		threads = 1
	}
	return &Context{prec: prec, dev: dev, library: library, threads: threads}
}

func (c *Context) Precision() Precision { return c.prec }
func (c *Context) Device() Device       { return c.dev }
func (c *Context) Library() string      { return c.library }
func (c *Context) Threads() int         { return c.threads }

// Option overrides a single field on a derived Context.
type Option func(*Context)

func WithPrecision(p Precision) Option { return func(c *Context) { c.prec = p } }
func WithDevice(d Device) Option       { return func(c *Context) { c.dev = d } }
func WithLibrary(lib string) Option    { return func(c *Context) { c.library = lib } }

// With returns a copy of c with the given overrides applied.
func (c *Context) With(opts ...Option) *Context {
	d := *c
	for _, o := range opts {
		o(&d)
	}
	return &d
}

// Stack holds the process-wide context with scoped overrides. Push
// installs a derived context and returns a restore function; nesting is
// allowed and the innermost override wins until restored.
type Stack struct {
	mu     sync.Mutex
	frames []*Context
}

func NewStack(base *Context) *Stack {
	return &Stack{frames: []*Context{base}}
}

// Current returns the innermost context.
func (s *Stack) Current() *Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[len(s.frames)-1]
}

// Push derives a context from the current one and makes it innermost.
// The returned function restores the previous state and must be called
// exactly once, normally via defer.
func (s *Stack) Push(opts ...Option) func() {
	s.mu.Lock()
	next := s.frames[len(s.frames)-1].With(opts...)
	s.frames = append(s.frames, next)
	depth := len(s.frames)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if len(s.frames) >= depth {
				s.frames = s.frames[:depth-1]
			}
			s.mu.Unlock()
		})
	}
}
