package runtime

import (
	"sync"

	"github.com/coregx/coregex"
)

// dotallPrefix is prepended to patterns so dot matches newlines, as AWK
// requires.
const dotallPrefix = "(?s)"

// RegexConfig controls regex behavior.
type RegexConfig struct {
	// POSIX enables leftmost-longest matching (ERE semantics). When
	// false, leftmost-first matching is used instead (faster).
	POSIX bool
}

// DefaultRegexConfig returns the POSIX-compliant configuration.
func DefaultRegexConfig() RegexConfig {
	return RegexConfig{POSIX: true}
}

// Regex wraps a compiled coregex pattern with a literal prefilter: when
// the pattern contains literal substrings, records missing them are
// rejected without running the engine.
type Regex struct {
	pattern  string
	re       *coregex.Regexp
	literals *LiteralInfo
	posix    bool
}

// Compile compiles a pattern with the default POSIX configuration.
func Compile(pattern string) (*Regex, error) {
	return CompileWithConfig(pattern, DefaultRegexConfig())
}

// CompileWithConfig compiles a pattern with the given configuration.
func CompileWithConfig(pattern string, config RegexConfig) (*Regex, error) {
	full := dotallPrefix + pattern

	re, err := coregex.Compile(full)
	if err != nil {
		return nil, err
	}
	if config.POSIX {
		re.Longest()
	}

	return &Regex{
		pattern:  pattern,
		re:       re,
		literals: extractLiterals(full),
		posix:    config.POSIX,
	}, nil
}

// MustCompile compiles a pattern, panicking on error.
func MustCompile(pattern string) *Regex {
	re, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return re
}

// Pattern returns the original pattern string.
func (r *Regex) Pattern() string {
	return r.pattern
}

// MatchString reports whether s contains any match.
func (r *Regex) MatchString(s string) bool {
	if r.literals != nil && r.literals.CanReject(s) {
		return false
	}
	return r.re.MatchString(s)
}

// FindStringIndex returns the start and end of the first match, or nil.
func (r *Regex) FindStringIndex(s string) []int {
	if r.literals != nil && r.literals.CanReject(s) {
		return nil
	}
	return r.re.FindStringIndex(s)
}

// FindAllStringIndex returns all non-overlapping matches.
func (r *Regex) FindAllStringIndex(s string, n int) [][]int {
	return r.re.FindAllStringIndex(s, n)
}

// ReplaceAllStringFunc replaces all matches using f.
func (r *Regex) ReplaceAllStringFunc(s string, f func(string) string) string {
	return r.re.ReplaceAllStringFunc(s, f)
}

// Split slices s into substrings separated by matches.
func (r *Regex) Split(s string, n int) []string {
	return r.re.Split(s, n)
}

// RegexCache is the process-wide map from pattern string to compiled
// matcher. Reads are lock-free; eviction is FIFO with a bounded size,
// which keeps the steady-state hit rate near one for programs that build
// patterns from runtime strings. Compile errors surface at first use,
// not program start.
type RegexCache struct {
	cache   sync.Map // map[string]*Regex
	orderMu sync.Mutex
	order   []string
	size    int32
	maxSize int
	config  RegexConfig
}

// NewRegexCache creates a cache with the given capacity and config.
func NewRegexCache(maxSize int, config RegexConfig) *RegexCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &RegexCache{
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		config:  config,
	}
}

// Get returns a compiled regex, compiling and caching on first use.
func (c *RegexCache) Get(pattern string) (*Regex, error) {
	if re, ok := c.cache.Load(pattern); ok {
		return re.(*Regex), nil
	}

	re, err := CompileWithConfig(pattern, c.config)
	if err != nil {
		return nil, err
	}

	if existing, loaded := c.cache.LoadOrStore(pattern, re); loaded {
		return existing.(*Regex), nil
	}

	c.orderMu.Lock()
	c.order = append(c.order, pattern)
	c.size++
	for int(c.size) > c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		c.cache.Delete(oldest)
		c.size--
	}
	c.orderMu.Unlock()

	return re, nil
}

// Len returns the approximate number of cached regexes.
func (c *RegexCache) Len() int {
	c.orderMu.Lock()
	n := int(c.size)
	c.orderMu.Unlock()
	return n
}

// Config returns the cache's configuration.
func (c *RegexCache) Config() RegexConfig {
	return c.config
}
