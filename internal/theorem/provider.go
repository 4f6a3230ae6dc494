package theorem

import (
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/roach88/deltasim/internal/value"
)

// minParallelCandidates is the smallest candidate list worth splitting.
const minParallelCandidates = 64

type entry struct {
	t   *Theorem
	seq int64 // registration order, the tie-breaker
}

// better reports whether a beats b: higher priority first, then later
// registration.
func better(a, b *entry) bool {
	if a.t.Priority != b.t.Priority {
		return a.t.Priority > b.t.Priority
	}
	return a.seq > b.seq
}

// Match is the result of a successful lookup.
type Match struct {
	Theorem  *Theorem
	Bindings Bindings
}

// Provider is the aspect-keyed theorem registry.
//
// Thread-safety: lookups may run concurrently with each other. Add and
// Remove take the write lock.
type Provider struct {
	mu       sync.RWMutex
	byAspect map[Aspect][]*entry // registration order
	byID     map[string]*entry
	seq      int64

	parallelism int
	logger      *slog.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithParallelism sets the number of goroutines used to match a large
// candidate list. Default: 1 (sequential).
func WithParallelism(n int) ProviderOption {
	return func(p *Provider) {
		if n > 0 {
			p.parallelism = n
		}
	}
}

// WithLogger sets the provider's logger.
func WithLogger(l *slog.Logger) ProviderOption {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProvider creates an empty registry.
func NewProvider(opts ...ProviderOption) *Provider {
	p := &Provider{
		byAspect:    make(map[Aspect][]*entry),
		byID:        make(map[string]*entry),
		parallelism: 1,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Add registers t. Adding a theorem that is already registered is a no-op
// returning false; adding a different theorem under a registered id fails
// with ConflictError.
func (p *Provider) Add(t *Theorem) (bool, error) {
	if err := t.Validate(); err != nil {
		return false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.byID[t.ID]; ok {
		if existing.t == t {
			return false, nil
		}
		return false, &ConflictError{ID: t.ID}
	}
	p.seq++
	e := &entry{t: t, seq: p.seq}
	p.byID[t.ID] = e
	p.byAspect[t.Aspect] = append(p.byAspect[t.Aspect], e)

	p.logger.Debug("theorem registered",
		"theorem_id", t.ID,
		"aspect", t.Aspect,
		"priority", t.Priority)
	return true, nil
}

// MustAdd is like Add but panics on error.
func (p *Provider) MustAdd(ts ...*Theorem) {
	for _, t := range ts {
		if _, err := p.Add(t); err != nil {
			panic(err)
		}
	}
}

// Remove unregisters the theorem with the given id and reports whether it
// was registered.
func (p *Provider) Remove(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.byID[id]
	if !ok {
		return false
	}
	delete(p.byID, id)
	list := p.byAspect[e.t.Aspect]
	if i := slices.Index(list, e); i >= 0 {
		p.byAspect[e.t.Aspect] = slices.Delete(list, i, i+1)
	}
	if len(p.byAspect[e.t.Aspect]) == 0 {
		delete(p.byAspect, e.t.Aspect)
	}
	return true
}

// Get returns the theorem registered under id.
func (p *Provider) Get(id string) (*Theorem, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	e, ok := p.byID[id]
	if !ok {
		return nil, false
	}
	return e.t, true
}

// Theorems returns the theorems of an aspect in registration order.
func (p *Provider) Theorems(aspect Aspect) []*Theorem {
	p.mu.RLock()
	defer p.mu.RUnlock()

	list := p.byAspect[aspect]
	out := make([]*Theorem, len(list))
	for i, e := range list {
		out[i] = e.t
	}
	return out
}

// Aspects returns every aspect with at least one theorem, sorted.
func (p *Provider) Aspects() []Aspect {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Aspect, 0, len(p.byAspect))
	for a := range p.byAspect {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of registered theorems.
func (p *Provider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byID)
}

// LookupBest returns the best theorem of aspect matching subject's current
// structure, with its bindings. It fails with NoMatchError when nothing
// matches.
func (p *Provider) LookupBest(aspect Aspect, subject Subject) (Match, error) {
	m, ok := p.TryLookupBest(aspect, subject)
	if !ok {
		return Match{}, &NoMatchError{Aspect: aspect, Value: value.OrUndefined(subject.Structure()).String()}
	}
	return m, nil
}

// TryLookupBest is LookupBest reporting a miss as false instead of an error.
func (p *Provider) TryLookupBest(aspect Aspect, subject Subject) (Match, bool) {
	v := value.OrUndefined(subject.Structure())

	p.mu.RLock()
	candidates := slices.Clone(p.byAspect[aspect])
	p.mu.RUnlock()

	var best *entry
	var bindings Bindings
	if p.parallelism > 1 && len(candidates) >= minParallelCandidates {
		best, bindings = p.matchParallel(candidates, v)
	} else {
		best, bindings = matchRange(candidates, v)
	}
	if best == nil {
		return Match{}, false
	}
	return Match{Theorem: best.t, Bindings: bindings}, true
}

func matchRange(candidates []*entry, v value.Value) (*entry, Bindings) {
	var best *entry
	var bindings Bindings
	for _, e := range candidates {
		if best != nil && !better(e, best) {
			continue
		}
		if b, ok := MatchPattern(e.t.Pattern, v); ok {
			best, bindings = e, b
		}
	}
	return best, bindings
}

// matchParallel splits candidates into contiguous chunks, matches each on
// its own goroutine and reduces the chunk winners with the same ordering as
// matchRange, so the result does not depend on scheduling.
func (p *Provider) matchParallel(candidates []*entry, v value.Value) (*entry, Bindings) {
	type result struct {
		best     *entry
		bindings Bindings
	}
	workers := min(p.parallelism, len(candidates))
	size := (len(candidates) + workers - 1) / workers
	results := make([]result, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * size
		hi := min(lo+size, len(candidates))
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(w int, chunk []*entry) {
			defer wg.Done()
			best, b := matchRange(chunk, v)
			results[w] = result{best: best, bindings: b}
		}(w, candidates[lo:hi])
	}
	wg.Wait()

	var best *entry
	var bindings Bindings
	for _, r := range results {
		if r.best != nil && (best == nil || better(r.best, best)) {
			best, bindings = r.best, r.bindings
		}
	}
	return best, bindings
}

// Rewrite performs one innermost-first rewriting pass over v: the elements
// of lists and the arguments of expressions are rewritten first, then the
// best theorem of aspect is applied to the rebuilt node. When that theorem
// declines, the next matching theorem in rank order is tried. It reports
// whether anything changed.
func (p *Provider) Rewrite(aspect Aspect, v value.Value) (value.Value, bool) {
	v = value.OrUndefined(v)
	changed := false

	switch x := v.(type) {
	case value.Expr:
		args := make([]value.Value, len(x.Args))
		for i, a := range x.Args {
			na, c := p.Rewrite(aspect, a)
			args[i] = na
			changed = changed || c
		}
		if changed {
			v = value.Expr{Head: x.Head, Args: args}
		}
	case value.List:
		elems := make([]value.Value, len(x))
		for i, e := range x {
			ne, c := p.Rewrite(aspect, e)
			elems[i] = ne
			changed = changed || c
		}
		if changed {
			v = value.List(elems)
		}
	}

	t, out, ok := p.apply(aspect, v)
	if !ok {
		return v, changed
	}
	out = value.OrUndefined(out)
	if value.Equal(out, v) {
		return v, changed
	}
	p.logger.Debug("theorem applied",
		"theorem_id", t.ID,
		"aspect", aspect,
		"from", v.String(),
		"to", out.String())
	return out, true
}

// apply returns the result of the highest-ranked theorem of aspect that
// matches v and does not decline.
func (p *Provider) apply(aspect Aspect, v value.Value) (*Theorem, value.Value, bool) {
	m, ok := p.TryLookupBest(aspect, Of(v))
	if !ok {
		return nil, nil, false
	}
	if out, ok := m.Theorem.Result(m.Bindings); ok {
		return m.Theorem, out, true
	}
	p.logger.Debug("theorem declined", "theorem_id", m.Theorem.ID, "aspect", aspect, "value", v.String())

	p.mu.RLock()
	ranked := slices.Clone(p.byAspect[aspect])
	p.mu.RUnlock()
	slices.SortFunc(ranked, func(a, b *entry) int {
		switch {
		case better(a, b):
			return -1
		case better(b, a):
			return 1
		}
		return 0
	})

	for _, e := range ranked {
		if e.t == m.Theorem {
			continue
		}
		b, ok := MatchPattern(e.t.Pattern, v)
		if !ok {
			continue
		}
		if out, ok := e.t.Result(b); ok {
			return e.t, out, true
		}
		p.logger.Debug("theorem declined", "theorem_id", e.t.ID, "aspect", aspect, "value", v.String())
	}
	return nil, nil, false
}
