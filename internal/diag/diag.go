// Package diag implements the diagnostic model described in spec §3 and
// §4.10: a Code identity, a rendered Diagnostic with labeled source spans,
// and a Report that merges warnings/errors/notes/helps per addon with
// de-duplication. It is a generalization of the teacher's
// internal/errors typed-error-with-Unwrap pattern (ErrorType constants,
// New*Error constructors, an Error() string and Unwrap() error) into a
// richer, span-carrying diagnostic suited to a compiler front end rather
// than a single "underlying error" wrapper.
package diag

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hbollon/go-edlib"

	"github.com/brettmayson/hemtt-core/internal/token"
)

// Severity orders diagnostics from least to most actionable.
type Severity int

const (
	SeverityHelp Severity = iota
	SeverityNote
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityNote:
		return "note"
	case SeverityHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Label attaches a message to a span within a specific file.
type Label struct {
	Path    string
	Start   int
	End     int
	Message string
}

// Code is implemented by every diagnostic-producing error in the core. It
// mirrors the original design's `Code` trait: a stable machine-readable
// ident, a human message, an optional label message for the primary span,
// a severity, and optional help/suggestion/note text.
type Code interface {
	Ident() string
	Message() string
	LabelMessage() string
	Severity() Severity
	Help() string
	Suggestion() string
	Note() string
}

// Diagnostic is the rendered form of a Code: an identity plus the source
// labels needed to print it with context.
type Diagnostic struct {
	Ident    string
	Severity Severity
	Message  string
	Labels   []Label
	Notes    []string
	Helps    []string
}

// FromCode builds a Diagnostic from a Code and a primary span. Additional
// labels can be appended by the caller afterward.
func FromCode(c Code, primary token.Position) *Diagnostic {
	d := &Diagnostic{
		Ident:    c.Ident(),
		Severity: c.Severity(),
		Message:  c.Message(),
	}
	if primary.Path != "" {
		d.Labels = append(d.Labels, Label{
			Path:    primary.Path,
			Start:   primary.Start,
			End:     primary.End,
			Message: c.LabelMessage(),
		})
	}
	if n := c.Note(); n != "" {
		d.Notes = append(d.Notes, n)
	}
	if h := c.Help(); h != "" {
		d.Helps = append(d.Helps, h)
	}
	if s := c.Suggestion(); s != "" {
		d.Helps = append(d.Helps, "suggestion: "+s)
	}
	return d
}

// WithLabel appends a secondary label and returns the Diagnostic for
// chaining.
func (d *Diagnostic) WithLabel(path string, start, end int, message string) *Diagnostic {
	d.Labels = append(d.Labels, Label{Path: path, Start: start, End: end, Message: message})
	return d
}

// key identifies a diagnostic for de-duplication: same code at the same
// primary span never needs to be reported twice (§7).
func (d *Diagnostic) key() string {
	if len(d.Labels) == 0 {
		return d.Ident
	}
	l := d.Labels[0]
	return fmt.Sprintf("%s@%s:%d:%d", d.Ident, l.Path, l.Start, l.End)
}

// Render produces a human-readable multi-line rendering of the diagnostic,
// in the spirit of a compiler's "pretty" diagnostic output. Source context
// is looked up on demand via the resolve function (normally
// workspace.(*Processed).Line), which lets the renderer stay independent
// of any specific workspace implementation.
func (d *Diagnostic) Render(resolve func(path string, byteOffset int) (line int, column int, text string)) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s]: %s\n", d.Severity, d.Ident, d.Message)
	for _, l := range d.Labels {
		if resolve == nil {
			fmt.Fprintf(&b, "  --> %s:%d:%d\n", l.Path, l.Start, l.End)
			continue
		}
		line, col, text := resolve(l.Path, l.Start)
		fmt.Fprintf(&b, "  --> %s:%d:%d\n", l.Path, line, col)
		if text != "" {
			fmt.Fprintf(&b, "   | %s\n", text)
		}
		if l.Message != "" {
			fmt.Fprintf(&b, "   = %s\n", l.Message)
		}
	}
	for _, n := range d.Notes {
		fmt.Fprintf(&b, "  note: %s\n", n)
	}
	for _, h := range d.Helps {
		fmt.Fprintf(&b, "  help: %s\n", h)
	}
	return b.String()
}

// Report collects diagnostics for one addon (or the whole project) and
// tracks whether the build can still proceed.
type Report struct {
	mu          sync.Mutex
	diagnostics []*Diagnostic
	seen        map[string]struct{}
}

// NewReport creates an empty Report.
func NewReport() *Report {
	return &Report{seen: make(map[string]struct{})}
}

// Push adds a diagnostic, discarding exact duplicates (same ident + primary
// span).
func (r *Report) Push(d *Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := d.key()
	if _, ok := r.seen[k]; ok {
		return
	}
	r.seen[k] = struct{}{}
	r.diagnostics = append(r.diagnostics, d)
}

// Diagnostics returns a stable-ordered copy: errors first is NOT applied
// here (callers preserve source order within an addon, per §5); this just
// returns everything pushed so far.
func (r *Report) Diagnostics() []*Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Diagnostic, len(r.diagnostics))
	copy(out, r.diagnostics)
	return out
}

// HasErrors reports whether any diagnostic at or above SeverityError was
// recorded.
func (r *Report) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Counts returns the number of diagnostics at each severity.
func (r *Report) Counts() map[Severity]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[Severity]int)
	for _, d := range r.diagnostics {
		counts[d.Severity]++
	}
	return counts
}

// Merge folds another report's diagnostics into this one, preserving
// de-duplication. Used at phase boundaries to combine per-addon reports
// (§5 Ordering guarantees: addons merge in deterministic name order, so
// callers should merge reports sorted by addon name).
func (r *Report) Merge(other *Report) {
	for _, d := range other.Diagnostics() {
		r.Push(d)
	}
}

// WriteCIAnnotations renders one line per diagnostic in a CI-annotation
// style (`::severity file=path,line=line::message`), matching the
// `.hemttout/ci_annotations.txt` artifact named in §6. This is an
// enrichment of the distilled spec (SPEC_FULL.md §C.2): the CI runner
// itself remains out of scope, only the file format is produced.
func (r *Report) WriteCIAnnotations(resolveLine func(path string, byteOffset int) int) string {
	var b strings.Builder
	for _, d := range r.Diagnostics() {
		line := 0
		path := ""
		if len(d.Labels) > 0 {
			path = d.Labels[0].Path
			if resolveLine != nil {
				line = resolveLine(path, d.Labels[0].Start)
			}
		}
		fmt.Fprintf(&b, "::%s file=%s,line=%d::%s\n", d.Severity, path, line, d.Message)
	}
	return b.String()
}

// Suggest returns the closest match to `name` among `candidates` using
// Jaro-Winkler similarity, for "did you mean %s?" help notes (SPEC_FULL.md
// §C.3). It returns "" if candidates is empty or nothing scores above the
// threshold.
func Suggest(name string, candidates []string) string {
	best := ""
	bestScore := 0.70 // below this, the suggestion is more confusing than helpful
	for _, c := range candidates {
		score, err := edlib.StringsSimilarity(name, c, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if float64(score) > bestScore {
			bestScore = float64(score)
			best = c
		}
	}
	return best
}

// SortByAddon stably reorders diagnostics in-place-by-copy so that when
// several addons' reports are merged, the result is grouped by addon name
// (passed via keyOf) in deterministic order, per §5.
func SortByAddon(diags []*Diagnostic, keyOf func(*Diagnostic) string) []*Diagnostic {
	out := make([]*Diagnostic, len(diags))
	copy(out, diags)
	sort.SliceStable(out, func(i, j int) bool {
		return keyOf(out[i]) < keyOf(out[j])
	})
	return out
}
