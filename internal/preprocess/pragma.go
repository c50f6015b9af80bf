package preprocess

// Pragma tracks engine-recognized `#pragma` directives. HEMTT's
// preprocessor only defines a small, fixed vocabulary of pragmas (unlike
// #define, these are not user-extensible): allowing __has_include, and
// suppressing specific lint idents over a file or region. The Processor
// keeps its Pragma private; nothing outside this package reads the
// suppression set.
type Pragma struct {
	allowHasInclude bool
	suppressed      map[string]bool
}

// NewPragma creates an empty Pragma scope.
func NewPragma() *Pragma {
	return &Pragma{suppressed: make(map[string]bool)}
}

// Suppressed reports whether lint `ident` has been suppressed by a
// `#pragma suppress(ident)` seen so far in this file.
func (p *Pragma) Suppressed(ident string) bool { return p.suppressed[ident] }

func (p *Pragma) suppress(ident string)   { p.suppressed[ident] = true }
func (p *Pragma) unsuppress(ident string) { delete(p.suppressed, ident) }
