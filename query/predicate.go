package query

import (
	"strings"

	"heapdb/record"
)

// Predicate is a conjunction of terms. A nil or empty predicate accepts
// every tuple.
type Predicate struct {
	terms []Term
}

func NewPredicate(terms ...Term) *Predicate {
	return &Predicate{
		terms: terms,
	}
}

func (p *Predicate) ConjoinWith(pred *Predicate) {
	p.terms = append(p.terms, pred.terms...)
}

func (p *Predicate) Terms() []Term {
	if p == nil {
		return nil
	}
	return p.terms
}

func (p *Predicate) IsSatisfied(t *record.Tuple) (bool, error) {
	if p == nil {
		return true, nil
	}
	for _, term := range p.terms {
		ok, err := term.IsSatisfied(t)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// AppliesTo reports whether every field the predicate names is in schema.
func (p *Predicate) AppliesTo(schema *record.Schema) bool {
	for _, term := range p.Terms() {
		if !term.AppliesTo(schema) {
			return false
		}
	}
	return true
}

func (p *Predicate) String() string {
	parts := make([]string, len(p.Terms()))
	for i, term := range p.Terms() {
		parts[i] = term.String()
	}
	return strings.Join(parts, " AND ")
}
