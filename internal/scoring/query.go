package scoring

import "strings"

// Query is the ordered list of skill terms a recruiter has asked for. It only grows;
// the single way to drop a term is to start over with an empty Query.
type Query struct {
	terms []string
}

func NewQuery(terms ...string) Query {
	return Query{terms: append([]string(nil), terms...)}
}

// With returns a copy of q with term appended. Blank terms are rejected.
func (q Query) With(term string) (Query, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return q, &ValidationError{Field: "skill", Reason: "is required"}
	}

	terms := make([]string, len(q.terms), len(q.terms)+1)
	copy(terms, q.terms)
	return Query{terms: append(terms, term)}, nil
}

// Terms returns a copy of the terms in insertion order. It is never nil.
func (q Query) Terms() []string {
	out := make([]string, len(q.terms))
	copy(out, q.terms)
	return out
}

func (q Query) Len() int { return len(q.terms) }

func (q Query) IsEmpty() bool { return len(q.terms) == 0 }

func (q Query) String() string { return strings.Join(q.terms, ", ") }
