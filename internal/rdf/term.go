// Package rdf defines the RDF term and quad model the engine evaluates
// against, the Dataset lookup interface, an indexed in-memory dataset and
// resource generators.
//
// Terms are comparable values and may be used as map keys. Concrete wire
// syntaxes are handled by ReadNQuads and WriteNQuads only; nothing else in
// this module parses RDF documents.
package rdf

import (
	"fmt"
	"strings"

	ld "github.com/piprate/json-gold/ld"
)

// Kind identifies the kind of a term.
type Kind uint8

const (
	// KindDefaultGraph is the zero kind; only valid in graph position.
	KindDefaultGraph Kind = iota
	KindIRI
	KindBlank
	KindLiteral
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindDefaultGraph:
		return "default-graph"
	case KindIRI:
		return "iri"
	case KindBlank:
		return "blank"
	case KindLiteral:
		return "literal"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Term is an RDF term.
//
// Value holds the IRI, the blank node label without its "_:" prefix, or
// the literal's lexical form. Datatype and Language are only set on
// literals; language-tagged literals carry RDFLangString as datatype.
type Term struct {
	Kind     Kind
	Value    string
	Datatype string
	Language string
}

// DefaultGraph is the graph name of the default graph.
var DefaultGraph = Term{}

// IRI returns an IRI term.
func IRI(v string) Term {
	return Term{Kind: KindIRI, Value: v}
}

// Blank returns a blank node term. A leading "_:" is stripped.
func Blank(label string) Term {
	return Term{Kind: KindBlank, Value: strings.TrimPrefix(label, "_:")}
}

// Literal returns a typed literal. An empty datatype means xsd:string.
func Literal(lexical, datatype string) Term {
	if datatype == "" {
		datatype = XSDString
	}
	return Term{Kind: KindLiteral, Value: lexical, Datatype: datatype}
}

// LangLiteral returns a language-tagged string literal.
func LangLiteral(lexical, lang string) Term {
	return Term{Kind: KindLiteral, Value: lexical, Datatype: RDFLangString, Language: strings.ToLower(lang)}
}

// IsIRI reports whether t is an IRI.
func (t Term) IsIRI() bool { return t.Kind == KindIRI }

// IsBlank reports whether t is a blank node.
func (t Term) IsBlank() bool { return t.Kind == KindBlank }

// IsLiteral reports whether t is a literal.
func (t Term) IsLiteral() bool { return t.Kind == KindLiteral }

// IsDefaultGraph reports whether t names the default graph.
func (t Term) IsDefaultGraph() bool { return t.Kind == KindDefaultGraph }

// IsResource reports whether t can appear in subject position.
func (t Term) IsResource() bool { return t.Kind == KindIRI || t.Kind == KindBlank }

// ID returns the lexical identifier of a resource: the IRI itself or
// "_:label" for blank nodes.
func (t Term) ID() string {
	if t.Kind == KindBlank {
		return "_:" + t.Value
	}
	return t.Value
}

// String renders the term in N-Quads term syntax.
// The default graph renders as the empty string.
func (t Term) String() string {
	switch t.Kind {
	case KindIRI:
		return "<" + escapeIRI(t.Value) + ">"
	case KindBlank:
		return "_:" + t.Value
	case KindLiteral:
		lex := `"` + escapeLiteral(t.Value) + `"`
		if t.Datatype == RDFLangString && t.Language != "" {
			return lex + "@" + t.Language
		}
		if t.Datatype == "" || t.Datatype == XSDString {
			return lex
		}
		return lex + "^^<" + escapeIRI(t.Datatype) + ">"
	default:
		return ""
	}
}

// Compare orders terms by kind, then value, datatype and language.
func Compare(a, b Term) int {
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	if c := strings.Compare(a.Value, b.Value); c != 0 {
		return c
	}
	if c := strings.Compare(a.Datatype, b.Datatype); c != 0 {
		return c
	}
	return strings.Compare(a.Language, b.Language)
}

// ParseTerm parses a single term in N-Quads term syntax.
//
// Accepted forms: <iri>, _:label, "lex", "lex"^^<datatype>, "lex"@lang.
func ParseTerm(s string) (Term, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Term{}, fmt.Errorf("empty term")
	case strings.HasPrefix(s, "<"):
		if !strings.HasSuffix(s, ">") || len(s) < 2 {
			return Term{}, fmt.Errorf("unterminated IRI %q", s)
		}
		v, err := unescape(s[1 : len(s)-1])
		if err != nil {
			return Term{}, fmt.Errorf("IRI %q: %w", s, err)
		}
		return IRI(v), nil
	case strings.HasPrefix(s, "_:"):
		if len(s) == 2 || strings.ContainsAny(s, " \t\n") {
			return Term{}, fmt.Errorf("invalid blank node %q", s)
		}
		return Blank(s), nil
	case strings.HasPrefix(s, `"`):
		return parseLiteral(s)
	default:
		return Term{}, fmt.Errorf("unrecognized term %q", s)
	}
}

// ParseID is the inverse of Term.ID: "_:label" is a blank node and
// anything else must be an absolute IRI that N-Quads can write.
func ParseID(id string) (Term, error) {
	if strings.HasPrefix(id, "_:") {
		if len(id) == 2 || strings.ContainsAny(id, " \t\n") {
			return Term{}, fmt.Errorf("invalid blank node %q", id)
		}
		return Blank(id), nil
	}
	if strings.ContainsAny(id, " <>\"{}|^`\\\t\n") || !ld.IsAbsoluteIri(id) {
		return Term{}, fmt.Errorf("%q is not an absolute IRI", id)
	}
	return IRI(id), nil
}

// MustParseTerm is like ParseTerm but panics on error.
func MustParseTerm(s string) Term {
	t, err := ParseTerm(s)
	if err != nil {
		panic(err)
	}
	return t
}

func parseLiteral(s string) (Term, error) {
	// Find the closing quote, skipping escaped characters.
	end := -1
	for i := 1; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == '"' {
			end = i
			break
		}
	}
	if end < 0 {
		return Term{}, fmt.Errorf("unterminated literal %q", s)
	}
	lex, err := unescape(s[1:end])
	if err != nil {
		return Term{}, fmt.Errorf("literal %q: %w", s, err)
	}

	rest := s[end+1:]
	switch {
	case rest == "":
		return Literal(lex, XSDString), nil
	case strings.HasPrefix(rest, "@"):
		if len(rest) == 1 {
			return Term{}, fmt.Errorf("empty language tag in %q", s)
		}
		return LangLiteral(lex, rest[1:]), nil
	case strings.HasPrefix(rest, "^^<") && strings.HasSuffix(rest, ">"):
		dt, err := unescape(rest[3 : len(rest)-1])
		if err != nil {
			return Term{}, fmt.Errorf("datatype in %q: %w", s, err)
		}
		return Literal(lex, dt), nil
	default:
		return Term{}, fmt.Errorf("invalid literal suffix %q", rest)
	}
}

func escapeIRI(s string) string {
	if !strings.ContainsAny(s, "<>\"\\") {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '<', '>', '"', '\\':
			fmt.Fprintf(&sb, `\u%04X`, r)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func escapeLiteral(s string) string {
	return literalEscaper.Replace(s)
}

// unescape decodes N-Quads string escapes: \t \b \n \r \f \" \' \\ and
// \uXXXX / \UXXXXXXXX.
func unescape(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", fmt.Errorf("trailing backslash")
		}
		switch s[i] {
		case 't':
			sb.WriteByte('\t')
		case 'b':
			sb.WriteByte('\b')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 'f':
			sb.WriteByte('\f')
		case '"', '\'', '\\':
			sb.WriteByte(s[i])
		case 'u', 'U':
			n := 4
			if s[i] == 'U' {
				n = 8
			}
			if i+1+n > len(s) {
				return "", fmt.Errorf("short unicode escape")
			}
			var r rune
			for _, h := range s[i+1 : i+1+n] {
				d, ok := hexDigit(h)
				if !ok {
					return "", fmt.Errorf("invalid unicode escape")
				}
				r = r<<4 | d
			}
			sb.WriteRune(r)
			i += n
		default:
			return "", fmt.Errorf("invalid escape \\%c", s[i])
		}
	}
	return sb.String(), nil
}

func hexDigit(r rune) (rune, bool) {
	switch {
	case r >= '0' && r <= '9':
		return r - '0', true
	case r >= 'a' && r <= 'f':
		return r - 'a' + 10, true
	case r >= 'A' && r <= 'F':
		return r - 'A' + 10, true
	default:
		return 0, false
	}
}
