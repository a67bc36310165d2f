package rdf

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	ld "github.com/piprate/json-gold/ld"
)

// defaultGraphName is json-gold's key for the default graph.
const defaultGraphName = "@default"

// ReadNQuads parses an N-Quads document into a Memory dataset.
//
// Lines are parsed one at a time so the dataset keeps document order,
// which is the iteration order hydration observes.
func ReadNQuads(r io.Reader) (*Memory, error) {
	m := NewMemory()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		parsed, err := ld.ParseNQuads(text + "\n")
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		for name, quads := range parsed.Graphs {
			for _, q := range quads {
				quad, err := fromLDQuad(q, name)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				m.Insert(quad)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read N-Quads: %w", err)
	}
	return m, nil
}

// WriteNQuads serializes quads as a sorted N-Quads document.
func WriteNQuads(w io.Writer, quads []Quad) error {
	ds := ld.NewRDFDataset()
	for _, q := range quads {
		name := defaultGraphName
		if !q.Graph.IsDefaultGraph() {
			name = q.Graph.ID()
		}
		ds.Graphs[name] = append(ds.Graphs[name], ld.NewQuad(ToNode(q.Subject), ToNode(q.Predicate), ToNode(q.Object), name))
	}

	out, err := (&ld.NQuadRDFSerializer{}).Serialize(ds)
	if err != nil {
		return fmt.Errorf("failed to serialize N-Quads: %w", err)
	}
	s, ok := out.(string)
	if !ok {
		return fmt.Errorf("unexpected serializer output %T", out)
	}
	_, err = io.WriteString(w, s)
	return err
}

// FromNode converts a json-gold node to a term.
func FromNode(n ld.Node) (Term, error) {
	switch v := n.(type) {
	case *ld.IRI:
		return IRI(v.Value), nil
	case *ld.BlankNode:
		return Blank(v.Attribute), nil
	case *ld.Literal:
		if v.Datatype == RDFLangString {
			return LangLiteral(v.Value, v.Language), nil
		}
		return Literal(v.Value, v.Datatype), nil
	default:
		return Term{}, fmt.Errorf("unsupported node %T", n)
	}
}

// ToNode converts a term to a json-gold node.
// The default graph has no node form and converts to nil.
func ToNode(t Term) ld.Node {
	switch t.Kind {
	case KindIRI:
		return ld.NewIRI(t.Value)
	case KindBlank:
		return ld.NewBlankNode("_:" + t.Value)
	case KindLiteral:
		return ld.NewLiteral(t.Value, t.Datatype, t.Language)
	default:
		return nil
	}
}

func fromLDQuad(q *ld.Quad, graphName string) (Quad, error) {
	s, err := FromNode(q.Subject)
	if err != nil {
		return Quad{}, fmt.Errorf("subject: %w", err)
	}
	p, err := FromNode(q.Predicate)
	if err != nil {
		return Quad{}, fmt.Errorf("predicate: %w", err)
	}
	o, err := FromNode(q.Object)
	if err != nil {
		return Quad{}, fmt.Errorf("object: %w", err)
	}

	g := DefaultGraph
	switch {
	case graphName == defaultGraphName || graphName == "":
	case strings.HasPrefix(graphName, "_:"):
		g = Blank(graphName)
	default:
		g = IRI(graphName)
	}
	return Quad{Subject: s, Predicate: p, Object: o, Graph: g}, nil
}
