package compiler

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/distill/internal/automaton"
	"github.com/roach88/distill/internal/layout"
	"github.com/roach88/distill/internal/pattern"
)

//go:embed schema.cue
var schemaSource string

// LoadDir loads the CUE package in dir and compiles its layouts.
func LoadDir(dir string) (*layout.Registry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("layouts directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances found in %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}
	v := ctx.BuildInstance(inst)
	return CompileLayouts(v)
}

// LoadFile compiles the layouts of a single CUE file.
func LoadFile(path string) (*layout.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layouts: %w", err)
	}
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filepath.Base(path)))
	return CompileLayouts(v)
}

// Load compiles the layouts at path, a directory or a single file.
func Load(path string) (*layout.Registry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("layouts: %w", err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}

// CompileLayouts builds a registry from the layouts field of a compiled
// layout document.
//
// The document must unify with the embedded schema:
//
//	layouts: person: {
//		type: "product"
//		input: 1
//		fields: name: {
//			intro: 1
//			required: true
//			value: {layout: "text", input: ["?1"]}
//			dataset: ["?0 <http://example.org/name> ?1"]
//		}
//	}
func CompileLayouts(v cue.Value) (*layout.Registry, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	if !v.LookupPath(cue.ParsePath("layouts")).Exists() {
		return nil, &CompileError{Field: "layouts", Message: "layouts is required", Pos: v.Pos()}
	}

	schema := v.Context().CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("layout schema: %w", err)
	}
	v = v.Unify(schema)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	iter, err := v.LookupPath(cue.ParsePath("layouts")).Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	reg := layout.NewRegistry()
	for iter.Next() {
		ref := iter.Selector().Unquoted()
		l, err := compileLayout(iter.Value())
		if err != nil {
			return nil, err
		}
		if err := reg.Register(layout.Ref(ref), l); err != nil {
			return nil, &CompileError{Field: "layouts." + ref, Message: err.Error(), Pos: iter.Value().Pos()}
		}
	}
	return reg, nil
}

// compileLayout compiles one layout definition.
func compileLayout(v cue.Value) (layout.Layout, error) {
	hdr, err := parseHeader(v)
	if err != nil {
		return nil, err
	}

	kind, err := v.LookupPath(cue.ParsePath("type")).String()
	if err != nil {
		return nil, formatCUEError(err)
	}

	switch kind {
	case "never":
		return &layout.Never{Header: hdr}, nil
	case "always":
		return &layout.Always{Header: hdr}, nil
	case "literal":
		return parseLiteral(v, hdr)
	case "product":
		return parseProduct(v, hdr)
	case "unordered":
		item, err := parseScope(v.LookupPath(cue.ParsePath("item")))
		if err != nil {
			return nil, err
		}
		return &layout.UnorderedList{Header: hdr, Item: layout.ItemFormat(item)}, nil
	case "ordered":
		return parseOrdered(v, hdr)
	case "sized":
		return parseSized(v, hdr)
	case "sum":
		return parseSum(v, hdr)
	default:
		return nil, &CompileError{Field: "type", Message: fmt.Sprintf("unknown layout type %q", kind), Pos: v.Pos()}
	}
}

// parseHeader reads input, intro and dataset. Input defaults to 1.
func parseHeader(v cue.Value) (layout.Header, error) {
	hdr := layout.Header{Input: 1}

	if in := v.LookupPath(cue.ParsePath("input")); in.Exists() {
		n, err := parseCount(in)
		if err != nil {
			return hdr, err
		}
		hdr.Input = n
	}
	if intro := v.LookupPath(cue.ParsePath("intro")); intro.Exists() {
		n, err := parseCount(intro)
		if err != nil {
			return hdr, err
		}
		hdr.Intro = n
	}

	ds, err := parseDataset(v.LookupPath(cue.ParsePath("dataset")))
	if err != nil {
		return hdr, err
	}
	hdr.Dataset = ds
	return hdr, nil
}

func parseCount(v cue.Value) (uint32, error) {
	n, err := v.Uint64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	if n > 1<<16 {
		return 0, &CompileError{Field: "count", Message: fmt.Sprintf("%d variables is too many", n), Pos: v.Pos()}
	}
	return uint32(n), nil
}

func parseDataset(v cue.Value) (pattern.Dataset, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var ds pattern.Dataset
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		q, err := pattern.ParseQuad(s)
		if err != nil {
			return nil, &CompileError{Field: "dataset", Message: err.Error(), Pos: iter.Value().Pos()}
		}
		ds = append(ds, q)
	}
	return ds, nil
}

func parsePattern(v cue.Value, field string) (pattern.Pattern, error) {
	s, err := v.String()
	if err != nil {
		return pattern.Pattern{}, formatCUEError(err)
	}
	p, err := pattern.Parse(s)
	if err != nil {
		return pattern.Pattern{}, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
	}
	return p, nil
}

func parseLiteral(v cue.Value, hdr layout.Header) (*layout.Literal, error) {
	typeName, err := v.LookupPath(cue.ParsePath("literal")).String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	t, err := layout.ParseLiteralType(typeName)
	if err != nil {
		return nil, &CompileError{Field: "literal", Message: err.Error(), Pos: v.Pos()}
	}

	l := &layout.Literal{Header: hdr, Type: t}
	if dt := v.LookupPath(cue.ParsePath("datatype")); dt.Exists() {
		if l.Datatype, err = dt.String(); err != nil {
			return nil, formatCUEError(err)
		}
	} else if t != layout.LiteralID {
		l.Datatype = layout.DefaultDatatype(t)
	}
	if c := v.LookupPath(cue.ParsePath("const")); c.Exists() {
		if l.Const, err = c.String(); err != nil {
			return nil, formatCUEError(err)
		}
	}
	if p := v.LookupPath(cue.ParsePath("pattern")); p.Exists() {
		expr, err := p.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		a, err := automaton.Compile(expr)
		if err != nil {
			return nil, &CompileError{Field: "pattern", Message: err.Error(), Pos: p.Pos()}
		}
		l.Pattern = a
	}
	return l, nil
}

// scope is the shape shared by fields, items, nodes and variants.
type scope struct {
	Intro   uint32
	Value   layout.ValueFormat
	Dataset pattern.Dataset
}

func parseScope(v cue.Value) (scope, error) {
	var s scope
	if intro := v.LookupPath(cue.ParsePath("intro")); intro.Exists() {
		n, err := parseCount(intro)
		if err != nil {
			return s, err
		}
		s.Intro = n
	}
	vf, err := parseValueFormat(v.LookupPath(cue.ParsePath("value")))
	if err != nil {
		return s, err
	}
	s.Value = vf
	if s.Dataset, err = parseDataset(v.LookupPath(cue.ParsePath("dataset"))); err != nil {
		return s, err
	}
	return s, nil
}

func parseValueFormat(v cue.Value) (layout.ValueFormat, error) {
	var vf layout.ValueFormat

	ref, err := v.LookupPath(cue.ParsePath("layout")).String()
	if err != nil {
		return vf, formatCUEError(err)
	}
	vf.Layout = layout.Ref(ref)

	if in := v.LookupPath(cue.ParsePath("input")); in.Exists() {
		iter, err := in.List()
		if err != nil {
			return vf, formatCUEError(err)
		}
		for iter.Next() {
			p, err := parsePattern(iter.Value(), "value.input")
			if err != nil {
				return vf, err
			}
			vf.Input = append(vf.Input, p)
		}
	}

	if g := v.LookupPath(cue.ParsePath("graph")); g.Exists() {
		s, err := g.String()
		if err != nil {
			return vf, formatCUEError(err)
		}
		if s == "default" {
			vf.Graph = pattern.DefaultGraph()
		} else {
			p, err := parsePattern(g, "value.graph")
			if err != nil {
				return vf, err
			}
			vf.Graph = pattern.ExplicitGraph(p)
		}
	}
	return vf, nil
}

func parseProduct(v cue.Value, hdr layout.Header) (*layout.Product, error) {
	p := &layout.Product{Header: hdr, Fields: make(map[string]layout.Field)}

	fields := v.LookupPath(cue.ParsePath("fields"))
	if !fields.Exists() {
		return p, nil
	}
	iter, err := fields.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		s, err := parseScope(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		field := layout.Field{Intro: s.Intro, Value: s.Value, Dataset: s.Dataset}
		if req := iter.Value().LookupPath(cue.ParsePath("required")); req.Exists() {
			if field.Required, err = req.Bool(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		p.Fields[name] = field
	}
	return p, nil
}

func parseOrdered(v cue.Value, hdr layout.Header) (*layout.OrderedList, error) {
	head, err := parsePattern(v.LookupPath(cue.ParsePath("head")), "head")
	if err != nil {
		return nil, err
	}
	tail, err := parsePattern(v.LookupPath(cue.ParsePath("tail")), "tail")
	if err != nil {
		return nil, err
	}
	node, err := parseScope(v.LookupPath(cue.ParsePath("node")))
	if err != nil {
		return nil, fmt.Errorf("node: %w", err)
	}
	return &layout.OrderedList{Header: hdr, Head: head, Tail: tail, Node: layout.NodeFormat(node)}, nil
}

func parseSized(v cue.Value, hdr layout.Header) (*layout.SizedList, error) {
	iter, err := v.LookupPath(cue.ParsePath("items")).List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	l := &layout.SizedList{Header: hdr}
	for iter.Next() {
		s, err := parseScope(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", len(l.Items), err)
		}
		l.Items = append(l.Items, layout.ItemFormat(s))
	}
	return l, nil
}

func parseSum(v cue.Value, hdr layout.Header) (*layout.Sum, error) {
	iter, err := v.LookupPath(cue.ParsePath("variants")).List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	sum := &layout.Sum{Header: hdr}
	for iter.Next() {
		name, err := iter.Value().LookupPath(cue.ParsePath("name")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		s, err := parseScope(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("variant %q: %w", name, err)
		}
		sum.Variants = append(sum.Variants, layout.Variant{
			Name:    name,
			Intro:   s.Intro,
			Value:   s.Value,
			Dataset: s.Dataset,
		})
	}
	return sum, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
