package engine

import (
	"fmt"
	"slices"

	"github.com/roach88/distill/internal/layout"
	"github.com/roach88/distill/internal/pattern"
	"github.com/roach88/distill/internal/rdf"
	"github.com/roach88/distill/internal/value"
)

// Dehydrated is the result of Dehydrate.
type Dehydrated struct {
	// Dataset holds the produced quads in production order.
	Dataset *rdf.Memory

	// Inputs are the resources bound to the root layout's inputs.
	Inputs []rdf.Term
}

// Dehydrate produces the dataset layout ref describes for v.
//
// Sum values carry their variant; a sum node without a variant tag is
// typed through the serialization discriminants first. Fresh resources
// come from a generator created for this call. Root inputs may be preset
// with WithInputs.
func (e *Engine) Dehydrate(v value.Typed, ref layout.Ref, opts ...CallOption) (*Dehydrated, error) {
	cfg := newCallConfig(opts)

	l, err := e.lookup(ref)
	if err != nil {
		return nil, err
	}
	n := int(l.Signature().Input)
	if len(cfg.inputs) > n {
		return nil, newError(ErrCodeInvalidInput, ref, "layout takes %d inputs, got %d", n, len(cfg.inputs))
	}
	inputs := newCells(n)
	for i, t := range cfg.inputs {
		inputs[i] = constCell(t)
	}

	d := &dehydrator{
		Engine:      e,
		environment: environment{gen: e.newGen()},
		out:         rdf.NewMemory(),
	}
	if err := d.dehydrate(ref, v, inputs, cfg.graph); err != nil {
		return nil, err
	}
	if err := d.flush(); err != nil {
		return nil, err
	}

	terms := make([]rdf.Term, n)
	for i, c := range inputs {
		terms[i] = d.term(c)
	}
	return &Dehydrated{Dataset: d.out, Inputs: terms}, nil
}

// DehydrateValue types v against ref and dehydrates the result.
func (e *Engine) DehydrateValue(v value.Value, ref layout.Ref, opts ...CallOption) (*Dehydrated, error) {
	typed, err := e.Type(v, ref)
	if err != nil {
		return nil, err
	}
	return e.Dehydrate(typed, ref, opts...)
}

// dehydrator carries the state of one Dehydrate call.
type dehydrator struct {
	*Engine
	environment
	out     *rdf.Memory
	pending []pendingQuads
	depth   int
}

// pendingQuads are quad patterns waiting to be instantiated in a frame.
type pendingQuads struct {
	ref      layout.Ref
	frame    *frame
	patterns pattern.Dataset
	graph    rdf.Term
	at       string
}

// dehydrate binds the cells of layout ref for v and queues its quads.
// inputs are the caller's cells for the layout's inputs.
func (d *dehydrator) dehydrate(ref layout.Ref, v value.Typed, inputs []*cell, graph rdf.Term) error {
	if d.depth >= d.maxDepth {
		return NewDepthError(ref, d.maxDepth)
	}
	d.depth++
	defer func() { d.depth-- }()

	l, err := d.lookup(ref)
	if err != nil {
		return err
	}
	if v == nil {
		return newError(ErrCodeInvalidValue, ref, "no value")
	}

	d.logger.Debug("dehydrating layout",
		"layout", ref,
		"kind", l.Kind(),
		"depth", d.depth)

	f := layoutFrame(l.Signature(), inputs)

	switch l := l.(type) {
	case *layout.Never:
		return newError(ErrCodeNever, ref, "the never layout has no values")
	case *layout.Always:
		err = d.always(ref, f, v)
	case *layout.Literal:
		err = d.literal(ref, l, f, v)
	case *layout.Product:
		err = d.product(ref, l, f, v, graph)
	case *layout.UnorderedList:
		err = d.unordered(ref, l, f, v, graph)
	case *layout.OrderedList:
		err = d.ordered(ref, l, f, v, graph)
	case *layout.SizedList:
		err = d.sized(ref, l, f, v, graph)
	case *layout.Sum:
		err = d.sum(ref, l, f, v, graph)
	default:
		err = fmt.Errorf("unsupported layout %T", l)
	}
	if err != nil {
		return err
	}

	d.queue(ref, f, l.Signature().Dataset, graph, "")
	return nil
}

// queue records patterns to instantiate in f after the whole value has
// been walked, so no cell is minted before every nested value has had
// the chance to bind it.
func (d *dehydrator) queue(ref layout.Ref, f *frame, patterns pattern.Dataset, graph rdf.Term, at string) {
	if len(patterns) == 0 {
		return
	}
	d.pending = append(d.pending, pendingQuads{ref: ref, frame: f, patterns: patterns, graph: graph, at: at})
}

// flush instantiates the queued patterns in queue order.
func (d *dehydrator) flush() error {
	for _, p := range d.pending {
		if err := d.emit(p.ref, p.frame, p.patterns, p.graph); err != nil {
			if p.at != "" {
				return fmt.Errorf("%s: %w", p.at, err)
			}
			return err
		}
	}
	d.pending = nil
	return nil
}

// emit instantiates patterns in f and adds the quads to the output.
// Patterns without a graph go to graph.
func (d *dehydrator) emit(ref layout.Ref, f *frame, patterns pattern.Dataset, graph rdf.Term) error {
	for _, q := range patterns {
		s, err := d.resolve(ref, f, q.Subject)
		if err != nil {
			return err
		}
		p, err := d.resolve(ref, f, q.Predicate)
		if err != nil {
			return err
		}
		o, err := d.resolve(ref, f, q.Object)
		if err != nil {
			return err
		}
		g := graph
		if q.Graph != nil {
			if g, err = d.resolve(ref, f, *q.Graph); err != nil {
				return err
			}
		}
		d.out.Insert(rdf.NewQuad(s, p, o, g))
	}
	return nil
}

// format dehydrates the nested value of a value format in scope f.
func (d *dehydrator) format(f *frame, vf layout.ValueFormat, v value.Typed, graph rdf.Term) error {
	g := graph
	switch vf.Graph.Mode {
	case pattern.GraphDefault:
		g = rdf.DefaultGraph
	case pattern.GraphExplicit:
		t, err := d.resolve(vf.Layout, f, vf.Graph.Pattern)
		if err != nil {
			return err
		}
		g = t
	}

	inputs := make([]*cell, len(vf.Input))
	for i, p := range vf.Input {
		c, err := f.cellOf(p)
		if err != nil {
			return newError(ErrCodePartialSubstitution, vf.Layout, "input %d: %v", i, err)
		}
		inputs[i] = c
	}
	return d.dehydrate(vf.Layout, v, inputs, g)
}

func (d *dehydrator) always(ref layout.Ref, f *frame, v value.Typed) error {
	var term rdf.Term
	if o, ok := v.(*value.TypedOpaque); ok {
		term = o.Term
	} else if t, ok := value.OpaqueTerm(v.IntoUntyped()); ok {
		term = t
	} else {
		return newError(ErrCodeInvalidValue, ref, "expected an @id or @value record")
	}
	if len(f.cells) == 0 {
		return newError(ErrCodeInvalidInput, ref, "layout has no input")
	}
	return d.bind(ref, f.cells[0], term)
}

func (d *dehydrator) literal(ref layout.Ref, l *layout.Literal, f *frame, v value.Typed) error {
	term, err := encodeLiteral(ref, l, v.IntoUntyped())
	if err != nil {
		return err
	}
	if len(f.cells) == 0 {
		return newError(ErrCodeInvalidInput, ref, "layout has no input")
	}
	return d.bind(ref, f.cells[0], term)
}

func (d *dehydrator) product(ref layout.Ref, l *layout.Product, f *frame, v value.Typed, graph rdf.Term) error {
	rec, ok := v.(*value.TypedRecord)
	if !ok {
		return newError(ErrCodeInvalidValue, ref, "expected a record, got %s", kindName(v.IntoUntyped()))
	}

	keys := make([]string, 0, len(rec.Fields))
	for k := range rec.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if _, ok := l.Fields[k]; !ok {
			return &EvalError{Code: ErrCodeInvalidValue, Layout: ref, Field: k, Message: fmt.Sprintf("unknown field %q", k)}
		}
	}

	for _, name := range l.FieldNames() {
		field := l.Fields[name]
		fv, ok := rec.Fields[name]
		if !ok {
			if field.Required {
				return NewMissingFieldError(ref, name)
			}
			continue
		}

		ff := f.push(int(field.Intro))
		if err := d.format(ff, field.Value, fv, graph); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		d.queue(ref, ff, field.Dataset, graph, fmt.Sprintf("field %q", name))
	}
	return nil
}

func listOf(ref layout.Ref, v value.Typed) (*value.TypedList, error) {
	list, ok := v.(*value.TypedList)
	if !ok {
		return nil, newError(ErrCodeInvalidValue, ref, "expected a list, got %s", kindName(v.IntoUntyped()))
	}
	return list, nil
}

func (d *dehydrator) unordered(ref layout.Ref, l *layout.UnorderedList, f *frame, v value.Typed, graph rdf.Term) error {
	list, err := listOf(ref, v)
	if err != nil {
		return err
	}
	for i, item := range list.Items {
		fi := f.push(int(l.Item.Intro))
		if err := d.format(fi, l.Item.Value, item, graph); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		d.queue(ref, fi, l.Item.Dataset, graph, fmt.Sprintf("item %d", i))
	}
	return nil
}

func (d *dehydrator) sized(ref layout.Ref, l *layout.SizedList, f *frame, v value.Typed, graph rdf.Term) error {
	list, err := listOf(ref, v)
	if err != nil {
		return err
	}
	if len(list.Items) != len(l.Items) {
		return newError(ErrCodeInvalidValue, ref, "expected %d items, got %d", len(l.Items), len(list.Items))
	}
	for i, item := range l.Items {
		fi := f.push(int(item.Intro))
		if err := d.format(fi, item.Value, list.Items[i], graph); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		d.queue(ref, fi, item.Dataset, graph, fmt.Sprintf("item %d", i))
	}
	return nil
}

// ordered emits one node per element. The head cell is the first node,
// each node's rest is the next node, and the last rest is the tail.
// An empty list binds the head to the tail.
func (d *dehydrator) ordered(ref layout.Ref, l *layout.OrderedList, f *frame, v value.Typed, graph rdf.Term) error {
	list, err := listOf(ref, v)
	if err != nil {
		return err
	}
	head, err := f.cellOf(l.Head)
	if err != nil {
		return newError(ErrCodePartialSubstitution, ref, "head: %v", err)
	}
	tail, err := f.cellOf(l.Tail)
	if err != nil {
		return newError(ErrCodePartialSubstitution, ref, "tail: %v", err)
	}

	if len(list.Items) == 0 {
		return d.bind(ref, head, d.term(tail))
	}

	node := head
	for i, item := range list.Items {
		rest := tail
		if i < len(list.Items)-1 {
			rest = &cell{}
		}

		nf := f.push(2 + int(l.Node.Intro))
		nf.cells[0] = node
		nf.cells[1] = rest
		if err := d.format(nf, l.Node.Value, item, graph); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		d.queue(ref, nf, l.Node.Dataset, graph, fmt.Sprintf("item %d", i))
		node = rest
	}
	return nil
}

// sum dehydrates the tagged variant. An untagged value is typed first.
func (d *dehydrator) sum(ref layout.Ref, l *layout.Sum, f *frame, v value.Typed, graph rdf.Term) error {
	tv, ok := v.(*value.TypedVariant)
	if !ok {
		typed, err := d.Type(v.IntoUntyped(), ref)
		if err != nil {
			return err
		}
		tv = typed.(*value.TypedVariant)
	}

	i := tv.Index
	if tv.Name != "" {
		idx, ok := l.VariantIndex(tv.Name)
		if !ok {
			return &EvalError{Code: ErrCodeInvalidValue, Layout: ref, Field: tv.Name, Message: fmt.Sprintf("unknown variant %q", tv.Name)}
		}
		i = idx
	}
	if i < 0 || i >= len(l.Variants) {
		return newError(ErrCodeInvalidValue, ref, "variant index %d out of range", i)
	}
	variant := l.Variants[i]

	fv := f.push(int(variant.Intro))
	if err := d.format(fv, variant.Value, tv.Value, graph); err != nil {
		return fmt.Errorf("variant %q: %w", variant.Name, err)
	}
	d.queue(ref, fv, variant.Dataset, graph, fmt.Sprintf("variant %q", variant.Name))
	return nil
}
