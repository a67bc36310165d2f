package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/distill/internal/layout"
	"github.com/roach88/distill/internal/match"
	"github.com/roach88/distill/internal/pattern"
	"github.com/roach88/distill/internal/rdf"
	"github.com/roach88/distill/internal/value"
)

// Hydrate extracts the value layout ref describes from ds, starting from
// the given input resources.
//
// len(inputs) must equal the layout's input arity. The root layout is
// evaluated in the default graph unless WithGraph says otherwise.
func (e *Engine) Hydrate(ds rdf.Dataset, ref layout.Ref, inputs []rdf.Term, opts ...CallOption) (value.Typed, error) {
	cfg := newCallConfig(opts)

	l, err := e.lookup(ref)
	if err != nil {
		return nil, err
	}
	if n := l.Signature().Input; int(n) != len(inputs) {
		return nil, newError(ErrCodeInvalidInput, ref, "layout takes %d inputs, got %d", n, len(inputs))
	}

	h := &hydrator{Engine: e, ds: ds}
	return h.hydrate(ref, pattern.FromTerms(len(inputs), inputs), cfg.graph)
}

// hydrator carries the state of one Hydrate call.
type hydrator struct {
	*Engine
	ds    rdf.Dataset
	depth int
}

// hydrate evaluates layout ref with the given input substitution in graph.
// Unbound inputs are left for the layout's own dataset to bind.
func (h *hydrator) hydrate(ref layout.Ref, inputs *pattern.Substitution, graph rdf.Term) (value.Typed, error) {
	if h.depth >= h.maxDepth {
		return nil, NewDepthError(ref, h.maxDepth)
	}
	h.depth++
	defer func() { h.depth-- }()

	l, err := h.lookup(ref)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("hydrating layout",
		"layout", ref,
		"kind", l.Kind(),
		"depth", h.depth,
		"inputs", inputs.String())

	switch l := l.(type) {
	case *layout.Never:
		return nil, newError(ErrCodeNever, ref, "the never layout has no values")
	case *layout.Always:
		term, err := h.input(ref, inputs)
		if err != nil {
			return nil, err
		}
		return &value.TypedOpaque{Layout: ref, Term: term}, nil
	case *layout.Literal:
		return h.literal(ref, l, inputs, graph)
	case *layout.Product:
		return h.product(ref, l, inputs, graph)
	case *layout.UnorderedList:
		return h.unordered(ref, l, inputs, graph)
	case *layout.OrderedList:
		return h.ordered(ref, l, inputs, graph)
	case *layout.SizedList:
		return h.sized(ref, l, inputs, graph)
	case *layout.Sum:
		return h.sum(ref, l, inputs, graph)
	default:
		return nil, fmt.Errorf("unsupported layout %T", l)
	}
}

// input returns input 0, which literal and always layouts describe.
func (h *hydrator) input(ref layout.Ref, inputs *pattern.Substitution) (rdf.Term, error) {
	t, ok := inputs.Get(0)
	if !ok {
		return rdf.Term{}, newError(ErrCodePartialSubstitution, ref, "input ?0 is not bound")
	}
	return t, nil
}

// scope binds the layout scope: inputs followed by the layout's intros,
// which its own dataset must bind exactly once.
func (h *hydrator) scope(ref layout.Ref, hdr layout.Header, inputs *pattern.Substitution, graph rdf.Term) (*pattern.Substitution, error) {
	sub := inputs.Extend(int(hdr.Intro))
	if len(hdr.Dataset) == 0 {
		return sub, nil
	}
	found, err := h.findOne(ref, "", hdr.Dataset, graph, sub)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, newError(ErrCodeMissingData, ref, "layout dataset has no match")
	}
	return found, nil
}

// findOne wraps match.FindOne with engine error codes.
func (h *hydrator) findOne(ref layout.Ref, field string, patterns pattern.Dataset, graph rdf.Term, sub *pattern.Substitution) (*pattern.Substitution, error) {
	found, err := match.FindOne(h.ds, patterns, graph, sub)
	if errors.Is(err, match.ErrAmbiguity) {
		return nil, NewAmbiguityError(ref, field)
	}
	if err != nil {
		return nil, &EvalError{Code: ErrCodeDataset, Layout: ref, Field: field, Message: err.Error()}
	}
	return found, nil
}

// format hydrates the nested value a value format selects from scope sub.
func (h *hydrator) format(vf layout.ValueFormat, sub *pattern.Substitution, graph rdf.Term) (value.Typed, error) {
	g, err := vf.Graph.Resolve(sub, graph)
	if err != nil {
		return nil, newError(ErrCodePartialSubstitution, vf.Layout, "graph %s: %v", vf.Graph, err)
	}
	inputs := pattern.NewSubstitution(len(vf.Input), func(i uint32) (rdf.Term, bool) {
		return sub.Resolve(vf.Input[i])
	})
	return h.hydrate(vf.Layout, inputs, g)
}

func (h *hydrator) literal(ref layout.Ref, l *layout.Literal, inputs *pattern.Substitution, graph rdf.Term) (value.Typed, error) {
	if _, err := h.scope(ref, l.Header, inputs, graph); err != nil {
		return nil, err
	}
	term, err := h.input(ref, inputs)
	if err != nil {
		return nil, err
	}
	v, err := decodeLiteral(ref, l, term)
	if err != nil {
		return nil, err
	}
	return &value.TypedLiteral{Layout: ref, Value: v}, nil
}

func (h *hydrator) product(ref layout.Ref, l *layout.Product, inputs *pattern.Substitution, graph rdf.Term) (value.Typed, error) {
	sub, err := h.scope(ref, l.Header, inputs, graph)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]value.Typed, len(l.Fields))
	for _, name := range l.FieldNames() {
		f := l.Fields[name]
		found, err := h.findOne(ref, name, f.Dataset, graph, sub.Extend(int(f.Intro)))
		if err != nil {
			return nil, err
		}
		if found == nil {
			if f.Required {
				return nil, NewMissingFieldError(ref, name)
			}
			continue
		}

		v, err := h.format(f.Value, found, graph)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		fields[name] = v
	}
	return &value.TypedRecord{Layout: ref, Fields: fields}, nil
}

func (h *hydrator) unordered(ref layout.Ref, l *layout.UnorderedList, inputs *pattern.Substitution, graph rdf.Term) (value.Typed, error) {
	sub, err := h.scope(ref, l.Header, inputs, graph)
	if err != nil {
		return nil, err
	}

	items := []value.Typed{}
	m := match.FindAll(h.ds, l.Item.Dataset, graph, sub.Extend(int(l.Item.Intro)))
	for {
		found, ok := m.Next()
		if !ok {
			break
		}
		v, err := h.format(l.Item.Value, found, graph)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", len(items), err)
		}
		items = append(items, v)
	}
	if err := m.Err(); err != nil {
		return nil, &EvalError{Code: ErrCodeDataset, Layout: ref, Message: err.Error()}
	}
	return &value.TypedList{Layout: ref, Items: items}, nil
}

func (h *hydrator) sized(ref layout.Ref, l *layout.SizedList, inputs *pattern.Substitution, graph rdf.Term) (value.Typed, error) {
	sub, err := h.scope(ref, l.Header, inputs, graph)
	if err != nil {
		return nil, err
	}

	items := make([]value.Typed, 0, len(l.Items))
	for i, item := range l.Items {
		found, err := h.findOne(ref, fmt.Sprint(i), item.Dataset, graph, sub.Extend(int(item.Intro)))
		if err != nil {
			return nil, err
		}
		if found == nil {
			return nil, newError(ErrCodeMissingData, ref, "item %d has no match", i)
		}
		v, err := h.format(item.Value, found, graph)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, v)
	}
	return &value.TypedList{Layout: ref, Items: items}, nil
}

// ordered walks the node chain from Head until Tail. Each node must match
// the node dataset exactly once, which binds its rest variable; a node
// that is visited twice is a cycle.
func (h *hydrator) ordered(ref layout.Ref, l *layout.OrderedList, inputs *pattern.Substitution, graph rdf.Term) (value.Typed, error) {
	sub, err := h.scope(ref, l.Header, inputs, graph)
	if err != nil {
		return nil, err
	}
	head, ok := sub.Resolve(l.Head)
	if !ok {
		return nil, newError(ErrCodePartialSubstitution, ref, "list head %s is not bound", l.Head)
	}
	tail, ok := sub.Resolve(l.Tail)
	if !ok {
		return nil, newError(ErrCodePartialSubstitution, ref, "list tail %s is not bound", l.Tail)
	}

	nodeVar, restVar := l.NodeVar(), l.RestVar()
	visited := make(map[rdf.Term]bool)
	items := []value.Typed{}

	for node := head; node != tail; {
		if visited[node] {
			return nil, &EvalError{
				Code:    ErrCodeListCycle,
				Message: fmt.Sprintf("node %s is visited twice", node),
				Layout:  ref,
				Details: map[string]string{"node": node.String()},
			}
		}
		visited[node] = true

		nsub := sub.Extend(2 + int(l.Node.Intro))
		if err := nsub.Set(nodeVar, node); err != nil {
			return nil, err
		}
		found, err := h.findOne(ref, fmt.Sprint(len(items)), l.Node.Dataset, graph, nsub)
		if err != nil {
			return nil, err
		}
		if found == nil {
			return nil, newError(ErrCodeMissingData, ref, "list node %s has no match", node)
		}
		rest, ok := found.Get(restVar)
		if !ok {
			return nil, newError(ErrCodeMissingData, ref, "list node %s has no rest", node)
		}

		v, err := h.format(l.Node.Value, found, graph)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", len(items), err)
		}
		items = append(items, v)
		node = rest
	}
	return &value.TypedList{Layout: ref, Items: items}, nil
}

// sum tries every variant the deserialization discriminants admit, in
// declaration order. Exactly one must match.
func (h *hydrator) sum(ref layout.Ref, l *layout.Sum, inputs *pattern.Substitution, graph rdf.Term) (value.Typed, error) {
	sub, err := h.scope(ref, l.Header, inputs, graph)
	if err != nil {
		return nil, err
	}
	disc, err := h.layouts.Discriminants(ref)
	if err != nil {
		return nil, err
	}

	var result *value.TypedVariant
	for i, v := range l.Variants {
		if !disc.Deserialization[i].Admits(inputs) {
			h.logger.Debug("variant pruned by discriminant", "layout", ref, "variant", v.Name)
			continue
		}

		found, err := h.findOne(ref, v.Name, v.Dataset, graph, sub.Extend(int(v.Intro)))
		if err != nil {
			return nil, err
		}
		if found == nil {
			continue
		}
		val, err := h.format(v.Value, found, graph)
		if err != nil {
			if isMismatch(err) {
				h.logger.Debug("variant does not match", "layout", ref, "variant", v.Name, "reason", err)
				continue
			}
			return nil, fmt.Errorf("variant %q: %w", v.Name, err)
		}

		if result != nil {
			return nil, &EvalError{
				Code:    ErrCodeDataAmbiguity,
				Message: fmt.Sprintf("variants %q and %q both match", result.Name, v.Name),
				Layout:  ref,
				Field:   v.Name,
			}
		}
		result = &value.TypedVariant{Layout: ref, Index: i, Name: v.Name, Value: val}
	}

	if result == nil {
		return nil, newError(ErrCodeMissingData, ref, "no variant matches")
	}
	return result, nil
}
