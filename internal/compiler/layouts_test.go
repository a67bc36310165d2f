package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/distill/internal/layout"
	"github.com/roach88/distill/internal/pattern"
	"github.com/roach88/distill/internal/rdf"
	"github.com/roach88/distill/internal/testutil"
)

func TestLoadDir_MatchesHandBuiltRegistry(t *testing.T) {
	reg, err := LoadDir("testdata/layouts")
	require.NoError(t, err)

	want := testutil.Registry()
	assert.Equal(t, want.Refs(), reg.Refs())
	for _, ref := range want.Refs() {
		expected, _ := want.Get(ref)
		got, ok := reg.Get(ref)
		require.True(t, ok, "layout %q", ref)
		assert.Equal(t, expected, got, "layout %q", ref)
	}
	assert.Empty(t, Validate(reg))
}

func TestLoadFile(t *testing.T) {
	reg, err := LoadFile("testdata/recursive.cue")
	require.NoError(t, err)
	assert.Equal(t, 4, reg.Len())

	l, ok := reg.Get("tree")
	require.True(t, ok)
	tree := l.(*layout.Product)
	assert.True(t, tree.Fields["label"].Required)
	assert.False(t, tree.Fields["children"].Required)
	assert.Equal(t, layout.Ref("forest"), tree.Fields["children"].Value.Layout)
}

func TestLoad_DirOrFile(t *testing.T) {
	reg, err := Load("testdata/layouts")
	require.NoError(t, err)
	assert.Equal(t, 17, reg.Len())

	reg, err = Load("testdata/recursive.cue")
	require.NoError(t, err)
	assert.Equal(t, 4, reg.Len())

	_, err = Load("testdata/missing")
	assert.Error(t, err)
}

func TestCompileLayouts_Defaults(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		layouts: {
			flag: {type: "literal", literal: "boolean"}
			blob: {type: "literal", literal: "bytes"}
			ref:  {type: "literal", literal: "id", pattern: "http://.*"}
			pair: {type: "always", input: 2, intro: 1, dataset: ["?0 <http://example.org/p> ?2", "?2 <http://example.org/q> ?1"]}
		}
	`)

	reg, err := CompileLayouts(v)
	require.NoError(t, err)

	flag, _ := reg.Get("flag")
	assert.Equal(t, rdf.XSDBoolean, flag.(*layout.Literal).Datatype)
	assert.Equal(t, uint32(1), flag.Signature().Input, "input defaults to 1")

	blob, _ := reg.Get("blob")
	assert.Equal(t, rdf.XSDBase64Binary, blob.(*layout.Literal).Datatype)

	ref, _ := reg.Get("ref")
	lit := ref.(*layout.Literal)
	assert.Empty(t, lit.Datatype)
	require.NotNil(t, lit.Pattern)
	assert.True(t, lit.Pattern.Accepts("http://example.org/"))

	pair, _ := reg.Get("pair")
	hdr := pair.Signature()
	assert.Equal(t, uint32(3), hdr.Width())
	require.Len(t, hdr.Dataset, 2)
	assert.Equal(t, pattern.Var(2), hdr.Dataset[0].Object)
}

func TestCompileLayouts_Graphs(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		layouts: {
			text: {type: "literal", literal: "text"}
			doc: {
				type: "product"
				fields: {
					about: {value: {layout: "text", input: ["?0"], graph: "<http://example.org/g>"}}
					local: {intro: 1, value: {layout: "text", input: ["?0"], graph: "?1"}}
					title: {value: {layout: "text", input: ["?0"], graph: "default"}}
					plain: {value: {layout: "text", input: ["?0"]}}
				}
			}
		}
	`)

	reg, err := CompileLayouts(v)
	require.NoError(t, err)
	l, _ := reg.Get("doc")
	fields := l.(*layout.Product).Fields

	assert.Equal(t, pattern.ExplicitGraph(pattern.Resource(rdf.IRI("http://example.org/g"))), fields["about"].Value.Graph)
	assert.Equal(t, pattern.ExplicitGraph(pattern.Var(1)), fields["local"].Value.Graph)
	assert.Equal(t, pattern.DefaultGraph(), fields["title"].Value.Graph)
	assert.Equal(t, pattern.InheritGraph(), fields["plain"].Value.Graph)
}

func TestCompileLayouts_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "missing layouts",
			source: `other: 1`,
			want:   "layouts is required",
		},
		{
			name:   "unknown type",
			source: `layouts: x: {type: "tree"}`,
			want:   "layouts.x",
		},
		{
			name:   "unknown field",
			source: `layouts: x: {type: "never", colour: "red"}`,
			want:   "layouts.x",
		},
		{
			name:   "bad quad pattern",
			source: `layouts: x: {type: "never", dataset: ["?0 <p>"]}`,
			want:   "expected 3 or 4 components",
		},
		{
			name:   "bad variable",
			source: `layouts: x: {type: "ordered", head: "?a", tail: "?0", node: {value: {layout: "x"}}}`,
			want:   "invalid variable",
		},
		{
			name:   "bad regular expression",
			source: `layouts: x: {type: "literal", literal: "text", pattern: "[a-"}`,
			want:   "pattern",
		},
		{
			name:   "negative count",
			source: `layouts: x: {type: "never", input: -1}`,
			want:   "layouts.x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := cuecontext.New().CompileString(tt.source)
			_, err := CompileLayouts(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCompileLayouts_SyntaxErrorHasPosition(t *testing.T) {
	v := cuecontext.New().CompileString("layouts: {", cue.Filename("bad.cue"))
	_, err := CompileLayouts(v)
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, err.Error(), "bad.cue")
}
