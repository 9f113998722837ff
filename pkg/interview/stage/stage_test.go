package stage

import (
	"strings"
	"testing"

	"noa-assistant-be/pkg/interview/variables"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_LoadsInterviewTable(t *testing.T) {
	table, err := Default()
	require.NoError(t, err)

	assert.Equal(t, 26, table.Len())

	first, ok := table.At(0)
	require.True(t, ok)
	assert.Equal(t, "inicio", first.ID)
	assert.Equal(t, "apresentacao", first.Variable)

	last, ok := table.At(table.Len() - 1)
	require.True(t, ok)
	assert.Equal(t, "final", last.ID)
	assert.True(t, last.IsNarration())

	repeating := 0
	for _, s := range table.Stages() {
		if s.Repeats() {
			repeating++
			assert.NotEmpty(t, s.Variable, s.ID)
		}
	}
	assert.Equal(t, 5, repeating)

	_, ok = table.At(table.Len())
	assert.False(t, ok)
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "empty",
			doc:  "stages: []",
		},
		{
			name: "gap in order",
			doc: `
stages:
  - {id: a, order: 0, prompt: x}
  - {id: b, order: 2, prompt: y}`,
		},
		{
			name: "duplicate id",
			doc: `
stages:
  - {id: a, order: 0, prompt: x}
  - {id: a, order: 1, prompt: y}`,
		},
		{
			name: "repeat without variable",
			doc: `
stages:
  - {id: a, order: 0, prompt: x, repeat: until_negation}`,
		},
		{
			name: "unknown policy",
			doc: `
stages:
  - {id: a, order: 0, prompt: x, variable: v, repeat: forever}`,
		},
		{
			name: "fallback with braces",
			doc: `
fallback: "{{x}}"
stages:
  - {id: a, order: 0, prompt: x}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidTable)
		})
	}
}

func TestParse_SortsByOrderAndDefaultsPolicy(t *testing.T) {
	table, err := Parse([]byte(`
stages:
  - {id: b, order: 1, prompt: y, variable: vb}
  - {id: a, order: 0, prompt: x, variable: va}`))
	require.NoError(t, err)

	s, _ := table.At(0)
	assert.Equal(t, "a", s.ID)
	assert.Equal(t, RepeatOnce, s.Repeat)

	idx, ok := table.Index("b")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, DefaultFallback, table.Fallback())
}

func TestRender(t *testing.T) {
	table, err := Default()
	require.NoError(t, err)

	tests := []struct {
		name           string
		template       string
		setup          func(v *variables.Store)
		want           string
		wantUnresolved []string
	}{
		{
			name:           "missing queixa falls back",
			template:       "Onde você sente {{queixa}}?",
			setup:          func(v *variables.Store) {},
			want:           "Onde você sente isso?",
			wantUnresolved: []string{"queixa"},
		},
		{
			name:     "main complaint preferred",
			template: "Onde você sente {{queixa}}?",
			setup: func(v *variables.Store) {
				v.Append("motivos_detalhados", "tontura")
				v.Set("queixaPrincipal", "dor lombar")
			},
			want: "Onde você sente dor lombar?",
		},
		{
			name:     "first listed reason when no main complaint",
			template: "Onde você sente {{queixa}}?",
			setup: func(v *variables.Store) {
				v.Append("motivos_detalhados", "tontura")
				v.Append("motivos_detalhados", "insônia")
			},
			want: "Onde você sente tontura?",
		},
		{
			name:           "malformed placeholder",
			template:       "Olá {{ nome completo }}!",
			setup:          func(v *variables.Store) {},
			want:           "Olá isso!",
			wantUnresolved: []string{"nome completo"},
		},
		{
			name:     "value carrying braces cannot leak a token",
			template: "Sobre {{queixa}}}",
			setup: func(v *variables.Store) {
				v.Set("queixaPrincipal", "{{{x")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := variables.New()
			tt.setup(vars)

			got, unresolved := table.Render(tt.template, vars)
			assert.NotRegexp(t, `\{\{.*?\}\}`, got)
			if tt.want != "" {
				assert.Equal(t, tt.want, got)
			}
			if tt.wantUnresolved != nil {
				assert.Equal(t, tt.wantUnresolved, unresolved)
			}
		})
	}
}

func TestRender_EveryStagePromptIsClean(t *testing.T) {
	table, err := Default()
	require.NoError(t, err)

	empty := variables.New()
	for _, s := range table.Stages() {
		got, _ := table.Render(s.Prompt, empty)
		assert.False(t, strings.Contains(got, "{{"), s.ID)
	}
}
