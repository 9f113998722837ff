package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Avaliação Clínica", "avaliacao clinica"},
		{"DOR DE CABEÇA", "dor de cabeca"},
		{"já é", "ja e"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(tt.in))
		})
	}
}

func TestStripPunctuation(t *testing.T) {
	assert.Equal(t, "olá tudo bem", StripPunctuation("olá, tudo bem?"))
	assert.Equal(t, "dorcabeca", StripPunctuation("dor-cabeca"))
}

func TestContainsAny(t *testing.T) {
	needle, ok := ContainsAny("Não, é só isso", []string{"nada", "não"})
	assert.True(t, ok)
	assert.Equal(t, "não", needle)

	_, ok = ContainsAny("nao tenho mais nada a dizer", []string{"não"})
	assert.True(t, ok)

	_, ok = ContainsAny("sinto dor", []string{"", "febre"})
	assert.False(t, ok)
}

func TestContainsWord(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"seu idiota!", true},
		{"Foda-se isso", true},
		{"meu computador quebrou", false},
		{"IDIOTA", true},
		{"estúpido", true},
		{"", false},
	}
	phrases := []string{"idiota", "puta", "foda-se", "estupido"}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			_, ok := ContainsWord(tt.text, phrases)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestMatchAnchored(t *testing.T) {
	exact := []string{"onde estou"}
	prefix := []string{"consulta com dr ricardo"}

	tests := []struct {
		text string
		want bool
	}{
		{"Onde estou?", true},
		{"onde estou sentindo a dor", false},
		{"consulta com Dr. Ricardo", true},
		{"consulta com dr ricardo amanhã", true},
		{"marquei uma consulta com dr ricardo", false},
		{"   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			_, ok := MatchAnchored(tt.text, exact, prefix)
			assert.Equal(t, tt.want, ok)
		})
	}
}
