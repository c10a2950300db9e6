package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeText(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		text string
		out  []string
	}{
		{text: "", out: []string{}},
		{text: "Hello, World!", out: []string{"hello", "world"}},
		{text: "Gdańsk", out: []string{"gdansk"}},
		{text: "what's   the  deal?", out: []string{"what", "s", "the", "deal"}},
		{text: "C++ and Go, side-by-side", out: []string{"c", "and", "go", "side", "by", "side"}},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, TokenizeText(fix.text))
	}
}
