package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{name: "empty", input: "", expect: ""},
		{name: "lowercases and collapses whitespace", input: "  Senior\tGo\n\nEngineer  ", expect: "senior go engineer"},
		{name: "replaces non ascii runs with one space", input: "Python•SQL – ML", expect: "python sql ml"},
		{name: "only non ascii", input: "•••", expect: ""},
		{name: "keeps punctuation", input: "C++ & Node.js", expect: "c++ & node.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expect, Normalize(tt.input))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{"Résumé of JANE   Doe\n", "AWS Certified • Cloud", "  a  b  "}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once))
	}
}
