package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "crlf and tabs", in: "a\r\nb\tc", want: "a\nb c"},
		{name: "blank runs collapse", in: "a\n\n\n\n\nb", want: "a\n\nb"},
		{name: "ruler lines dropped", in: "a\n______\nb", want: "a\n\nb"},
		{name: "dates untouched", in: "od 01.01.2024. do 05.06.2025", want: "od 01.01.2024. do 05.06.2025"},
		{name: "form feed", in: "page1\fpage2", want: "page1\npage2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestHeuristicConfidence(t *testing.T) {
	low := heuristicConfidence("~~ ## ..")
	high := heuristicConfidence("1. Dozvola za boravak i rad vrijedi od 01.01.2024. do 01.01.2025")
	assert.InDelta(t, 0.2, low, 0.001)
	assert.Greater(t, high, low)
	assert.LessOrEqual(t, high, float32(1.0))
}
