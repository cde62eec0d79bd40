package blocks

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescending(t *testing.T) {
	tests := []struct {
		name  string
		start uint64
		count int
		want  []uint64
	}{
		{name: "bounded by count", start: 10, count: 3, want: []uint64{10, 9, 8}},
		{name: "bounded by genesis", start: 2, count: 5, want: []uint64{2, 1}},
		{name: "start at genesis", start: 0, count: 5, want: nil},
		{name: "negative count", start: 10, count: -1, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slices.Collect(Descending(tt.start, tt.count)))
		})
	}
}

func TestDescending_EarlyBreak(t *testing.T) {
	var seen []uint64
	for h := range Descending(100, 50) {
		seen = append(seen, h)
		if h == 98 {
			break
		}
	}
	assert.Equal(t, []uint64{100, 99, 98}, seen)
}

func TestParseRef(t *testing.T) {
	ref, err := ParseRef("latest")
	assert.NoError(t, err)
	assert.True(t, ref.IsLatest())
	assert.Nil(t, ref.Number())

	ref, err = ParseRef("6130")
	assert.NoError(t, err)
	assert.Equal(t, "6130", ref.String())
	assert.Equal(t, int64(6130), ref.Number().Int64())

	_, err = ParseRef("-3")
	assert.Error(t, err)
}
