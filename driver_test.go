package pgengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRow(t *testing.T) {
	r := newRow([]string{"id", "name"}, []any{7, "ana"})

	assert.Equal(t, []string{"id", "name"}, r.Columns())
	assert.Equal(t, []any{7, "ana"}, r.Values())
	assert.Equal(t, 7, r.Get(0))
	assert.Equal(t, "ana", r.Get(1))
	assert.Equal(t, map[string]any{"id": 7, "name": "ana"}, r.Map())
}

func TestRow_Empty(t *testing.T) {
	r := newRow(nil, nil)

	assert.Empty(t, r.Columns())
	assert.Empty(t, r.Values())
	assert.Empty(t, r.Map())
}
