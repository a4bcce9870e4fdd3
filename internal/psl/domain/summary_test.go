package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummary_RulesAndFields(t *testing.T) {
	s := Summary{
		Lines:      7,
		Normals:    4,
		Wildcards:  1,
		Exceptions: 1,
		Inserted:   1,
		Duplicates: []string{"com"},
		Malformed:  []string{"a..b", ".."},
		Drift:      3,
	}

	assert.Equal(t, 6, s.Rules())
	assert.Equal(t, map[string]any{
		"lines":      7,
		"normals":    4,
		"wildcards":  1,
		"exceptions": 1,
		"inserted":   1,
		"duplicates": 1,
		"malformed":  2,
		"drift":      3,
	}, s.Fields())
}

func TestSummary_Zero(t *testing.T) {
	var s Summary
	assert.Zero(t, s.Rules())
	assert.Equal(t, 0, s.Fields()["duplicates"])
}
