package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	for _, name := range []string{"all", "completed", "pending"} {
		f, err := ParseFilter(name)
		require.NoError(t, err)
		assert.Equal(t, Filter(name), f)
	}

	_, err := ParseFilter("done")
	assert.Error(t, err)
	_, err = ParseFilter("")
	assert.Error(t, err)
}

func TestFilterNext(t *testing.T) {
	assert.Equal(t, FilterCompleted, FilterAll.Next())
	assert.Equal(t, FilterPending, FilterCompleted.Next())
	assert.Equal(t, FilterAll, FilterPending.Next())
	assert.Equal(t, FilterAll, Filter("bogus").Next())
}
