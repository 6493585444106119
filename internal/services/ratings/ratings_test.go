package ratings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundAverage(t *testing.T) {
	assert.Equal(t, 4.7, RoundAverage(4.666666))
	assert.Equal(t, 3.0, RoundAverage(3.0))
	assert.Equal(t, 4.5, RoundAverage(4.45))
	assert.Equal(t, 1.0, RoundAverage(1.04))
}
