package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTimeOfDay(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  TimeOfDay
		expectErr bool
	}{
		{
			name:     "Hours minutes seconds",
			raw:      "01:20:05",
			expected: TimeOfDay{Hour: 1, Minute: 20, Second: 5},
		},
		{
			name:     "Hours and minutes only",
			raw:      "7:45",
			expected: TimeOfDay{Hour: 7, Minute: 45},
		},
		{
			name:     "Surrounding and inner spaces",
			raw:      "  12 : 00 : 30 ",
			expected: TimeOfDay{Hour: 12, Minute: 0, Second: 30},
		},
		{
			name:     "Full-width colon",
			raw:      "08：15",
			expected: TimeOfDay{Hour: 8, Minute: 15},
		},
		{
			name:      "Hour out of range",
			raw:       "24:00",
			expectErr: true,
		},
		{
			name:      "Minute out of range",
			raw:       "10:60",
			expectErr: true,
		},
		{
			name:      "Garbage",
			raw:       "soon",
			expectErr: true,
		},
		{
			name:      "Empty",
			raw:       "",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTimeOfDay(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestIsTimeOfDay(t *testing.T) {
	assert.True(t, IsTimeOfDay("7:45"))
	assert.True(t, IsTimeOfDay("   "))
	assert.False(t, IsTimeOfDay("25:00"))
	assert.False(t, IsTimeOfDay("1:05 PM"))
}
