package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExplain(t *testing.T) {
	tests := []struct {
		name    string
		amounts []string
		index   int
		want    string
	}{
		{
			name:    "ratio above 3",
			amounts: []string{"10", "10", "10", "10", "100"},
			index:   4,
			want:    "This expense is 3.6x higher than your average Fuel spending.",
		},
		{
			name:    "ratio above 1.5",
			amounts: []string{"10", "10", "10", "10", "60"},
			index:   4,
			want:    "This expense is significantly higher than your typical Fuel transactions.",
		},
		{
			name:    "largest expense",
			amounts: []string{"10", "12"},
			index:   1,
			want:    "This is your largest recorded expense in the Fuel category.",
		},
		{
			name:    "unusual pattern",
			amounts: []string{"10", "12"},
			index:   0,
			want:    "This Fuel expense has an unusual pattern (timing, amount, or frequency) compared to your typical spending.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			all := expenses("fuel", tt.amounts...)
			tx := all[tt.index]
			tx.CategoryName = "Fuel"
			assert.Equal(t, tt.want, Explain(tx, all))
		})
	}
}

func TestExplain_EmptyCategoryName(t *testing.T) {
	all := expenses("fuel", "10", "12")
	assert.Equal(t, "This is your largest recorded expense in the category.", Explain(all[1], all))
}
