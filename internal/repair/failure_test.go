package repair

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestCategorizeFailure(t *testing.T) {
	tests := []struct {
		reason *string
		want   FailureCategory
	}{
		{nil, CategoryUnknown},
		{strPtr(""), CategoryOther},
		{strPtr("   "), CategoryOther},
		{strPtr("too expensive to fix"), CategoryNotEconomical},
		{strPtr("Repair was NOT ECONOMICAL"), CategoryNotEconomical},
		{strPtr("parts cost more than a new tool"), CategoryNotEconomical},
		{strPtr("water damage to the board"), CategoryWaterCorrosion},
		{strPtr("heavy rust on the gears"), CategoryWaterCorrosion},
		{strPtr("battery acid leak"), CategoryWaterCorrosion},
		{strPtr("switch is obsolete"), CategoryPartsUnavailable},
		{strPtr("replacement part did not fit"), CategoryPartsUnavailable},
		{strPtr("motor windings burnt"), CategorySevereDamage},
		{strPtr("housing melted"), CategorySevereDamage},
		{strPtr("faulty circuit board"), CategoryComponentFailure},
		{strPtr("dead battery pack"), CategoryComponentFailure},
		{strPtr("owner lost interest"), CategoryOther},
	}

	for _, tt := range tests {
		name := "<nil>"
		if tt.reason != nil {
			name = *tt.reason
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, CategorizeFailure(tt.reason))
		})
	}
}

func TestCategorizeFailure_GroupPriority(t *testing.T) {
	// Economic keywords outrank everything else.
	assert.Equal(t, CategoryNotEconomical, CategorizeFailureText("burnt board, not worth fixing"))
	assert.Equal(t, CategoryNotEconomical, CategorizeFailureText("water damage made it too expensive"))
	// Corrosion outranks component failure.
	assert.Equal(t, CategoryWaterCorrosion, CategorizeFailureText("corrosion on the controller"))
	// Severe damage outranks component failure.
	assert.Equal(t, CategorySevereDamage, CategorizeFailureText("controller destroyed"))
}

func TestFailureCategories(t *testing.T) {
	assert.Equal(t, []FailureCategory{
		CategoryNotEconomical,
		CategoryWaterCorrosion,
		CategoryPartsUnavailable,
		CategorySevereDamage,
		CategoryComponentFailure,
		CategoryOther,
		CategoryUnknown,
	}, FailureCategories())
}

func TestParseFailureCategory(t *testing.T) {
	c, ok := ParseFailureCategory("water/corrosion")
	assert.True(t, ok)
	assert.Equal(t, CategoryWaterCorrosion, c)

	_, ok = ParseFailureCategory("bad luck")
	assert.False(t, ok)
}
