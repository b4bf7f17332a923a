package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "idgov/pkg/domain-errors"
)

func TestParseSystemName(t *testing.T) {
	t.Run("rejects empty and blank names", func(t *testing.T) {
		for _, in := range []string{"", "   ", "\t"} {
			_, err := ParseSystemName(in)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})

	t.Run("rejects names over the length limit", func(t *testing.T) {
		_, err := ParseSystemName(strings.Repeat("a", MaxSystemNameLength+1))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts names at the length limit", func(t *testing.T) {
		name, err := ParseSystemName(strings.Repeat("é", MaxSystemNameLength))
		require.NoError(t, err)
		assert.Len(t, []rune(name.String()), MaxSystemNameLength)
	})

	t.Run("rejects control characters", func(t *testing.T) {
		_, err := ParseSystemName("SAP\x00")
		require.Error(t, err)
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		name, err := ParseSystemName("  SAP ")
		require.NoError(t, err)
		assert.Equal(t, SystemName("SAP"), name)
	})
}

func TestSystemNameComparison(t *testing.T) {
	assert.True(t, SystemName("sap").Equal("SAP"))
	assert.False(t, SystemName("SAP").Equal("AD"))
	assert.True(t, SystemName("rh").IsHR())
	assert.True(t, SystemName("Rh").IsHR())
	assert.False(t, SystemName("RHX").IsHR())
	assert.True(t, SystemName("GERAL").IsGlobal())
	assert.Equal(t, SystemName("Sap").Key(), SystemName("sAP").Key())
}
