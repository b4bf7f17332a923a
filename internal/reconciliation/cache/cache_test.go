package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyIsScopedByGeneration(t *testing.T) {
	assert.Equal(t, "idgov:dashboard:7:sap", Key("sap", 7))
	assert.NotEqual(t, Key("sap", 7), Key("sap", 8))
	assert.NotEqual(t, Key("sap", 7), Key("geral", 7))
}
