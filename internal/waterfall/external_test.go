package waterfall

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopExternalProvider_AlwaysNoData(t *testing.T) {
	p := NoopExternalProvider{}
	r := runExternal(t.Context(), p, Input{})

	assert.False(t, r.Success)
	assert.Equal(t, ErrNoData.Error(), r.Error)
}
