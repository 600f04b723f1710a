package hindex

import (
	"testing"

	"github.com/hupe1980/hindex/model"
	"github.com/stretchr/testify/assert"
)

func TestPropertiesClone(t *testing.T) {
	assert.Nil(t, Properties(nil).Clone())

	props := Properties{"symbol.table": "a:1"}
	clone := props.Clone()
	clone["symbol.table"] = "b:2"

	assert.Equal(t, "a:1", props["symbol.table"])
	assert.Equal(t, "b:2", clone["symbol.table"])
}

func TestErrUnsupportedRequest(t *testing.T) {
	err := NewErrUnsupportedRequest(model.OpBetween)
	assert.EqualError(t, err, "unsupported request: between")

	var target *ErrUnsupportedRequest
	assert.ErrorAs(t, err, &target)
	assert.Equal(t, model.OpBetween, target.Op)
}
