package geovalidate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shaydu/carthorse/internal/geovalidate"
)

func TestValidateBoundingBox_Valid(t *testing.T) {
	err := geovalidate.ValidateBoundingBox(-105.3, 39.9, -105.2, 40.0)
	assert.NoError(t, err)
}

func TestValidateBoundingBox_OutOfRange(t *testing.T) {
	err := geovalidate.ValidateBoundingBox(-200, 39.9, -105.2, 40.0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "longitude")
}

func TestValidateBoundingBox_Inverted(t *testing.T) {
	err := geovalidate.ValidateBoundingBox(-105.2, 40.0, -105.3, 39.9)
	assert.Error(t, err)
}

func TestValidateBoundingBox_AccumulatesAllViolations(t *testing.T) {
	err := geovalidate.ValidateBoundingBox(200, 200, -200, -200)
	var bbErr *geovalidate.BoundingBoxErrors
	if assert.ErrorAs(t, err, &bbErr) {
		assert.GreaterOrEqual(t, len(bbErr.Violations), 4)
	}
}
