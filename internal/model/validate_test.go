package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsValidJob(t *testing.T) {
	err := Validate([]Object{NewObject("A", 10, 10, 1)}, NewSheet(100, 100), DefaultParameters())
	assert.NoError(t, err)
}

func TestValidateRejectsEmptyBatch(t *testing.T) {
	err := Validate(nil, NewSheet(100, 100), DefaultParameters())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Contains(t, err.Error(), "objects")
}

func TestValidateRejectsBadFields(t *testing.T) {
	obj := NewObject("A", 10, 10, 1)
	obj.RemainingCopies = 5
	params := DefaultParameters()
	params.ItemToItem = -1

	err := Validate([]Object{obj}, NewSheet(0, 100), params)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "objects[0].remaining_copies")
	assert.Contains(t, err.Error(), "sheet.width")
	assert.Contains(t, err.Error(), "parameters.item_to_item")
}

func TestValidateRejectsZeroTotalCopies(t *testing.T) {
	err := Validate([]Object{NewObject("A", 10, 10, 0)}, NewSheet(100, 100), DefaultParameters())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
