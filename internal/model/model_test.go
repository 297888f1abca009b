package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"Preset", &Preset{}, "presets"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestPreset_BeforeCreate(t *testing.T) {
	p := &Preset{Name: "ridge"}
	require.NoError(t, p.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, p.ID)

	id := uuid.New()
	p = &Preset{ID: id}
	require.NoError(t, p.BeforeCreate(nil))
	assert.Equal(t, id, p.ID, "existing id is kept")
}
