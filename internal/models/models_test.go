package models

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func TestColumnSizesMatchTags(t *testing.T) {
	tests := []struct {
		model  any
		column string
		size   int
	}{
		{&Identity{}, "user_id", UserIDSize},
		{&Session{}, "id", SessionIDSize},
		{&Session{}, "user_id", UserIDSize},
		{&Session{}, "app_version", AppVersionSize},
		{&HardwareProfile{}, "user_id", UserIDSize},
		{&HardwareProfile{}, "os", OSSize},
		{&HardwareProfile{}, "os_version", OSVersionSize},
		{&HardwareProfile{}, "ram", RAMSize},
		{&HardwareProfile{}, "gpu", GPUSize},
		{&HardwareProfile{}, "cpu", CPUSize},
		{&Event{}, "user_id", UserIDSize},
		{&Event{}, "type", EventTypeSize},
	}
	for _, tt := range tests {
		s, err := schema.Parse(tt.model, &sync.Map{}, schema.NamingStrategy{})
		require.NoError(t, err)
		field := s.LookUpField(tt.column)
		require.NotNil(t, field, "%s.%s", s.Table, tt.column)
		assert.Equal(t, tt.size, field.Size, "%s.%s", s.Table, tt.column)
	}
}
