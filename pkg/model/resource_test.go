package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResourceType(t *testing.T) {
	tests := map[string]ResourceType{
		"String":      TypeString,
		"integer":     TypeInteger,
		"Objlnk":      TypeObjectLink,
		"Object Link": TypeObjectLink,
		"Boolean":     TypeBoolean,
		"FLOAT":       TypeFloat,
		"Time":        TypeTime,
		"Opaque":      TypeOpaque,
		"":            TypeNone,
	}
	for name, want := range tests {
		got, err := ParseResourceType(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseResourceType("Corelnk2")
	assert.Error(t, err)
}

func TestOperations(t *testing.T) {
	ops := ParseOperations("rw")
	assert.True(t, ops.CanRead())
	assert.True(t, ops.CanWrite())
	assert.False(t, ops.CanExecute())
	assert.Equal(t, "RW", ops.String())
	assert.Equal(t, OpsReadWrite, ops)

	assert.Equal(t, "E", ParseOperations("E").String())
	assert.Equal(t, OpsNone, ParseOperations(""))
}

func TestParseObjectLink(t *testing.T) {
	link, err := ParseObjectLink("3:0")
	require.NoError(t, err)
	assert.Equal(t, ObjectLink{ObjectID: 3, InstanceID: 0}, link)
	assert.Equal(t, "3:0", link.String())

	for _, bad := range []string{"", "3", "3:", ":0", "a:b", "3/0", "70000:1"} {
		_, err := ParseObjectLink(bad)
		assert.ErrorIs(t, err, ErrInvalidObjectLink, bad)
	}
}

func TestObjectModelResource(t *testing.T) {
	var device *ObjectModel
	for _, m := range LoadDefault() {
		if m.ID == ObjectDevice {
			device = m
		}
	}
	require.NotNil(t, device)

	battery := device.Resource(9)
	require.NotNil(t, battery)
	assert.Equal(t, ResourceDescriptor{Type: TypeInteger, Multiple: false}, battery.Descriptor())

	errCode := device.Resource(11)
	require.NotNil(t, errCode)
	assert.True(t, errCode.Descriptor().Multiple)

	assert.Nil(t, device.Resource(999))

	var missing *ObjectModel
	assert.Nil(t, missing.Resource(0))
}
