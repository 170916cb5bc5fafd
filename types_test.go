package cloudpad_test

import (
	"strings"
	"testing"
	"time"

	"github.com/cloudpad/cloudpad"
	"github.com/stretchr/testify/assert"
)

func TestPutOptions_WithDefaults(t *testing.T) {
	t.Run("empty content type gets default", func(t *testing.T) {
		got := cloudpad.PutOptions{CacheControl: "no-cache"}.WithDefaults()
		assert.Equal(t, cloudpad.DefaultContentType, got.ContentType)
		assert.Equal(t, "no-cache", got.CacheControl)
	})

	t.Run("explicit content type is kept", func(t *testing.T) {
		got := cloudpad.PutOptions{ContentType: "text/plain"}.WithDefaults()
		assert.Equal(t, "text/plain", got.ContentType)
	})
}

func TestMetaData_Info(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	m := cloudpad.MetaData{
		Key:         "a.txt",
		ContentType: "text/plain",
		ETag:        "abc",
		Size:        3,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}

	assert.Equal(t, cloudpad.ObjectInfo{
		Key:         "a.txt",
		Size:        3,
		Uploaded:    updated,
		ETag:        "abc",
		ContentType: "text/plain",
	}, m.Info())
}

func TestObject_Close(t *testing.T) {
	assert.NoError(t, cloudpad.Object{}.Close())
}

func TestIsValidTableName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{name: "simple", input: "metadata", valid: true},
		{name: "underscore prefix", input: "_meta", valid: true},
		{name: "with digits", input: "meta_data_2", valid: true},
		{name: "uppercase", input: "MetaData", valid: false},
		{name: "leading digit", input: "1meta", valid: false},
		{name: "dash", input: "meta-data", valid: false},
		{name: "sql injection", input: "meta; DROP TABLE x", valid: false},
		{name: "empty", input: "", valid: false},
		{name: "63 chars", input: strings.Repeat("a", 63), valid: true},
		{name: "64 chars", input: strings.Repeat("a", 64), valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, cloudpad.IsValidTableName(tt.input))
		})
	}
}

func TestTables_Validate(t *testing.T) {
	assert.NoError(t, cloudpad.Tables{MetaData: "cloudpad_metadata"}.Validate())
	assert.Error(t, cloudpad.Tables{}.Validate())
	assert.Error(t, cloudpad.Tables{MetaData: "Bad Name"}.Validate())
}
