package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerTestOptions(t *testing.T) {
	t.Helper()

	for _, opt := range []*Option{
		{
			Name:            "Monkey",
			Key:             "test/monkey",
			Description:     "description",
			OptType:         OptTypeString,
			DefaultValue:    "banana",
			ValidationRegex: "^[a-z]+$",
		},
		{
			Name:         "Zebras",
			Key:          "test/zebras/zebra",
			Description:  "description",
			OptType:      OptTypeStringArray,
			DefaultValue: []string{},
		},
		{
			Name:            "Elephant",
			Key:             "test/elephant",
			Description:     "description",
			OptType:         OptTypeInt,
			DefaultValue:    1,
			ValidationRegex: "^[0-9]+$",
		},
		{
			Name:         "Hot",
			Key:          "test/hot",
			Description:  "description",
			OptType:      OptTypeBool,
			DefaultValue: false,
		},
		{
			Name:         "Snake",
			Key:          "test/snake",
			Description:  "description",
			OptType:      OptTypeInt,
			ReleaseLevel: ReleaseLevelExperimental,
			DefaultValue: 10,
		},
	} {
		require.NoError(t, Register(opt), "failed to register %s", opt.Key)
	}
}

func TestRegistry(t *testing.T) { //nolint:paralleltest // Changes global state.
	assert.NoError(t, Register(&Option{
		Name:            "name",
		Key:             "registry/key",
		Description:     "description",
		OptType:         OptTypeString,
		DefaultValue:    "water",
		ValidationRegex: "^(banana|water)$",
	}))

	assert.Error(t, Register(&Option{
		Name:            "name",
		Key:             "registry/key",
		Description:     "description",
		OptType:         0,
		DefaultValue:    "default",
		ValidationRegex: "^[A-Z][a-z]+$",
	}), "missing type must fail")

	var ioe *InvalidOptionError
	assert.ErrorAs(t, Register(&Option{
		Name:            "name",
		Key:             "registry/key",
		Description:     "description",
		OptType:         OptTypeString,
		DefaultValue:    "default",
		ValidationRegex: "[",
	}), &ioe, "invalid regex must fail")

	assert.ErrorAs(t, Register(&Option{
		Name:            "name",
		Key:             "registry/key",
		Description:     "description",
		OptType:         OptTypeString,
		DefaultValue:    "juice",
		ValidationRegex: "^(banana|water)$",
	}), &ioe, "invalid default value must fail")

	_, err := GetOption("registry/unknown")
	assert.ErrorIs(t, err, ErrUnknownOption)
}

func TestGet(t *testing.T) { //nolint:paralleltest // Changes global state.
	registerTestOptions(t)

	monkey := GetAsString("test/monkey", "none")
	zebra := GetAsStringArray("test/zebras/zebra", nil)
	elephant := Concurrent.GetAsInt("test/elephant", -1)
	hot := GetAsBool("test/hot", true)
	snake := GetAsInt("test/snake", -1)

	// registered defaults
	assert.Equal(t, "banana", monkey())
	assert.Equal(t, []string{}, zebra())
	assert.Equal(t, int64(1), elephant())
	assert.False(t, hot())
	assert.Equal(t, int64(10), snake())

	newValues, err := JSONToMap([]byte(`{
		"test": {
			"monkey": "apple",
			"zebras": {
				"zebra": ["black", "white"]
			},
			"elephant": 2,
			"hot": true,
			"snake": 20
		}
	}`))
	require.NoError(t, err)
	require.NoError(t, SetConfig(newValues))

	assert.Equal(t, "apple", monkey())
	assert.Equal(t, []string{"black", "white"}, zebra())
	assert.Equal(t, int64(2), elephant())
	assert.True(t, hot())
	// experimental option is ignored on the stable release level
	assert.Equal(t, int64(10), snake())

	require.NoError(t, SetConfigOption(releaseLevelKey, ReleaseLevelNameExperimental))
	assert.Equal(t, int64(20), snake())
	require.NoError(t, SetConfigOption(releaseLevelKey, ReleaseLevelNameStable))

	// default config sits between user config and registered default
	require.NoError(t, SetDefaultConfigOption("test/elephant", 3))
	assert.Equal(t, int64(2), elephant())
	require.NoError(t, SetConfigOption("test/elephant", nil))
	assert.Equal(t, int64(3), elephant())

	// invalid values
	var ive *InvalidValueError
	assert.ErrorAs(t, SetConfigOption("test/monkey", "Apple"), &ive)
	assert.ErrorAs(t, SetConfigOption("test/elephant", "two"), &ive)
	assert.ErrorAs(t, SetConfigOption("test/elephant", 2.5), &ive)
	assert.ErrorIs(t, SetConfigOption("test/unknown", 1), ErrUnknownOption)
	assert.Equal(t, "apple", monkey())

	// replacing the config reports every invalid value
	err = SetConfig(map[string]interface{}{
		"test/monkey":   "UPPER",
		"test/elephant": "two",
		"test/hot":      true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors occurred")
	assert.Equal(t, "banana", monkey())
	assert.True(t, hot())

	require.NoError(t, SetConfig(map[string]interface{}{}))
	require.NoError(t, SetDefaultConfig(map[string]interface{}{}))
	assert.Equal(t, int64(1), elephant())
}

func TestLoadConfigFile(t *testing.T) { //nolint:paralleltest // Changes global state.
	require.NoError(t, Register(&Option{
		Name:         "Capacity",
		Key:          "file/capacity",
		Description:  "description",
		OptType:      OptTypeInt,
		DefaultValue: 5,
	}))
	capacity := GetAsInt("file/capacity", -1)

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"file": {"capacity": 500}}`), 0o600))
	require.NoError(t, LoadConfigFile(path))
	assert.Equal(t, int64(500), capacity())

	require.NoError(t, os.WriteFile(path, []byte(`{"file": `), 0o600))
	assert.ErrorIs(t, LoadConfigFile(path), ErrInvalidJSON)

	assert.ErrorIs(t, LoadConfigFile(filepath.Join(t.TempDir(), "missing.json")), os.ErrNotExist)

	require.NoError(t, SetConfig(map[string]interface{}{}))
}

func TestExport(t *testing.T) { //nolint:paralleltest // Changes global state.
	require.NoError(t, Register(&Option{
		Name:         "Exported",
		Key:          "export/value",
		Description:  "description",
		OptType:      OptTypeInt,
		DefaultValue: 7,
	}))
	require.NoError(t, SetConfigOption("export/value", 8))
	defer func() {
		_ = SetConfigOption("export/value", nil)
	}()

	opt, err := GetOption("export/value")
	require.NoError(t, err)
	data, err := opt.Export()
	require.NoError(t, err)

	exported := make(map[string]interface{})
	require.NoError(t, json.Unmarshal(data, &exported))
	assert.Equal(t, "int", exported["OptType"])
	assert.Equal(t, float64(7), exported["DefaultValue"])
	assert.Equal(t, float64(8), exported["Value"])

	all, err := ExportOptions()
	require.NoError(t, err)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(all, &list))
	assert.NotEmpty(t, list)
}

func TestJSONToMap(t *testing.T) {
	t.Parallel()

	m, err := JSONToMap([]byte(`{
  "a": "b",
  "c": {
    "d": "e",
    "h": {
      "i": "j",
      "m": {
        "n": "o"
      }
    }
  }
}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"a":       "b",
		"c/d":     "e",
		"c/h/i":   "j",
		"c/h/m/n": "o",
	}, m)

	_, err = JSONToMap([]byte(`{"a":`))
	assert.ErrorIs(t, err, ErrInvalidJSON)
}
