package config

import (
	"encoding/json"
	"regexp"
	"sync"

	"github.com/tidwall/sjson"
)

// OptionType defines the value type of an option.
type OptionType uint8

// Various attribute options. Use ExternalOptType for extended types in the frontend.
const (
	optTypeAny         OptionType = 0
	OptTypeString      OptionType = 1
	OptTypeStringArray OptionType = 2
	OptTypeInt         OptionType = 3
	OptTypeBool        OptionType = 4
)

func getTypeName(t OptionType) string {
	switch t {
	case optTypeAny:
		return "any"
	case OptTypeString:
		return "string"
	case OptTypeStringArray:
		return "[]string"
	case OptTypeInt:
		return "int"
	case OptTypeBool:
		return "bool"
	default:
		return "unknown"
	}
}

// ExpertiseLevel allows to group settings by user expertise.
type ExpertiseLevel uint8

// Expertise Level constants.
const (
	ExpertiseLevelUser      ExpertiseLevel = 0
	ExpertiseLevelExpert    ExpertiseLevel = 1
	ExpertiseLevelDeveloper ExpertiseLevel = 2

	ExpertiseLevelNameUser      = "user"
	ExpertiseLevelNameExpert    = "expert"
	ExpertiseLevelNameDeveloper = "developer"
)

// Option describes a configuration option.
type Option struct {
	sync.Mutex

	// Name holds the name of the configuration options.
	// It should be human readable and is mainly used for
	// presentation purposes.
	// Name is considered immutable after the option has
	// been created.
	Name string
	// Key holds the database path for the option. It should
	// follow the path format `category/sub/key`.
	// Key is considered immutable after the option has
	// been created.
	Key string
	// Description holds a human readable description of the
	// option and what is does.
	Description string
	// OptType defines the type of the option.
	OptType OptionType
	// ExpertiseLevel can be used to set the required expertise
	// level for the option to be displayed to a user.
	ExpertiseLevel ExpertiseLevel
	// ReleaseLevel is used to mark the stability of the option.
	// Values of options with a higher release level than the
	// currently active one are ignored.
	ReleaseLevel ReleaseLevel
	// RequiresRestart should be set to true if a modification of
	// the options value requires a restart of the whole application
	// to take effect.
	RequiresRestart bool
	// DefaultValue holds the default value of the option. Note that
	// this value can be overwritten during runtime (see activeDefaultValue
	// and activeFallbackValue).
	DefaultValue interface{}
	// ValidationRegex may contain a regular expression used to validate
	// the value of option. If the option type is set to OptTypeStringArray
	// the validation regex is applied to all entries of the string slice.
	ValidationRegex string

	compiledRegex *regexp.Regexp

	// activeValue holds the value as set by the user.
	activeValue *valueCache
	// activeDefaultValue holds the currently set default value, which
	// overrides the DefaultValue set at registration.
	activeDefaultValue *valueCache
	// activeFallbackValue holds the validated DefaultValue.
	activeFallbackValue *valueCache
}

type exportedOption struct {
	Name            string
	Key             string
	Description     string
	OptType         string
	ExpertiseLevel  ExpertiseLevel
	ReleaseLevel    ReleaseLevel
	RequiresRestart bool
	DefaultValue    interface{}
	ValidationRegex string `json:",omitempty"`
}

// Export exports an option to JSON, including its currently active values.
func (option *Option) Export() ([]byte, error) {
	option.Lock()
	defer option.Unlock()

	return option.export()
}

func (option *Option) export() ([]byte, error) {
	data, err := json.Marshal(&exportedOption{
		Name:            option.Name,
		Key:             option.Key,
		Description:     option.Description,
		OptType:         getTypeName(option.OptType),
		ExpertiseLevel:  option.ExpertiseLevel,
		ReleaseLevel:    option.ReleaseLevel,
		RequiresRestart: option.RequiresRestart,
		DefaultValue:    option.DefaultValue,
		ValidationRegex: option.ValidationRegex,
	})
	if err != nil {
		return nil, err
	}

	if option.activeValue != nil {
		data, err = sjson.SetBytes(data, "Value", option.activeValue.getData(option))
		if err != nil {
			return nil, err
		}
	}

	if option.activeDefaultValue != nil {
		data, err = sjson.SetBytes(data, "DefaultValue", option.activeDefaultValue.getData(option))
		if err != nil {
			return nil, err
		}
	}

	return data, nil
}
