package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var (
	optionsLock sync.RWMutex
	options     = make(map[string]*Option)
)

// ForEachOption calls fn for each defined option. If fn returns
// and error the iteration is stopped and the error is returned.
// Note that ForEachOption does not guarantee a stable order of
// iteration between multiple calles. ForEachOption does NOT lock
// opt when calling fn.
func ForEachOption(fn func(opt *Option) error) error {
	optionsLock.RLock()
	defer optionsLock.RUnlock()

	for _, opt := range options {
		if err := fn(opt); err != nil {
			return err
		}
	}
	return nil
}

// ExportOptions exports the registered options as a JSON array, sorted by key.
func ExportOptions() ([]byte, error) {
	optionsLock.RLock()
	sorted := make([]*Option, 0, len(options))
	for _, opt := range options {
		sorted = append(sorted, opt)
	}
	optionsLock.RUnlock()

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Key < sorted[j].Key
	})

	exported := make([]string, 0, len(sorted))
	for _, opt := range sorted {
		data, err := opt.Export()
		if err != nil {
			return nil, fmt.Errorf("failed to export %s: %w", opt.Key, err)
		}
		exported = append(exported, string(data))
	}

	return []byte("[" + strings.Join(exported, ",") + "]"), nil
}

// GetOption returns the option with name or an error
// if the option does not exist. The caller should lock
// the returned option itself for further processing.
func GetOption(name string) (*Option, error) {
	optionsLock.RLock()
	defer optionsLock.RUnlock()

	opt, ok := options[name]
	if !ok {
		return nil, ErrUnknownOption
	}
	return opt, nil
}

// Register registers a new configuration option.
func Register(option *Option) error {
	if option.Name == "" {
		return fmt.Errorf("failed to register option: please set option.Name")
	}
	if option.Key == "" {
		return fmt.Errorf("failed to register option: please set option.Key")
	}
	if option.Description == "" {
		return fmt.Errorf("failed to register option: please set option.Description")
	}
	if option.OptType == 0 {
		return fmt.Errorf("failed to register option: please set option.OptType")
	}

	var err error
	if option.ValidationRegex != "" {
		option.compiledRegex, err = regexp.Compile(option.ValidationRegex)
		if err != nil {
			return newInvalidOptionError("failed to compile validation regex", err)
		}
	}

	var vErr *InvalidValueError
	option.activeFallbackValue, vErr = validateValue(option, option.DefaultValue)
	if vErr != nil {
		return newInvalidOptionError("default value failed validation", vErr)
	}

	optionsLock.Lock()
	defer optionsLock.Unlock()
	options[option.Key] = option

	return nil
}
