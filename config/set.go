package config

import (
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/tevino/abool"
)

var (
	validityFlag     = abool.NewBool(true)
	validityFlagLock sync.RWMutex
)

// getValidityFlag returns a flag that signifies if the configuration has been changed. This flag must not be changed, only read.
func getValidityFlag() *abool.AtomicBool {
	validityFlagLock.RLock()
	defer validityFlagLock.RUnlock()
	return validityFlag
}

// signalChanges marks the configs validtityFlag as dirty.
func signalChanges() {
	// reset validity flag
	validityFlagLock.Lock()
	validityFlag.SetTo(false)
	validityFlag = abool.NewBool(true)
	validityFlagLock.Unlock()
}

// SetConfig sets the (prioritized) user defined config. Options not present
// in newValues are reset.
func SetConfig(newValues map[string]interface{}) error {
	return replaceValues(newValues, func(option *Option) **valueCache {
		return &option.activeValue
	})
}

// SetDefaultConfig sets the (fallback) default config. Options not present
// in newValues are reset.
func SetDefaultConfig(newValues map[string]interface{}) error {
	return replaceValues(newValues, func(option *Option) **valueCache {
		return &option.activeDefaultValue
	})
}

func replaceValues(newValues map[string]interface{}, target func(*Option) **valueCache) error {
	var errs *multierror.Error

	// RLock the options because we are not adding or removing
	// options from the registration but rather only update the
	// options value which is guarded by the option's lock itself
	optionsLock.RLock()
	defer optionsLock.RUnlock()

	for key, option := range options {
		newValue, ok := newValues[key]

		option.Lock()
		slot := target(option)
		*slot = nil
		if ok {
			valueCache, err := validateValue(option, newValue)
			if err == nil {
				*slot = valueCache
			} else {
				errs = multierror.Append(errs, err)
			}
		}
		handleOptionUpdate(option)
		option.Unlock()
	}

	signalChanges()

	return errs.ErrorOrNil()
}

// SetConfigOption sets a single value in the (prioritized) user defined config.
func SetConfigOption(key string, value interface{}) error {
	return setOptionValue(key, value, func(option *Option) **valueCache {
		return &option.activeValue
	})
}

// SetDefaultConfigOption sets a single value in the (fallback) default config.
func SetDefaultConfigOption(key string, value interface{}) error {
	return setOptionValue(key, value, func(option *Option) **valueCache {
		return &option.activeDefaultValue
	})
}

func setOptionValue(key string, value interface{}, target func(*Option) **valueCache) error {
	option, err := GetOption(key)
	if err != nil {
		return err
	}

	option.Lock()
	slot := target(option)
	if value == nil {
		*slot = nil
	} else {
		valueCache, vErr := validateValue(option, value)
		if vErr != nil {
			option.Unlock()
			return vErr
		}
		*slot = valueCache
	}
	handleOptionUpdate(option)
	option.Unlock()

	// finalize change, activate triggers
	signalChanges()

	return nil
}

// handleOptionUpdate must be called with the option locked.
func handleOptionUpdate(option *Option) {
	if option.Key == releaseLevelKey {
		updateReleaseLevel()
	}
}
