package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/safing/seedcache/log"
	"github.com/safing/seedcache/modules"
)

var configFilePath string

func init() {
	modules.Register("config", nil, start, nil)

	flag.StringVar(&configFilePath, "config", "", "load settings from the given json file")
}

func start() error {
	if configFilePath == "" {
		return nil
	}

	err := LoadConfigFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warningf("config: config file %s does not exist, using defaults", configFilePath)
			return nil
		}
		return err
	}

	log.Infof("config: loaded settings from %s", configFilePath)
	return nil
}

// LoadConfigFile reads a hierarchical json file and applies it as the user
// defined config.
func LoadConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	newValues, err := JSONToMap(data)
	if err != nil {
		return err
	}

	return SetConfig(newValues)
}

// JSONToMap parses and flattens a hierarchical json object.
func JSONToMap(jsonData []byte) (map[string]interface{}, error) {
	if !gjson.ValidBytes(jsonData) {
		return nil, ErrInvalidJSON
	}

	loaded := make(map[string]interface{})
	err := json.Unmarshal(jsonData, &loaded)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidData, err)
	}

	flatten(loaded, loaded, "")
	return loaded, nil
}

func flatten(rootMap, subMap map[string]interface{}, subKey string) {
	for key, entry := range subMap {
		// get next level key
		subbedKey := key
		if subKey != "" {
			subbedKey = fmt.Sprintf("%s/%s", subKey, key)
		}

		// check for next subMap
		nextSub, ok := entry.(map[string]interface{})
		if ok {
			flatten(rootMap, nextSub, subbedKey)
			delete(rootMap, key)
		} else if subKey != "" {
			// only set if not on root level
			rootMap[subbedKey] = entry
		}
	}
}
