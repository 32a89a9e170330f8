// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package configuration

import (
	"fmt"
	"math/big"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	ConfigName     = "crowdfunding"
	ConfigType     = "yaml"
	ConfigFilePath = ConfigName + "." + ConfigType
)

func Load() *Configuration {
	printWorkingDir()
	actual := load(".", ".artifacts")
	printConfig(actual)
	return actual
}

func load(configPathList ...string) *Configuration {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("crowdfunding")
	v.SetConfigName(ConfigName)
	v.SetConfigType(ConfigType)
	for _, path := range configPathList {
		v.AddConfigPath(path)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Warnf("config file not found (file=%v). Default configuration is used", ConfigFilePath)
		} else {
			log.Error(errors.Wrapf(err, "failed to load config. Default configuration is used"))
		}
		return Default()
	}

	actual := Default()
	// DecodeHook replaces viper's default hooks, so they are listed again.
	err := v.Unmarshal(actual, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		toBigIntHookFunc(),
		toAddressHookFunc(),
	)))
	if err != nil {
		log.Error(errors.Wrapf(err, "failed to unmarshal config into configuration structure. Default configuration is used"))
		return Default()
	}
	return actual
}

func toBigIntHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != reflect.TypeOf(big.NewInt(0)) {
			return data, nil
		}

		switch f {
		case reflect.TypeOf(""):
			res, ok := new(big.Int).SetString(strings.TrimSpace(data.(string)), 10)
			if !ok {
				return data, errors.Errorf("failed to parse big.Int, input %v", data)
			}
			return res, nil
		case reflect.TypeOf(0):
			return big.NewInt(int64(data.(int))), nil
		}
		return data, nil
	}
}

func toAddressHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != reflect.TypeOf(common.Address{}) || f != reflect.TypeOf("") {
			return data, nil
		}
		s := strings.TrimSpace(data.(string))
		if !common.IsHexAddress(s) {
			return data, errors.Errorf("failed to parse address, input %v", data)
		}
		return common.HexToAddress(s), nil
	}
}

// Validate checks the values no component can start without.
func (c *Configuration) Validate() error {
	switch c.Journal.Backend {
	case JournalMemory, JournalPostgres:
	default:
		return errors.Errorf("unknown journal backend %q", c.Journal.Backend)
	}
	switch c.Events.Backend {
	case EventsLog:
	case EventsKafka:
		if len(c.Events.Brokers) == 0 || c.Events.Topic == "" {
			return errors.New("kafka events backend needs brokers and topic")
		}
	default:
		return errors.Errorf("unknown events backend %q", c.Events.Backend)
	}
	if c.Chain.RequiredApprovals < 1 {
		return errors.New("required approvals must be >= 1")
	}
	for account, amount := range c.Chain.Genesis {
		if !common.IsHexAddress(account) {
			return errors.Errorf("genesis account %q is not an address", account)
		}
		if amount == nil || amount.Sign() <= 0 {
			return errors.Errorf("genesis balance of %s must be > 0", account)
		}
	}
	return nil
}

func printWorkingDir() {
	wd, _ := os.Getwd()
	log.Infof("Working dir: %s", wd)
}

func printConfig(c *Configuration) {
	out, err := yaml.Marshal(cleanSecrets(c))
	if err != nil {
		log.Error(errors.Wrapf(err, "failed to marshal config structure"))
		return
	}
	log.Infof("Loaded configuration: \n %s \n", string(out))
}

func cleanSecrets(c *Configuration) *Configuration {
	cc := *c
	cc.DB.URL = replacePassword(cc.DB.URL)
	return &cc
}

func replacePassword(url string) string {
	re := regexp.MustCompile(`^(?P<start>.*)(:(?P<pass>[^@\/:?]+)@)(?P<end>.*)$`)
	var result []byte
	if re.MatchString(url) {
		for _, submatches := range re.FindAllStringSubmatchIndex(url, -1) {
			result = re.ExpandString(result, `$start:<masked>@$end`, url, submatches)
		}
		return string(result)
	}
	return url
}

func (c *Configuration) String() string {
	return fmt.Sprintf("%+v", *cleanSecrets(c))
}
