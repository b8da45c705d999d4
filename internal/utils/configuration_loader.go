package utils

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	environmentKeySeparatorOldConstant              = "."
	environmentKeySeparatorNewConstant              = "_"
	configurationReadErrorTemplateConstant          = "failed to read configuration: %w"
	configurationUnmarshalErrorTemplateConstant     = "failed to parse configuration: %w"
	embeddedConfigurationMergeErrorTemplateConstant = "failed to merge embedded configuration: %w"
	flagBindingErrorTemplateConstant                = "failed to bind flag %s to %s: %w"
)

// ConfigurationLoaderOptions describes where application settings come from.
type ConfigurationLoaderOptions struct {
	ConfigurationName     string
	ConfigurationType     string
	EnvironmentPrefix     string
	SearchPaths           []string
	EmbeddedConfiguration []byte
}

// ConfigurationRequest selects an explicit configuration file and the command-line flags
// that override individual keys. FlagBindings maps configuration keys to flag names.
type ConfigurationRequest struct {
	ConfigurationFilePath string
	Flags                 *pflag.FlagSet
	FlagBindings          map[string]string
}

// LoadedConfiguration surfaces metadata about the resolved configuration.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// ConfigurationLoader wraps Viper to layer embedded defaults, a configuration file,
// environment variables, and changed command-line flags, in increasing precedence.
type ConfigurationLoader struct {
	options                ConfigurationLoaderOptions
	environmentKeyReplacer *strings.Replacer
}

// NewConfigurationLoader creates a loader from options.
func NewConfigurationLoader(options ConfigurationLoaderOptions) *ConfigurationLoader {
	options.SearchPaths = append([]string(nil), options.SearchPaths...)
	options.EmbeddedConfiguration = append([]byte(nil), options.EmbeddedConfiguration...)
	return &ConfigurationLoader{
		options:                options,
		environmentKeyReplacer: strings.NewReplacer(environmentKeySeparatorOldConstant, environmentKeySeparatorNewConstant),
	}
}

// LoadConfiguration populates targetConfiguration. A missing configuration file in the
// search paths is not an error; a missing explicit file is.
func (loader *ConfigurationLoader) LoadConfiguration(request ConfigurationRequest, targetConfiguration any) (LoadedConfiguration, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigName(loader.options.ConfigurationName)
	viperInstance.SetConfigType(loader.options.ConfigurationType)

	if len(loader.options.EmbeddedConfiguration) > 0 {
		if mergeError := viperInstance.MergeConfig(bytes.NewReader(loader.options.EmbeddedConfiguration)); mergeError != nil {
			return LoadedConfiguration{}, fmt.Errorf(embeddedConfigurationMergeErrorTemplateConstant, mergeError)
		}
	}

	for _, searchPath := range loader.options.SearchPaths {
		viperInstance.AddConfigPath(searchPath)
	}

	viperInstance.SetEnvPrefix(loader.options.EnvironmentPrefix)
	viperInstance.SetEnvKeyReplacer(loader.environmentKeyReplacer)
	viperInstance.AutomaticEnv()

	if request.Flags != nil {
		for configurationKey, flagName := range request.FlagBindings {
			flag := request.Flags.Lookup(flagName)
			if flag == nil {
				continue
			}
			if bindError := viperInstance.BindPFlag(configurationKey, flag); bindError != nil {
				return LoadedConfiguration{}, fmt.Errorf(flagBindingErrorTemplateConstant, flagName, configurationKey, bindError)
			}
		}
	}

	if len(request.ConfigurationFilePath) > 0 {
		viperInstance.SetConfigFile(request.ConfigurationFilePath)
	}

	if readError := viperInstance.MergeInConfig(); readError != nil {
		var notFoundError viper.ConfigFileNotFoundError
		if !errors.As(readError, &notFoundError) {
			return LoadedConfiguration{}, fmt.Errorf(configurationReadErrorTemplateConstant, readError)
		}
	}

	if unmarshalError := viperInstance.Unmarshal(targetConfiguration); unmarshalError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationUnmarshalErrorTemplateConstant, unmarshalError)
	}

	return LoadedConfiguration{ConfigFileUsed: viperInstance.ConfigFileUsed()}, nil
}
