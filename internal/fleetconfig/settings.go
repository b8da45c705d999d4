package fleetconfig

import (
	"errors"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	projectNotSpecifiedMessageConstant = "no configuration project specified"
	settingsFilePermissionsConstant    = fs.FileMode(0o644)
)

// ErrProjectNotSpecified indicates neither the command line nor the settings file named a project.
var ErrProjectNotSpecified = errors.New(projectNotSpecifiedMessageConstant)

// SettingsFileSystem reads and writes the persisted project settings.
type SettingsFileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, permissions fs.FileMode) error
}

// ProjectSettings is the persisted form of the default project.
type ProjectSettings struct {
	Configuration string `yaml:"configuration"`
}

// ProjectResolver decides which fleet document to load.
type ProjectResolver struct {
	fileSystem   SettingsFileSystem
	settingsPath string
}

// NewProjectResolver constructs a resolver backed by the settings file at settingsPath.
func NewProjectResolver(fileSystem SettingsFileSystem, settingsPath string) *ProjectResolver {
	return &ProjectResolver{fileSystem: fileSystem, settingsPath: settingsPath}
}

// Resolve returns the project named on the command line, persisting it when save is set,
// or falls back to the project stored in the settings file. An unreadable settings file is
// treated as absent.
func (resolver *ProjectResolver) Resolve(arguments []string, save bool) (string, error) {
	if len(arguments) > 0 {
		project := strings.TrimSpace(arguments[0])
		if len(project) == 0 {
			return "", ErrProjectNotSpecified
		}
		if save {
			if saveError := resolver.save(project); saveError != nil {
				return "", ConfigurationError{Message: projectSettingsFailureMessageConstant, Cause: saveError}
			}
		}
		return project, nil
	}

	contents, readError := resolver.fileSystem.ReadFile(resolver.settingsPath)
	if readError != nil {
		return "", ErrProjectNotSpecified
	}
	var settings ProjectSettings
	if unmarshalError := yaml.Unmarshal(contents, &settings); unmarshalError != nil {
		return "", ErrProjectNotSpecified
	}
	project := strings.TrimSpace(settings.Configuration)
	if len(project) == 0 {
		return "", ErrProjectNotSpecified
	}
	return project, nil
}

func (resolver *ProjectResolver) save(project string) error {
	contents, marshalError := yaml.Marshal(ProjectSettings{Configuration: project})
	if marshalError != nil {
		return marshalError
	}
	return resolver.fileSystem.WriteFile(resolver.settingsPath, contents, settingsFilePermissionsConstant)
}
