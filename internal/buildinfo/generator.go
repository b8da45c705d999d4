package buildinfo

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"go.uber.org/zap"
)

const (
	templatesPatternConstant         = "templates/*.tmpl"
	templateSuffixConstant           = ".tmpl"
	versionSeparatorConstant         = "."
	versionComponentCountConstant    = 4
	generatedFilePermissionsConstant = fs.FileMode(0o644)
	invalidVersionTemplateConstant   = "build version %q must have four numeric components"
	renderFailureTemplateConstant    = "unable to render %s: %w"
	writeFailureTemplateConstant     = "unable to write %s: %w"
	inspectFailureTemplateConstant   = "unable to inspect %s: %w"
	fileSystemMissingMessageConstant = "build info file system not configured"
	generatedFileLogMessageConstant  = "generated build info file"
	existingFileLogMessageConstant   = "build info file already present"
	pathLogFieldConstant             = "path"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// ErrFileSystemNotConfigured indicates the generator was constructed without a file system.
var ErrFileSystemNotConfigured = errors.New(fileSystemMissingMessageConstant)

// FileSystem is the subset of file operations the generator needs.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	WriteFile(path string, data []byte, permissions fs.FileMode) error
}

// Metadata holds the values rendered into the build info files.
type Metadata struct {
	Version   string
	Company   string
	Copyright string
}

type templateValues struct {
	Metadata
	Major    int
	Minor    int
	Build    int
	Revision int
}

// Generator writes build info files into a directory.
type Generator struct {
	logger     *zap.Logger
	fileSystem FileSystem
	templates  *template.Template
}

// NewGenerator parses the embedded templates.
func NewGenerator(logger *zap.Logger, fileSystem FileSystem) (*Generator, error) {
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	parsedTemplates, parseError := template.ParseFS(embeddedTemplates, templatesPatternConstant)
	if parseError != nil {
		return nil, parseError
	}
	return &Generator{logger: logger, fileSystem: fileSystem, templates: parsedTemplates}, nil
}

// Generate writes every build info file missing from directory and returns the paths it
// wrote. Existing files are left untouched.
func (generator *Generator) Generate(directory string, metadata Metadata) ([]string, error) {
	values, valuesError := newTemplateValues(metadata)
	if valuesError != nil {
		return nil, valuesError
	}

	fileTemplates := generator.templates.Templates()
	sort.Slice(fileTemplates, func(first int, second int) bool {
		return fileTemplates[first].Name() < fileTemplates[second].Name()
	})

	var writtenPaths []string
	for _, fileTemplate := range fileTemplates {
		fileName := strings.TrimSuffix(fileTemplate.Name(), templateSuffixConstant)
		filePath := filepath.Join(directory, fileName)

		if _, statError := generator.fileSystem.Stat(filePath); statError == nil {
			generator.logger.Debug(existingFileLogMessageConstant, zap.String(pathLogFieldConstant, filePath))
			continue
		} else if !errors.Is(statError, fs.ErrNotExist) {
			return writtenPaths, fmt.Errorf(inspectFailureTemplateConstant, filePath, statError)
		}

		var rendered bytes.Buffer
		if executeError := fileTemplate.Execute(&rendered, values); executeError != nil {
			return writtenPaths, fmt.Errorf(renderFailureTemplateConstant, fileName, executeError)
		}
		if writeError := generator.fileSystem.WriteFile(filePath, rendered.Bytes(), generatedFilePermissionsConstant); writeError != nil {
			return writtenPaths, fmt.Errorf(writeFailureTemplateConstant, filePath, writeError)
		}
		generator.logger.Debug(generatedFileLogMessageConstant, zap.String(pathLogFieldConstant, filePath))
		writtenPaths = append(writtenPaths, filePath)
	}
	return writtenPaths, nil
}

func newTemplateValues(metadata Metadata) (templateValues, error) {
	components := strings.Split(metadata.Version, versionSeparatorConstant)
	if len(components) != versionComponentCountConstant {
		return templateValues{}, fmt.Errorf(invalidVersionTemplateConstant, metadata.Version)
	}
	numbers := make([]int, 0, versionComponentCountConstant)
	for _, component := range components {
		number, parseError := strconv.Atoi(component)
		if parseError != nil || number < 0 {
			return templateValues{}, fmt.Errorf(invalidVersionTemplateConstant, metadata.Version)
		}
		numbers = append(numbers, number)
	}
	return templateValues{Metadata: metadata, Major: numbers[0], Minor: numbers[1], Build: numbers[2], Revision: numbers[3]}, nil
}
