package fleetconfig

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
)

const (
	readConfigurationTemplateConstant = "Read configuration from %s\n"
	sourceSelectedLogMessageConstant  = "configuration source selected"
	projectLogFieldConstant           = "project"
	sourceLogFieldConstant            = "source"
)

// Fetcher reads the fleet document for a project from the first source that accepts it.
type Fetcher struct {
	logger  *zap.Logger
	sources []Source
	output  io.Writer
}

// NewFetcher constructs a Fetcher trying sources in order. The location of the document
// actually read is announced on output.
func NewFetcher(logger *zap.Logger, output io.Writer, sources ...Source) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if output == nil {
		output = io.Discard
	}
	return &Fetcher{logger: logger, sources: sources, output: output}
}

// Fetch reads and parses the document for project. Every acquisition failure is reported
// as ConfigurationError.
func (fetcher *Fetcher) Fetch(executionContext context.Context, project string) (Document, error) {
	for _, source := range fetcher.sources {
		if !source.Accepts(project) {
			continue
		}
		fetcher.logger.Debug(sourceSelectedLogMessageConstant,
			zap.String(projectLogFieldConstant, project),
			zap.String(sourceLogFieldConstant, fmt.Sprintf("%T", source)),
		)

		contents, location, readError := source.Read(executionContext, project)
		if readError != nil {
			return Document{}, ConfigurationError{Message: fetchFailureMessageConstant, Cause: readError}
		}
		fmt.Fprintf(fetcher.output, readConfigurationTemplateConstant, location)
		return ParseDocument(contents)
	}
	return Document{}, ConfigurationError{Message: fetchFailureMessageConstant, Cause: fmt.Errorf(noApplicableSourceTemplateConstant, project)}
}
