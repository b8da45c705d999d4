package fleetconfig

import (
	"fmt"
	"slices"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/temirov/gitfleet/internal/fleet"
)

const submodulesKeyConstant = "submodules"

// Document is the parsed fleet document: repository identifiers of the form owner/name
// mapped to the branch each working copy should track.
type Document struct {
	Submodules map[string]string `mapstructure:"submodules"`
}

// ParseDocument decodes a JSON or YAML fleet document. A document without a submodules
// mapping yields ConfigurationError.
func ParseDocument(contents []byte) (Document, error) {
	var rawDocument map[string]any
	if unmarshalError := yaml.Unmarshal(contents, &rawDocument); unmarshalError != nil {
		return Document{}, ConfigurationError{Message: unparsableDocumentMessageConstant, Cause: unmarshalError}
	}

	var document Document
	var metadata mapstructure.Metadata
	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:  "mapstructure",
		Metadata: &metadata,
		Result:   &document,
	})
	if decoderError != nil {
		return Document{}, decoderError
	}
	if decodeError := decoder.Decode(rawDocument); decodeError != nil {
		return Document{}, ConfigurationError{Message: unparsableDocumentMessageConstant, Cause: decodeError}
	}

	if slices.Contains(metadata.Unset, submodulesKeyConstant) || document.Submodules == nil {
		return Document{}, ConfigurationError{Message: missingSubmodulesMessageConstant}
	}
	return document, nil
}

// Targets converts the submodules mapping into repository targets hosted on host.
// Malformed identifiers or empty branches yield ConfigurationError naming the entry, and
// two entries that would share a working directory yield ConfigurationError naming both.
func (document Document) Targets(host string) ([]fleet.RepositoryTarget, error) {
	for identifier, branch := range document.Submodules {
		if _, targetError := fleet.NewRepositoryTarget(identifier, branch, host); targetError != nil {
			return nil, ConfigurationError{Message: fmt.Sprintf(invalidSubmoduleTemplateConstant, identifier), Cause: targetError}
		}
	}
	targets, buildError := fleet.BuildTargets(document.Submodules, host)
	if buildError != nil {
		return nil, ConfigurationError{Message: conflictingSubmodulesMessageConstant, Cause: buildError}
	}
	return targets, nil
}
