package fleetconfig

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v81/github"
	"golang.org/x/oauth2"
)

const (
	httpSchemeConstant                    = "http"
	httpsSchemeConstant                   = "https"
	unexpectedStatusTemplateConstant      = "GET %s returned %s"
	repositorySeparatorConstant           = "/"
	repositoryPartCountConstant           = 2
	invalidSourceRepositoryTemplate       = "configuration repository %q must have the form owner/name"
	githubLocationTemplateConstant        = "https://%s/%s/%s/blob/%s/%s"
	publicGitHubHostConstant              = "github.com"
	githubClientFailureTemplateConstant   = "unable to configure GitHub client for %s: %w"
	githubContentFailureTemplateConstant  = "unable to read %s from %s: %w"
	githubDirectoryTemplateConstant       = "%s in %s is not a file"
	githubCredentialHintConstant          = "GitHub rejected the stored token; it has been removed and will be requested again on the next run."
	githubCredentialForgetFailureTemplate = "unable to remove stored GitHub token: %v"
)

// FileReader reads configuration documents from disk.
type FileReader interface {
	Stat(path string) (fs.FileInfo, error)
	ReadFile(path string) ([]byte, error)
}

// Source reads the fleet document for a project from one kind of location.
type Source interface {
	// Accepts reports whether the source can serve project.
	Accepts(project string) bool
	// Read returns the document contents and a human-readable location.
	Read(executionContext context.Context, project string) ([]byte, string, error)
}

// FileSource reads a document from an existing local file.
type FileSource struct {
	fileSystem FileReader
}

// NewFileSource constructs a FileSource.
func NewFileSource(fileSystem FileReader) FileSource {
	return FileSource{fileSystem: fileSystem}
}

// Accepts reports whether project names an existing regular file.
func (source FileSource) Accepts(project string) bool {
	fileInfo, statError := source.fileSystem.Stat(project)
	return statError == nil && !fileInfo.IsDir()
}

// Read returns the file contents.
func (source FileSource) Read(_ context.Context, project string) ([]byte, string, error) {
	contents, readError := source.fileSystem.ReadFile(project)
	if readError != nil {
		return nil, "", readError
	}
	return contents, project, nil
}

// URLSource downloads a document from an absolute http or https URL.
type URLSource struct {
	httpClient *http.Client
}

// NewURLSource constructs a URLSource; a nil client selects http.DefaultClient.
func NewURLSource(httpClient *http.Client) URLSource {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return URLSource{httpClient: httpClient}
}

// Accepts reports whether project is an absolute http or https URL.
func (source URLSource) Accepts(project string) bool {
	parsedURL, parseError := url.Parse(project)
	if parseError != nil || len(parsedURL.Host) == 0 {
		return false
	}
	return parsedURL.Scheme == httpSchemeConstant || parsedURL.Scheme == httpsSchemeConstant
}

// Read downloads the document.
func (source URLSource) Read(executionContext context.Context, project string) ([]byte, string, error) {
	request, requestError := http.NewRequestWithContext(executionContext, http.MethodGet, project, nil)
	if requestError != nil {
		return nil, "", requestError
	}
	response, responseError := source.httpClient.Do(request)
	if responseError != nil {
		return nil, "", responseError
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, "", fmt.Errorf(unexpectedStatusTemplateConstant, project, response.Status)
	}
	contents, readError := io.ReadAll(response.Body)
	if readError != nil {
		return nil, "", readError
	}
	return contents, project, nil
}

// CredentialProvider supplies the bearer token for the GitHub API and discards it when rejected.
type CredentialProvider interface {
	Token(executionContext context.Context) (string, error)
	Forget() error
}

// GitHubSourceOptions describes where project documents live on GitHub.
type GitHubSourceOptions struct {
	Repository    string
	Ref           string
	APIBaseURL    string
	FileExtension string
}

// GitHubSource reads <project><extension> from the configuration repository through the
// GitHub contents API.
type GitHubSource struct {
	options     GitHubSourceOptions
	credentials CredentialProvider
	hintOutput  io.Writer
}

// NewGitHubSource constructs a GitHubSource. Rejection hints are written to hintOutput.
func NewGitHubSource(options GitHubSourceOptions, credentials CredentialProvider, hintOutput io.Writer) GitHubSource {
	if hintOutput == nil {
		hintOutput = io.Discard
	}
	return GitHubSource{options: options, credentials: credentials, hintOutput: hintOutput}
}

// Accepts always returns true; the GitHub source is the last resort.
func (source GitHubSource) Accepts(string) bool {
	return true
}

// Read fetches the document. A 401 or 403 response removes the stored token.
func (source GitHubSource) Read(executionContext context.Context, project string) ([]byte, string, error) {
	repositoryParts := strings.Split(source.options.Repository, repositorySeparatorConstant)
	if len(repositoryParts) != repositoryPartCountConstant || len(repositoryParts[0]) == 0 || len(repositoryParts[1]) == 0 {
		return nil, "", fmt.Errorf(invalidSourceRepositoryTemplate, source.options.Repository)
	}
	owner, name := repositoryParts[0], repositoryParts[1]
	filePath := project + source.options.FileExtension

	token, tokenError := source.credentials.Token(executionContext)
	if tokenError != nil {
		return nil, "", tokenError
	}

	client, clientError := source.newClient(executionContext, token)
	if clientError != nil {
		return nil, "", fmt.Errorf(githubClientFailureTemplateConstant, source.options.Repository, clientError)
	}

	fileContent, _, response, contentsError := client.Repositories.GetContents(executionContext, owner, name, filePath, &github.RepositoryContentGetOptions{Ref: source.options.Ref})
	if contentsError != nil {
		if response != nil && (response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden) {
			source.rejectCredentials()
		}
		return nil, "", fmt.Errorf(githubContentFailureTemplateConstant, filePath, source.options.Repository, contentsError)
	}
	if fileContent == nil {
		return nil, "", fmt.Errorf(githubDirectoryTemplateConstant, filePath, source.options.Repository)
	}

	contents, decodeError := fileContent.GetContent()
	if decodeError != nil {
		return nil, "", fmt.Errorf(githubContentFailureTemplateConstant, filePath, source.options.Repository, decodeError)
	}
	return []byte(contents), source.location(owner, name, filePath), nil
}

func (source GitHubSource) newClient(executionContext context.Context, token string) (*github.Client, error) {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(executionContext, tokenSource))
	if len(source.options.APIBaseURL) == 0 {
		return client, nil
	}
	return client.WithEnterpriseURLs(source.options.APIBaseURL, source.options.APIBaseURL)
}

func (source GitHubSource) rejectCredentials() {
	fmt.Fprintln(source.hintOutput, githubCredentialHintConstant)
	if forgetError := source.credentials.Forget(); forgetError != nil {
		fmt.Fprintf(source.hintOutput, githubCredentialForgetFailureTemplate+"\n", forgetError)
	}
}

func (source GitHubSource) location(owner string, name string, filePath string) string {
	host := publicGitHubHostConstant
	if len(source.options.APIBaseURL) > 0 {
		if parsedURL, parseError := url.Parse(source.options.APIBaseURL); parseError == nil && len(parsedURL.Host) > 0 {
			host = parsedURL.Host
		}
	}
	return fmt.Sprintf(githubLocationTemplateConstant, host, owner, name, source.options.Ref, filePath)
}
