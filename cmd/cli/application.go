package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/gitfleet/internal/buildinfo"
	"github.com/temirov/gitfleet/internal/execshell"
	"github.com/temirov/gitfleet/internal/filesystem"
	"github.com/temirov/gitfleet/internal/fleet"
	"github.com/temirov/gitfleet/internal/fleetconfig"
	"github.com/temirov/gitfleet/internal/githubauth"
	"github.com/temirov/gitfleet/internal/gitrepo"
	"github.com/temirov/gitfleet/internal/ui"
	"github.com/temirov/gitfleet/internal/utils"
	pathutils "github.com/temirov/gitfleet/internal/utils/path"
)

const (
	applicationNameConstant                 = "gitfleet"
	applicationUseConstant                  = "gitfleet [CONFIG]"
	applicationShortDescriptionConstant     = "Synchronize a fleet of git repositories to their configured branches"
	applicationLongDescriptionConstant      = "gitfleet reads a fleet document naming owner/name repositories and their branches, then clones, re-points, fetches, switches and rebases every repository in the workspace concurrently."
	usageMessageConstant                    = "Usage: gitfleet [CONFIGNAME, file, url] [--save]"
	bannerTemplateConstant                  = "%s %s\n"
	developmentVersionConstant              = "dev"
	develBuildVersionConstant               = "(devel)"
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to an application settings file (YAML)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level (debug, info, warn, error)."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	workspaceFlagNameConstant               = "workspace"
	workspaceFlagUsageConstant              = "Directory that holds the repositories."
	concurrencyFlagNameConstant             = "concurrency"
	concurrencyFlagUsageConstant            = "Maximum number of repositories synchronized at once; 0 means no limit."
	saveFlagNameConstant                    = "save"
	saveFlagUsageConstant                   = "Remember CONFIG as the default project for this directory."
	versionFlagNameConstant                 = "version"
	versionFlagUsageConstant                = "Print the gitfleet version and exit."
	commonLogLevelConfigKeyConstant         = "common.log_level"
	commonLogFormatConfigKeyConstant        = "common.log_format"
	syncWorkspaceConfigKeyConstant          = "sync.workspace"
	syncConcurrencyConfigKeyConstant        = "sync.concurrency"
	environmentPrefixConstant               = "GITFLEET"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	currentDirectorySearchPathConstant      = "."
	homeSearchPathConstant                  = "~/.gitfleet"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	projectResolvedMessageConstant          = "project resolved"
	fleetPreparedMessageConstant            = "fleet prepared"
	projectFieldConstant                    = "project"
	workspaceFieldConstant                  = "workspace"
	targetCountFieldConstant                = "repositories"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	workspaceErrorTemplateConstant          = "unable to prepare workspace %s: %w"
	environmentErrorTemplateConstant        = "unable to resolve environment: %w"
	buildInfoErrorTemplateConstant          = "unable to generate build info: %w"
	workspaceDirectoryPermissionsConstant   = 0o755
)

// ErrUsage reports that no project was named on the command line or remembered.
var ErrUsage = errors.New(usageMessageConstant)

// applicationVersion is set at link time with -ldflags "-X github.com/temirov/gitfleet/cmd/cli.applicationVersion=...".
var applicationVersion string

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common      ApplicationCommonConfiguration      `mapstructure:"common"`
	Sync        ApplicationSyncConfiguration        `mapstructure:"sync"`
	Source      ApplicationSourceConfiguration      `mapstructure:"source"`
	Credentials ApplicationCredentialsConfiguration `mapstructure:"credentials"`
	BuildInfo   ApplicationBuildInfoConfiguration   `mapstructure:"build_info"`
}

// ApplicationCommonConfiguration stores logging configuration.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationSyncConfiguration controls where and how repositories are synchronized.
type ApplicationSyncConfiguration struct {
	Workspace    string `mapstructure:"workspace"`
	RemoteHost   string `mapstructure:"remote_host"`
	Concurrency  int    `mapstructure:"concurrency"`
	SettingsFile string `mapstructure:"settings_file"`
}

// ApplicationSourceConfiguration locates fleet documents on GitHub.
type ApplicationSourceConfiguration struct {
	Repository    string `mapstructure:"repository"`
	Ref           string `mapstructure:"ref"`
	APIBaseURL    string `mapstructure:"api_base_url"`
	FileExtension string `mapstructure:"file_extension"`
}

// ApplicationCredentialsConfiguration names the keychain entry holding the GitHub token.
type ApplicationCredentialsConfiguration struct {
	KeyringService string `mapstructure:"keyring_service"`
	KeyringAccount string `mapstructure:"keyring_account"`
}

// ApplicationBuildInfoConfiguration controls generation of the build metadata files.
type ApplicationBuildInfoConfiguration struct {
	Enabled   bool   `mapstructure:"enabled"`
	Version   string `mapstructure:"version"`
	Company   string `mapstructure:"company"`
	Copyright string `mapstructure:"copyright"`
}

// applicationDependencies are the process-level collaborators; tests replace them.
type applicationDependencies struct {
	commandRunner     execshell.CommandRunner
	fileSystem        filesystem.FileSystem
	homeExpander      *pathutils.HomeExpander
	environmentLookup func(string) (string, bool)
	tokenStore        githubauth.TokenStore
	httpClient        *http.Client
	input             io.Reader
	output            io.Writer
	errorOutput       io.Writer
	versionResolver   func() string
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	loggerFactory         *utils.LoggerFactory
	logger                *zap.Logger
	configuration         ApplicationConfiguration
	configurationMetadata utils.LoadedConfiguration
	configurationFilePath string
	saveProject           bool
	printVersion          bool
	dependencies          applicationDependencies
}

// NewApplication assembles a CLI application bound to the operating system.
func NewApplication() *Application {
	return newApplication(applicationDependencies{
		commandRunner:     execshell.NewOSCommandRunner(),
		fileSystem:        filesystem.OSFileSystem{},
		homeExpander:      pathutils.NewHomeExpander(),
		environmentLookup: os.LookupEnv,
		httpClient:        http.DefaultClient,
		input:             os.Stdin,
		output:            os.Stdout,
		errorOutput:       os.Stderr,
		versionResolver:   resolveApplicationVersion,
	})
}

func newApplication(dependencies applicationDependencies) *Application {
	application := &Application{
		configurationLoader: utils.NewConfigurationLoader(utils.ConfigurationLoaderOptions{
			ConfigurationName:     configurationNameConstant,
			ConfigurationType:     configurationTypeConstant,
			EnvironmentPrefix:     environmentPrefixConstant,
			SearchPaths:           []string{currentDirectorySearchPathConstant, dependencies.homeExpander.Expand(homeSearchPathConstant)},
			EmbeddedConfiguration: EmbeddedDefaultConfiguration(),
		}),
		loggerFactory: utils.NewLoggerFactory(),
		logger:        zap.NewNop(),
		dependencies:  dependencies,
	}

	cobraCommand := &cobra.Command{
		Use:           applicationUseConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			if application.printVersion {
				return nil
			}
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runSynchronization(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.SetOut(dependencies.output)
	cobraCommand.SetErr(dependencies.errorOutput)

	persistentFlags := cobraCommand.PersistentFlags()
	persistentFlags.StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	persistentFlags.String(logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	persistentFlags.String(logFormatFlagNameConstant, "", logFormatFlagUsageConstant)
	persistentFlags.String(workspaceFlagNameConstant, "", workspaceFlagUsageConstant)
	persistentFlags.Int(concurrencyFlagNameConstant, 0, concurrencyFlagUsageConstant)
	cobraCommand.Flags().BoolVar(&application.saveProject, saveFlagNameConstant, false, saveFlagUsageConstant)
	cobraCommand.Flags().BoolVar(&application.printVersion, versionFlagNameConstant, false, versionFlagUsageConstant)

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the root command and flushes the logger.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if syncError := utils.SyncLogger(application.logger); syncError != nil && executionError == nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(
		utils.ConfigurationRequest{
			ConfigurationFilePath: application.configurationFilePath,
			Flags:                 command.Flags(),
			FlagBindings: map[string]string{
				commonLogLevelConfigKeyConstant:  logLevelFlagNameConstant,
				commonLogFormatConfigKeyConstant: logFormatFlagNameConstant,
				syncWorkspaceConfigKeyConstant:   workspaceFlagNameConstant,
				syncConcurrencyConfigKeyConstant: concurrencyFlagNameConstant,
			},
		},
		&application.configuration,
	)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}
	application.configurationMetadata = loadedConfiguration

	logLevel, logLevelError := utils.ParseLogLevel(application.configuration.Common.LogLevel)
	if logLevelError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, logLevelError)
	}
	logFormat, logFormatError := utils.ParseLogFormat(application.configuration.Common.LogFormat)
	if logFormatError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, logFormatError)
	}

	logger, loggerCreationError := application.loggerFactory.CreateLogger(logLevel, logFormat)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}
	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, string(logLevel)),
		zap.String(configurationLogFormatFieldConstant, string(logFormat)),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	return nil
}

func (application *Application) humanReadableLoggingEnabled() bool {
	return strings.EqualFold(strings.TrimSpace(application.configuration.Common.LogFormat), string(utils.LogFormatConsole))
}

func (application *Application) runSynchronization(command *cobra.Command, arguments []string) error {
	dependencies := application.dependencies
	fmt.Fprintf(dependencies.output, bannerTemplateConstant, applicationNameConstant, dependencies.versionResolver())
	if application.printVersion {
		return nil
	}

	executionContext := command.Context()
	configuration := application.configuration

	projectResolver := fleetconfig.NewProjectResolver(dependencies.fileSystem, configuration.Sync.SettingsFile)
	project, projectError := projectResolver.Resolve(arguments, application.saveProject)
	if projectError != nil {
		if errors.Is(projectError, fleetconfig.ErrProjectNotSpecified) {
			return ErrUsage
		}
		return projectError
	}
	application.logger.Debug(projectResolvedMessageConstant, zap.String(projectFieldConstant, project))

	gitRunner, runnerError := application.buildGitRunner()
	if runnerError != nil {
		return runnerError
	}

	environment, environmentError := gitrepo.ResolveAmbientEnvironment(dependencies.homeExpander.HomeDirectory, dependencies.environmentLookup)
	if environmentError != nil {
		return fmt.Errorf(environmentErrorTemplateConstant, environmentError)
	}

	document, fetchError := application.buildFetcher().Fetch(executionContext, project)
	if fetchError != nil {
		return fetchError
	}

	targets, targetsError := document.Targets(configuration.Sync.RemoteHost)
	if targetsError != nil {
		return targetsError
	}

	workspaceDirectory, workspaceError := application.prepareWorkspace()
	if workspaceError != nil {
		return workspaceError
	}

	if configuration.BuildInfo.Enabled {
		if buildInfoError := application.generateBuildInfo(workspaceDirectory); buildInfoError != nil {
			return buildInfoError
		}
	}

	inspector, inspectorError := gitrepo.NewInspector(gitRunner, dependencies.fileSystem, environment)
	if inspectorError != nil {
		return inspectorError
	}

	reconciler, reconcilerError := fleet.NewReconciler(application.logger, gitRunner, inspector, environment, workspaceDirectory)
	if reconcilerError != nil {
		return reconcilerError
	}

	orchestrator, orchestratorError := fleet.NewOrchestrator(application.logger, reconciler, utils.NewFlushingWriter(dependencies.output), configuration.Sync.Concurrency)
	if orchestratorError != nil {
		return orchestratorError
	}

	application.logger.Debug(
		fleetPreparedMessageConstant,
		zap.String(workspaceFieldConstant, workspaceDirectory),
		zap.Int(targetCountFieldConstant, len(targets)),
	)

	return orchestrator.Run(executionContext, targets).Err()
}

func (application *Application) buildGitRunner() (*gitrepo.Runner, error) {
	var observer execshell.CommandEventObserver
	if application.humanReadableLoggingEnabled() {
		observer = ui.NewConsoleCommandEventLogger(application.logger)
	}

	executor, executorError := execshell.NewShellExecutorWithObserver(application.logger, application.dependencies.commandRunner, observer)
	if executorError != nil {
		return nil, executorError
	}
	return gitrepo.NewRunner(executor)
}

func (application *Application) buildFetcher() *fleetconfig.Fetcher {
	dependencies := application.dependencies
	configuration := application.configuration

	tokenStore := dependencies.tokenStore
	if tokenStore == nil {
		tokenStore = githubauth.NewKeyringStore(configuration.Credentials.KeyringService, configuration.Credentials.KeyringAccount)
	}
	credentialResolver := githubauth.NewResolver(
		application.logger,
		dependencies.environmentLookup,
		tokenStore,
		githubauth.NewIOTokenPrompter(dependencies.input, dependencies.errorOutput),
	)

	return fleetconfig.NewFetcher(
		application.logger,
		dependencies.output,
		fleetconfig.NewFileSource(dependencies.fileSystem),
		fleetconfig.NewURLSource(dependencies.httpClient),
		fleetconfig.NewGitHubSource(
			fleetconfig.GitHubSourceOptions{
				Repository:    configuration.Source.Repository,
				Ref:           configuration.Source.Ref,
				APIBaseURL:    configuration.Source.APIBaseURL,
				FileExtension: configuration.Source.FileExtension,
			},
			credentialResolver,
			dependencies.errorOutput,
		),
	)
}

func (application *Application) prepareWorkspace() (string, error) {
	fileSystem := application.dependencies.fileSystem
	workspaceDirectory, resolveError := application.dependencies.homeExpander.ResolveDirectory(application.configuration.Sync.Workspace)
	if resolveError != nil {
		return "", fmt.Errorf(workspaceErrorTemplateConstant, application.configuration.Sync.Workspace, resolveError)
	}
	if mkdirError := fileSystem.MkdirAll(workspaceDirectory, workspaceDirectoryPermissionsConstant); mkdirError != nil {
		return "", fmt.Errorf(workspaceErrorTemplateConstant, workspaceDirectory, mkdirError)
	}
	return workspaceDirectory, nil
}

func (application *Application) generateBuildInfo(workspaceDirectory string) error {
	generator, generatorError := buildinfo.NewGenerator(application.logger, application.dependencies.fileSystem)
	if generatorError != nil {
		return fmt.Errorf(buildInfoErrorTemplateConstant, generatorError)
	}
	buildInfoConfiguration := application.configuration.BuildInfo
	_, generateError := generator.Generate(workspaceDirectory, buildinfo.Metadata{
		Version:   buildInfoConfiguration.Version,
		Company:   buildInfoConfiguration.Company,
		Copyright: buildInfoConfiguration.Copyright,
	})
	if generateError != nil {
		return fmt.Errorf(buildInfoErrorTemplateConstant, generateError)
	}
	return nil
}

func resolveApplicationVersion() string {
	if len(applicationVersion) > 0 {
		return applicationVersion
	}
	buildInformation, available := debug.ReadBuildInfo()
	if !available || len(buildInformation.Main.Version) == 0 || buildInformation.Main.Version == develBuildVersionConstant {
		return developmentVersionConstant
	}
	return buildInformation.Main.Version
}
