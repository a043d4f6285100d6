package internal

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"

	"github.com/goplus/ncmake/internal/pipeline"
)

var (
	flagDebug      bool
	flagConfig     string
	flagTarget     string
	flagDistURL    string
	flagName       string
	flagOutput     string
	flagGenerator  string
	flagToolset    string
	flagArch       string
	flagVariant    string
	flagDownload   triState
	flagStd        string
	flagDefines    []string
	flagCleanFirst bool
	flagVerbose    bool
	flagLogLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "ncmake",
	Short: "ncmake builds native addons with CMake",
	Long: `ncmake configures, builds and installs native runtime addons with CMake.

The build directory is <output>/<platform>/<arch>. Options are read from the
"cmake" section of package.json and may be overridden on the command line.`,
	Args:              cobra.ArbitraryArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLog,
	RunE:              runRoot,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&flagDebug, "debug", false, "Build the Debug configuration")
	pf.StringVar(&flagConfig, "config", "", "Build type: Debug, Release, MinSizeRel or RelWithDebInfo")
	pf.StringVar(&flagTarget, "target", "", "Runtime version to build for, or \"installed\"")
	pf.StringVar(&flagDistURL, "dist-url", "", "Server the runtime headers are downloaded from")
	pf.StringVar(&flagName, "name", "", "Addon name")
	pf.StringVarP(&flagOutput, "output", "o", "", "Build output root (default \"build\")")
	pf.StringVarP(&flagGenerator, "generator", "g", "", "CMake generator")
	pf.StringVarP(&flagToolset, "toolset", "T", "", "CMake generator toolset")
	pf.StringVarP(&flagArch, "arch", "a", "", "Target architecture")
	pf.StringVar(&flagVariant, "variant", "", "Runtime variant")
	pf.Var(&flagDownload, "download", "Download runtime headers and libraries (true|false)")
	pf.Lookup("download").NoOptDefVal = "true"
	pf.StringVar(&flagStd, "std", "", "C++ language standard")
	pf.StringArrayVarP(&flagDefines, "define", "D", nil, "Set a CMake cache entry, KEY=VALUE")
	pf.BoolVar(&flagCleanFirst, "clean-first", false, "Clean before building")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Verbose build output and debug logging")
	pf.StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn or error")

	rootCmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &pipeline.Error{Kind: pipeline.InvalidCommand, Op: c.Name(), Err: err}
	})
}

func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	return &pipeline.Error{
		Kind: pipeline.InvalidCommand,
		Op:   args[0],
		Err:  fmt.Errorf("unknown command %q, run 'ncmake help' for usage", args[0]),
	}
}

var logLevels = map[string]int{
	"silly":   log.Ldebug,
	"verbose": log.Ldebug,
	"debug":   log.Ldebug,
	"info":    log.Linfo,
	"warn":    log.Lwarn,
	"error":   log.Lerror,
}

func setupLog(cmd *cobra.Command, _ []string) error {
	level, ok := logLevels[strings.ToLower(flagLogLevel)]
	if !ok {
		return &pipeline.Error{Kind: pipeline.InvalidCommand, Op: "log-level", Err: fmt.Errorf("unknown log level %q", flagLogLevel)}
	}
	if flagVerbose && !cmd.Flags().Changed("log-level") {
		level = log.Ldebug
	}
	log.SetOutput(cmd.ErrOrStderr())
	log.SetOutputLevel(level)
	return nil
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, os.Args[1:])
}

func execute(ctx context.Context, args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		log.Error(err)
	}
	return pipeline.ExitCode(err)
}
