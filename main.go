package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
	"github.com/tcnksm/go-latest"
	"go.uber.org/zap"

	"graphrun/internal/config"
	"graphrun/internal/diag"
	"graphrun/internal/model"
	"graphrun/internal/pipeline"
	"graphrun/internal/tui"
)

func checkUpdate(w io.Writer, currentVer string) {
	githubTag := &latest.GithubTag{
		Owner:      "graphrun",
		Repository: "graphrun",
	}

	res, err := latest.Check(githubTag, currentVer)
	if err != nil {
		fmt.Fprintf(w, "Could not check for updates: %v\n", err)
		return
	}

	if res.Outdated {
		fmt.Fprintf(w, "✨ A new version is available: %s (you have %s)\n", res.Current, currentVer)
		fmt.Fprintln(w, "👉 Download it from https://github.com/graphrun/graphrun/releases")
	} else {
		fmt.Fprintf(w, "✅ You are using the latest version: %s\n", currentVer)
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is main without the process exit, returning the exit status.
func run(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("graphrun", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: graphrun [options]\n\n")
		fmt.Fprintf(stderr, "graphrun builds the graph analyzer, runs it over samples and input files,\n")
		fmt.Fprintf(stderr, "and optionally annotates the resulting graph with a Datalog analysis.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  graphrun -s 3                  # Build, then graph sample 3 into output/graph.txt\n")
		fmt.Fprintf(stderr, "  graphrun -s 1 2 -s 5           # Graph samples 1, 2 and 5 together (also -s 1,2,5)\n")
		fmt.Fprintf(stderr, "  graphrun -n -i app.ts -o g.txt # Skip the build, graph app.ts into output/g.txt\n")
		fmt.Fprintf(stderr, "  graphrun -s 1 -a array_size    # Graph sample 1 and annotate array size deltas\n")
	}

	var f config.Flags
	fs.StringVarP(&f.Root, "root", "C", ".", "Project root containing sources/, tests/ and analysis/")
	fs.StringVar(&f.ConfigPath, "config", "", "Tool configuration file (default <root>/"+config.ToolsFileName+")")
	fs.BoolVarP(&f.NoBuild, "no-build", "n", false, "Skip the build stage")
	fs.StringSliceVarP(&f.Samples, "sample", "s", nil, "Sample index to run (repeatable, comma-separated)")
	fs.StringArrayVarP(&f.Inputs, "input", "i", nil, "Extra input file (repeatable)")
	fs.StringVarP(&f.Output, "output", "o", config.DefaultOutput, "Graph file name inside the output directory")
	fs.StringVarP(&f.Analysis, "analysis", "a", "", fmt.Sprintf("Analysis to run on the graph %v", config.AnalysisTypes()))
	fs.BoolVarP(&f.Verbose, "verbose", "v", false, "Log every stage and print diffs of failing samples")
	fs.BoolVarP(&f.Clean, "clean", "c", false, "Remove the output and build directories first")
	fs.BoolVarP(&f.Test, "test", "t", false, "Run the golden tests")
	fs.BoolVarP(&f.UpdateGoldens, "update-goldens", "u", false, "Rewrite goldens that differ")
	fs.BoolVarP(&f.Browse, "browse", "b", false, "Browse test outcomes interactively after a test run")
	versionFlag := fs.BoolP("version", "V", false, "Print version information")
	updateFlag := fs.Bool("check-update", false, "Check for the latest release")
	helpFlag := fs.BoolP("help", "h", false, "Show this help message")
	_ = fs.MarkHidden("test")
	_ = fs.MarkHidden("update-goldens")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 2
	}

	if *helpFlag {
		fs.Usage()
		return 0
	}
	if *versionFlag {
		fmt.Fprintf(stdout, "graphrun version %s\n", model.Version)
		return 0
	}
	if *updateFlag {
		checkUpdate(stdout, model.Version)
		return 0
	}

	log := diag.NewLogger(stderr, f.Verbose)
	defer func() { _ = log.Sync() }()

	var ignored []string
	for _, arg := range fs.Args() {
		// -s takes several indexes: "-s 1 2" leaves "2" positional.
		if fs.Changed("sample") && isDecimal(arg) {
			f.Samples = append(f.Samples, arg)
			continue
		}
		ignored = append(ignored, arg)
	}
	if len(ignored) > 0 {
		log.Warn(fmt.Sprintf("Ignoring positional arguments %v; use --input", ignored))
	}

	ok, err := execute(context.Background(), f, stdout, log)
	if err != nil {
		log.Error(err.Error())
		return diag.ExitCode(err)
	}
	if !ok {
		return 1
	}
	return 0
}

// execute resolves the configuration and runs the pipeline. ok is false when
// a test run had failures; the verdict line has already said which.
func execute(ctx context.Context, f config.Flags, stdout io.Writer, log *zap.Logger) (bool, error) {
	root, err := filepath.Abs(f.Root)
	if err != nil {
		return false, diag.Config("Invalid project root", err)
	}
	f.Root = root

	cfg, err := config.Resolve(f)
	if err != nil {
		return false, err
	}

	toolsPath := cfg.ToolsPath
	if toolsPath == "" {
		toolsPath = filepath.Join(cfg.Layout.Root, config.ToolsFileName)
	}
	tools, err := config.LoadTools(toolsPath, cfg.Layout, cfg.ToolsPath != "")
	if err != nil {
		return false, err
	}

	if cfg.Browse && !isTerminal(stdout) {
		log.Warn("--browse needs a terminal; showing the summary only")
		cfg.Browse = false
	}

	sum, err := pipeline.New(cfg, tools, log, stdout).Run(ctx)
	if err != nil {
		return false, err
	}

	if cfg.Browse && sum.Report != nil {
		if err := tui.Run(*sum.Report); err != nil {
			return false, diag.IO("Outcome browser failed", err)
		}
	}
	return sum.OK(), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
