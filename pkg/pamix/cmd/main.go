package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/MixyLabs/pamix/pkg/pamix"
	"github.com/MixyLabs/pamix/pkg/pamix/device"
)

var (
	gitCommit  string
	versionTag string
	buildType  string
)

func usage(flags *flag.FlagSet) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "Usage: pamix [flags] <verb> [percent]\n\n")
		fmt.Fprintf(os.Stderr, "Verbs:\n")
		fmt.Fprintf(os.Stderr, "  increase|inc|up <n>     raise the volume by n points\n")
		fmt.Fprintf(os.Stderr, "  decrease|dec|down <n>   lower the volume by n points\n")
		fmt.Fprintf(os.Stderr, "  set <n>                 move the volume to n percent\n")
		fmt.Fprintf(os.Stderr, "  mute|toggle-mute        mute, or restore the volume from before muting\n")
		fmt.Fprintf(os.Stderr, "  get|print               print the current volume\n")
		fmt.Fprintf(os.Stderr, "  list                    list devices\n")
		fmt.Fprintf(os.Stderr, "  info                    show server and device details\n")
		fmt.Fprintf(os.Stderr, "  watch                   print the volume whenever it changes\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flags.PrintDefaults()
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := flag.NewFlagSet("pamix", flag.ContinueOnError)
	flags.Usage = usage(flags)

	source := flags.BoolP("source", "s", false, "act on a source (capture device) instead of a sink")
	index := flags.Uint32P("index", "i", 0, "select the device by server index")
	name := flags.StringP("name", "n", "", "select the device by name")
	boost := flags.BoolP("boost", "b", false, "allow the volume past the ceiling, up to the boost ceiling")
	verbose := flags.BoolP("verbose", "v", false, "show verbose logs")
	flags.StringP("config", "c", "", "path to the config file")
	flags.String("server", "", "PulseAudio server to connect to")
	flags.Duration("timeout", 0, "deadline for each server request")
	flags.String("state-dir", "", "directory holding mute records and crash logs")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}

		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logger, err := pamix.NewLogger(buildType, *verbose)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}

	named := logger.Named("main")
	named.Debug("Created logger")

	named.Infow("Version info",
		"gitCommit", gitCommit,
		"versionTag", versionTag,
		"buildType", buildType)

	if *verbose {
		named.Debug("Verbose flag provided, all log messages will be shown")
	}

	target := pamix.Selector{Class: device.Sink, Name: *name}
	if *source {
		target.Class = device.Source
	}
	if flags.Changed("index") {
		target.Index = index
	}

	cmd, err := pamix.ParseCommand(flags.Args(), target, *boost)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flags.Usage()
		return 1
	}

	p, err := pamix.NewPamix(logger, flags)
	if err != nil {
		named.Errorw("Failed to create pamix object", "error", err)
		return 1
	}

	if buildType != "" && (versionTag != "" || gitCommit != "") {
		identifier := gitCommit
		if versionTag != "" {
			identifier = versionTag
		}

		p.SetVersion(fmt.Sprintf("Version %s-%s", buildType, identifier))
	}

	ctx := context.Background()

	if err := p.Initialize(ctx); err != nil {
		named.Errorw("Failed to initialize pamix", "error", err)
		fmt.Fprintf(os.Stderr, "pamix: %v\n", err)
		return 1
	}

	start := time.Now()
	runErr := p.Run(ctx, cmd)

	if err := p.Release(); err != nil {
		named.Warnw("Failed to release pamix", "error", err)
	}

	if runErr != nil {
		named.Errorw("Command failed", "verb", cmd.Verb, "error", runErr)
		fmt.Fprintf(os.Stderr, "pamix: %v\n", runErr)
		return 1
	}

	named.Debugw("Command finished", "verb", cmd.Verb, "took", time.Since(start))

	return 0
}
