// Command vocalis speaks text through the synthesis chain and turns one
// spoken phrase from the microphone into text.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/harunnryd/vocalis/pkg/errorsx"
	"github.com/harunnryd/vocalis/pkg/logging"
	"github.com/harunnryd/vocalis/pkg/vocalis"
	"github.com/joho/godotenv"
)

const (
	defaultText   = "Hi, this is Manjari!"
	defaultSpeak  = "output.mp3"
	defaultRecord = "input.mp3"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: vocalis <command> [flags]

commands:
  speak       synthesize text to an mp3 and play it
  record      capture one phrase from the microphone to an mp3
  transcribe  print the text spoken in an mp3
  listen      record then transcribe

run "vocalis <command> -h" for command flags
`)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}
	command := args[0]
	switch command {
	case "speak", "record", "transcribe", "listen":
	case "-h", "--help", "help":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", command)
		usage()
		return 2
	}

	fset := flag.NewFlagSet(command, flag.ExitOnError)
	configPath := fset.String("config", "", "path to a YAML, TOML or JSON config file")
	envFile := fset.String("env", ".env", "dotenv file loaded when present")
	quiet := fset.Bool("quiet", false, "do not print the startup banner")
	var text, out, in *string
	switch command {
	case "speak":
		text = fset.String("text", defaultText, "text to speak")
		out = fset.String("out", defaultSpeak, "where to write the synthesized mp3")
	case "record":
		out = fset.String("out", defaultRecord, "where to write the captured mp3")
	case "transcribe":
		in = fset.String("in", defaultRecord, "mp3 to transcribe")
	case "listen":
		out = fset.String("out", defaultRecord, "where to write the captured mp3")
	}
	_ = fset.Parse(args[1:])

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", *envFile, err)
		return 1
	}

	cfg, err := vocalis.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	logging.InitLogger(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if !*quiet {
		printBanner(os.Stderr)
	}

	engine, err := vocalis.New(cfg)
	if err != nil {
		slog.Error("vocalis_init_failed", slog.String("error", err.Error()))
		if errors.Is(err, vocalis.ErrMissingCredential) {
			fmt.Fprintln(os.Stderr, errorsx.Hint(errorsx.ReasonConfigMissingCredential))
		}
		return 1
	}
	defer func() {
		if err := engine.Close(); err != nil {
			slog.Warn("vocalis_close_failed", slog.String("error", err.Error()))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := 0
	switch command {
	case "speak":
		words := strings.TrimSpace(*text)
		if rest := fset.Args(); len(rest) > 0 {
			words = strings.Join(rest, " ")
		}
		res := engine.Speak(ctx, words, *out)
		reportSynthesis(os.Stdout, res)
		if !res.OK() {
			code = 1
		}
	case "record":
		res := engine.Record(ctx, *out)
		reportCapture(os.Stdout, res)
		if !res.OK() {
			code = 1
		}
	case "transcribe":
		res := engine.Transcribe(ctx, *in)
		reportTranscription(os.Stdout, res)
		if !res.OK() {
			code = 1
		}
	case "listen":
		captured, transcribed := engine.Listen(ctx, *out)
		reportCapture(os.Stdout, captured)
		reportTranscription(os.Stdout, transcribed)
		if !transcribed.OK() {
			code = 1
		}
	}

	reportUsage(os.Stdout, engine.Usage())
	return code
}
