// Command mahir is a Malay and Mandarin translator for the terminal:
// streaming text translation, one-shot speech synthesis, and a live
// spoken interpreter session.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mahir-live/mahir/internal/dotenv"
	"github.com/mahir-live/mahir/pkg/creds"
	"github.com/mahir-live/mahir/pkg/live"
	"github.com/mahir-live/mahir/pkg/speech"
	"github.com/mahir-live/mahir/pkg/translate"
)

func main() {
	os.Exit(runMain())
}

func runMain() int {
	if err := dotenv.Load(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		return 2
	}

	switch args[0] {
	case "live":
		return runLive(args[1:])
	case "translate":
		return runTranslate(args[1:])
	case "speak":
		return runSpeak(args[1:])
	case "set-key":
		return runSetKey(args[1:])
	case "-h", "--help", "help":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `mahir: Malay <-> Mandarin translator

Usage:
  mahir live                     start a live spoken interpreter session
  mahir translate [text]         translate text (reads stdin if no text)
  mahir speak [text]             speak text aloud
  mahir set-key [key]            store the Gemini API key (prompts if omitted)

Flags per command: see 'mahir <command> -h'.
The API key is read from the local store, then GEMINI_API_KEY.
`)
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runLive(args []string) int {
	fs := flag.NewFlagSet("live", flag.ExitOnError)
	model := fs.String("model", live.DefaultModel, "live dialog model")
	voice := fs.String("voice", live.DefaultVoice, "prebuilt voice name")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	log := newLogger(*debug)
	cfg := live.DefaultConfig()
	cfg.Model = *model
	cfg.Voice = *voice

	ctrl := live.NewController(cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(os.Stderr, "connecting... (Ctrl-C to stop)")
	if err := ctrl.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "\rdisconnecting...          ")
			ctrl.Disconnect()
			drainUntilIdle(ctrl)
			return 0
		case event := <-ctrl.Events():
			switch e := event.(type) {
			case live.StateChangedEvent:
				if e.State == live.StateIdle {
					fmt.Fprintln(os.Stderr, "\rsession ended             ")
					return 0
				}
				fmt.Fprintf(os.Stderr, "\rstatus: %s\n", e.State)
			case live.ErrorEvent:
				fmt.Fprintf(os.Stderr, "\rerror: %v\n", e.Err)
			case live.VolumeEvent:
				printMeter(e.Level)
			}
		}
	}
}

// drainUntilIdle consumes events until the controller reports idle, so
// teardown messages are not lost on exit. Bounded: the idle event can
// be dropped under a full event buffer.
func drainUntilIdle(ctrl *live.Controller) {
	deadline := time.After(3 * time.Second)
	for {
		select {
		case event := <-ctrl.Events():
			if e, ok := event.(live.StateChangedEvent); ok && e.State == live.StateIdle {
				return
			}
		case <-deadline:
			return
		}
	}
}

func printMeter(level float64) {
	const width = 24
	filled := int(level * width)
	if filled > width {
		filled = width
	}
	fmt.Fprintf(os.Stderr, "\rmic [%-*s]", width, strings.Repeat("#", filled))
}

func runTranslate(args []string) int {
	fs := flag.NewFlagSet("translate", flag.ExitOnError)
	speakOut := fs.Bool("speak", false, "speak the translation aloud when done")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	text, code := inputText(fs.Args())
	if code != 0 {
		return code
	}

	log := newLogger(*debug)
	slog.SetDefault(log)
	key, err := creds.DefaultStore().Lookup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := translate.NewClient(ctx, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	printed := 0
	result, err := client.Stream(ctx, text, func(full string) {
		fmt.Print(full[printed:])
		printed = len(full)
	})
	if printed > 0 {
		fmt.Println()
	}
	if err != nil {
		log.Debug("stream ended with partial output", "printed", printed)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if *speakOut && result != "" {
		speaker, err := speech.NewSpeaker(ctx, key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		if err := speaker.Speak(ctx, result); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
	}
	return 0
}

func runSpeak(args []string) int {
	fs := flag.NewFlagSet("speak", flag.ExitOnError)
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	text, code := inputText(fs.Args())
	if code != 0 {
		return code
	}

	slog.SetDefault(newLogger(*debug))
	key, err := creds.DefaultStore().Lookup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	speaker, err := speech.NewSpeaker(ctx, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if err := speaker.Speak(ctx, text); err != nil {
		if errors.Is(err, speech.ErrNoAudio) {
			fmt.Fprintln(os.Stderr, "error: no audio generated")
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		return 1
	}
	return 0
}

func runSetKey(args []string) int {
	fs := flag.NewFlagSet("set-key", flag.ExitOnError)
	clearKey := fs.Bool("clear", false, "remove the stored key instead")
	_ = fs.Parse(args)

	store := creds.DefaultStore()
	if *clearKey {
		if err := store.Clear(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		fmt.Fprintln(os.Stderr, "stored key removed")
		return 0
	}

	key := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if key == "" {
		fmt.Fprint(os.Stderr, "Gemini API key: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		key = strings.TrimSpace(line)
	}

	if err := store.Save(key); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(os.Stderr, "key saved")
	return 0
}

// inputText joins positional args, falling back to stdin so the
// command composes with pipes.
func inputText(args []string) (string, int) {
	if len(args) > 0 {
		return strings.Join(args, " "), 0
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: read stdin: %v\n", err)
		return "", 1
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		fmt.Fprintln(os.Stderr, "error: no input text")
		return "", 2
	}
	return text, 0
}
