package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pitchpal/pitchpal-go/pkg/intent"
	"github.com/pitchpal/pitchpal-go/pkg/plugin"
	_ "github.com/pitchpal/pitchpal-go/pkg/plugin/fake"   // Import to register fake providers
	_ "github.com/pitchpal/pitchpal-go/pkg/plugin/openai" // Import to register OpenAI providers
	"github.com/pitchpal/pitchpal-go/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "pitchpal",
	Short: "PitchPal - practice sales and interview conversations against an AI prospect",
	Long: `pitchpal runs role-play practice sessions: it detects when you stop
talking, has an AI prospect answer back, suggests your next scripted line,
and produces coaching feedback at the end of the call.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetVersionInfo())
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Classify an utterance against the intent catalog",
	Long: `Classify free text into the fixed intent catalog used for script
suggestions. Useful for debugging why a given prospect reply routes to a
particular scripted response.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		match := intent.Classify(text)

		out := map[string]any{
			"intent":     match.Key,
			"label":      match.Label,
			"confidence": match.Confidence,
			"priority":   match.Priority,
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	},
}

var pluginsCmd = &cobra.Command{
	Use:   "plugins [kind]",
	Short: "List registered providers",
	Long: `List all registered providers or providers of a specific kind.
Available kinds: stt, tts, llm, feedback`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := ""
		if len(args) > 0 {
			kind = args[0]
		}

		plugins := plugin.List(kind)
		if len(plugins) == 0 {
			if kind == "" {
				fmt.Println("No providers registered")
			} else {
				fmt.Printf("No providers registered for kind: %s\n", kind)
			}
			return nil
		}

		fmt.Printf("%-10s %-12s %-10s %s\n", "KIND", "NAME", "VERSION", "DESCRIPTION")
		fmt.Println("------------------------------------------------------------")
		for _, p := range plugins {
			v := p.Version
			if v == "" {
				v = "N/A"
			}
			d := p.Description
			if d == "" {
				d = "No description"
			}
			fmt.Printf("%-10s %-12s %-10s %s\n", p.Kind, p.Name, v, d)
		}
		return nil
	},
}

func setupLogger() *slog.Logger {
	logFormat := os.Getenv("PITCHPAL_LOG_FORMAT")
	logLevel := os.Getenv("PITCHPAL_LOG_LEVEL")

	opts := &slog.HandlerOptions{}
	switch logLevel {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	var handler slog.Handler
	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func init() {
	rootCmd.AddCommand(versionCmd, runCmd, classifyCmd, pluginsCmd)
}

func main() {
	// Optional .env for OPENAI_API_KEY and backend sync settings.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
