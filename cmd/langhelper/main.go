package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/miaai/langhelper/internal/extract"
	"github.com/miaai/langhelper/internal/gpt"
	"github.com/miaai/langhelper/internal/handler"
	"github.com/miaai/langhelper/internal/ocr"
	"github.com/miaai/langhelper/internal/service"
	"github.com/miaai/langhelper/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "langhelper",
		Short: "Turns scanned textbook pages and prompts into typed language exercises",
	}

	serve := serveCmd()
	root.AddCommand(serve)

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `langhelper --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP exercise server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "langhelper.db", "SQLite database path")
	f.String("api-url", "https://api.openai.com/v1", "OpenAI-compatible API base URL")
	f.String("api-key", "", "API key for the model endpoint")
	f.String("model", "gpt-4o-mini", "Model name")
	f.Duration("model-timeout", gpt.DefaultTimeout, "Per-call model timeout")
	f.Uint("retry-attempts", 2, "Extra attempts after a timed-out model call")
	f.StringSlice("ocr-languages", []string{"eng", "rus"}, "Tesseract language hints")
	f.String("tessdata", "", "Tesseract data directory (empty = system default)")
	f.Int("max-pages", 10, "Maximum PDF pages recognized per upload")
	f.Int("dpi", 150, "PDF rasterization DPI")
	f.Int("max-image-width", 1600, "Downsample images wider than this")
	f.Int("max-image-height", 1200, "Downsample images taller than this")
	f.String("public-base-url", "http://localhost:8080", "Base URL used in share links")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("LANGHELPER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("langhelper")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/langhelper")
	v.AddConfigPath("/etc/langhelper")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	if v.GetString("api-key") == "" {
		return fmt.Errorf("api key is required: set --api-key flag or LANGHELPER_API_KEY env var")
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	engine := ocr.NewTesseract(v.GetStringSlice("ocr-languages"), v.GetString("tessdata"))
	extractor := extract.New(engine, extract.Config{
		MaxPages:  v.GetInt("max-pages"),
		DPI:       v.GetInt("dpi"),
		MaxWidth:  v.GetInt("max-image-width"),
		MaxHeight: v.GetInt("max-image-height"),
	})

	gateway := gpt.NewClient(
		v.GetString("api-url"),
		v.GetString("api-key"),
		v.GetString("model"),
		v.GetDuration("model-timeout"),
	)
	defer gateway.Close()

	svc := service.New(extractor, gateway, db, v.GetUint("retry-attempts"))

	h := handler.New(db, svc, handler.Config{
		PublicBaseURL: strings.TrimRight(v.GetString("public-base-url"), "/"),
	})

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", v.GetString("model"),
		"api_url", v.GetString("api-url"),
		"ocr_languages", v.GetStringSlice("ocr-languages"),
		"max_pages", v.GetInt("max-pages"),
		"dpi", v.GetInt("dpi"),
	)
	return http.ListenAndServe(addr, r)
}
