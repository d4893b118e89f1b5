package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"chatterm/internal/chat"
	"chatterm/internal/config"
	"chatterm/internal/history"
	"chatterm/internal/llm"
	"chatterm/internal/observability"
	"chatterm/internal/offline"
	"chatterm/internal/terminal"
	"chatterm/internal/ui"
)

// Version information (set at build time)
var Version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// flagValues holds command-line flags; only flags the user set override config
type flagValues struct {
	configPath   string
	apiKey       string
	provider     string
	baseURL      string
	model        string
	temperature  float64
	systemPrompt string
	stream       bool
	noStream     bool
	timeout      time.Duration
	maxTokens    int
	logLevel     string
	logFile      string
	noMarkdown   bool
	proxy        string
	noProxy      string
}

func newRootCmd() *cobra.Command {
	var fv flagValues

	cmd := &cobra.Command{
		Use:          "chatterm",
		Short:        "Terminal chatbot with a remote LLM or an offline demo responder",
		Version:      Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(fv.configPath)
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			applyFlags(cmd, cfg, &fv)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			// Setup graceful shutdown
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigChan
				fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down...")
				os.Exit(0)
			}()

			return run(cmd.Context(), cfg, !fv.noMarkdown, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&fv.configPath, "config", "", "path to a TOML config file (default ~/.chatterm/config.toml)")
	f.StringVar(&fv.apiKey, "api-key", "", "API key for the remote model; without one replies come from the offline demo")
	f.StringVar(&fv.provider, "provider", "", "remote backend: openai, ollama or anthropic")
	f.StringVar(&fv.baseURL, "base-url", "", "override the remote API base URL")
	f.StringVar(&fv.model, "model", "", "model name")
	f.Float64Var(&fv.temperature, "temperature", 0, "sampling temperature (0.0-1.0)")
	f.StringVar(&fv.systemPrompt, "system-prompt", "", "system prompt sent before the conversation")
	f.BoolVar(&fv.stream, "stream", true, "stream replies as they are generated")
	f.BoolVar(&fv.noStream, "no-stream", false, "wait for the whole reply before showing it")
	f.DurationVar(&fv.timeout, "timeout", 0, "remote request timeout")
	f.IntVar(&fv.maxTokens, "max-tokens", 0, "maximum reply length in tokens")
	f.StringVar(&fv.logLevel, "log-level", "", "log level: debug, info, warn or error")
	f.StringVar(&fv.logFile, "log-file", "", "write logs to this file instead of stderr")
	f.BoolVar(&fv.noMarkdown, "no-markdown", false, "print replies without markdown rendering")
	f.StringVar(&fv.proxy, "proxy", "", "proxy URL for remote calls (default from HTTP_PROXY/HTTPS_PROXY)")
	f.StringVar(&fv.noProxy, "no-proxy", "", "hosts that bypass the proxy (default from NO_PROXY)")

	return cmd
}

// applyFlags overrides config values with the flags that were set
func applyFlags(cmd *cobra.Command, cfg *config.Config, fv *flagValues) {
	changed := cmd.Flags().Changed

	if changed("api-key") {
		cfg.APIKey = fv.apiKey
	}
	if changed("provider") {
		cfg.Provider = fv.provider
	}
	if changed("base-url") {
		cfg.BaseURL = fv.baseURL
	}
	if changed("model") {
		cfg.ModelName = fv.model
	}
	if changed("temperature") {
		cfg.Temperature = fv.temperature
	}
	if changed("system-prompt") {
		cfg.SystemPrompt = fv.systemPrompt
	}
	if changed("stream") {
		cfg.Stream = fv.stream
	}
	// --no-stream takes precedence if specified
	if fv.noStream {
		cfg.Stream = false
	}
	if changed("timeout") {
		cfg.Timeout = fv.timeout
	}
	if changed("max-tokens") {
		cfg.MaxTokens = fv.maxTokens
	}
	if changed("log-level") {
		cfg.LogLevel = fv.logLevel
	}
	if changed("log-file") {
		cfg.LogFile = fv.logFile
	}
	if changed("proxy") {
		cfg.Proxy = fv.proxy
	}
	if changed("no-proxy") {
		cfg.NoProxy = fv.noProxy
	}
}

// run drives the conversation loop until exit or end of input
func run(ctx context.Context, cfg *config.Config, markdown bool, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	display := ui.NewDisplay(out, markdown)

	// The remote capability is resolved once here
	completer, err := llm.New(cfg.LLMOptions())
	remoteAvailable := err == nil
	if err != nil {
		display.PrintWarning(fmt.Sprintf("Remote backend unavailable: %v", err))
		observability.Logger().Warn("remote backend unavailable", "provider", cfg.Provider, "error", err)
	}

	settings := cfg.Settings(remoteAvailable)
	if settings.Remote() {
		checkBackend(ctx, completer, display)
	}

	store := history.NewStore()
	controller := chat.NewController(completer, offline.NewResponder(), display)
	reader := terminal.NewReader(in)

	display.PrintWelcome(cfg.ModelName, settings.Remote())
	observability.WithFields(
		"session_id", store.SessionID(),
		"started_at", store.StartedAt().Format(time.RFC3339),
	).Info("session started",
		"provider", cfg.Provider,
		"model", cfg.ModelName,
		"api_key", cfg.MaskedAPIKey(),
	)

	// Main conversation loop
	for {
		display.PrintPrompt()
		line, err := reader.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return fmt.Errorf("failed to read input: %w", err)
			}
			break
		}

		cmd, arg := terminal.ParseCommand(line)
		switch cmd {
		case terminal.CmdNone:
			continue
		case terminal.CmdExit:
			display.PrintGoodbye()
			return nil
		case terminal.CmdReset:
			sessionCtx := observability.WithSessionID(ctx, store.SessionID())
			controller.Reset(sessionCtx, store)
		case terminal.CmdHistory:
			display.PrintHistory(store.Snapshot())
		case terminal.CmdModels:
			listModels(ctx, completer, display)
		case terminal.CmdHelp:
			display.PrintInfo(terminal.HelpText)
		case terminal.CmdModel, terminal.CmdTemperature, terminal.CmdStream, terminal.CmdSystem, terminal.CmdKey:
			if changeSetting(cfg, cmd, arg, display) {
				settings = cfg.Settings(remoteAvailable)
				display.SetMode(cfg.ModelName, settings.Remote())
			}
		case terminal.CmdMessage:
			sessionCtx := observability.WithSessionID(ctx, store.SessionID())
			controller.HandleUserMessage(sessionCtx, line, settings, store)
		}
	}

	display.PrintGoodbye()
	return nil
}

// settingNames maps setting commands to config settings
var settingNames = map[terminal.Command]string{
	terminal.CmdModel:       config.SettingModel,
	terminal.CmdTemperature: config.SettingTemperature,
	terminal.CmdStream:      config.SettingStream,
	terminal.CmdSystem:      config.SettingSystemPrompt,
	terminal.CmdKey:         config.SettingAPIKey,
}

// changeSetting applies a setting command to cfg and reports whether it changed
func changeSetting(cfg *config.Config, cmd terminal.Command, arg string, display *ui.Display) bool {
	name := settingNames[cmd]

	// Without an argument, show the current value (except /key, which clears it)
	if arg == "" && cmd != terminal.CmdKey {
		display.PrintInfo(fmt.Sprintf("%s: %s", name, currentSetting(cfg, name)))
		return false
	}

	if err := cfg.Set(name, arg); err != nil {
		display.PrintWarning(fmt.Sprintf("Setting not changed: %v", err))
		return false
	}

	observability.WithFields("setting", name).Info("setting changed", "value", currentSetting(cfg, name))
	display.PrintInfo(fmt.Sprintf("%s set to %s", name, currentSetting(cfg, name)))
	if cmd == terminal.CmdKey {
		if cfg.APIKey == "" {
			display.PrintInfo("Replies now come from the offline demo")
		} else {
			display.PrintInfo("Replies now come from the remote model")
		}
	}
	return true
}

// currentSetting formats a setting for display; the API key is masked
func currentSetting(cfg *config.Config, name string) string {
	switch name {
	case config.SettingModel:
		return cfg.ModelName
	case config.SettingTemperature:
		return strconv.FormatFloat(cfg.Temperature, 'f', -1, 64)
	case config.SettingStream:
		if cfg.Stream {
			return "on"
		}
		return "off"
	case config.SettingSystemPrompt:
		return cfg.SystemPrompt
	case config.SettingAPIKey:
		return cfg.MaskedAPIKey()
	default:
		return ""
	}
}

// setupLogging installs the global logger; the returned func closes any log file
func setupLogging(cfg *config.Config) (func(), error) {
	var w io.Writer = os.Stderr
	closeFn := func() {}

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	}

	logger, err := observability.NewLogger(w, cfg.LogLevel)
	if err != nil {
		closeFn()
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	observability.SetLogger(logger)
	return closeFn, nil
}

// checkBackend runs a non-fatal health check for backends that support one
func checkBackend(ctx context.Context, completer llm.Completer, display *ui.Display) {
	checker, ok := completer.(interface {
		HealthCheck(ctx context.Context) error
	})
	if !ok {
		return
	}
	if err := checker.HealthCheck(ctx); err != nil {
		display.PrintWarning(fmt.Sprintf("Backend check failed: %v", err))
		display.PrintInfo("Replies will show an error until the backend is reachable.")
	}
}

// listModels prints the models offered by the remote backend
func listModels(ctx context.Context, completer llm.Completer, display *ui.Display) {
	lister, ok := completer.(llm.ModelLister)
	if !ok {
		display.PrintInfo("This backend cannot list models")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	models, err := lister.ListModels(ctx)
	if err != nil {
		display.PrintWarning(fmt.Sprintf("Failed to list models: %v", err))
		return
	}
	display.PrintModels(models)
}
