package main

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"inventory-search/internal/config"
	"inventory-search/internal/infra/logx"
	"inventory-search/internal/inventory"
	"inventory-search/internal/ui"
)

var (
	cfgPath    string
	baseURL    string
	fieldsPath string
	debug      bool
	logLevel   string
	timeout    time.Duration
	debounce   time.Duration
	minChars   int

	logFile *os.File
)

var rootCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Search the inventory from the terminal",
	Long: `inventory opens a two-pane terminal UI against the inventory backend.

The edit pane fills location and tag fields from live suggestions. The
browse pane looks items up by attribute and lists them as cards.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logx.Sync()
		if logFile != nil {
			_ = logFile.Close()
		}
	},
	RunE: runTUI,
}

var probeCmd = &cobra.Command{
	Use:   "probe [query]",
	Short: "Query every bound endpoint once and report what answers",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProbe,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the current settings to the rc file",
	RunE:  runInit,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgPath, "config", config.DefaultPath(), "rc file")
	pf.StringVar(&baseURL, "url", "", "backend base URL (overrides "+config.KeyURL+")")
	pf.StringVar(&fieldsPath, "fields", "", "layout file, .toml or .yaml (overrides "+config.KeyFields+")")
	pf.BoolVar(&debug, "debug", false, "write untruncated debug logs to debug.log")
	pf.StringVar(&logLevel, "log-level", "", "write logs at this level (debug, info, warn, error) to debug.log (overrides "+envLogLevel+")")
	pf.DurationVar(&timeout, "timeout", 0, "per-request timeout")
	pf.DurationVar(&debounce, "debounce", 0, "wait for typing to pause before querying")
	pf.IntVar(&minChars, "min-chars", 0, "shortest query sent to the backend")

	rootCmd.AddCommand(probeCmd, initCmd)
}

const envLogLevel = "INVENTORY_LOG_LEVEL"

// logSettings decides whether to log and how. --debug wins over any level.
func logSettings(debugFlag bool, levelFlag string, getenv func(string) string) (enabled bool, lvl logx.Level, verbose bool) {
	if debugFlag || getenv("DEBUG") != "" {
		return true, logx.LevelDebug, true
	}
	if levelFlag == "" {
		levelFlag = getenv(envLogLevel)
	}
	if levelFlag == "" {
		return false, logx.LevelWarn, false
	}
	return true, logx.ParseLevel(levelFlag), false
}

func setupLogging(cmd *cobra.Command, args []string) error {
	enabled, lvl, verbose := logSettings(debug, logLevel, os.Getenv)
	if !enabled {
		return nil
	}
	f, err := os.OpenFile("debug.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open debug log: %w", err)
	}
	logFile = f
	logx.SetOutput(f)
	logx.SetMinLevel(lvl)
	logx.SetVerbose(verbose)
	log.SetFlags(0)
	log.SetOutput(logx.StdlogWriter(logx.LevelDebug, f))
	logx.Infow("logging", "level", lvl.String(), "verbose", logx.Verbose())
	fmt.Fprintf(cmd.ErrOrStderr(), "Logging at %s to debug.log. Run 'tail -f debug.log' to view logs.\n", lvl)
	return nil
}

// urlSecrets returns the credentials embedded in raw, if any.
func urlSecrets(raw string) []string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return nil
	}
	out := []string{u.User.String()}
	if pw, ok := u.User.Password(); ok {
		out = append(out, pw)
	}
	return out
}

// settings merges the rc file, the environment and the command line.
func settings(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.BaseURL = baseURL
	}
	if flags.Changed("fields") {
		cfg.FieldsPath = fieldsPath
	}
	if flags.Changed("timeout") && timeout > 0 {
		cfg.Timeout = timeout
	}
	if flags.Changed("debounce") {
		cfg.Debounce = max(debounce, 0)
	}
	if flags.Changed("min-chars") && minChars > 0 {
		cfg.MinChars = minChars
	}
	return cfg, nil
}

func layoutFor(cfg config.Config) (config.Layout, error) {
	if cfg.FieldsPath == "" {
		return config.DefaultLayout(), nil
	}
	return config.LoadLayout(cfg.FieldsPath)
}

func clientFor(cfg config.Config) (*inventory.Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("no backend URL: pass --url, set " + config.KeyURL + " or run 'inventory init --url ...'")
	}
	logx.RegisterSecrets(urlSecrets(cfg.BaseURL))
	return inventory.New(cfg.BaseURL)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := settings(cmd)
	if err != nil {
		return err
	}
	layout, err := layoutFor(cfg)
	if err != nil {
		return err
	}
	client, err := clientFor(cfg)
	if err != nil {
		return err
	}
	logx.Infow("starting", "url", cfg.BaseURL, "timeout", cfg.Timeout, "debounce", cfg.Debounce, "min_chars", cfg.MinChars)

	model, err := ui.New(cfg, layout, client, client.Metrics())
	if err != nil {
		return err
	}
	defer model.Close()

	if _, err := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	).Run(); err != nil {
		logx.Errorw("ui exited", "err", err)
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := settings(cmd)
	if err != nil {
		return err
	}
	if _, err := clientFor(cfg); err != nil {
		return err
	}
	if _, err := layoutFor(cfg); err != nil {
		return err
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("save %s: %w", cfgPath, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", cfgPath)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
