// Package main provides the entry point for the stillness CLI, a guided
// meditation session player: it reads a timed cue script, synthesizes
// each cue through a remote speech gateway, and speaks the cues at their
// offsets over a bounded session clock.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/stillness/internal/script"
	"github.com/dgnsrekt/stillness/internal/session"
	"github.com/dgnsrekt/stillness/internal/synth"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	duration   int
	voiceName  string
	gatewayURL string
	apiKey     string
	preload    bool
	retry      bool
	watch      bool
	dryRun     bool
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "stillness SCRIPT",
		Short: "Play timed, spoken meditation sessions in your terminal",
		Long: paragraph(
			fmt.Sprintf("\nPlay a %s meditation session from a timed cue script. Each line of the script pairs a MM:SS offset with the words to speak at that moment.", keyword("guided")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.ExactArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(cmd *cobra.Command) error {
	duration = viper.GetInt("duration")
	voiceName = viper.GetString("voice")
	gatewayURL = viper.GetString("gateway.url")
	apiKey = viper.GetString("gateway.api_key")
	preload = viper.GetBool("preload")
	retry = viper.GetBool("retry")

	if viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}

	if duration <= 0 {
		return fmt.Errorf("session duration must be positive, got %d", duration)
	}
	if _, err := synth.ParseVoice(voiceName); err != nil {
		return err
	}
	if !dryRun && gatewayURL == "" {
		return fmt.Errorf("no speech gateway configured: set %s, the STILLNESS_GATEWAY_URL variable, or pass --dry-run", keyword("gateway.url"))
	}
	return nil
}

func execute(cmd *cobra.Command, args []string) error {
	scriptPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("unable to resolve script path: %w", err)
	}
	cues, err := script.ParseFile(scriptPath)
	if err != nil {
		return err
	}
	if len(cues) == 0 {
		return fmt.Errorf("script %s contains no cues", scriptPath)
	}

	cfg, err := session.ConfigFromEnv()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("duration") || viper.IsSet("duration") {
		cfg.DurationSeconds = duration
	}
	voice, err := synth.ParseVoice(voiceName)
	if err != nil {
		return err
	}
	cfg.Voice = string(voice)
	cfg.PreloadEnabled = preload
	cfg.RetryOnFailure = retry
	if err := cfg.Validate(); err != nil {
		return err
	}

	gateway, err := buildGateway()
	if err != nil {
		return err
	}

	r, err := newRunner(cfg, gateway, cues, scriptPath, watch)
	if err != nil {
		return err
	}
	return r.run()
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.Flags().IntVarP(&duration, "duration", "d", 600, "session length in seconds")
	rootCmd.Flags().StringVarP(&voiceName, "voice", "v", string(synth.DefaultVoice), "synthesis voice (aria, orion, luna, sage, ember, willow)")
	rootCmd.Flags().StringVar(&gatewayURL, "gateway-url", "", "speech gateway base URL")
	rootCmd.Flags().StringVar(&apiKey, "api-key", "", "speech gateway API key")
	rootCmd.Flags().BoolVar(&preload, "preload", true, "synthesize all cues up front in one batch")
	rootCmd.Flags().BoolVar(&retry, "retry", false, "retry a failed cue once before skipping it")
	rootCmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload the script when it changes on disk")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "run without a gateway, using silent placeholder audio")

	_ = viper.BindPFlag("duration", rootCmd.Flags().Lookup("duration"))
	_ = viper.BindPFlag("voice", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("gateway.url", rootCmd.Flags().Lookup("gateway-url"))
	_ = viper.BindPFlag("gateway.api_key", rootCmd.Flags().Lookup("api-key"))
	_ = viper.BindPFlag("preload", rootCmd.Flags().Lookup("preload"))
	_ = viper.BindPFlag("retry", rootCmd.Flags().Lookup("retry"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	viper.SetDefault("duration", 600)
	viper.SetDefault("voice", string(synth.DefaultVoice))
	viper.SetDefault("preload", true)
	viper.SetDefault("retry", false)

	rootCmd.AddCommand(configCmd, manCmd, voicesCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "stillness")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "stillness")}, dirs...)
	}

	if c := os.Getenv("STILLNESS_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("stillness")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("stillness")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "stillness.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
