package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"surveynerd/internal/apply"
	"surveynerd/internal/browser"
	"surveynerd/internal/config"
	"surveynerd/internal/learn"
	"surveynerd/internal/perception"
	"surveynerd/internal/persona"
	"surveynerd/internal/report"
	"surveynerd/internal/resolve"
	"surveynerd/internal/survey"
	"surveynerd/internal/traverse"
)

var version = "0.3.0"

var (
	// Global flags
	verbose    bool
	configPath string

	// run flags
	headless    bool
	snapshotDir string
	debuggerURL string

	// report flags
	reportLimit   int
	reportSession string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "surveynerd",
	Short: "surveyNERD - persona-driven survey automation",
	Long: `surveyNERD walks online surveys as a fixed synthetic persona.

Each page is transcribed by a vision oracle, every question is resolved
through a cascade (learned answer, pattern rule, generative inference,
widget heuristic), and the resolved value is entered through per-widget
interaction strategies. Questions the cascade cannot answer fall back to
a human at the terminal, and successful answers reinforce the learning
store for the next run.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run [survey-url]",
	Short: "Traverse a survey at the given URL",
	Long: `Opens the survey in Chrome and runs the full traversal loop:
classify the page, resolve each question, enter the value, advance,
until the survey completes or is aborted. Unresolvable questions are
handed to you at the terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: runSurvey,
}

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Show learned responses and mined rule candidates",
	RunE:  showPatterns,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show recent session summaries",
	RunE:  showReport,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("surveynerd %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default ~/.surveynerd/config.json)")

	runCmd.Flags().BoolVar(&headless, "headless", false, "Run Chrome headless (manual intervention needs a visible browser)")
	runCmd.Flags().StringVar(&snapshotDir, "snapshots", "", "Keep per-page screenshots in this directory")
	runCmd.Flags().StringVar(&debuggerURL, "attach", "", "Attach to a running Chrome debugger URL instead of launching")

	reportCmd.Flags().IntVar(&reportLimit, "limit", 20, "Number of sessions to show")
	reportCmd.Flags().StringVar(&reportSession, "session", "", "Show per-question outcomes for one session id")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(path)
}

// registryApplicator binds the strategy registry to the live page.
type registryApplicator struct {
	session  *browser.Session
	registry *apply.Registry
}

func (r *registryApplicator) Apply(ctx context.Context, q survey.QuestionContext, res survey.ResolutionResult) error {
	page := r.session.Page()
	if page == nil {
		return fmt.Errorf("%w: no page open", survey.ErrApplicationFailed)
	}
	return r.registry.Apply(ctx, page, q, res)
}

var _ traverse.Applicator = (*registryApplicator)(nil)

func runSurvey(cmd *cobra.Command, args []string) error {
	url := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = headless
	}
	if debuggerURL != "" {
		cfg.Browser.DebuggerURL = debuggerURL
	}
	if snapshotDir != "" {
		cfg.SnapshotDir = snapshotDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	// Persona
	pstore, err := persona.Load(cfg.PersonaPath)
	if err != nil {
		return fmt.Errorf("failed to load persona from %s (create one first): %w", cfg.PersonaPath, err)
	}

	// Learning store
	store, err := learn.Open(cfg.LearnDir, logger)
	if err != nil {
		return fmt.Errorf("failed to open learning store: %w", err)
	}

	// Oracles
	ocfg := perception.DefaultGeminiConfig(cfg.Oracle.APIKey)
	ocfg.TranscribeModel = cfg.Oracle.TranscribeModel
	ocfg.AnswerModel = cfg.Oracle.AnswerModel
	ocfg.Timeout = time.Duration(cfg.Oracle.TimeoutSeconds) * time.Second
	oracle, err := perception.NewGeminiOracle(ctx, ocfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize oracle: %w", err)
	}

	// Browser session
	bcfg := browser.Config{
		DebuggerURL:         cfg.Browser.DebuggerURL,
		Headless:            cfg.Browser.Headless,
		ViewportWidth:       cfg.Browser.ViewportWidth,
		ViewportHeight:      cfg.Browser.ViewportHeight,
		NavigationTimeoutMs: cfg.Browser.NavigationTimeoutMs,
		SettleTimeoutMs:     cfg.Browser.SettleTimeoutMs,
	}
	session := browser.NewSession(bcfg, logger)
	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() { _ = session.Shutdown() }()

	if err := session.Open(ctx, url); err != nil {
		return fmt.Errorf("failed to open survey: %w", err)
	}

	// Report sink
	sink, err := report.Open(cfg.ReportDB, logger)
	if err != nil {
		return fmt.Errorf("failed to open report store: %w", err)
	}
	defer func() { _ = sink.Close() }()

	// Pipeline
	observer := traverse.NewPageObserver(session, oracle, perception.NewClassifier(logger), logger)
	observer.SnapshotDir = cfg.SnapshotDir

	matcher := learn.NewMatcher(store, pstore, logger)
	cascade := resolve.New(store, matcher, oracle, logger)

	applicator := &registryApplicator{
		session:  session,
		registry: apply.NewRegistry(logger),
	}
	advancer := traverse.NewPageAdvancer(session, logger)
	intervener := traverse.NewTerminalIntervener(session, os.Stdin, os.Stdout, logger)

	controller := traverse.New(observer, cascade, applicator, advancer, intervener, store, sink, logger)
	logger.Info("Starting traversal",
		zap.String("session_id", controller.SessionID()),
		zap.String("url", url))

	summary, runErr := controller.Run(ctx)
	printSummary(summary)
	return runErr
}

func printSummary(s survey.SessionSummary) {
	fmt.Println()
	fmt.Printf("Session %s\n", s.SessionID)
	fmt.Printf("  automated: %d  manual: %d  failed: %d\n", s.AutomatedCount, s.ManualCount, s.FailedCount)
	if s.Points > 0 {
		fmt.Printf("  points:    %d\n", s.Points)
	}
	fmt.Printf("  duration:  %s\n", s.Duration.Round(time.Second))
}

func showPatterns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := learn.Open(cfg.LearnDir, logger)
	if err != nil {
		return fmt.Errorf("failed to open learning store: %w", err)
	}

	responses := store.Responses()
	fmt.Printf("Learned responses (%d):\n", len(responses))
	for key, entry := range responses {
		fmt.Printf("  %-50.50s -> %-30.30s  [%s, conf %.2f, used %d]\n",
			key, entry.Answer, entry.Family, entry.Confidence, entry.SuccessCount)
	}

	candidates := store.Candidates()
	if len(candidates) > 0 {
		fmt.Printf("\nRule candidates mined from manual answers (%d):\n", len(candidates))
		for _, c := range candidates {
			fmt.Printf("  %-50.50s -> %-30.30s  [seen %dx, session %s]\n",
				c.Question, c.Answer, c.Count, c.SessionID)
		}
	}
	return nil
}

func showReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sink, err := report.Open(cfg.ReportDB, logger)
	if err != nil {
		return fmt.Errorf("failed to open report store: %w", err)
	}
	defer func() { _ = sink.Close() }()

	if reportSession != "" {
		outcomes, err := sink.Outcomes(reportSession)
		if err != nil {
			return err
		}
		fmt.Printf("Outcomes for session %s (%d):\n", reportSession, len(outcomes))
		for _, o := range outcomes {
			mode := "manual"
			if o.Automated {
				mode = "auto"
			}
			fmt.Printf("  [%-6s] %-50.50s -> %-30.30s (%s, conf %.2f)\n",
				mode, o.Question, o.Answer, o.Type, o.Confidence)
		}
		return nil
	}

	sessions, err := sink.Sessions(reportLimit)
	if err != nil {
		return err
	}
	fmt.Printf("Recent sessions (%d):\n", len(sessions))
	for _, s := range sessions {
		fmt.Printf("  %s  %s  auto %d / manual %d / failed %d  %s\n",
			s.StartedAt.Format("2006-01-02 15:04"), s.SessionID,
			s.AutomatedCount, s.ManualCount, s.FailedCount, s.Duration.Round(time.Second))
	}
	return nil
}
