package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/agentops/evogate/pkg/config"
	"github.com/agentops/evogate/pkg/datasource"
	"github.com/agentops/evogate/pkg/dimension"
	"github.com/agentops/evogate/pkg/gate"
	"github.com/agentops/evogate/pkg/models"
	"github.com/agentops/evogate/pkg/monitor"
	"github.com/agentops/evogate/pkg/proposer"
	"github.com/agentops/evogate/pkg/reporter"
	"github.com/agentops/evogate/pkg/runner"
	"github.com/agentops/evogate/pkg/sandbox"
	"github.com/agentops/evogate/pkg/storage"
	"github.com/agentops/evogate/pkg/workflow"
)

var (
	// Validate flags
	workflowPath   string
	proposedPath   string
	scenariosPath  string
	proposalID     string
	limitingFactor string
	saveResult     bool
	outputFormat   string
	verbose        bool

	// History flags
	historyLimit int
	reportFormat string
	reportOutput string

	// Status flags
	promJob         string
	scaleMultiplier float64

	// Reflect flags
	deployApproved bool

	// Global config
	cfg    *config.Config
	store  storage.Store
	logger *slog.Logger
)

func main() {
	cfg = config.NewConfig()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "evogate",
		Short: "Gated validation for agent workflow changes",
		Long:  `Validate proposed workflow optimizations in an isolated sandbox before they reach production: baseline vs candidate runs, per-dimension delta analysis, scale linearity, and an approve/reject gate.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogger()
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a proposed workflow against the current one",
		Run:   runValidate,
	}
	validateCmd.Flags().StringVar(&workflowPath, "current", "", "Path to the current workflow (YAML or JSON)")
	validateCmd.Flags().StringVar(&proposedPath, "proposed", "", "Path to the proposed workflow (YAML or JSON)")
	validateCmd.Flags().StringVar(&scenariosPath, "scenarios", "", "Path to the test scenario list")
	validateCmd.Flags().StringVar(&proposalID, "proposal-id", "", "Proposal identifier (generated if empty)")
	validateCmd.Flags().StringVar(&limitingFactor, "limiting-factor", "", "Pre-identified bottleneck dimension (skips identification)")
	validateCmd.Flags().BoolVar(&saveResult, "save", false, "Persist and publish the verdict")
	validateCmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json")

	reflectCmd := &cobra.Command{
		Use:   "reflect",
		Short: "Reflect on live performance and validate generated proposals",
		Long:  `Read current dimension values from Prometheus, identify the bottleneck, generate optimization proposals for it, and validate each one in the sandbox. With --deploy the first approved proposal is recorded as deployed.`,
		Run:   runReflect,
	}
	reflectCmd.Flags().StringVar(&workflowPath, "current", "", "Path to the current workflow (YAML or JSON)")
	reflectCmd.Flags().StringVar(&scenariosPath, "scenarios", "", "Path to the test scenario list")
	reflectCmd.Flags().StringVar(&promJob, "job", "agent-runtime", "Prometheus job label of the observed runtime")
	reflectCmd.Flags().BoolVar(&saveResult, "save", false, "Persist and publish each verdict")
	reflectCmd.Flags().BoolVar(&deployApproved, "deploy", false, "Deploy the first approved proposal")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "View past validation verdicts",
		Run:   runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of verdicts to show")
	historyCmd.Flags().StringVar(&reportFormat, "report-format", "", "Generate a report: markdown, csv")
	historyCmd.Flags().StringVar(&reportOutput, "report-output", "", "Output file for the report")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show live dimension readings and the current bottleneck",
		Run:   runStatus,
	}
	statusCmd.Flags().StringVar(&promJob, "job", "agent-runtime", "Prometheus job label of the observed runtime")
	statusCmd.Flags().Float64Var(&scaleMultiplier, "project-scale", 0, "Project dimensions at this load multiplier")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(reflectCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statusCmd)

	return rootCmd
}

func initLogger() {
	level := slog.LevelInfo
	if verbose || cfg.Verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
	slog.SetDefault(logger)
}

func initStorage() error {
	if !cfg.StorageEnabled {
		return fmt.Errorf("storage is disabled (set STORAGE_ENABLED=true)")
	}
	var err error
	store, err = storage.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) {
	if workflowPath == "" || proposedPath == "" || scenariosPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --current, --proposed and --scenarios are required")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	current, err := workflow.LoadDocument(workflowPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	proposed, err := workflow.LoadDocument(proposedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	scenarios, err := workflow.LoadScenarios(scenariosPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	clientset, metricsClient, err := sandbox.NewClients()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to cluster: %v\n", err)
		os.Exit(1)
	}
	backend := sandbox.NewKubeBackend(clientset, metricsClient, cfg.SandboxNamespace, cfg.SandboxImage, logger)

	runnerOpts := []runner.Option{runner.WithLogger(logger)}
	gateOpts := []gate.Option{gate.WithLogger(logger)}
	if saveResult {
		if err := initStorage(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		runnerOpts = append(runnerOpts, runner.WithCache(store, time.Hour))
		gateOpts = append(gateOpts, gate.WithStore(store))
	}

	run := runner.New(backend, runnerOpts...)
	validator := gate.NewValidator(cfg.GateConfig(), run, gateOpts...)

	if proposalID == "" {
		proposalID = fmt.Sprintf("manual-%d", time.Now().Unix())
	}

	result, err := validator.Validate(context.Background(), gate.Request{
		ProposalID:       proposalID,
		CurrentWorkflow:  current,
		ProposedWorkflow: proposed,
		Scenarios:        scenarios,
		LimitingFactor:   limitingFactor,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch outputFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
			os.Exit(1)
		}
	default:
		if err := reporter.RenderResult(*result, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if !result.Approved {
		os.Exit(2)
	}
}

func runReflect(cmd *cobra.Command, args []string) {
	if workflowPath == "" || scenariosPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --current and --scenarios are required")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	current, err := workflow.LoadDocument(workflowPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	scenarios, err := workflow.LoadScenarios(scenariosPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	source, err := datasource.NewPrometheusSource(cfg.PrometheusURL, promJob, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !source.IsAvailable(ctx) {
		fmt.Fprintf(os.Stderr, "Error: Prometheus not reachable at %s\n", cfg.PrometheusURL)
		os.Exit(1)
	}
	values, err := source.ReadDimensions(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	mon := monitor.New(dimension.DefaultRegistry())
	mon.Record(values, map[string]any{"source": source.Name(), "job": promJob})
	fmt.Println(mon.Summary())

	clientset, metricsClient, err := sandbox.NewClients()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to cluster: %v\n", err)
		os.Exit(1)
	}
	backend := sandbox.NewKubeBackend(clientset, metricsClient, cfg.SandboxNamespace, cfg.SandboxImage, logger)

	runnerOpts := []runner.Option{runner.WithLogger(logger)}
	gateOpts := []gate.Option{gate.WithLogger(logger)}
	if saveResult {
		if err := initStorage(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		runnerOpts = append(runnerOpts, runner.WithCache(store, time.Hour))
		gateOpts = append(gateOpts, gate.WithStore(store))
	}

	run := runner.New(backend, runnerOpts...)
	validator := gate.NewValidator(cfg.GateConfig(), run, gateOpts...)
	engine := proposer.NewEngine(mon, validator, proposer.DefaultEngineConfig(), logger)

	approved, err := engine.ReflectAndPropose(ctx, current, scenarios)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	proposals := engine.Proposals()
	if len(proposals) == 0 {
		fmt.Println("\nPerformance healthy, no proposals generated")
		return
	}

	fmt.Printf("\nProposals:\n\n")
	for _, p := range proposals {
		fmt.Printf("- %s [%s] %s\n", p.ID, p.Type, p.Description)
		if p.Validation == nil {
			fmt.Println("  not validated")
			continue
		}
		fmt.Print("  ")
		if err := reporter.RenderResult(*p.Validation, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if len(approved) == 0 {
		fmt.Println("\nNothing passed the gate")
		os.Exit(2)
	}

	if deployApproved {
		d, err := engine.Deploy(approved[0].ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nDeployed: %s (%s)\n", d.ProposalID, d.Description)
	}
}

func runHistory(cmd *cobra.Command, args []string) {
	if err := initStorage(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	results, err := store.ListResults(ctx, historyLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(results) == 0 {
		fmt.Println("No validation results found")
		return
	}

	fmt.Printf("Recent validations:\n\n")
	for i, res := range results {
		fmt.Printf("%d. ", i+1)
		if err := reporter.RenderResult(*res, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("   At: %s\n\n", res.Timestamp.Format("2006-01-02 15:04:05"))
	}

	if reportFormat != "" {
		if err := generateHistoryReport(results); err != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] Failed to generate report: %v\n", err)
		}
	}
}

func runStatus(cmd *cobra.Command, args []string) {
	if cfg.PrometheusURL == "" {
		fmt.Fprintln(os.Stderr, "Error: PROMETHEUS_URL is not configured")
		os.Exit(1)
	}

	source, err := datasource.NewPrometheusSource(cfg.PrometheusURL, promJob, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if !source.IsAvailable(ctx) {
		fmt.Fprintf(os.Stderr, "Error: Prometheus not reachable at %s\n", cfg.PrometheusURL)
		os.Exit(1)
	}

	values, err := source.ReadDimensions(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	mon := monitor.New(dimension.DefaultRegistry())
	mon.Record(values, map[string]any{"source": source.Name(), "job": promJob})

	fmt.Println(mon.Summary())

	b := mon.IdentifyBottleneck()
	if b.Name != "" {
		fmt.Printf("\nCurrent bottleneck: %s (%.1f%% of bound, %.2f %s)\n",
			b.Name, b.Severity*100, b.Current, b.Unit)
	}

	if scaleMultiplier > 1 {
		projections := mon.ProjectAtScale(scaleMultiplier)
		fmt.Printf("\nProjected at %.0fx load:\n", scaleMultiplier)
		for _, name := range sortedProjectionKeys(projections) {
			fmt.Printf("  %s: %.2f\n", name, projections[name])
		}
		violations := mon.CheckConstraints(projections)
		for _, v := range violations {
			fmt.Printf("  [WARN] %s would exceed its limit: %.2f > %.2f %s\n", v.Dimension, v.Projected, v.Limit, v.Unit)
		}
	}
}

func sortedProjectionKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func generateHistoryReport(results []*models.ValidationResult) error {
	rep := reporter.New(reporter.ReportFormat(reportFormat))

	deref := make([]models.ValidationResult, len(results))
	for i, r := range results {
		deref[i] = *r
	}

	report, err := rep.Generate(deref, "validation history")
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	reportsDir := "reports"
	if err := os.MkdirAll(reportsDir, 0755); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}

	outputFile := reportOutput
	if outputFile == "" {
		timestamp := time.Now().Format("20060102-150405")
		var ext string
		switch reportFormat {
		case "markdown", "md":
			ext = ".md"
		case "csv":
			ext = ".csv"
		default:
			return fmt.Errorf("unsupported report format: %s", reportFormat)
		}
		outputFile = fmt.Sprintf("%s/validation-report-%s%s", reportsDir, timestamp, ext)
	} else if !strings.Contains(outputFile, "/") {
		outputFile = filepath.Join(reportsDir, outputFile)
	}

	file, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	switch reportFormat {
	case "markdown", "md":
		if err := reporter.GenerateMarkdown(report, file); err != nil {
			return fmt.Errorf("failed to write Markdown report: %w", err)
		}
	case "csv":
		if err := reporter.GenerateCSV(report, file); err != nil {
			return fmt.Errorf("failed to write CSV report: %w", err)
		}
	default:
		return fmt.Errorf("unsupported report format: %s", reportFormat)
	}

	fmt.Printf("\n[INFO] %s report generated: %s\n", strings.ToUpper(reportFormat), outputFile)
	return nil
}
