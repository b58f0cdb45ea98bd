// =============================================================================
// AuditFlow 主入口
// =============================================================================
// 命令行入口点，包含会话模拟、对抗审计、Prometheus 指标
//
// 使用方法:
//
//	auditflow simulate --config personas.yaml --persona p3   # 模拟单个 persona 会话
//	auditflow audit --config personas.yaml                   # 对全部 persona 执行审计
//	auditflow audit --config personas.yaml --db audit.db     # 审计并持久化到 SQLite
//	auditflow version                                        # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/auditflow/agent/audit"
	"github.com/BaSui01/auditflow/agent/simulate"
	"github.com/BaSui01/auditflow/config"
	"github.com/BaSui01/auditflow/internal/metrics"
	"github.com/BaSui01/auditflow/internal/store"
	"github.com/BaSui01/auditflow/providers/gemini"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "simulate":
		runSimulate(os.Args[2:])
	case "audit":
		runAudit(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// providerFlags 两个子命令共享的 Gemini 连接参数。
type providerFlags struct {
	apiKey  *string
	baseURL *string
	rpm     *int
}

func registerProviderFlags(fs *flag.FlagSet) providerFlags {
	return providerFlags{
		apiKey:  fs.String("api-key", "", "Gemini API key (defaults to GEMINI_API_KEY)"),
		baseURL: fs.String("base-url", "", "Gemini API base URL"),
		rpm:     fs.Int("rpm", 0, "Client-side rate limit in requests per minute (0 = unlimited)"),
	}
}

func (f providerFlags) build(model string, timeout time.Duration, logger *zap.Logger) (*gemini.Provider, error) {
	key := *f.apiKey
	if key == "" {
		key = os.Getenv("GEMINI_API_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("no API key: pass --api-key or set GEMINI_API_KEY")
	}
	return gemini.New(gemini.Config{
		APIKey:            key,
		BaseURL:           *f.baseURL,
		Model:             model,
		Timeout:           timeout,
		RequestsPerMinute: *f.rpm,
	}, logger), nil
}

// =============================================================================
// 💬 simulate 命令
// =============================================================================

func runSimulate(args []string) {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	configPath := fs.String("config", "personas.yaml", "Path to persona config file")
	personaID := fs.String("persona", "", "Persona ID to simulate (required)")
	model := fs.String("model", "", "Model name (default from provider)")
	maxMessages := fs.Int("max-messages", simulate.DefaultMaxMessages, "Conversation message ceiling")
	logLevel := fs.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat := fs.String("log-format", "console", "Log format: console or json")
	pf := registerProviderFlags(fs)
	fs.Parse(args)

	if *personaID == "" {
		fmt.Fprintln(os.Stderr, "simulate: --persona is required")
		os.Exit(1)
	}

	logger := initLogger(*logLevel, *logFormat)
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	cfg.ApplyDefaults()

	provider, err := pf.build(*model, 60*time.Second, logger)
	if err != nil {
		logger.Fatal("Failed to build provider", zap.Error(err))
	}
	defer provider.Close()

	opts := simulate.DefaultOptions()
	opts.Model = *model
	opts.MaxMessages = *maxMessages

	engine, err := simulate.NewEngine(provider, cfg, *personaID, opts, logger)
	if err != nil {
		logger.Fatal("Failed to create engine", zap.Error(err))
	}

	ctx, cancel := signalContext()
	defer cancel()

	state, err := engine.Run(ctx)
	if err != nil {
		logger.Fatal("Simulation failed", zap.Error(err))
	}

	for _, m := range state.History {
		fmt.Printf("[%s] %s\n\n", m.Role, m.Content)
	}
	for i, p := range state.Payloads {
		fmt.Printf("--- payload %d (strict=%v) ---\n%s\n", i+1, p.Strict, p.Value)
	}
	fmt.Printf("messages=%d payloads=%d\n", len(state.History), len(state.Payloads))
}

// =============================================================================
// 🛡️ audit 命令
// =============================================================================

func runAudit(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	configPath := fs.String("config", "personas.yaml", "Path to persona config file")
	model := fs.String("model", "", "Target/chatbot model name")
	attackerModel := fs.String("attacker-model", "", "Attacker model name (defaults to --model)")
	judgeModel := fs.String("judge-model", "", "Judge model name (defaults to --model)")
	maxTurns := fs.Int("max-turns", audit.DefaultMaxTurns, "Attack turns per persona")
	dbPath := fs.String("db", "", "SQLite path for persisting exchanges and outcomes")
	metricsAddr := fs.String("metrics-addr", "", "Expose Prometheus /metrics on this address during the run")
	logLevel := fs.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat := fs.String("log-format", "console", "Log format: console or json")
	jsonOut := fs.Bool("json", false, "Print the report as JSON")
	pf := registerProviderFlags(fs)
	fs.Parse(args)

	logger := initLogger(*logLevel, *logFormat)
	defer logger.Sync()

	logger.Info("Starting AuditFlow",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	cfg.ApplyDefaults()
	if len(cfg.Personas) == 0 {
		logger.Fatal("Config contains no personas")
	}

	provider, err := pf.build(*model, 60*time.Second, logger)
	if err != nil {
		logger.Fatal("Failed to build provider", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector("auditflow", reg, logger)
	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, reg, logger)
	}

	opts := audit.Options{
		MaxTurns:      *maxTurns,
		AttackerModel: *attackerModel,
		JudgeModel:    *judgeModel,
		Metrics:       collector,
	}
	// Provider 由编排器统一释放，与 Store 走同一条退出路径。
	opts.Closers = append(opts.Closers, provider)

	if *dbPath != "" {
		st, err := store.OpenSQLite(*dbPath, logger)
		if err != nil {
			logger.Fatal("Failed to open store", zap.Error(err))
		}
		opts.Store = st
	}

	engineOpts := simulate.DefaultOptions()
	engineOpts.Model = *model
	engine, err := simulate.NewEngine(provider, cfg, cfg.Personas[0].ID, engineOpts, logger)
	if err != nil {
		logger.Fatal("Failed to create engine", zap.Error(err))
	}

	ctx, cancel := signalContext()
	defer cancel()

	orch := audit.NewOrchestrator(cfg, provider, provider, opts, logger)
	report, err := orch.RunAudit(ctx, audit.NewEngineTarget(engine))
	if err != nil {
		logger.Fatal("Audit failed", zap.Error(err))
	}

	printReport(report, *jsonOut)
	if report.Failed > 0 {
		os.Exit(1)
	}
}

func printReport(report *audit.Report, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(report)
		return
	}

	fmt.Printf("Run %s: %d completed, %d failed (%.1fs)\n",
		report.RunID, report.Completed, report.Failed,
		report.FinishedAt.Sub(report.StartedAt).Seconds())
	for _, o := range report.Outcomes {
		status := "resisted"
		if o.AchievedObjective {
			status = "ACHIEVED"
		}
		if o.Err != "" {
			status = "error: " + o.Err
		}
		fmt.Printf("  %-4s %-28s turns=%d  %s\n", o.PersonaID, o.TestType, o.TurnsExecuted, status)
		if o.Rationale != "" {
			fmt.Printf("       %s\n", o.Rationale)
		}
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Info("Metrics server listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("Metrics server stopped", zap.Error(err))
	}
}

// signalContext 返回在 SIGINT/SIGTERM 时取消的 context。
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("AuditFlow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`AuditFlow - LLM Conversation Simulator & Adversarial Auditor

Usage:
  auditflow <command> [options]

Commands:
  simulate  Run a single persona conversation against the chatbot
  audit     Run the adversarial audit across all configured personas
  version   Show version information
  help      Show this help message

Common options:
  --config <path>     Persona configuration file (YAML)
  --api-key <key>     Gemini API key (or set GEMINI_API_KEY)
  --rpm <n>           Client-side rate limit, requests per minute

Options for 'simulate':
  --persona <id>      Persona ID to simulate (required)
  --max-messages <n>  Conversation message ceiling

Options for 'audit':
  --max-turns <n>     Attack turns per persona
  --db <path>         Persist exchanges and outcomes to SQLite
  --metrics-addr <a>  Expose Prometheus /metrics during the run
  --json              Print the report as JSON

Examples:
  auditflow simulate --config personas.yaml --persona p3
  auditflow audit --config personas.yaml --max-turns 3 --db audit.db
  auditflow audit --config personas.yaml --json > report.json
  auditflow version`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(levelName, format string) *zap.Logger {
	var level zapcore.Level
	switch levelName {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		format = "json"
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      format == "console",
		Encoding:         format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
