package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	scaffold "github.com/nemonical/freenet-scaffold"
	"github.com/nemonical/freenet-scaffold/kinds"
	"github.com/nemonical/freenet-scaffold/node"
	"github.com/nemonical/freenet-scaffold/store"
	"github.com/nemonical/freenet-scaffold/utils"
)

// Config comes from SCAFFOLD_* environment variables; the persistent
// flags override it.
type Config struct {
	DataDir     string `env:"SCAFFOLD_DATA_DIR"`
	LogLevel    string `env:"SCAFFOLD_LOG_LEVEL" envDefault:"info"`
	MetricsAddr string `env:"SCAFFOLD_METRICS_ADDR"`
	MaxRounds   int    `env:"SCAFFOLD_MAX_ROUNDS"`
}

var (
	flagData    string
	flagMetrics string

	rootCmd = &cobra.Command{
		Use:   "scaffold",
		Short: "Host and poke composable contract state",
		Long: `scaffold hosts composable contract state: validate candidate states,
summarize them for peers, cut deltas against peer summaries and fold
update batches, over the built-in reference kinds.

One-shot commands work on payloads passed as JSON arguments (prefix
with @ to read a file). The repl keeps contracts on a shelf, on disk
when a data directory is set.`,
	}

	kindsCmd = &cobra.Command{
		Use:   "kinds",
		Short: "List the registered kinds",
		RunE:  runKinds,
	}
	validateCmd = &cobra.Command{
		Use:   "validate <kind> <params> <state>",
		Short: "Validate a candidate state",
		Args:  cobra.ExactArgs(3),
		RunE:  runValidate,
	}
	summarizeCmd = &cobra.Command{
		Use:   "summarize <kind> <params> <state>",
		Short: "Summarize a state",
		Args:  cobra.ExactArgs(3),
		RunE:  runSummarize,
	}
	deltaCmd = &cobra.Command{
		Use:   "delta <kind> <params> <state> <summary>",
		Short: "Cut the delta a peer at the given summary lacks",
		Args:  cobra.ExactArgs(4),
		RunE:  runDelta,
	}
	updateCmd = &cobra.Command{
		Use:   "update <kind> <params> <state> <delta=json|state=json>...",
		Short: "Fold an update batch into a state",
		Args:  cobra.MinimumNArgs(4),
		RunE:  runUpdate,
	}
	replCmd = &cobra.Command{
		Use:   "repl",
		Short: "Interactive shell over a contract shelf",
		RunE:  runRepl,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagData, "data", "", "data directory for the shelf; empty keeps it in memory")
	rootCmd.PersistentFlags().StringVar(&flagMetrics, "metrics", "", "address to serve /metrics on; empty disables")
	rootCmd.AddCommand(kindsCmd, validateCmd, summarizeCmd, deltaCmd, updateCmd, replCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if flagData != "" {
		cfg.DataDir = flagData
	}
	if flagMetrics != "" {
		cfg.MetricsAddr = flagMetrics
	}
	return cfg, nil
}

func newLogger(cfg Config) utils.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return utils.NewDefaultLogger(level)
}

// readArg turns a payload argument into bytes; @path reads a file.
func readArg(arg string) ([]byte, error) {
	if strings.HasPrefix(arg, "@") {
		return os.ReadFile(arg[1:])
	}
	return []byte(arg), nil
}

func opsFor(kind string) (scaffold.Ops, error) {
	ops, ok := kinds.Builtin()[kind]
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	return ops, nil
}

func runKinds(cmd *cobra.Command, args []string) error {
	registry := kinds.Builtin()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	ops, err := opsFor(args[0])
	if err != nil {
		return err
	}
	params, err := readArg(args[1])
	if err != nil {
		return err
	}
	state, err := readArg(args[2])
	if err != nil {
		return err
	}
	res, err := ops.ValidateState(params, state, nil)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func printResult(res scaffold.ValidateResult) {
	switch res.Validity {
	case scaffold.Valid:
		fmt.Println("valid")
	case scaffold.Invalid:
		fmt.Printf("invalid: %v\n", res.Reason)
	case scaffold.RequestRelated:
		fmt.Println("needs related state:")
		for _, id := range res.Related {
			fmt.Printf("  %s\n", id)
		}
	}
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ops, err := opsFor(args[0])
	if err != nil {
		return err
	}
	params, err := readArg(args[1])
	if err != nil {
		return err
	}
	state, err := readArg(args[2])
	if err != nil {
		return err
	}
	su, err := ops.SummarizeState(params, state)
	if err != nil {
		return err
	}
	fmt.Println(string(su))
	return nil
}

func runDelta(cmd *cobra.Command, args []string) error {
	ops, err := opsFor(args[0])
	if err != nil {
		return err
	}
	params, err := readArg(args[1])
	if err != nil {
		return err
	}
	state, err := readArg(args[2])
	if err != nil {
		return err
	}
	summary, err := readArg(args[3])
	if err != nil {
		return err
	}
	d, err := ops.GetStateDelta(params, state, summary)
	if err != nil {
		return err
	}
	fmt.Println(string(d))
	return nil
}

// parseUpdates reads delta=... / state=... arguments in order.
func parseUpdates(args []string) ([]scaffold.UpdateData, error) {
	updates := make([]scaffold.UpdateData, 0, len(args))
	for _, arg := range args {
		tag, rest, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("update entry %q: want delta=... or state=...", arg)
		}
		raw, err := readArg(rest)
		if err != nil {
			return nil, err
		}
		switch tag {
		case "delta":
			updates = append(updates, scaffold.DeltaUpdate(raw))
		case "state":
			updates = append(updates, scaffold.StateUpdate(raw))
		default:
			return nil, fmt.Errorf("update entry %q: unknown tag %q", arg, tag)
		}
	}
	return updates, nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ops, err := opsFor(args[0])
	if err != nil {
		return err
	}
	params, err := readArg(args[1])
	if err != nil {
		return err
	}
	state, err := readArg(args[2])
	if err != nil {
		return err
	}
	updates, err := parseUpdates(args[3:])
	if err != nil {
		return err
	}
	mod, err := ops.UpdateState(params, state, updates)
	if err != nil {
		return err
	}
	fmt.Println(string(mod.State))
	if mod.Summary != nil {
		fmt.Printf("summary: %s\n", mod.Summary)
	}
	return nil
}

func openStore(cfg Config, log utils.Logger) (store.Store, *store.Pebble, error) {
	if cfg.DataDir == "" {
		return store.NewMemory(), nil, nil
	}
	p, err := store.OpenPebble(cfg.DataDir, log)
	if err != nil {
		return nil, nil, err
	}
	return p, p, nil
}

func serveMetrics(cfg Config, log utils.Logger, collectors ...prometheus.Collector) {
	if cfg.MetricsAddr == "" {
		return
	}
	reg := prometheus.NewRegistry()
	for _, c := range collectors {
		if c != nil {
			reg.MustRegister(c)
		}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		log.Info("metrics listening", "addr", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", "error", err)
		}
	}()
}

func runRepl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	st, pb, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	metrics := scaffold.NewOpMetrics()
	n, err := node.New(node.Options{
		Store:     st,
		Kinds:     kinds.Builtin(scaffold.WithLogger(log)),
		Logger:    log,
		Metrics:   metrics,
		MaxRounds: cfg.MaxRounds,
	})
	if err != nil {
		return err
	}
	var pbc prometheus.Collector
	if pb != nil {
		pbc = store.NewPebbleCollector(pb)
	}
	serveMetrics(cfg, log, scaffold.NewMetricsCollector(metrics), pbc)
	return repl(n)
}
