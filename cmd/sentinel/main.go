package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/sentinelsearch/sentinel/internal/behavior"
	"github.com/sentinelsearch/sentinel/internal/classify"
	"github.com/sentinelsearch/sentinel/internal/config"
	"github.com/sentinelsearch/sentinel/internal/corpus"
	"github.com/sentinelsearch/sentinel/internal/embed"
	"github.com/sentinelsearch/sentinel/internal/fresh"
	"github.com/sentinelsearch/sentinel/internal/geo"
	"github.com/sentinelsearch/sentinel/internal/mcp"
	"github.com/sentinelsearch/sentinel/internal/rank"
	"github.com/sentinelsearch/sentinel/internal/relevance"
	"github.com/sentinelsearch/sentinel/internal/textutil"
	"github.com/sentinelsearch/sentinel/internal/trust"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	var err error
	switch os.Args[1] {
	case "rank":
		err = runRank(os.Args[2:])
	case "classify":
		err = runClassify(os.Args[2:])
	case "correct":
		err = runCorrect(os.Args[2:])
	case "feedback":
		err = runFeedback(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "cleanup":
		err = runCleanup(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("sentinel %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type cliFlags struct {
	configPath     string
	dbPath         string
	corpusPath     string
	classifier     string
	query          string
	limit          int
	forceEmergency bool
	jsonOut        bool
}

// parseArgs splits flags from positional arguments.
func parseArgs(args []string) (cliFlags, []string, error) {
	fl := cliFlags{}
	var positional []string

	take := func(i *int, name string) (string, error) {
		if *i+1 >= len(args) {
			return "", fmt.Errorf("%s requires a value", name)
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		var err error
		switch arg {
		case "--config":
			fl.configPath, err = take(&i, arg)
		case "--db":
			fl.dbPath, err = take(&i, arg)
		case "--corpus":
			fl.corpusPath, err = take(&i, arg)
		case "--classifier":
			fl.classifier, err = take(&i, arg)
		case "--query", "-q":
			fl.query, err = take(&i, arg)
		case "--limit", "-n":
			var raw string
			if raw, err = take(&i, arg); err == nil {
				fl.limit, err = strconv.Atoi(raw)
			}
		case "--force-emergency":
			fl.forceEmergency = true
		case "--json":
			fl.jsonOut = true
		default:
			if strings.HasPrefix(arg, "-") {
				return fl, nil, fmt.Errorf("unknown flag: %s", arg)
			}
			positional = append(positional, arg)
		}
		if err != nil {
			return fl, nil, err
		}
	}
	return fl, positional, nil
}

// runtime is the composition root: config plus the wired pipeline.
type runtime struct {
	cfg      config.ResolvedConfig
	corpus   *corpus.Corpus
	engine   *rank.Engine
	tracker  *behavior.Tracker
	embedder *embed.Local
	logger   *zap.Logger
}

func newRuntime(fl cliFlags) (*runtime, error) {
	cfg, err := config.ResolveConfig(config.ResolveOptions{
		ConfigPath:    fl.configPath,
		CLIDBPath:     fl.dbPath,
		CLICorpus:     fl.corpusPath,
		CLIClassifier: fl.classifier,
	})
	if err != nil {
		return nil, err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	rt := &runtime{cfg: cfg, logger: logger}

	rt.corpus = &corpus.Corpus{}
	if cfg.CorpusPath.Value != "" {
		rt.corpus, err = corpus.Load(cfg.CorpusPath.Value)
		if err != nil {
			return nil, err
		}
	}

	rt.tracker, err = behavior.Open(cfg.DBPath.Value, cfg.Behavior, logger)
	if err != nil {
		return nil, err
	}

	speller := textutil.NewSpellChecker()
	if texts := rt.corpus.VocabularyTexts(); len(texts) > 0 {
		speller.Train(texts)
	}

	var model *classify.Model
	if cfg.Classifier.Value == config.ClassifierBayes {
		if len(rt.corpus.TrainingData) == 0 {
			return nil, fmt.Errorf("classifier %q needs a corpus with training_data (set corpus_path)", cfg.Classifier.Value)
		}
		model, err = classify.Train(rt.corpus.TrainingData)
		if err != nil {
			return nil, fmt.Errorf("training classifier: %w", err)
		}
	}

	var embedder embed.Embedder
	if embed.Available(cfg.ModelPath.Value, cfg.TokenizerPath.Value) {
		local, err := embed.NewLocal(cfg.ModelPath.Value, cfg.TokenizerPath.Value)
		if err != nil {
			logger.Warn("local embedder unavailable, semantic signals read neutral", zap.Error(err))
		} else {
			rt.embedder = local
			embedder = local
		}
	}

	var expander classify.Expander
	if embedder != nil {
		expander = classify.NewSemanticExpander(embedder, cfg.EmergencyKeywords, 0)
	}

	rt.engine = &rank.Engine{
		Speller: speller,
		Detector: &classify.Detector{
			Heuristic: classify.NewHeuristic(cfg.EmergencyKeywords),
			Model:     model,
			Expander:  expander,
		},
		Location:            geo.NewDetector(nil, rt.corpus.Locations()),
		Trust:               trust.NewScorer(cfg.Tiers),
		Fresh:               &fresh.Scorer{},
		Relevance:           &relevance.Scorer{Embedder: embedder},
		Behavior:            rt.tracker,
		Standard:            cfg.Standard,
		Emergency:           cfg.Emergency,
		EmergencyTrustFloor: cfg.EmergencyTrustFloor,
	}
	return rt, nil
}

func (rt *runtime) close() {
	if rt.embedder != nil {
		rt.embedder.Close()
	}
	if rt.tracker != nil {
		rt.tracker.Close()
	}
	rt.logger.Sync()
}

func queryFrom(fl cliFlags, positional []string) (string, error) {
	q := fl.query
	if q == "" {
		q = strings.Join(positional, " ")
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return "", fmt.Errorf("no query specified")
	}
	return q, nil
}

func runRank(args []string) error {
	fl, positional, err := parseArgs(args)
	if err != nil {
		return err
	}
	query, err := queryFrom(fl, positional)
	if err != nil {
		return fmt.Errorf("usage: sentinel rank <query> [--force-emergency] [--limit N] [--json]")
	}

	rt, err := newRuntime(fl)
	if err != nil {
		return err
	}
	defer rt.close()

	candidates := rank.FromDocuments(rt.corpus.Search(query, 0))
	resp, err := rt.engine.Rank(context.Background(), query, candidates, rank.Options{
		ForceEmergency: fl.forceEmergency,
	})
	if err != nil {
		return err
	}

	limit := fl.limit
	if limit <= 0 {
		limit = 10
	}
	if len(resp.Results) > limit {
		resp.Results = resp.Results[:limit]
	}

	if fl.jsonOut {
		return printJSON(resp)
	}
	printResponse(resp)
	return nil
}

func printResponse(resp *rank.Response) {
	fmt.Printf("Query: %s\n", resp.Query)
	if resp.CorrectedQuery != "" {
		fmt.Printf("Corrected: %s\n", resp.CorrectedQuery)
	}
	fmt.Printf("Mode: %s (confidence %.2f)\n", resp.Mode.Mode, resp.Mode.Confidence)
	if len(resp.Mode.Triggers) > 0 {
		fmt.Printf("Triggers: %s\n", strings.Join(resp.Mode.Triggers, ", "))
	}
	if resp.Location != "" {
		fmt.Printf("Location: %s\n", resp.Location)
	}
	if resp.DroppedLowTrust > 0 {
		fmt.Printf("Dropped %d low-trust result(s)\n", resp.DroppedLowTrust)
	}
	fmt.Println()

	if len(resp.Results) == 0 {
		fmt.Println("No results.")
		return
	}
	for i, r := range resp.Results {
		fmt.Printf("%2d. [%.3f] %s\n", i+1, r.FinalScore, r.Title)
		fmt.Printf("    %s\n", r.URL)
		fmt.Printf("    trust %.2f (%s, %s)  freshness %.2f (%s)  relevance %.2f",
			r.Trust.Score, r.Trust.Tier, r.Trust.Badge,
			r.Freshness.Score, r.Freshness.Label,
			r.Relevance.Relevance)
		if r.PogoPenalty > 0 {
			fmt.Printf("  pogo-penalty %.2f", r.PogoPenalty)
		}
		fmt.Println()
	}
}

func runClassify(args []string) error {
	fl, positional, err := parseArgs(args)
	if err != nil {
		return err
	}
	query, err := queryFrom(fl, positional)
	if err != nil {
		return fmt.Errorf("usage: sentinel classify <query>")
	}

	rt, err := newRuntime(fl)
	if err != nil {
		return err
	}
	defer rt.close()

	effective := query
	corrected := rt.engine.Speller.CorrectSentence(query)
	if corrected != strings.Join(textutil.Tokenize(query), " ") {
		fmt.Printf("Corrected: %s\n", corrected)
		effective = corrected
	}

	decision := rt.engine.Detector.Classify(context.Background(), effective)
	fmt.Printf("Mode: %s (confidence %.2f)\n", decision.Mode, decision.Confidence)
	for _, trigger := range decision.Triggers {
		fmt.Printf("  - %s\n", trigger)
	}
	return nil
}

func runCorrect(args []string) error {
	fl, positional, err := parseArgs(args)
	if err != nil {
		return err
	}
	query, err := queryFrom(fl, positional)
	if err != nil {
		return fmt.Errorf("usage: sentinel correct <query>")
	}

	rt, err := newRuntime(fl)
	if err != nil {
		return err
	}
	defer rt.close()

	fmt.Println(rt.engine.Speller.CorrectSentence(query))
	return nil
}

func runFeedback(args []string) error {
	fl, positional, err := parseArgs(args)
	if err != nil {
		return err
	}
	if len(positional) < 2 {
		return fmt.Errorf("usage: sentinel feedback <click|return> <url> [--query <q>]")
	}
	action, url := positional[0], positional[1]

	rt, err := newRuntime(fl)
	if err != nil {
		return err
	}
	defer rt.close()

	switch action {
	case "click":
		return printJSON(rt.tracker.RecordClick(url, fl.query))
	case "return":
		return printJSON(rt.tracker.RecordReturn(url))
	default:
		return fmt.Errorf("unknown action %q: want click or return", action)
	}
}

func runStats(args []string) error {
	fl, _, err := parseArgs(args)
	if err != nil {
		return err
	}
	rt, err := newRuntime(fl)
	if err != nil {
		return err
	}
	defer rt.close()

	return printJSON(rt.tracker.Stats())
}

func runCleanup(args []string) error {
	fl, _, err := parseArgs(args)
	if err != nil {
		return err
	}
	rt, err := newRuntime(fl)
	if err != nil {
		return err
	}
	defer rt.close()

	start := time.Now()
	removed := rt.tracker.Cleanup()
	fmt.Printf("Removed %d stale record(s) in %s\n", removed, time.Since(start).Round(time.Millisecond))
	return nil
}

func runServe(args []string) error {
	fl, _, err := parseArgs(args)
	if err != nil {
		return err
	}
	rt, err := newRuntime(fl)
	if err != nil {
		return err
	}
	defer rt.close()

	srv := mcp.NewServer(mcp.ServerConfig{
		Engine:  rt.engine,
		Corpus:  rt.corpus,
		Tracker: rt.tracker,
		Version: version,
		Logger:  rt.logger,
	})

	rt.logger.Info("serving MCP over stdio", zap.String("version", version))
	return mcpserver.ServeStdio(srv)
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printUsage() {
	fmt.Println(`sentinel — multi-signal search ranking with emergency awareness

Usage:
  sentinel rank <query> [--force-emergency] [--limit N] [--json]
  sentinel classify <query>
  sentinel correct <query>
  sentinel feedback <click|return> <url> [--query <q>]
  sentinel stats
  sentinel cleanup
  sentinel serve
  sentinel version

Common flags:
  --config <path>      config file (default ~/.sentinel/config.yaml)
  --db <path>          behavior database path
  --corpus <path>      candidate/training corpus JSON
  --classifier <name>  heuristic or bayes

Environment:
  SENTINEL_DB, SENTINEL_CORPUS, SENTINEL_CLASSIFIER,
  SENTINEL_MODEL, SENTINEL_TOKENIZER`)
}
