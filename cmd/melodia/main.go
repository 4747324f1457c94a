// Command melodia finds occurrences of melodic segments in a corpus of folk-song melodies.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/RyanBlaney/melodia/config"
	"github.com/RyanBlaney/melodia/corpus"
	"github.com/RyanBlaney/melodia/logging"
	"github.com/RyanBlaney/melodia/matching"
	"github.com/RyanBlaney/melodia/melody"
	"github.com/RyanBlaney/melodia/store"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

type cliOptions struct {
	corpusPath    string
	configPath    string
	dbPath        string
	jsonPath      string
	adjustPitches bool
	quiet         bool
	cfg           *config.Config
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseArgs reads the flags, loads the config file if one is given and lets explicitly set
// flags override it.
func parseArgs(args []string) (*cliOptions, error) {
	fs := flag.NewFlagSet("melodia", flag.ContinueOnError)

	opts := &cliOptions{}
	fs.StringVar(&opts.corpusPath, "corpus", getEnvOrDefault("MELODIA_CORPUS", ""), "Path to the JSON corpus file")
	fs.StringVar(&opts.configPath, "config", getEnvOrDefault("MELODIA_CONFIG", ""), "Path to a JSON run configuration")
	fs.StringVar(&opts.dbPath, "db", getEnvOrDefault("MELODIA_DB_PATH", ""), "SQLite database to store the run in (empty: do not store)")
	fs.StringVar(&opts.jsonPath, "json", "", "Write results as JSON to this file ('-' for stdout)")
	fs.BoolVar(&opts.adjustPitches, "adjust-pitches", false, "Transpose melodies towards the first melody of their tune family")
	fs.BoolVar(&opts.quiet, "quiet", false, "Hide the progress bar")

	defaults := config.Default()
	matcher := fs.String("matcher", string(defaults.Matcher), "sliding_window, local_alignment or geometric")
	features := fs.String("features", strings.Join(defaults.Features, ","), "Comma-separated feature names")
	positions := fs.Bool("positions", defaults.ReturnPositions, "Recover match onsets")
	scaling := fs.Float64("scaling", defaults.Scaling, "Duration-weighting samples per time unit (1: none)")
	workers := fs.Int("workers", defaults.Workers, "Pairs compared in parallel (0: auto)")
	failFast := fs.Bool("fail-fast", defaults.FailFast, "Stop at the first failing pair")
	logLevel := fs.String("log-level", getEnvOrDefault("MELODIA_LOG_LEVEL", defaults.LogLevel), "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.corpusPath == "" {
		return nil, errors.New("-corpus is required")
	}

	cfg := defaults
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["matcher"] {
		cfg.Matcher = config.MatcherType(*matcher)
	}
	if set["features"] {
		cfg.Features = splitList(*features)
	}
	if set["positions"] {
		cfg.ReturnPositions = *positions
	}
	if set["scaling"] {
		cfg.Scaling = *scaling
	}
	if set["workers"] {
		cfg.Workers = *workers
	}
	if set["fail-fast"] {
		cfg.FailFast = *failFast
	}
	if set["log-level"] || os.Getenv("MELODIA_LOG_LEVEL") != "" {
		cfg.LogLevel = *logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts.cfg = cfg
	return opts, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "melodia:", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, opts, os.Stdout)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, opts *cliOptions, stdout io.Writer) int {
	level, _ := logging.ParseLevel(opts.cfg.LogLevel)
	base := logging.NewDefaultLoggerWithWriters(os.Stderr, os.Stderr, false)
	base.SetLevel(level)
	logging.SetGlobalLogger(base)

	logger := logging.WithFields(logging.Fields{
		"component": "cli",
		"function":  "run",
	})

	c, err := corpus.Load(opts.corpusPath)
	if err != nil {
		logger.Error(err, "Failed to load corpus")
		return 1
	}
	melodies := c.Melodies
	segments := c.QuerySegments()
	if opts.adjustPitches {
		shifts := melody.PitchShifts(melodies)
		melodies = melody.AdjustPitches(melodies)
		segments = melody.AdjustSegments(segments, shifts)
	}

	cfg := opts.cfg
	if cfg.Alignment.Substitution == config.SubstitutionWeighted && len(cfg.Alignment.Variances) == 0 {
		features, _ := cfg.ParsedFeatures()
		variances, err := melody.FeatureVariances(melodies, features)
		if err != nil {
			logger.Error(err, "Failed to compute feature variances")
			return 1
		}
		cfg.Alignment.Variances = variances
		logger.Info("Using corpus variances", logging.Fields{"variances": variances})
	}

	matcher, err := matching.NewMatcher(cfg)
	if err != nil {
		logger.Error(err, "Failed to create matcher")
		return 1
	}

	orchestratorOpts := []matching.Option{
		matching.WithWorkers(cfg.WorkerCount()),
		matching.WithFailFast(cfg.FailFast),
	}

	var (
		progress *mpb.Progress
		bar      *mpb.Bar
	)
	if !opts.quiet {
		total := 0
		for _, f := range melody.PartitionByFamily(melodies, segments) {
			total += f.Pairs()
		}
		progress = mpb.NewWithContext(ctx, mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
		bar = progress.AddBar(int64(total),
			mpb.PrependDecorators(
				decor.Name("Matching: "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.EwmaETA(decor.ET_STYLE_GO, 60),
			),
		)
		orchestratorOpts = append(orchestratorOpts, matching.WithProgress(func(int, int) {
			bar.Increment()
		}))
	}

	results, runErr := matching.NewOrchestrator(matcher, orchestratorOpts...).Run(ctx, melodies, segments)
	if progress != nil {
		// a cancelled or fail-fast run leaves pairs unreported
		if !bar.Completed() {
			bar.Abort(false)
		}
		progress.Wait()
	}
	if results == nil && runErr != nil {
		logger.Error(runErr, "Run failed")
		return 1
	}
	if runErr != nil {
		logger.Error(runErr, "Some pairs failed; keeping the others")
	}

	if opts.dbPath != "" {
		s, err := store.Open(opts.dbPath)
		if err != nil {
			logger.Error(err, "Failed to open store")
			return 1
		}
		defer s.Close()

		runID, err := s.SaveRun(ctx, cfg, results)
		if err != nil {
			logger.Error(err, "Failed to save run")
			return 1
		}
		fmt.Fprintf(stdout, "run %s: %d results stored in %s\n", runID, len(results), opts.dbPath)
	}

	switch opts.jsonPath {
	case "":
		printSummary(stdout, results)
	case "-":
		if err := writeJSON(stdout, results); err != nil {
			logger.Error(err, "Failed to write results")
			return 1
		}
	default:
		if err := writeJSONFile(opts.jsonPath, results); err != nil {
			logger.Error(err, "Failed to write results")
			return 1
		}
	}

	if runErr != nil {
		return 1
	}
	return 0
}

func writeJSON(w io.Writer, results []matching.MatchResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func writeJSONFile(path string, results []matching.MatchResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := writeJSON(f, results); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func printSummary(w io.Writer, results []matching.MatchResult) {
	for _, r := range results {
		for _, row := range store.Flatten("", []matching.MatchResult{r}) {
			position := ""
			if row.StartOnset != nil {
				position = fmt.Sprintf(" onsets %g-%g", *row.StartOnset, *row.EndOnset)
			}
			fmt.Fprintf(w, "%s\t%s#%d\t%s\t%s[%d]\t%.4f%s\n",
				r.TuneFamilyID, r.QueryFilename, r.QuerySegmentID, r.MatchFilename,
				row.Measure, row.Rank, row.Similarity, position)
		}
	}
}
