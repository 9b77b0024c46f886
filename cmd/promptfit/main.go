// Package main provides the promptfit command line entry point: fit a file
// (or stdin) under a token budget and print the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gitai-reporter/promptfit/pkg/analyzer"
	"github.com/gitai-reporter/promptfit/pkg/cache"
	"github.com/gitai-reporter/promptfit/pkg/config"
	"github.com/gitai-reporter/promptfit/pkg/fallback"
	"github.com/gitai-reporter/promptfit/pkg/fitters"
	"github.com/gitai-reporter/promptfit/pkg/interfaces"
	"github.com/gitai-reporter/promptfit/pkg/logger"
	"github.com/gitai-reporter/promptfit/pkg/metrics"
	"github.com/gitai-reporter/promptfit/pkg/monitor"
	"github.com/gitai-reporter/promptfit/pkg/tokenizer"
)

// Version information (set by build process)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Command line flags
var (
	configFile    = flag.String("config", "", "Path to YAML configuration file")
	inputFile     = flag.String("file", "", "Input file (default: stdin)")
	targetTokens  = flag.Int("target", 0, "Token budget (default: max_tokens from config)")
	strategy      = flag.String("strategy", "", "Pin a single fitting strategy")
	tokenEndpoint = flag.String("token-endpoint", "", "Token counting service URL (default: heuristic estimate)")
	logLevel      = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	showVersion   = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("promptfit %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)
		return
	}

	log := logger.NewConsoleLogger(*logLevel)

	cfg := config.DefaultFittingConfig()
	if *configFile != "" {
		if err := cfg.FromYAMLFile(*configFile); err != nil {
			log.Fatal("failed to load config", err)
		}
	}
	if *strategy != "" {
		cfg.Strategy = *strategy
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", err)
	}

	target := *targetTokens
	if target <= 0 {
		target = cfg.MaxTokens
	}

	content, err := readInput(*inputFile)
	if err != nil {
		log.Fatal("failed to read input", err)
	}

	fitter, err := buildFitter(cfg, log)
	if err != nil {
		log.Fatal("failed to build fitter", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.TimeoutSeconds*2)*time.Second)
	defer cancel()

	result, err := fitter.FitContent(ctx, content, target)
	if err != nil {
		log.Fatal("fitting failed", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatal("failed to encode result", err)
	}
	fmt.Println(string(out))
}

func readInput(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

// buildFitter wires the full pipeline: token counter, strategy set, fallback
// chain, monitor, and the optional cache wrapper
func buildFitter(cfg *config.FittingConfig, log interfaces.Logger) (interfaces.ContentFitter, error) {
	var counter interfaces.TokenCounter
	if *tokenEndpoint != "" {
		counter = tokenizer.NewRemoteCounter(tokenizer.DefaultRemoteConfig(*tokenEndpoint), log)
	} else {
		counter = tokenizer.NewHeuristicCounter()
	}

	structural := analyzer.NewAnalyzer()
	classifier := analyzer.NewClassifier(structural)

	factory := fitters.NewFactory(counter, cfg)
	mon := monitor.NewMonitor(metrics.NewMemoryBackend(10000), log, nil)
	chain := fallback.NewChain(factory.DefaultDescriptors(), classifier, cfg, log, mon)

	if !cfg.Cache.Enabled {
		return chain, nil
	}

	var backend interfaces.CacheBackend
	var err error
	if cfg.Cache.Dir != "" {
		backend, err = cache.NewFileBackend(cfg.Cache.Dir, cfg.Cache.MaxFileAge)
	} else {
		backend, err = cache.NewMemoryBackend(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	}
	if err != nil {
		return nil, err
	}
	return cache.NewCachingFitter(chain, backend, cfg, log), nil
}
