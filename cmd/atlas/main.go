package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"atlas/internal/adapter/memory"
	"atlas/internal/domain"
	"atlas/internal/infra/config"
	"atlas/internal/infra/logger"
	"atlas/internal/infra/tracer"
	"atlas/internal/usecase/qntm"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	if len(os.Args) < 2 || strings.HasPrefix(os.Args[1], "-") {
		fmt.Fprintln(os.Stderr, "missing command\n\nRun 'atlas --help' for usage information.")
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "generate":
		err = runGenerate(os.Args[2:])
	case "expand":
		err = runExpand(os.Args[2:])
	case "keys":
		err = runKeys(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'atlas --help' for usage information.\n", os.Args[1])
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`atlas - semantic key generation for memory chunks

USAGE:
    atlas COMMAND [FLAGS]

COMMANDS:
    generate    Generate keys for a chunk of text (stdin or --file)
    expand      Expand a search query into candidate keys
    keys        List the stored key vocabulary

FLAGS:
    -h, --help         Show this help message
    --config PATH      Config file path (default: ./config.yaml)

CONFIGURATION:
    Config file: ./config.yaml
    Environment: ATLAS_* variables override config

EXAMPLES:
    cat notes.md | atlas generate --level 2
    atlas generate --file notes.md --level 1
    atlas expand "how do retries work"
    atlas keys`)
}

// app bundles the components every subcommand needs.
type app struct {
	cfg       *config.Config
	generator *qntm.Generator
	store     domain.KeyStore
	cleanup   func()
}

// initApp wires config, logger, tracer, backends, and the key store.
func initApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	ctx := context.Background()
	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		logCloser()
		return nil, fmt.Errorf("tracer: %w", err)
	}

	resolver, err := initLLM(cfg, log)
	if err != nil {
		tracerShutdown(ctx)
		logCloser()
		return nil, fmt.Errorf("llm: %w", err)
	}

	store, err := initKeyStore(cfg, log)
	if err != nil {
		tracerShutdown(ctx)
		logCloser()
		return nil, fmt.Errorf("memory: %w", err)
	}

	generator, err := qntm.NewGenerator(resolver, store, cfg.Agent.Collection, log)
	if err != nil {
		if store != nil {
			store.Close()
		}
		tracerShutdown(ctx)
		logCloser()
		return nil, fmt.Errorf("generator: %w", err)
	}

	cleanup := func() {
		if store != nil {
			store.Close()
		}
		tracerShutdown(context.Background())
		logCloser()
	}

	return &app{cfg: cfg, generator: generator, store: store, cleanup: cleanup}, nil
}

func initKeyStore(cfg *config.Config, log *slog.Logger) (domain.KeyStore, error) {
	if cfg.Memory.DataDir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(cfg.Memory.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return memory.NewSQLiteKeyStore(filepath.Join(cfg.Memory.DataDir, "keys.db"), log)
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "config file path")
	file := fs.String("file", "", "read the chunk from a file instead of stdin")
	level := fs.Int("level", -1, "abstraction level 0-3 (default: config default_level)")
	save := fs.Bool("save", true, "persist generated keys to the key store")
	if err := fs.Parse(args); err != nil {
		return err
	}

	chunk, fctx, err := readChunk(*file)
	if err != nil {
		return err
	}

	a, err := initApp(*configPath)
	if err != nil {
		return err
	}
	defer a.cleanup()

	lvl := domain.AbstractionLevel(*level)
	if *level < 0 {
		lvl = domain.AbstractionLevel(a.cfg.Agent.DefaultLevel)
	}

	ctx := context.Background()
	existing := a.generator.FetchExistingKeys(ctx)

	result, err := a.generator.GenerateKeys(ctx, chunk, existing, lvl, fctx)
	if err != nil {
		return err
	}

	for _, key := range result.Keys {
		fmt.Println(key)
	}
	if result.Reasoning != "" {
		fmt.Fprintf(os.Stderr, "reasoning: %s\n", result.Reasoning)
	}

	if *save {
		if err := a.generator.SaveKeys(ctx, result.Keys, lvl); err != nil {
			return err
		}
	}
	return nil
}

func runExpand(args []string) error {
	fs := flag.NewFlagSet("expand", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: atlas expand QUERY")
	}
	query := strings.Join(fs.Args(), " ")

	a, err := initApp(*configPath)
	if err != nil {
		return err
	}
	defer a.cleanup()

	ctx := context.Background()
	existing := a.generator.FetchExistingKeys(ctx)

	result, err := a.generator.GenerateQueryKeys(ctx, query, existing)
	if err != nil {
		return err
	}

	for _, key := range result.Keys {
		fmt.Println(key)
	}
	return nil
}

func runKeys(args []string) error {
	fs := flag.NewFlagSet("keys", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "config file path")
	sanitized := fs.Bool("sanitized", false, "print keys in sanitized identifier form")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := initApp(*configPath)
	if err != nil {
		return err
	}
	defer a.cleanup()

	if a.store == nil {
		return fmt.Errorf("no key store configured (memory.data_dir is empty)")
	}

	keys, err := a.store.AllKeys(context.Background(), a.cfg.Agent.Collection)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if *sanitized {
			key = domain.SanitizeKey(key)
		}
		fmt.Println(key)
	}
	return nil
}

// readChunk reads the chunk text from a file or stdin. A file source
// also yields provenance for the prompt.
func readChunk(file string) (string, *qntm.FileContext, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", nil, fmt.Errorf("read chunk file: %w", err)
		}
		return string(data), &qntm.FileContext{FileName: file, ChunkIndex: 0, TotalChunks: 1}, nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", nil, fmt.Errorf("read stdin: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", nil, fmt.Errorf("empty chunk: pipe text on stdin or pass --file")
	}
	return string(data), nil, nil
}
