// Package main provides the qembed CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/matsen/qembed/internal/config"
	"github.com/matsen/qembed/internal/embedding"
	"github.com/matsen/qembed/internal/encoder"
	"github.com/matsen/qembed/internal/queryfile"
	"github.com/matsen/qembed/internal/registry"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

const (
	// DefaultModel is the default encoder, a scientific-domain BERT.
	DefaultModel = "allenai/scibert_scivocab_uncased"

	// Backends.
	BackendONNX   = "onnx"
	BackendOllama = "ollama"

	// Output formats for single-query mode.
	FormatVector = "vector"
	FormatTable  = "table"
)

// embedOptions collects the root command flags.
type embedOptions struct {
	model       string
	device      string
	batchFile   string
	outputFile  string
	noNormalize bool
	format      string
	backend     string
	chunkSize   int
	maxLength   int
	modelsDir   string
}

var opts embedOptions

var rootCmd = &cobra.Command{
	Use:   "qembed [query...]",
	Short: "Generate embeddings for search queries",
	Long: `qembed converts free-text search queries into fixed-length vectors
for semantic similarity search.

A pretrained transformer encoder is run locally through ONNX Runtime
(or remotely through Ollama), its token outputs are mean-pooled into a
single vector per query, and the result is L2-normalized unless
--no-normalize is given.

Single-query mode prints the vector to stdout; batch mode reads one
query per line from a file and writes a CSV table.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runEmbed,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&opts.model, "model", "", "Encoder model identifier (default: "+DefaultModel+")")
	flags.StringVar(&opts.device, "device", "", "Device to use: cpu or gpu (default: auto-detect)")
	flags.StringVar(&opts.batchFile, "batch", "", "File with one query per line (.txt or .pdf)")
	flags.StringVar(&opts.outputFile, "output", "", "Output CSV file (for batch mode)")
	flags.BoolVar(&opts.noNormalize, "no-normalize", false, "Don't L2-normalize embeddings")
	flags.StringVar(&opts.format, "format", FormatVector, "Single-query output format: vector or table")
	flags.StringVar(&opts.backend, "backend", BackendONNX, "Inference backend: onnx or ollama")
	flags.IntVar(&opts.chunkSize, "chunk-size", embedding.DefaultChunkSize, "Queries per forward pass in batch mode")
	flags.IntVar(&opts.maxLength, "max-length", encoder.DefaultMaxLength, "Token truncation limit")

	// Shared with the models subcommands.
	rootCmd.PersistentFlags().StringVar(&opts.modelsDir, "models-dir", "", "Root directory of installed models")

	rootCmd.Version = Version
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Interrupted")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(ExitError)
	}
}

// validateOptions rejects bad argument combinations. It runs before any
// model loading so usage errors stay cheap.
func validateOptions(opts *embedOptions, args []string) error {
	if opts.batchFile == "" && len(args) == 0 {
		return fmt.Errorf("provide query text or use --batch")
	}
	if opts.batchFile != "" && len(args) > 0 {
		return fmt.Errorf("cannot use both query text and --batch")
	}
	if opts.outputFile != "" && opts.batchFile == "" {
		return fmt.Errorf("--output requires --batch")
	}
	if opts.format != FormatVector && opts.format != FormatTable {
		return fmt.Errorf("invalid format %q (valid: vector, table)", opts.format)
	}
	if opts.backend != BackendONNX && opts.backend != BackendOllama {
		return fmt.Errorf("invalid backend %q (valid: onnx, ollama)", opts.backend)
	}
	if opts.chunkSize < 1 {
		return fmt.Errorf("chunk size must be at least 1")
	}
	if _, err := encoder.ParseDevice(opts.device); err != nil {
		return err
	}
	return nil
}

func runEmbed(cmd *cobra.Command, args []string) error {
	if err := validateOptions(&opts, args); err != nil {
		return err
	}
	ctx := cmd.Context()
	normalize := !opts.noNormalize

	provider, cleanup, err := buildProvider(ctx, &opts, normalize)
	if err != nil {
		return err
	}
	defer cleanup()

	if opts.batchFile != "" {
		return runBatch(ctx, provider, &opts)
	}
	return runSingle(ctx, provider, strings.Join(args, " "), opts.format)
}

// buildProvider loads the requested backend. The returned cleanup releases
// encoder resources and is safe to call once.
func buildProvider(ctx context.Context, opts *embedOptions, normalize bool) (embedding.Provider, func(), error) {
	noop := func() {}

	// A corrupt config file is a fatal I/O error, not a crash.
	cfg, err := config.Load()
	if err != nil {
		return nil, noop, err
	}

	if opts.backend == BackendOllama {
		url := firstNonEmpty(os.Getenv("QEMBED_OLLAMA_URL"), cfg.OllamaURL, embedding.DefaultOllamaURL)
		model := firstNonEmpty(opts.model, cfg.OllamaModel, embedding.DefaultOllamaModel)

		provider := embedding.NewOllama(
			embedding.WithBaseURL(url),
			embedding.WithModel(model),
			embedding.WithOllamaNormalize(normalize),
		)
		if err := provider.IsAvailable(ctx); err != nil {
			return nil, noop, fmt.Errorf("ollama is not running at %s\n\nStart Ollama with 'ollama serve' or install from https://ollama.ai", url)
		}
		fmt.Fprintf(os.Stderr, "Using Ollama model: %s\n", model)
		return provider, noop, nil
	}

	modelName := firstNonEmpty(opts.model, cfg.DefaultModel, DefaultModel)
	modelsDir := firstNonEmpty(opts.modelsDir, os.Getenv("QEMBED_MODELS_DIR"), cfg.ModelsDir, registry.DefaultRoot())

	reg := registry.New(modelsDir)
	m, err := reg.Resolve(modelName)
	if err != nil {
		if errors.Is(err, registry.ErrModelNotFound) {
			return nil, noop, fmt.Errorf("model %q not found under %s\n\nInstall it as %s and %s in that directory, or point --models-dir at an existing registry",
				modelName, modelsDir, registry.ModelFile, registry.TokenizerFile)
		}
		return nil, noop, err
	}

	device, err := encoder.ParseDevice(opts.device)
	if err != nil {
		return nil, noop, err
	}

	fmt.Fprintf(os.Stderr, "Loading model: %s...\n", modelName)
	enc, err := encoder.LoadONNX(encoder.ONNXConfig{
		ModelName:     modelName,
		ModelPath:     m.ModelPath,
		TokenizerPath: m.TokenizerPath,
		Device:        device,
		MaxLength:     opts.maxLength,
		LibraryPath:   firstNonEmpty(os.Getenv("QEMBED_ONNXRUNTIME_LIB"), cfg.OnnxruntimeLib),
	})
	if err != nil {
		return nil, noop, err
	}
	fmt.Fprintf(os.Stderr, "Model loaded on %s\n", enc.Device())

	provider := embedding.NewLocal(enc,
		embedding.WithNormalize(normalize),
		embedding.WithChunkSize(opts.chunkSize),
	)
	chunkSize := opts.chunkSize
	provider.SetProgressReporter(embedding.ProgressFunc(func(current, total int) {
		// Report roughly every 100 queries, whenever a chunk crosses a
		// hundred boundary.
		if current/100 > (current-chunkSize)/100 {
			fmt.Fprintf(os.Stderr, "Processed %d/%d queries...\n", current, total)
		}
	}))

	return provider, func() { enc.Close() }, nil
}

// runSingle embeds one query and prints it in the requested format.
func runSingle(ctx context.Context, provider embedding.Provider, query, format string) error {
	fmt.Fprintf(os.Stderr, "Generating embedding for: '%s'\n", query)

	emb, err := provider.Embed(ctx, query)
	if err != nil {
		return fmt.Errorf("generating embedding: %w", err)
	}

	if format == FormatTable {
		if err := writeQueryTable(os.Stdout, query, emb); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	} else {
		if err := writeVector(os.Stdout, emb); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}

	fmt.Fprintf(os.Stderr, "Embedding dimension: %d\n", emb.Dimensions())
	fmt.Fprintf(os.Stderr, "Norm: %.6f\n", emb.Norm())
	return nil
}

// runBatch embeds every query in the batch file and writes the CSV table to
// stdout or the output file.
func runBatch(ctx context.Context, provider embedding.Provider, opts *embedOptions) error {
	fmt.Fprintf(os.Stderr, "Reading queries from: %s\n", opts.batchFile)

	queries, err := queryfile.Read(opts.batchFile)
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		return fmt.Errorf("no queries found in %s", opts.batchFile)
	}
	fmt.Fprintf(os.Stderr, "Loaded %d queries\n", len(queries))

	embs, err := provider.EmbedBatch(ctx, queries)
	if err != nil {
		return fmt.Errorf("generating embeddings: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Generated %d embeddings\n", len(embs))
	if len(embs) > 0 {
		fmt.Fprintf(os.Stderr, "Embedding dimension: %d\n", embs[0].Dimensions())
	}

	if opts.outputFile == "" {
		return writeBatchCSV(os.Stdout, queries, embs)
	}

	f, err := os.Create(opts.outputFile)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := writeBatchCSV(f, queries, embs); err != nil {
		f.Close()
		return fmt.Errorf("writing output file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Embeddings written to: %s\n", opts.outputFile)
	return nil
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
