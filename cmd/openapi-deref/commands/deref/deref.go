package deref

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/speakeasy-api/openapi-deref/cache"
	"github.com/speakeasy-api/openapi-deref/deref"
	"github.com/speakeasy-api/openapi-deref/node"
	"github.com/speakeasy-api/openapi-deref/query"
	"github.com/speakeasy-api/openapi-deref/retrieval"
	"github.com/speakeasy-api/openapi-deref/system"
	"github.com/spf13/cobra"
)

type derefFlags struct {
	baseDoc        string
	noExternal     bool
	maxDepth       int
	circular       string
	metaPatches    bool
	externalValues bool
	noAllOf        bool
	format         string
	selectExpr     string
	jsonpathMode   string
	strict         bool
	stats          bool
}

// options maps the flags onto dereference options.
func (f *derefFlags) options(logger system.Logger, c *retrieval.Cache) (deref.Options, error) {
	circular, err := deref.ParseCircularPolicy(f.circular)
	if err != nil {
		return deref.Options{}, err
	}
	if f.maxDepth < 0 {
		return deref.Options{}, fmt.Errorf("--max-depth must not be negative, got %d", f.maxDepth)
	}

	return deref.Options{
		BaseDoc:               f.baseDoc,
		DisableExternalRefs:   f.noExternal,
		MaxDepth:              f.maxDepth,
		Circular:              circular,
		AllowMetaPatches:      f.metaPatches,
		ResolveExternalValues: f.externalValues,
		DisableAllOfMerge:     f.noAllOf,
		Cache:                 c,
		Logger:                logger,
	}, nil
}

// NewCommand returns the deref command.
func NewCommand() *cobra.Command {
	flags := &derefFlags{}

	cmd := &cobra.Command{
		Use:   "deref [input-file] [output-file]",
		Short: "Dereference a document, inlining every reference",
		Long: `Dereference an OpenAPI, Swagger 2.0 or JSON Schema document.

Every $ref is replaced by the content it points at, including references into other files and
URLs. The result is written to the output file, or to stdout when none is given. Pass - or pipe
the document to read it from stdin.

References that cannot be resolved are left as written and listed on stderr. Use --strict to
exit with an error when any are found.

Circular references are handled according to --circular:
  cut     replace the cyclic reference with a $ref to its target (default)
  keep    share the target, producing a cyclic in-memory document
  ignore  remove the cyclic reference
  error   report the cyclic reference and leave it as written`,
		Example: `  openapi-deref deref openapi.yaml
  openapi-deref deref openapi.yaml dereferenced.json
  cat openapi.yaml | openapi-deref deref --format json
  openapi-deref deref openapi.yaml --select '$.components.schemas.Pet'`,
		Args:         stdinOrFileArgs(1, 2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeref(cmd, args, flags)
		},
	}

	cmd.Flags().StringVar(&flags.baseDoc, "base-doc", "", "retrieval URI of the input, used to resolve its relative references")
	cmd.Flags().BoolVar(&flags.noExternal, "no-external", false, "leave references to other documents as written")
	cmd.Flags().IntVar(&flags.maxDepth, "max-depth", deref.DefaultMaxDepth, "maximum number of references followed along one branch")
	cmd.Flags().StringVar(&flags.circular, "circular", "cut", "circular reference policy: cut, keep, ignore or error")
	cmd.Flags().BoolVar(&flags.metaPatches, "meta-patches", false, "stamp the resolved URI onto dereferenced objects as $$ref")
	cmd.Flags().BoolVar(&flags.externalValues, "external-values", false, "inline the content behind example externalValue fields")
	cmd.Flags().BoolVar(&flags.noAllOf, "no-allof", false, "keep allOf keywords instead of merging their members")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "output format: json or yaml (default inferred from the file names)")
	cmd.Flags().StringVar(&flags.selectExpr, "select", "", "JSONPath expression selecting the part of the result to output")
	cmd.Flags().StringVar(&flags.jsonpathMode, "jsonpath-mode", "auto", "JSONPath implementation: auto, rfc9535 or legacy")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "exit with an error when any reference is not resolved")
	cmd.Flags().BoolVar(&flags.stats, "stats", false, "print cache statistics to stderr")

	return cmd
}

func runDeref(cmd *cobra.Command, args []string, flags *derefFlags) error {
	ctx := cmd.Context()
	start := time.Now()

	processor, err := NewProcessor(inputFileFromArgs(args), outputFileFromArgs(args), flags.format)
	if err != nil {
		return err
	}
	processor.Stdin = cmd.InOrStdin()
	processor.Stdout = cmd.OutOrStdout()
	processor.Stderr = cmd.ErrOrStderr()

	mode, err := query.ParseMode(flags.jsonpathMode)
	if err != nil {
		return err
	}

	logger := newLogger(cmd)

	docs, err := retrieval.NewCache(retrieval.Options{Logger: logger})
	if err != nil {
		return err
	}
	cache.Register(docs)
	defer cache.Unregister(docs)

	opts, err := flags.options(logger, docs)
	if err != nil {
		return err
	}

	res, err := processor.Dereference(ctx, opts)
	if err != nil {
		return err
	}

	out := res.Document
	if flags.selectExpr != "" {
		out, err = selectOutput(processor, res.Document, flags.selectExpr, mode)
		if err != nil {
			return err
		}
	}

	if err := processor.WriteDocument(out); err != nil {
		return err
	}

	reportResult(processor.stderr(), res)
	if flags.stats {
		reportCacheStats(processor.stderr())
	}
	reportElapsed(processor.stderr(), "Dereference", time.Since(start))

	if flags.strict && len(res.Errors) > 0 {
		return fmt.Errorf("%d references could not be resolved", len(res.Errors))
	}
	return nil
}

// selectOutput returns the single match of expr, or an array of every match.
func selectOutput(p *Processor, doc *node.Node, expr string, mode query.Mode) (*node.Node, error) {
	matches, warnings, err := query.Select(doc, expr, mode)
	for _, w := range warnings {
		p.PrintWarning(w)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid --select expression: %w", err)
	}
	if len(matches) == 1 {
		return matches[0], nil
	}
	return node.NewArray(matches...), nil
}

func newLogger(cmd *cobra.Command) system.Logger {
	level := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return system.NewSlogAdapter(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
}

// Apply adds the deref command to rootCmd.
func Apply(rootCmd *cobra.Command) {
	rootCmd.AddCommand(NewCommand())
}
