package deref

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/speakeasy-api/openapi-deref/deref"
	"github.com/speakeasy-api/openapi-deref/json"
	"github.com/speakeasy-api/openapi-deref/node"
	"github.com/speakeasy-api/openapi-deref/system"
	"github.com/spf13/cobra"
)

// StdinIndicator is the conventional Unix indicator to read from stdin.
const StdinIndicator = "-"

const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// IsStdin returns true if the given path indicates stdin should be used.
func IsStdin(path string) bool {
	return path == StdinIndicator
}

func stdinIsPiped() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) == 0
}

func inputFileFromArgs(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return StdinIndicator
}

func outputFileFromArgs(args []string) string {
	if len(args) > 1 {
		return args[1]
	}
	return ""
}

// stdinOrFileArgs accepts minArgs..maxArgs positional args, or none when stdin is piped.
func stdinOrFileArgs(minArgs, maxArgs int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) == 0 {
			if stdinIsPiped() {
				return nil
			}
			return fmt.Errorf("requires at least %d arg(s), or pipe data to stdin", minArgs)
		}
		if len(args) < minArgs {
			return fmt.Errorf("requires at least %d arg(s), only received %d", minArgs, len(args))
		}
		if maxArgs >= 0 && len(args) > maxArgs {
			return fmt.Errorf("accepts at most %d arg(s), received %d", maxArgs, len(args))
		}
		return nil
	}
}

// Processor reads the document to dereference and writes the result.
type Processor struct {
	InputFile     string
	OutputFile    string
	Format        string
	ReadFromStdin bool
	WriteToStdout bool

	// FS is where input files are read from and output files written to. Defaults to the
	// operating system file system.
	FS system.WritableVirtualFS

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewProcessor creates a processor for the given input and output files. Pass "-" as inputFile to
// read from stdin. An empty format is inferred from the output file, then the input file, and
// defaults to YAML.
func NewProcessor(inputFile, outputFile, format string) (*Processor, error) {
	resolved, err := resolveFormat(format, outputFile, inputFile)
	if err != nil {
		return nil, err
	}

	return &Processor{
		InputFile:     inputFile,
		OutputFile:    outputFile,
		Format:        resolved,
		ReadFromStdin: IsStdin(inputFile),
		WriteToStdout: outputFile == "" || IsStdin(outputFile),
	}, nil
}

func resolveFormat(format string, files ...string) (string, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	case "":
	default:
		return "", fmt.Errorf("unknown output format %q, expected json or yaml", format)
	}

	for _, file := range files {
		if file == "" || IsStdin(file) {
			continue
		}
		switch strings.ToLower(filepath.Ext(file)) {
		case ".json":
			return FormatJSON, nil
		case ".yaml", ".yml":
			return FormatYAML, nil
		}
	}
	return FormatYAML, nil
}

func (p *Processor) fs() system.WritableVirtualFS {
	if p.FS != nil {
		return p.FS
	}
	return &system.FileSystem{}
}

func (p *Processor) stdin() io.Reader {
	if p.Stdin != nil {
		return p.Stdin
	}
	return os.Stdin
}

func (p *Processor) stdout() io.Writer {
	if p.Stdout != nil {
		return p.Stdout
	}
	return os.Stdout
}

func (p *Processor) stderr() io.Writer {
	if p.Stderr != nil {
		return p.Stderr
	}
	return os.Stderr
}

// Dereference loads the input document and dereferences it with opts. A file input is retrieved
// through the dereference cache unless opts.BaseDoc overrides its location.
func (p *Processor) Dereference(ctx context.Context, opts deref.Options) (*deref.Result, error) {
	if p.ReadFromStdin {
		fmt.Fprintf(p.stderr(), "Processing document from stdin\n")
		data, err := io.ReadAll(p.stdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return p.dereferenceData(ctx, data, opts)
	}

	cleanInputFile := filepath.Clean(p.InputFile)
	fmt.Fprintf(p.stderr(), "Processing document: %s\n", cleanInputFile)

	if opts.BaseDoc == "" {
		return deref.DereferenceURI(ctx, cleanInputFile, opts)
	}

	f, err := p.fs().Open(cleanInputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return p.dereferenceData(ctx, data, opts)
}

func (p *Processor) dereferenceData(ctx context.Context, data []byte, opts deref.Options) (*deref.Result, error) {
	root, err := node.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return deref.Dereference(ctx, root, opts)
}

// Render encodes n in the processor's output format.
func (p *Processor) Render(n *node.Node) ([]byte, error) {
	switch p.Format {
	case FormatJSON:
		var buf bytes.Buffer
		if err := json.Marshal(n, 2, &buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatYAML:
		return node.MarshalYAML(n, 2)
	default:
		return nil, errors.New("no output format set")
	}
}

// WriteDocument writes n to the output destination.
func (p *Processor) WriteDocument(n *node.Node) error {
	data, err := p.Render(n)
	if err != nil {
		return fmt.Errorf("failed to render document: %w", err)
	}

	if p.WriteToStdout {
		_, err := p.stdout().Write(data)
		return err
	}

	cleanOutputFile := filepath.Clean(p.OutputFile)
	if err := p.fs().WriteFile(cleanOutputFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(p.stderr(), "📄 Document written to: %s\n", cleanOutputFile)

	return nil
}

// PrintWarning prints a warning message to stderr.
func (p *Processor) PrintWarning(message string) {
	fmt.Fprintf(p.stderr(), "⚠️  Warning: %s\n", message)
}
