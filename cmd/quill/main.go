// quill formats and converts canonical documents.
//
// Usage:
//
//	quill fmt [--check] [file]
//	quill convert --from json --to quill [file]
//	quill version
//
// Input is read from file, or stdin when file is absent or "-".
// Output goes to stdout unless --output names a file.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/zoobzio/quill"
	"github.com/zoobzio/quill/json"
	"github.com/zoobzio/quill/msgpack"
	"github.com/zoobzio/quill/yaml"
)

var version = "dev"

// exitError carries a process exit status without a message.
type exitError int

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

func (e exitError) ExitCode() int {
	return int(e)
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return exitError(2)
	}

	switch args[0] {
	case "fmt":
		return runFmt(args[1:], stdin, stdout, stderr)
	case "convert":
		return runConvert(args[1:], stdin, stdout, stderr)
	case "version", "--version":
		fmt.Fprintf(stdout, "quill %s\n", version)
		return nil
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// limits are the decoder bounds shared by every command.
type limits struct {
	maxDepth     int
	maxInputSize int64
}

func (l *limits) addFlags(fs *pflag.FlagSet) {
	fs.IntVar(&l.maxDepth, "max-depth", quill.DefaultMaxDepth, "maximum nesting depth")
	fs.Int64Var(&l.maxInputSize, "max-input-size", quill.DefaultMaxInputSize, "maximum input size in bytes")
}

func (l *limits) options() []quill.Option {
	return []quill.Option{quill.WithMaxDepth(l.maxDepth), quill.WithMaxInputSize(l.maxInputSize)}
}

func runFmt(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var lim limits
	var check bool
	var output string

	fs := pflag.NewFlagSet("fmt", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&check, "check", false, "report whether the input is already canonical instead of rewriting it")
	fs.StringVarP(&output, "output", "o", "", "write the result to this file")
	lim.addFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	data, name, err := readInput(fs.Args(), stdin)
	if err != nil {
		return err
	}

	var v quill.Value
	if err := quill.NewDecoder(bytes.NewReader(data), lim.options()...).Decode(&v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := quill.NewEncoder(&buf, quill.WithMaxDepth(lim.maxDepth)).Encode(v); err != nil {
		return err
	}

	if check {
		if !bytes.Equal(buf.Bytes(), data) {
			fmt.Fprintf(stderr, "%s: not canonical\n", name)
			return exitError(1)
		}
		return nil
	}
	return writeOutput(output, stdout, buf.Bytes())
}

func runConvert(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var lim limits
	var from, to, output string
	var indent bool

	fs := pflag.NewFlagSet("convert", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&from, "from", "f", "quill", "input format: quill, yaml, json or msgpack")
	fs.StringVarP(&to, "to", "t", "quill", "output format: quill, yaml, json or msgpack")
	fs.StringVarP(&output, "output", "o", "", "write the result to this file")
	fs.BoolVar(&indent, "indent", false, "indent json output")
	lim.addFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	data, name, err := readInput(fs.Args(), stdin)
	if err != nil {
		return err
	}
	if int64(len(data)) > lim.maxInputSize {
		return fmt.Errorf("%s: %w", name, quill.ErrInputTooLarge)
	}

	v, err := parse(strings.ToLower(from), data, lim)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	out, err := render(strings.ToLower(to), v, indent, lim)
	if err != nil {
		return err
	}
	return writeOutput(output, stdout, out)
}

func parse(format string, data []byte, lim limits) (quill.Value, error) {
	switch format {
	case "quill", "canonical":
		var v quill.Value
		err := quill.NewDecoder(bytes.NewReader(data), lim.options()...).Decode(&v)
		return v, err
	case "yaml":
		return yaml.Parse(data)
	case "json":
		return json.Parse(data)
	case "msgpack":
		return msgpack.UnmarshalValue(data)
	default:
		return quill.Value{}, fmt.Errorf("unknown input format %q", format)
	}
}

func render(format string, v quill.Value, indent bool, lim limits) ([]byte, error) {
	switch format {
	case "quill", "canonical":
		var buf bytes.Buffer
		err := quill.NewEncoder(&buf, quill.WithMaxDepth(lim.maxDepth)).Encode(v)
		return buf.Bytes(), err
	case "yaml":
		return yaml.Render(v)
	case "json":
		if indent {
			return json.RenderIndent(v, "  ")
		}
		return json.Render(v)
	case "msgpack":
		return msgpack.MarshalValue(v)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

func readInput(args []string, stdin io.Reader) ([]byte, string, error) {
	switch len(args) {
	case 0:
		data, err := io.ReadAll(stdin)
		return data, "<stdin>", err
	case 1:
		if args[0] == "-" {
			data, err := io.ReadAll(stdin)
			return data, "<stdin>", err
		}
		data, err := os.ReadFile(args[0])
		return data, args[0], err
	default:
		return nil, "", errors.New("expected at most one input file")
	}
}

func writeOutput(path string, stdout io.Writer, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage:
  quill fmt [--check] [-o file] [file]
  quill convert [--from format] [--to format] [-o file] [file]
  quill version

Formats: quill (canonical), yaml, json, msgpack.
`)
}
