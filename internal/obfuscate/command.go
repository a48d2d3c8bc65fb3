package obfuscate

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/resbuilder/internal/config"
)

// Command runs the javascript-obfuscator CLI on a temporary copy of each script.
type Command struct {
	bin  string
	opts Options
}

func NewCommand(bin string, opts Options) *Command {
	return &Command{bin: bin, opts: opts}
}

func (*Command) Name() string { return string(config.ObfuscatorCommand) }

// Args builds the CLI arguments for reading in and writing out.
func (c *Command) Args(in, out string) []string {
	o := c.opts
	args := []string{in, "--output", out}
	flag := func(name string, v any) {
		args = append(args, "--"+name, fmt.Sprint(v))
	}
	ratio := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

	flag("compact", o.Compact)
	flag("control-flow-flattening", o.ControlFlowFlattening)
	if o.ControlFlowFlattening {
		flag("control-flow-flattening-threshold", ratio(o.ControlFlowFlatteningThreshold))
	}
	flag("dead-code-injection", o.DeadCodeInjection)
	if o.DeadCodeInjection {
		flag("dead-code-injection-threshold", ratio(o.DeadCodeInjectionThreshold))
	}
	flag("identifier-names-generator", "hexadecimal")
	flag("rename-globals", o.RenameGlobals)
	flag("self-defending", o.SelfDefending)
	flag("split-strings", o.SplitStrings)
	if o.SplitStrings {
		flag("split-strings-chunk-length", o.SplitStringsChunkLength)
	}
	flag("string-array", o.StringArray)
	if o.StringArray {
		enc := o.StringArrayEncoding
		if enc == "" {
			enc = config.EncodingNone
		}
		flag("string-array-encoding", enc)
		flag("string-array-rotate", o.StringArrayRotate)
		flag("string-array-threshold", ratio(o.StringArrayThreshold))
	}
	flag("unicode-escape-sequence", o.UnicodeEscapeSequence)
	if o.Seed != 0 {
		flag("seed", o.Seed)
	}
	return args
}

func (c *Command) Obfuscate(ctx context.Context, name, src string) (string, error) {
	dir, err := os.MkdirTemp("", "resbuilder-obfuscate-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	in := filepath.Join(dir, "in.js")
	out := filepath.Join(dir, "out.js")
	if err := os.WriteFile(in, []byte(src), 0o600); err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, c.bin, c.Args(in, out)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%s %s: %w: %s", c.bin, name, err, strings.TrimSpace(stderr.String()))
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return "", fmt.Errorf("%s %s: read output: %w", c.bin, name, err)
	}
	return string(data), nil
}
