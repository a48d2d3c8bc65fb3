package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"git.home.luguber.info/inful/resbuilder/internal/build"
	"git.home.luguber.info/inful/resbuilder/internal/discovery"
)

// DiscoverCmd implements the 'discover' command.
type DiscoverCmd struct {
	Root string `short:"r" help:"Project root (overrides project.root)"`
}

func (d *DiscoverCmd) Run(_ context.Context, _ *Global, root *CLI) error {
	cfg, err := loadConfig(root, BuildFlags{Root: d.Root})
	if err != nil {
		return err
	}
	b, err := build.New(cfg)
	if err != nil {
		return err
	}
	scripts, html, err := b.Discover()
	if err != nil {
		return err
	}
	return RunDiscover(os.Stdout, b.Root(), scripts, html)
}

// RunDiscover prints root-relative script and HTML paths in discovery order.
func RunDiscover(w io.Writer, root string, scripts, html []string) error {
	if _, err := fmt.Fprintf(w, "Scripts (%d):\n", len(scripts)); err != nil {
		return err
	}
	if err := printRel(w, root, scripts); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "HTML documents (%d):\n", len(html)); err != nil {
		return err
	}
	return printRel(w, root, html)
}

func printRel(w io.Writer, root string, paths []string) error {
	for _, p := range paths {
		rel, err := discovery.Rel(root, p)
		if err != nil {
			rel = p
		}
		if _, err := fmt.Fprintf(w, "  %s\n", rel); err != nil {
			return err
		}
	}
	return nil
}
