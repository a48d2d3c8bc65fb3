package rewrite

import (
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/resbuilder/internal/discovery"
	"git.home.luguber.info/inful/resbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/resbuilder/internal/transform"
)

// Finding is a script or stylesheet reference that still resolves to an original script.
type Finding struct {
	Document  string // root-relative slash path of the HTML file
	Tag       string
	Attribute string
	Value     string // attribute value as written
	Original  string
	Built     string
}

// Audit parses an HTML document and reports script[src] and link[href] values that resolve
// to the original path of a built script.
func Audit(htmlPath, root string, results []transform.BuildResult) ([]Finding, error) {
	rel, err := discovery.Rel(root, htmlPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRewrite, "HTML file outside project root").
			WithContext("html_path", htmlPath).Build()
	}
	file, err := os.Open(filepath.Clean(htmlPath))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to open HTML file").
			WithContext("html_path", rel).Build()
	}
	defer func() {
		_ = file.Close()
	}()

	return AuditReader(file, rel, results)
}

// AuditReader is Audit over an already opened document whose root-relative path is docRel.
func AuditReader(r io.Reader, docRel string, results []transform.BuildResult) ([]Finding, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "failed to parse HTML").
			WithContext("html_path", docRel).Build()
	}

	originals := make(map[string]string, len(results))
	for _, res := range results {
		originals[res.OriginalPath] = res.BuiltPath
	}
	docDir := path.Dir(docRel)

	var findings []Finding
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			attr := ""
			switch n.Data {
			case "script":
				attr = "src"
			case "link":
				attr = "href"
			}
			if attr != "" {
				if v := getAttr(n, attr); v != "" {
					if orig, ok := resolve(docDir, v, originals); ok {
						findings = append(findings, Finding{
							Document:  docRel,
							Tag:       n.Data,
							Attribute: attr,
							Value:     v,
							Original:  orig,
							Built:     originals[orig],
						})
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)
	return findings, nil
}

// resolve maps an attribute value to an original script path, trying the document-relative
// and the root-relative reading.
func resolve(docDir, value string, originals map[string]string) (string, bool) {
	u, err := url.Parse(value)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" {
		return "", false
	}
	p := u.Path
	if strings.HasPrefix(p, "/") {
		p = path.Clean(strings.TrimPrefix(p, "/"))
		_, ok := originals[p]
		return p, ok
	}
	for _, candidate := range []string{path.Join(docDir, p), path.Clean(p)} {
		if _, ok := originals[candidate]; ok {
			return candidate, true
		}
	}
	return "", false
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
