package rewrite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/resbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/resbuilder/internal/transform"
)

var scenario = []transform.BuildResult{
	{OriginalPath: "main.js", BuiltPath: "build/main.js"},
	{OriginalPath: "web/script.js", BuiltPath: "web/build/script.js"},
}

const manifest = `fx_version 'cerulean'
game 'gta5'

client_script 'main.js'
server_scripts { "web/script.js", 'server/domain.js' }
files { 'web/index.html', "main.js' }
`

func TestManifestText(t *testing.T) {
	out, n := ManifestText(manifest, scenario)
	require.Equal(t, 3, n)
	require.Contains(t, out, "client_script 'build/main.js'")
	require.Contains(t, out, "server_scripts { 'web/build/script.js', 'server/domain.js' }")
	require.Contains(t, out, "files { 'web/index.html', 'build/main.js' }")
	require.Contains(t, out, "fx_version 'cerulean'")
}

func TestManifestText_Idempotent(t *testing.T) {
	once, _ := ManifestText(manifest, scenario)
	twice, n := ManifestText(once, scenario)
	require.Zero(t, n)
	require.Equal(t, once, twice)
}

func TestManifestText_RequiresQuoteAdjacency(t *testing.T) {
	text := `client_scripts { 'lib/main.js', 'main.js.map', main.js }`
	out, n := ManifestText(text, scenario[:1])
	require.Zero(t, n)
	require.Equal(t, text, out)
}

func TestManifestText_RegexMetacharacters(t *testing.T) {
	results := []transform.BuildResult{{OriginalPath: "a+b(1).js", BuiltPath: "build/a+b(1).js"}}
	out, n := ManifestText(`client_script "a+b(1).js" 'aab1.js'`, results)
	require.Equal(t, 1, n)
	require.Equal(t, `client_script 'build/a+b(1).js' 'aab1.js'`, out)
}

func TestManifest_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fxmanifest.lua")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o640))

	outcome, err := Manifest(path, scenario)
	require.NoError(t, err)
	require.Equal(t, ManifestRewritten, outcome)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "'build/main.js'")
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	outcome, err = Manifest(path, scenario)
	require.NoError(t, err)
	require.Equal(t, ManifestUnchanged, outcome)
}

func TestManifest_Missing(t *testing.T) {
	outcome, err := Manifest(filepath.Join(t.TempDir(), "fxmanifest.lua"), scenario)
	require.NoError(t, err)
	require.Equal(t, ManifestMissing, outcome)
}

func TestManifest_ReadError(t *testing.T) {
	dir := t.TempDir()
	_, err := Manifest(dir, scenario)
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryRewrite))
}

func TestHTMLText_RootDocument(t *testing.T) {
	in := `<script src="web/script.js"></script><link href='main.js'>`
	out, n := HTMLText(in, ".", scenario)
	require.Equal(t, 2, n)
	require.Equal(t, `<script src="web/build/script.js"></script><link href='build/main.js'>`, out)
}

func TestHTMLText_SubdirectoryDocument(t *testing.T) {
	in := `<script src="script.js"></script>
<script src="../main.js"></script>
<script src="web/script.js"></script>`
	out, n := HTMLText(in, "web", scenario)
	require.Equal(t, 3, n)
	require.Contains(t, out, `src="build/script.js"`)
	require.Contains(t, out, `src="../build/main.js"`)
	require.Contains(t, out, `src="web/build/script.js"`)
}

func TestHTMLText_IdempotentAndUntouched(t *testing.T) {
	in := `<img src="logo.png"><script src="web/script.js"></script>`
	once, n := HTMLText(in, "", scenario)
	require.Equal(t, 1, n)
	require.Contains(t, once, `src="logo.png"`)

	twice, n := HTMLText(once, "", scenario)
	require.Zero(t, n)
	require.Equal(t, once, twice)
}

func TestHTMLText_DollarInBuiltPath(t *testing.T) {
	results := []transform.BuildResult{{OriginalPath: "a.js", BuiltPath: "build$1/a.js"}}
	out, n := HTMLText(`<script src="a.js">`, "", results)
	require.Equal(t, 1, n)
	require.Equal(t, `<script src="build$1/a.js">`, out)
}

func TestForms(t *testing.T) {
	require.Len(t, forms(".", scenario[0]), 1)
	require.Len(t, forms("", scenario[0]), 1)
	f := forms("web/ui", scenario[1])
	require.Len(t, f, 2)
	require.Equal(t, form{from: "../script.js", to: "../build/script.js"}, f[1])
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestHTMLFiles_ContinuesPastFailures(t *testing.T) {
	root := t.TempDir()
	index := writeFile(t, root, "web/index.html", `<script src="script.js"></script>`)
	plain := writeFile(t, root, "web/about.html", `<p>nothing</p>`)
	missing := filepath.Join(root, "web", "gone.html")

	sum := HTMLFiles(context.Background(), root, []string{missing, index, plain}, scenario)
	require.Equal(t, []string{"web/index.html"}, sum.Rewritten)
	require.Equal(t, []string{"web/about.html"}, sum.Unchanged)
	require.Len(t, sum.Failed, 1)
	require.Equal(t, "web/gone.html", sum.Failed[0].Path)

	data, err := os.ReadFile(index)
	require.NoError(t, err)
	require.Equal(t, `<script src="build/script.js"></script>`, string(data))
}

func TestHTMLFiles_Canceled(t *testing.T) {
	root := t.TempDir()
	index := writeFile(t, root, "index.html", `<script src="main.js"></script>`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum := HTMLFiles(ctx, root, []string{index}, scenario)
	require.Len(t, sum.Failed, 1)
	require.ErrorIs(t, sum.Failed[0].Err, context.Canceled)
}

func TestAudit(t *testing.T) {
	root := t.TempDir()
	doc := writeFile(t, root, "web/index.html", `<!doctype html><html><head>
<script src="script.js"></script>
<link rel="preload" href="/main.js">
<script src="https://cdn.example.com/main.js"></script>
<script src="build/script.js?v=2"></script>
</head><body><a href="script.js">not audited</a></body></html>`)

	findings, err := Audit(doc, root, scenario)
	require.NoError(t, err)
	require.Len(t, findings, 2)
	require.Equal(t, Finding{Document: "web/index.html", Tag: "script", Attribute: "src", Value: "script.js",
		Original: "web/script.js", Built: "web/build/script.js"}, findings[0])
	require.Equal(t, "main.js", findings[1].Original)
	require.Equal(t, "link", findings[1].Tag)

	_, err = HTMLFile(root, doc, scenario)
	require.NoError(t, err)
	findings, err = Audit(doc, root, scenario)
	require.NoError(t, err)
	require.Len(t, findings, 1, "root-absolute references are not rewritten")
}

func TestAudit_MissingFile(t *testing.T) {
	root := t.TempDir()
	_, err := Audit(filepath.Join(root, "none.html"), root, scenario)
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryFileSystem))
}

func TestAuditReader_RootRelativeFallback(t *testing.T) {
	findings, err := AuditReader(strings.NewReader(`<script src="web/script.js"></script>`), "web/index.html", scenario)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	require.Equal(t, "web/script.js", findings[0].Original)
}
