package obfuscate

import (
	"crypto/rc4"
	"encoding/base64"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/tdewolff/parse/v2/js"

	"git.home.luguber.info/inful/resbuilder/internal/config"
)

const rc4KeyLength = 4

// stringTable moves string literals into a single array read through a decoder function.
type stringTable struct {
	rng   *rand.Rand
	names *nameGenerator
	opts  Options

	array, decoder string
	offset         int
	entries        []tableEntry
	index          map[string]int
}

type tableEntry struct {
	value, key string
}

func newStringTable(rng *rand.Rand, names *nameGenerator, opts Options) *stringTable {
	return &stringTable{
		rng:     rng,
		names:   names,
		opts:    opts,
		array:   names.next(),
		decoder: names.next(),
		offset:  0x100 + rng.IntN(0x300),
		index:   make(map[string]int),
	}
}

// extract replaces eligible string literals with decoder calls and returns how many
// literals were moved. Property keys stay literal; computed keys are visited.
func (t *stringTable) extract(ast *js.AST) int {
	var lits []*js.LiteralExpr
	var collect visitor
	collect = func(n js.INode) bool {
		switch n := n.(type) {
		case *js.PropertyName:
			if n.Computed != nil {
				js.Walk(collect, n.Computed)
			}
			return false
		case *js.LiteralExpr:
			if n.TokenType == js.StringToken {
				lits = append(lits, n)
			}
		}
		return true
	}
	js.Walk(collect, &ast.BlockStmt)

	moved := 0
	for _, lit := range lits {
		if t.rng.Float64() >= t.opts.StringArrayThreshold {
			continue
		}
		value, ok := unquoteJS(lit.Data)
		if !ok {
			continue
		}
		lit.Data = []byte(t.reference(value))
		moved++
	}
	return moved
}

func (t *stringTable) reference(value string) string {
	parts := []string{value}
	if t.opts.SplitStrings {
		parts = chunks(value, t.opts.SplitStringsChunkLength)
	}
	calls := make([]string, len(parts))
	for i, part := range parts {
		calls[i] = t.call(t.entry(part))
	}
	if len(calls) == 1 {
		return calls[0]
	}
	return "(" + strings.Join(calls, "+") + ")"
}

func (t *stringTable) entry(value string) int {
	if i, ok := t.index[value]; ok {
		return i
	}
	e := tableEntry{value: value}
	if t.opts.StringArrayEncoding == config.EncodingRC4 {
		e.key = randomKey(t.rng, rc4KeyLength)
	}
	t.entries = append(t.entries, e)
	t.index[value] = len(t.entries) - 1
	return len(t.entries) - 1
}

func (t *stringTable) call(i int) string {
	e := t.entries[i]
	if e.key != "" {
		return fmt.Sprintf("%s(0x%x,%s)", t.decoder, i+t.offset, quoteJS(e.key, false))
	}
	return fmt.Sprintf("%s(0x%x)", t.decoder, i+t.offset)
}

func (t *stringTable) encode(e tableEntry) string {
	switch t.opts.StringArrayEncoding {
	case config.EncodingBase64:
		return base64.StdEncoding.EncodeToString([]byte(e.value))
	case config.EncodingRC4:
		return base64.StdEncoding.EncodeToString(rc4Crypt(e.key, []byte(e.value)))
	default:
		return e.value
	}
}

// preamble renders the array, the optional rotation and the decoder.
func (t *stringTable) preamble() string {
	if len(t.entries) == 0 {
		return ""
	}
	n := len(t.entries)
	shift := 0
	if t.opts.StringArrayRotate && n > 1 {
		shift = 1 + t.rng.IntN(2*n)
	}

	stored := make([]string, n)
	for i, e := range t.entries {
		stored[(i+shift)%n] = quoteJS(t.encode(e), t.opts.UnicodeEscapeSequence)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "var %s=[%s];", t.array, strings.Join(stored, ","))
	if shift > 0 {
		fmt.Fprintf(&b, rotateTemplate, t.array, shift)
	}
	r := strings.NewReplacer("{{A}}", t.array, "{{D}}", t.decoder, "{{O}}", fmt.Sprintf("0x%x", t.offset))
	switch t.opts.StringArrayEncoding {
	case config.EncodingBase64:
		b.WriteString(r.Replace(base64Decoder))
	case config.EncodingRC4:
		b.WriteString(r.Replace(rc4Decoder))
	default:
		b.WriteString(r.Replace(plainDecoder))
	}
	return b.String()
}

func rc4Crypt(key string, data []byte) []byte {
	c, err := rc4.NewCipher([]byte(key))
	if err != nil {
		// key length is fixed and within 1..256
		panic(err)
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out
}

const rotateTemplate = `(function(a,n){while(n--){a["push"](a["shift"]())}})(%s,0x%x);`

const plainDecoder = `function {{D}}(i){return {{A}}[i-{{O}}]}`

const base64Bytes = `var t={{A}}[i],m="ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/",b=[],q=0,r=0,x,u;` +
	`for(x=0;x<t.length;x++){u=m.indexOf(t.charAt(x));if(u<0){continue}r=(r<<6|u)&65535;q+=6;if(q>=8){q-=8;b.push(r>>q&255)}}`

const base64Decoder = `function {{D}}(i){i=i-{{O}};var c={{D}}.c||({{D}}.c={});if(c[i]!==undefined){return c[i]}` +
	base64Bytes +
	`var o="";for(x=0;x<b.length;x++){o+="%"+("00"+b[x].toString(16)).slice(-2)}return c[i]=decodeURIComponent(o)}`

const rc4Decoder = `function {{D}}(i,k){i=i-{{O}};var c={{D}}.c||({{D}}.c={}),h=i+k;if(c[h]!==undefined){return c[h]}` +
	base64Bytes +
	`var s=[],j=0,y,z,o="";for(y=0;y<256;y++){s[y]=y}` +
	`for(y=0;y<256;y++){j=(j+s[y]+k.charCodeAt(y%k.length))%256;z=s[y];s[y]=s[j];s[j]=z}` +
	`y=0;j=0;for(x=0;x<b.length;x++){y=(y+1)%256;j=(j+s[y])%256;z=s[y];s[y]=s[j];s[j]=z;` +
	`o+="%"+("00"+(b[x]^s[(s[y]+s[j])%256]).toString(16)).slice(-2)}return c[h]=decodeURIComponent(o)}`
