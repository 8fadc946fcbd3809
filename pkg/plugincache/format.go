package plugincache

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/ofxhost/pkg/ofx"
)

const (
	formatMagic = "ofx-plugin-cache"
	// FormatVersion is the major version of the cache text format written
	// by this package. Files with a higher major are not read.
	FormatVersion = 1

	maxLineLength = 1 << 20
)

// writeRecords serializes records in order. Every descriptor field is
// written so that reading the output back yields the same records.
func writeRecords(w io.Writer, records []*ModuleRecord) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s %d\n", formatMagic, FormatVersion)
	for _, rec := range records {
		fmt.Fprintf(bw, "module %s\n", strconv.Quote(rec.Path))
		fmt.Fprintf(bw, "  mtime %d\n", rec.ModTime)
		fmt.Fprintf(bw, "  size %d\n", rec.Size)
		for _, d := range rec.Descriptors {
			fmt.Fprintf(bw, "  plugin %s\n", strconv.Quote(d.Identifier))
			fmt.Fprintf(bw, "    index %d\n", d.Index)
			fmt.Fprintf(bw, "    version %d %d\n", d.VersionMajor, d.VersionMinor)
			fmt.Fprintf(bw, "    api %s %d\n", strconv.Quote(d.API), d.APIVersion)
			fmt.Fprintf(bw, "    label %s\n", strconv.Quote(d.Label))

			bw.WriteString("    contexts")
			for _, c := range d.Contexts {
				bw.WriteString(" ")
				bw.WriteString(strconv.Quote(c.String()))
			}
			bw.WriteString("\n")

			bw.WriteString("    flags")
			for _, f := range d.Flags {
				bw.WriteString(" ")
				bw.WriteString(strconv.Quote(f.String()))
			}
			bw.WriteString("\n")

			bw.WriteString("  end\n")
		}
		bw.WriteString("end\n")
	}

	return bw.Flush()
}

// token is one word of a cache line: either a bare word or a quoted string
type token struct {
	text   string
	quoted bool
}

func tokenize(line string) ([]token, error) {
	var tokens []token
	rest := strings.TrimSpace(line)
	for rest != "" {
		if rest[0] == '"' {
			quoted, err := strconv.QuotedPrefix(rest)
			if err != nil {
				return nil, fmt.Errorf("bad quoted string: %w", err)
			}
			text, err := strconv.Unquote(quoted)
			if err != nil {
				return nil, fmt.Errorf("bad quoted string: %w", err)
			}
			tokens = append(tokens, token{text: text, quoted: true})
			rest = strings.TrimLeft(rest[len(quoted):], " \t")
			continue
		}

		end := strings.IndexAny(rest, " \t")
		if end < 0 {
			end = len(rest)
		}
		tokens = append(tokens, token{text: rest[:end]})
		rest = strings.TrimLeft(rest[end:], " \t")
	}
	return tokens, nil
}

// recordParser holds the state of one pass over a cache file
type recordParser struct {
	log     *logrus.Logger
	records []*ModuleRecord
	skipped int

	lineNo int
	cur    *ModuleRecord
	curBad string
	mtime  bool
	size   bool

	plugin        *Descriptor
	pluginVersion bool
}

// readRecords parses a cache stream. Malformed module blocks are skipped
// with a warning; a missing or newer header yields no records. Only I/O
// errors from r are returned.
func readRecords(r io.Reader, log *logrus.Logger) ([]*ModuleRecord, int, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	p := &recordParser{log: log}
	headerSeen := false

	for {
		line, tooLong, err := readLine(br)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read plugin cache: %w", err)
		}
		p.lineNo++

		if tooLong {
			if !headerSeen {
				log.Warnf("Ignoring plugin cache: line %d is not a plugin cache header", p.lineNo)
				return nil, 0, nil
			}
			p.fail("line %d is longer than %d bytes", p.lineNo, maxLineLength)
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		if !headerSeen {
			ok, err := p.header(line)
			if err != nil {
				log.Warnf("Ignoring plugin cache: %v", err)
				return nil, 0, nil
			}
			if !ok {
				return nil, 0, nil
			}
			headerSeen = true
			continue
		}

		p.line(line)
	}

	if p.cur != nil {
		p.skip(fmt.Sprintf("module %q is truncated before its end", p.cur.Path))
	}
	return p.records, p.skipped, nil
}

// readLine returns the next line without its terminator. A line longer than
// maxLineLength is consumed whole and reported as too long. io.EOF is only
// returned when no line remains.
func readLine(br *bufio.Reader) (string, bool, error) {
	var (
		buf     []byte
		started bool
		tooLong bool
	)
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if started && errors.Is(err, io.EOF) {
				return string(buf), tooLong, nil
			}
			return "", false, err
		}
		started = true
		if !tooLong {
			if len(buf)+len(chunk) > maxLineLength {
				buf, tooLong = nil, true
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			return string(buf), tooLong, nil
		}
	}
}

func (p *recordParser) header(line string) (bool, error) {
	tokens, err := tokenize(line)
	if err != nil || len(tokens) < 2 || tokens[0].text != formatMagic {
		return false, fmt.Errorf("line %d is not a plugin cache header", p.lineNo)
	}
	version, err := strconv.Atoi(tokens[1].text)
	if err != nil {
		return false, fmt.Errorf("bad cache format version %q", tokens[1].text)
	}
	if version > FormatVersion {
		p.log.Warnf("Plugin cache format version %d is newer than %d, starting with an empty cache", version, FormatVersion)
		return false, nil
	}
	return true, nil
}

func (p *recordParser) line(line string) {
	tokens, err := tokenize(line)
	if err != nil {
		p.fail("line %d: %v", p.lineNo, err)
		return
	}
	key, args := tokens[0].text, tokens[1:]

	switch key {
	case "module":
		if p.cur != nil {
			p.skip(fmt.Sprintf("module %q has no end", p.cur.Path))
		}
		p.cur = &ModuleRecord{State: StateUnscanned}
		p.curBad = ""
		p.mtime, p.size = false, false
		p.plugin = nil
		if len(args) != 1 || !args[0].quoted {
			p.fail("line %d: module needs a quoted path", p.lineNo)
			return
		}
		p.cur.Path = args[0].text

	case "end":
		switch {
		case p.plugin != nil:
			p.endPlugin()
		case p.cur != nil:
			p.endModule()
		default:
			p.log.Warnf("Plugin cache line %d: stray end", p.lineNo)
		}

	case "plugin":
		if p.cur == nil {
			p.log.Warnf("Plugin cache line %d: plugin outside a module", p.lineNo)
			return
		}
		if p.plugin != nil {
			p.fail("line %d: plugin %q has no end", p.lineNo, p.plugin.Identifier)
		}
		p.plugin = &Descriptor{
			API:        ofx.ImageEffectPluginAPI,
			APIVersion: ofx.ImageEffectPluginAPIVersion,
			ModulePath: p.cur.Path,
			Index:      len(p.cur.Descriptors),
		}
		p.pluginVersion = false
		if len(args) != 1 || !args[0].quoted || args[0].text == "" {
			p.fail("line %d: plugin needs a quoted identifier", p.lineNo)
			return
		}
		p.plugin.Identifier = args[0].text

	default:
		if p.cur == nil {
			return
		}
		if p.plugin != nil {
			p.pluginKey(key, args)
		} else {
			p.moduleKey(key, args)
		}
	}
}

func (p *recordParser) moduleKey(key string, args []token) {
	switch key {
	case "mtime":
		v, ok := p.int64Arg(key, args)
		p.cur.ModTime, p.mtime = v, ok
	case "size":
		v, ok := p.int64Arg(key, args)
		p.cur.Size, p.size = v, ok
	}
	// other keys belong to newer writers
}

func (p *recordParser) pluginKey(key string, args []token) {
	d := p.plugin
	switch key {
	case "index":
		if v, ok := p.int64Arg(key, args); ok {
			d.Index = int(v)
		}
	case "version":
		if len(args) != 2 {
			p.fail("line %d: version needs major and minor", p.lineNo)
			return
		}
		major, err1 := strconv.Atoi(args[0].text)
		minor, err2 := strconv.Atoi(args[1].text)
		if err1 != nil || err2 != nil {
			p.fail("line %d: bad version", p.lineNo)
			return
		}
		d.VersionMajor, d.VersionMinor, p.pluginVersion = major, minor, true
	case "api":
		if len(args) != 2 || !args[0].quoted {
			p.fail("line %d: api needs a quoted name and a version", p.lineNo)
			return
		}
		v, err := strconv.Atoi(args[1].text)
		if err != nil {
			p.fail("line %d: bad api version", p.lineNo)
			return
		}
		d.API, d.APIVersion = args[0].text, v
	case "label":
		if len(args) != 1 || !args[0].quoted {
			p.fail("line %d: label needs a quoted string", p.lineNo)
			return
		}
		d.Label = args[0].text
	case "contexts":
		d.Contexts = nil
		for _, a := range args {
			ctx := ofx.ParseContextTag(a.text)
			if ctx == ofx.ContextNone {
				p.log.Debugf("Plugin cache line %d: ignoring unknown context %q", p.lineNo, a.text)
				continue
			}
			d.Contexts = append(d.Contexts, ctx)
		}
	case "flags":
		d.Flags = nil
		for _, a := range args {
			f, ok := ParseFlag(a.text)
			if !ok {
				p.log.Debugf("Plugin cache line %d: ignoring unknown flag %q", p.lineNo, a.text)
				continue
			}
			d.Flags = append(d.Flags, f)
		}
	}
}

func (p *recordParser) int64Arg(key string, args []token) (int64, bool) {
	if len(args) != 1 {
		p.fail("line %d: %s needs one number", p.lineNo, key)
		return 0, false
	}
	v, err := strconv.ParseInt(args[0].text, 10, 64)
	if err != nil {
		p.fail("line %d: bad %s %q", p.lineNo, key, args[0].text)
		return 0, false
	}
	return v, true
}

func (p *recordParser) endPlugin() {
	d := p.plugin
	p.plugin = nil
	if p.curBad != "" {
		return
	}
	if !p.pluginVersion {
		p.fail("plugin %q has no version", d.Identifier)
		return
	}
	if d.Label == "" {
		d.Label = d.Identifier
	}
	p.cur.Descriptors = append(p.cur.Descriptors, d)
}

func (p *recordParser) endModule() {
	rec := p.cur
	switch {
	case p.curBad != "":
		p.skip(p.curBad)
	case !p.mtime || !p.size:
		p.skip(fmt.Sprintf("module %q has no mtime or size", rec.Path))
	default:
		p.records = append(p.records, rec)
		p.cur = nil
	}
}

// fail marks the current module block as malformed. The block is dropped
// when its end is reached.
func (p *recordParser) fail(format string, args ...any) {
	if p.curBad == "" {
		p.curBad = fmt.Sprintf(format, args...)
	}
}

func (p *recordParser) skip(reason string) {
	path := ""
	if p.cur != nil {
		path = p.cur.Path
	}
	p.log.Warnf("Skipping plugin cache entry %q: %s", path, reason)
	p.skipped++
	p.cur = nil
	p.plugin = nil
	p.curBad = ""
}
