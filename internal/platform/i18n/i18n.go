// Package i18n loads the embedded language packs used to render like summaries.
package i18n

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// DefaultLanguage is the pack every other pack falls back to.
const DefaultLanguage = "english"

// ErrUnknownLanguage is returned when no pack matches the requested language.
var ErrUnknownLanguage = errors.New("unknown language")

//go:embed lang/*.yaml
var langFS embed.FS

type packFile struct {
	Name     string            `yaml:"name"`
	Language string            `yaml:"language"`
	Strings  map[string]string `yaml:"strings"`
}

// Pack is one parsed language file.
type Pack struct {
	Name    string
	Tag     language.Tag
	Strings map[string]string
}

// Catalog holds every available pack.
type Catalog struct {
	packs   map[string]*Pack
	names   []string
	matcher language.Matcher
}

// LoadCatalog parses the embedded packs.
func LoadCatalog() (*Catalog, error) {
	return loadCatalog(langFS, "lang")
}

func loadCatalog(fsys fs.FS, dir string) (*Catalog, error) {
	files, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("list language packs: %w", err)
	}
	sort.Strings(files)

	c := &Catalog{packs: map[string]*Pack{}}
	var tags []language.Tag
	for _, file := range files {
		pack, err := parsePack(fsys, file)
		if err != nil {
			return nil, err
		}
		if _, dup := c.packs[pack.Name]; dup {
			return nil, fmt.Errorf("duplicate language pack %q", pack.Name)
		}
		c.packs[pack.Name] = pack
		c.names = append(c.names, pack.Name)
		tags = append(tags, pack.Tag)
	}
	if _, ok := c.packs[DefaultLanguage]; !ok {
		return nil, fmt.Errorf("default language pack %q missing", DefaultLanguage)
	}
	c.matcher = language.NewMatcher(tags)
	return c, nil
}

func parsePack(fsys fs.FS, file string) (*Pack, error) {
	raw, err := fs.ReadFile(fsys, file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	var pf packFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	if pf.Name == "" {
		pf.Name = strings.TrimSuffix(path.Base(file), path.Ext(file))
	}
	tag, err := language.Parse(pf.Language)
	if err != nil {
		return nil, fmt.Errorf("parse %s: language %q: %w", file, pf.Language, err)
	}
	if pf.Strings == nil {
		pf.Strings = map[string]string{}
	}
	return &Pack{Name: pf.Name, Tag: tag, Strings: pf.Strings}, nil
}

// Names lists the available packs in sorted order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Translator resolves the pack for name, which is either a pack name such as
// "english" or a BCP 47 tag such as "en-GB".
func (c *Catalog) Translator(name string) (*Translator, error) {
	pack, err := c.resolve(name)
	if err != nil {
		return nil, err
	}
	return &Translator{
		pack:     pack,
		fallback: c.packs[DefaultLanguage],
		printer:  message.NewPrinter(pack.Tag),
	}, nil
}

func (c *Catalog) resolve(name string) (*Pack, error) {
	name = strings.TrimSpace(name)
	if pack, ok := c.packs[strings.ToLower(name)]; ok {
		return pack, nil
	}
	tag, err := language.Parse(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, name)
	}
	_, index, confidence := c.matcher.Match(tag)
	if confidence == language.No {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, name)
	}
	return c.packs[c.names[index]], nil
}

// Translator looks up phrases in one pack, falling back to the default pack.
type Translator struct {
	pack     *Pack
	fallback *Pack
	printer  *message.Printer
}

// Language returns the resolved pack name.
func (t *Translator) Language() string { return t.pack.Name }

// Get returns the phrase for key, or "" when no pack defines it.
func (t *Translator) Get(key string) string {
	if s, ok := t.pack.Strings[key]; ok {
		return s
	}
	if t.fallback != nil {
		return t.fallback.Strings[key]
	}
	return ""
}

// Sprintf fills the {1}..{n} placeholders of the phrase for key with args.
// Placeholders without an argument are left as they are.
func (t *Translator) Sprintf(key string, args ...any) string {
	template := t.Get(key)
	if template == "" || len(args) == 0 {
		return template
	}
	pairs := make([]string, 0, len(args)*2)
	for i, arg := range args {
		pairs = append(pairs, "{"+strconv.Itoa(i+1)+"}", fmt.Sprint(arg))
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// FormatNumber renders n with the pack's digit grouping.
func (t *Translator) FormatNumber(n int) string {
	return t.printer.Sprintf("%d", n)
}
