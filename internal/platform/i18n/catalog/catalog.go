// Package catalog loads page copy from embedded locale files and registers
// it with golang.org/x/text/message.
//
// Files live at locales/<locale>/<namespace>.yaml and use a flat subset of
// YAML: quoted locale and namespace scalars followed by a messages map of
// quoted keys to quoted values.
package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// BaseLocale is the source locale every key must exist in.
const BaseLocale = "en-US"

//go:embed locales/*/*.yaml
var embeddedFS embed.FS

var defaultBundle = mustLoadAndRegister()

type file struct {
	Locale    string
	Namespace string
	Messages  map[string]string
}

// Bundle holds messages per locale.
type Bundle struct {
	locales map[string]map[string]string
}

// Default returns the process-wide embedded bundle.
func Default() *Bundle {
	return defaultBundle
}

// LoadEmbedded loads the catalogs compiled into the binary.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embeddedFS)
}

// LoadFromFS loads every locales/*/*.yaml file in catalogFS.
func LoadFromFS(catalogFS fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(catalogFS, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	bundle := &Bundle{locales: map[string]map[string]string{}}
	for _, p := range paths {
		data, err := fs.ReadFile(catalogFS, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		parsed, err := parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := bundle.add(p, parsed); err != nil {
			return nil, err
		}
	}
	if err := bundle.checkBaseCoverage(); err != nil {
		return nil, err
	}
	return bundle, nil
}

func (b *Bundle) add(p string, f file) error {
	dir, name := path.Split(p)
	wantLocale := path.Base(dir)
	wantNamespace := strings.TrimSuffix(name, path.Ext(name))
	if f.Locale != wantLocale {
		return fmt.Errorf("catalog %s: locale %q must match path locale %q", p, f.Locale, wantLocale)
	}
	if f.Namespace != wantNamespace {
		return fmt.Errorf("catalog %s: namespace %q must match file name %q", p, f.Namespace, wantNamespace)
	}

	messages, ok := b.locales[f.Locale]
	if !ok {
		messages = map[string]string{}
		b.locales[f.Locale] = messages
	}
	for key, value := range f.Messages {
		if !strings.HasPrefix(key, f.Namespace+".") {
			return fmt.Errorf("catalog %s: key %q must start with %q", p, key, f.Namespace+".")
		}
		if _, exists := messages[key]; exists {
			return fmt.Errorf("catalog %s: duplicate key %q", p, key)
		}
		messages[key] = value
	}
	return nil
}

// checkBaseCoverage rejects keys that only exist in translations.
func (b *Bundle) checkBaseCoverage() error {
	base, ok := b.locales[BaseLocale]
	if !ok {
		return fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	for locale, messages := range b.locales {
		for key := range messages {
			if _, ok := base[key]; !ok {
				return fmt.Errorf("locale %s: key %q missing from %s", locale, key, BaseLocale)
			}
		}
	}
	return nil
}

// Register makes every message available to message.Printer, under the
// full tag and its base language.
func (b *Bundle) Register() error {
	for _, locale := range b.Locales() {
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("parse locale tag %q: %w", locale, err)
		}
		tags := []language.Tag{tag}
		if base, confidence := tag.Base(); confidence != language.No {
			if baseTag, err := language.Parse(base.String()); err == nil && baseTag != tag {
				tags = append(tags, baseTag)
			}
		}
		for key, value := range b.locales[locale] {
			for _, registerTag := range tags {
				if err := message.SetString(registerTag, key, value); err != nil {
					return fmt.Errorf("register %s %q: %w", registerTag, key, err)
				}
			}
		}
	}
	return nil
}

// Locales returns the sorted locale identifiers.
func (b *Bundle) Locales() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.locales))
	for locale := range b.locales {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Tags returns the locales as language tags, base locale first.
func (b *Bundle) Tags() []language.Tag {
	tags := []language.Tag{language.MustParse(BaseLocale)}
	for _, locale := range b.Locales() {
		if locale == BaseLocale {
			continue
		}
		if tag, err := language.Parse(locale); err == nil {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Message returns a message, falling back to the base locale.
func (b *Bundle) Message(locale, key string) (string, bool) {
	if b == nil {
		return "", false
	}
	if value, ok := b.locales[strings.TrimSpace(locale)][key]; ok {
		return value, true
	}
	value, ok := b.locales[BaseLocale][key]
	return value, ok
}

func mustLoadAndRegister() *Bundle {
	bundle, err := LoadEmbedded()
	if err != nil {
		panic(err)
	}
	if err := bundle.Register(); err != nil {
		panic(err)
	}
	return bundle
}

func parse(data []byte) (file, error) {
	out := file{Messages: map[string]string{}}
	inMessages := false
	for _, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "locale:"):
			value, err := strconv.Unquote(strings.TrimSpace(strings.TrimPrefix(line, "locale:")))
			if err != nil {
				return file{}, fmt.Errorf("parse locale: %w", err)
			}
			out.Locale = value
		case strings.HasPrefix(line, "namespace:"):
			value, err := strconv.Unquote(strings.TrimSpace(strings.TrimPrefix(line, "namespace:")))
			if err != nil {
				return file{}, fmt.Errorf("parse namespace: %w", err)
			}
			out.Namespace = value
		case line == "messages:":
			inMessages = true
		case inMessages:
			key, value, err := parseEntry(line)
			if err != nil {
				return file{}, fmt.Errorf("parse message %q: %w", line, err)
			}
			out.Messages[key] = value
		default:
			return file{}, fmt.Errorf("unexpected line %q", line)
		}
	}
	switch {
	case out.Locale == "":
		return file{}, fmt.Errorf("missing locale")
	case out.Namespace == "":
		return file{}, fmt.Errorf("missing namespace")
	case len(out.Messages) == 0:
		return file{}, fmt.Errorf("missing messages")
	}
	return out, nil
}

// parseEntry splits `"key": "value"` honoring escapes inside the key.
func parseEntry(line string) (string, string, error) {
	if !strings.HasPrefix(line, `"`) {
		return "", "", fmt.Errorf("expected quoted key")
	}
	end := -1
	for i := 1; i < len(line); i++ {
		if line[i] == '\\' {
			i++
			continue
		}
		if line[i] == '"' {
			end = i
			break
		}
	}
	if end == -1 {
		return "", "", fmt.Errorf("unterminated key")
	}
	key, err := strconv.Unquote(line[:end+1])
	if err != nil {
		return "", "", fmt.Errorf("unquote key: %w", err)
	}
	rest := strings.TrimSpace(line[end+1:])
	if !strings.HasPrefix(rest, ":") {
		return "", "", fmt.Errorf("missing ':' separator")
	}
	value, err := strconv.Unquote(strings.TrimSpace(strings.TrimPrefix(rest, ":")))
	if err != nil {
		return "", "", fmt.Errorf("unquote value: %w", err)
	}
	return strings.TrimSpace(key), value, nil
}
