// Package locale resolves UI strings from the embedded message catalog.
package locale

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	apperrors "github.com/spec-kit/support-portal/pkg/util/errorutil"
)

//go:embed catalog/*.yaml
var catalogFS embed.FS

// GenericKey is shown for any error without a more specific message.
const GenericKey = "errors.generic"

// Catalog holds every language's flattened messages.
type Catalog struct {
	messages map[language.Tag]map[string]string
	tags     []language.Tag
	matcher  language.Matcher
	fallback language.Tag
}

// Load parses the embedded catalog. fallback must name one of its languages.
func Load(fallback string) (*Catalog, error) {
	entries, err := catalogFS.ReadDir("catalog")
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	c := &Catalog{messages: make(map[language.Tag]map[string]string)}
	var tags []language.Tag
	for _, entry := range entries {
		name := entry.Name()
		raw, err := catalogFS.ReadFile(path.Join("catalog", name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		tag, err := language.Parse(strings.TrimSuffix(name, path.Ext(name)))
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", name, err)
		}
		var tree map[string]any
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		flat := make(map[string]string)
		flatten("", tree, flat)
		c.messages[tag] = flat
		tags = append(tags, tag)
	}

	fb, err := language.Parse(fallback)
	if err != nil {
		return nil, fmt.Errorf("fallback language: %w", err)
	}
	if _, ok := c.messages[fb]; !ok {
		return nil, fmt.Errorf("fallback language %q has no catalog", fallback)
	}
	c.fallback = fb

	// The matcher's first tag is its default.
	sort.Slice(tags, func(i, j int) bool {
		if tags[i] == fb {
			return true
		}
		if tags[j] == fb {
			return false
		}
		return tags[i].String() < tags[j].String()
	})
	c.tags = tags
	c.matcher = language.NewMatcher(tags)
	return c, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Languages returns the catalog's languages, fallback first.
func (c *Catalog) Languages() []string {
	out := make([]string, len(c.tags))
	for i, tag := range c.tags {
		out[i] = tag.String()
	}
	return out
}

// Match picks the best catalog language for an Accept-Language value or a plain tag.
func (c *Catalog) Match(accept string) language.Tag {
	prefs, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(prefs) == 0 {
		return c.fallback
	}
	_, idx, conf := c.matcher.Match(prefs...)
	if conf == language.No {
		return c.fallback
	}
	if idx < 0 || idx >= len(c.tags) {
		return c.fallback
	}
	return c.tags[idx]
}

// Printer returns a message printer for accept.
func (c *Catalog) Printer(accept string) *Printer {
	return &Printer{catalog: c, tag: c.Match(accept)}
}

// Printer resolves keys in one language, falling back to the catalog default.
type Printer struct {
	catalog *Catalog
	tag     language.Tag
}

// Language is the printer's language tag.
func (p *Printer) Language() string {
	return p.tag.String()
}

// Lookup returns the message for key and whether one exists.
func (p *Printer) Lookup(key string) (string, bool) {
	if msg, ok := p.catalog.messages[p.tag][key]; ok {
		return msg, true
	}
	msg, ok := p.catalog.messages[p.catalog.fallback][key]
	return msg, ok
}

// T returns the message for key with {name} placeholders replaced from pairs
// (name, value, name, value...). Unknown keys resolve to the generic error.
func (p *Printer) T(key string, pairs ...string) string {
	msg, ok := p.Lookup(key)
	if !ok {
		msg, _ = p.Lookup(GenericKey)
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		msg = strings.ReplaceAll(msg, "{"+pairs[i]+"}", pairs[i+1])
	}
	return msg
}

// Field returns the message for a failed validation rule on field.
func (p *Printer) Field(field, rule, param string) string {
	if msg, ok := p.Lookup("validation." + field + "." + rule); ok {
		return strings.ReplaceAll(msg, "{param}", param)
	}
	return p.T("validation."+rule, "param", param)
}

// Keyed is implemented by errors that name their own catalog key.
type Keyed interface {
	MessageKey() string
}

// Describe turns err into a UI string. Backend sub-codes win over the error
// code; anything unrecognized becomes the generic message.
func (p *Printer) Describe(err error) string {
	if err == nil {
		return ""
	}
	var keyed Keyed
	if errors.As(err, &keyed) {
		if msg, ok := p.Lookup(keyed.MessageKey()); ok {
			return msg
		}
	}
	if _, reason, ok := apperrors.Reason(err); ok {
		if msg, ok := p.Lookup("errors." + reason); ok {
			return msg
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return p.T("errors.timeout")
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		if msg, ok := p.Lookup("errors." + strings.ToLower(domainErr.Code)); ok {
			return msg
		}
	}
	return p.T(GenericKey)
}

// MustLoad is Load for the embedded catalog, panicking if it is malformed.
func MustLoad(fallback string) *Catalog {
	c, err := Load(fallback)
	if err != nil {
		panic(err)
	}
	return c
}
