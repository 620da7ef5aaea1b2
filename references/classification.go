package references

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// Kind is the syntactic class of a document locator.
type Kind int

const (
	KindUnknown Kind = iota
	// KindURL is a locator with a scheme, http(s), file or custom.
	KindURL
	// KindFilePath is a locator without a scheme, resolved against the file system.
	KindFilePath
	// KindFragment is a locator consisting only of a fragment.
	KindFragment
)

func (k Kind) String() string {
	switch k {
	case KindURL:
		return "url"
	case KindFilePath:
		return "file"
	case KindFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// Classification is the result of classifying a locator.
type Classification struct {
	Kind     Kind
	Original string
	// ParsedURL is set for KindURL.
	ParsedURL *url.URL
}

func (c *Classification) IsURL() bool      { return c.Kind == KindURL }
func (c *Classification) IsFile() bool     { return c.Kind == KindFilePath }
func (c *Classification) IsFragment() bool { return c.Kind == KindFragment }

// IsHTTP reports whether the locator is an http or https URL.
func (c *Classification) IsHTTP() bool {
	if c.ParsedURL == nil {
		return false
	}
	scheme := strings.ToLower(c.ParsedURL.Scheme)
	return scheme == "http" || scheme == "https"
}

// Classify determines whether ref is a URL, a file path or a bare fragment.
func Classify(ref string) (*Classification, error) {
	if ref == "" {
		return nil, errors.New("empty reference")
	}

	if strings.HasPrefix(ref, "#") {
		return &Classification{Kind: KindFragment, Original: ref}, nil
	}

	u, err := ParseURL(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid reference format: %w", err)
	}

	// a single letter scheme is a windows drive, C:\specs\api.yaml
	if u.Scheme != "" && !(len(u.Scheme) == 1 && strings.ContainsAny(ref, `\/`)) {
		return &Classification{Kind: KindURL, Original: ref, ParsedURL: u}, nil
	}

	// relative names without separators are still treated as files next to the base document
	return &Classification{Kind: KindFilePath, Original: ref}, nil
}

// IsURL reports whether ref is a URL.
func IsURL(ref string) bool {
	c, err := Classify(ref)
	return err == nil && c.IsURL()
}

// JoinWith resolves relative against the classified locator.
func (c *Classification) JoinWith(relative string) (string, error) {
	if relative == "" {
		return c.Original, nil
	}

	if strings.HasPrefix(relative, "#") {
		return StripFragment(c.Original) + relative, nil
	}

	switch c.Kind {
	case KindURL:
		return c.joinURL(relative)
	case KindFragment:
		return relative, nil
	default:
		return c.joinFilePath(relative)
	}
}

func (c *Classification) joinURL(relative string) (string, error) {
	return ResolveURL(c.Original, relative)
}

func (c *Classification) joinFilePath(relative string) (string, error) {
	if rc, err := Classify(relative); err == nil && rc.IsURL() {
		return relative, nil
	}
	if filepath.IsAbs(relative) || strings.HasPrefix(relative, "/") {
		return relative, nil
	}

	base := filepath.ToSlash(StripFragment(c.Original))
	relPath, fragment, hasFragment := strings.Cut(filepath.ToSlash(relative), "#")

	joined := path.Join(path.Dir(base), relPath)
	if hasFragment {
		joined += "#" + fragment
	}
	return joined, nil
}

// JoinReference classifies base and resolves relative against it. An empty base returns relative
// unchanged.
func JoinReference(base, relative string) (string, error) {
	if base == "" {
		return relative, nil
	}

	c, err := Classify(base)
	if err != nil {
		return "", fmt.Errorf("invalid base reference: %w", err)
	}

	return c.JoinWith(relative)
}
