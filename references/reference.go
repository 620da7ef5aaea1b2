// Package references parses reference strings and absolutizes them against the retrieval URI
// of the document they were found in.
package references

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/speakeasy-api/openapi-deref/jsonpointer"
)

// Reference is the value of a $ref (or a $id) as written in a document.
type Reference string

var _ fmt.Stringer = (*Reference)(nil)

// GetURI returns the part of the reference before the fragment.
func (r Reference) GetURI() string {
	uri, _, _ := strings.Cut(string(r), "#")
	return strings.TrimSpace(uri)
}

// HasFragment reports whether the reference carries a fragment, even an empty one.
func (r Reference) HasFragment() bool {
	return strings.Contains(string(r), "#")
}

// HasJSONPointer reports whether the reference has a fragment that is a JSON pointer.
func (r Reference) HasJSONPointer() bool {
	if !r.HasFragment() {
		return false
	}
	f := r.GetFragment()
	return f == "" || strings.HasPrefix(f, "/")
}

// GetFragment returns the percent-decoded fragment of the reference.
func (r Reference) GetFragment() string {
	_, fragment, found := strings.Cut(string(r), "#")
	if !found {
		return ""
	}
	fragment = strings.TrimSpace(fragment)

	// URL decode the fragment to handle percent-encoded characters
	// like %25 (which represents %)
	if decoded, err := url.PathUnescape(fragment); err == nil {
		fragment = decoded
	}
	return fragment
}

// GetJSONPointer returns the fragment of the reference as a JSON pointer. It returns the empty
// pointer when the fragment is absent or is an anchor name.
func (r Reference) GetJSONPointer() jsonpointer.JSONPointer {
	if !r.HasJSONPointer() {
		return ""
	}
	return jsonpointer.JSONPointer(r.GetFragment())
}

// GetAnchor returns the fragment of the reference when it is a plain name rather than a pointer.
func (r Reference) GetAnchor() (string, bool) {
	if !r.HasFragment() || r.HasJSONPointer() {
		return "", false
	}
	return r.GetFragment(), true
}

// IsLocal reports whether the reference only has a fragment and so addresses the document it
// was found in.
func (r Reference) IsLocal() bool {
	return r.GetURI() == ""
}

func (r Reference) Validate() error {
	if r == "" {
		return errors.New("empty reference")
	}

	uri := r.GetURI()

	if uri != "" {
		if _, err := url.Parse(uri); err != nil {
			return fmt.Errorf("invalid reference URI: %w", err)
		}
	}

	if r.HasJSONPointer() {
		if err := r.GetJSONPointer().Validate(); err != nil {
			return fmt.Errorf("invalid reference JSON pointer: %w", err)
		}
	}

	return nil
}

func (r Reference) String() string {
	return string(r)
}

// BuildAbsoluteReference joins an absolute document URI and a JSON pointer or anchor back into a
// reference string.
func BuildAbsoluteReference(uri, fragment string) string {
	if fragment == "" {
		return uri
	}
	return uri + "#" + fragment
}

// StripFragment returns uri without its fragment.
func StripFragment(uri string) string {
	base, _, _ := strings.Cut(uri, "#")
	return base
}
