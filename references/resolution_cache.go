package references

import (
	"path/filepath"
	"strings"
	"sync"
)

// AbsoluteReferenceResult is the absolute document locator a reference resolves to.
type AbsoluteReferenceResult struct {
	// AbsoluteReference is the absolute locator of the referenced document, without fragment.
	AbsoluteReference string
	// Classification is the classification of AbsoluteReference.
	Classification *Classification
}

// RefCacheKey identifies one absolutization.
type RefCacheKey struct {
	RefURI         string
	TargetLocation string
}

// RefCache is a concurrency safe cache of absolutization results.
type RefCache struct {
	cache sync.Map // map[RefCacheKey]*AbsoluteReferenceResult
}

var globalRefCache = &RefCache{}

// ResolveAbsoluteReference resolves the document part of ref against targetLocation, the
// retrieval URI of the document ref was found in. Absolute URLs and absolute file paths are
// returned as-is, an empty URI resolves to targetLocation itself. An empty targetLocation leaves
// relative references relative.
func ResolveAbsoluteReference(ref Reference, targetLocation string) (*AbsoluteReferenceResult, error) {
	return globalRefCache.Resolve(ref, targetLocation)
}

// Resolve returns a copy of the cached absolutization of (ref, targetLocation), computing it on
// first use.
func (c *RefCache) Resolve(ref Reference, targetLocation string) (*AbsoluteReferenceResult, error) {
	key := RefCacheKey{
		RefURI:         ref.GetURI(),
		TargetLocation: StripFragment(targetLocation),
	}

	if cached, ok := c.cache.Load(key); ok {
		res := *cached.(*AbsoluteReferenceResult)
		return &res, nil
	}

	result, err := resolveAbsoluteReference(key.RefURI, key.TargetLocation)
	if err != nil {
		return nil, err
	}

	c.cache.Store(key, result)

	res := *result
	return &res, nil
}

func resolveAbsoluteReference(uri, targetLocation string) (*AbsoluteReferenceResult, error) {
	if uri == "" {
		if targetLocation == "" {
			return &AbsoluteReferenceResult{Classification: &Classification{Kind: KindFragment}}, nil
		}
		classification, err := Classify(targetLocation)
		if err != nil {
			return nil, err
		}
		return &AbsoluteReferenceResult{
			AbsoluteReference: targetLocation,
			Classification:    classification,
		}, nil
	}

	uriClassification, err := Classify(uri)
	if err != nil {
		return nil, err
	}
	if uriClassification.IsURL() || targetLocation == "" || (uriClassification.IsFile() && filepath.IsAbs(uri) && !IsURL(targetLocation)) {
		return &AbsoluteReferenceResult{
			AbsoluteReference: uri,
			Classification:    uriClassification,
		}, nil
	}

	absRef, err := JoinReference(targetLocation, uri)
	if err != nil {
		return nil, err
	}
	classification, err := Classify(absRef)
	if err != nil {
		return nil, err
	}

	return &AbsoluteReferenceResult{
		AbsoluteReference: absRef,
		Classification:    classification,
	}, nil
}

// Absolutize resolves ref against targetLocation and returns the absolute reference including
// the original fragment.
func Absolutize(ref Reference, targetLocation string) (string, error) {
	result, err := ResolveAbsoluteReference(ref, targetLocation)
	if err != nil {
		return "", err
	}
	if !ref.HasFragment() {
		return result.AbsoluteReference, nil
	}
	_, fragment, _ := strings.Cut(string(ref), "#")
	return result.AbsoluteReference + "#" + fragment, nil
}

// Clear empties the cache.
func (c *RefCache) Clear() {
	c.cache.Clear()
}

// Size returns the number of cached absolutizations.
func (c *RefCache) Size() int64 {
	var size int64
	c.cache.Range(func(_, _ any) bool {
		size++
		return true
	})
	return size
}

// ClearGlobalRefCache empties the process wide absolutization cache.
func ClearGlobalRefCache() {
	globalRefCache.Clear()
}

// GetRefCacheSize returns the number of entries in the process wide absolutization cache.
func GetRefCacheSize() int64 {
	return globalRefCache.Size()
}
