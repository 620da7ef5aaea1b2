package errors

import (
	"errors"
	"strings"
)

// ResolutionError is a failure tied to one location of the document being resolved.
type ResolutionError struct {
	// Kind is one of the taxonomy kinds declared in this package.
	Kind Error
	// Message is a human readable description of the failure.
	Message string
	// FullPath is the JSON Pointer of the offending node within the output document.
	FullPath string
	// BaseDoc is the retrieval URI of the document the offending node was found in.
	BaseDoc string
	// Ref is the reference being followed, if any.
	Ref string
	// Pointer is the JSON Pointer fragment of Ref, if any.
	Pointer string
	// Cause is the underlying failure.
	Cause error
}

var _ error = (*ResolutionError)(nil)

func (e *ResolutionError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	if e.FullPath != "" {
		sb.WriteString(" at ")
		sb.WriteString(e.FullPath)
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	} else if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Is reports whether target is the kind of this error.
func (e *ResolutionError) Is(target error) bool {
	return e.Kind.Is(target)
}

func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// RootCause unwraps err past every nested ResolutionError and wrapping layer and returns the
// innermost failure.
func RootCause(err error) error {
	for err != nil {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
	return nil
}

// Annotate converts err into a ResolutionError of the given kind located at fullPath. If err
// already is a ResolutionError its kind is kept and missing location fields are filled in.
func Annotate(kind Error, err error, fullPath, baseDoc, ref, pointer string) *ResolutionError {
	var existing *ResolutionError
	if errors.As(err, &existing) {
		out := *existing
		if out.FullPath == "" {
			out.FullPath = fullPath
		}
		if out.BaseDoc == "" {
			out.BaseDoc = baseDoc
		}
		if out.Ref == "" {
			out.Ref = ref
		}
		if out.Pointer == "" {
			out.Pointer = pointer
		}
		return &out
	}

	return &ResolutionError{
		Kind:     kind,
		Message:  messageOf(err),
		FullPath: fullPath,
		BaseDoc:  baseDoc,
		Ref:      ref,
		Pointer:  pointer,
		Cause:    err,
	}
}

func messageOf(err error) string {
	if err == nil {
		return ""
	}
	return RootCause(err).Error()
}
