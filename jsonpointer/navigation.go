package jsonpointer

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type partType string

const (
	partTypeKey   partType = "key"
	partTypeIndex partType = "index"
)

type navigationPart struct {
	Type  partType
	Value string
}

func (n navigationPart) unescapeValue() string {
	return unescape(n.Value)
}

func (n navigationPart) getIndex() (int, error) {
	if n.Type != partTypeIndex {
		return 0, fmt.Errorf("expected index, got %q", n.Value)
	}
	index, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q: %w", n.Value, err)
	}
	return index, nil
}

var (
	tokenRegex     = regexp.MustCompile("^(?:[\x00-\x2E\x30-\x7D\x7F-\uffff]|~[01])+$")
	digitOnlyRegex = regexp.MustCompile("^[0-9]+$")
)

func (j JSONPointer) getNavigationStack() ([]navigationPart, error) {
	if len(j) == 0 {
		return nil, errors.New("jsonpointer must not be empty")
	}

	if len(j) == 1 && j[0] == '/' {
		return nil, nil
	}

	if !strings.HasPrefix(string(j), "/") {
		return nil, fmt.Errorf("jsonpointer must start with /: %s", string(j))
	}

	strParts := strings.Split(strings.TrimPrefix(string(j), "/"), "/")
	stack := make([]navigationPart, 0, len(strParts))

	for i, part := range strParts {
		// a trailing slash addresses the same node as the pointer without it
		if len(part) == 0 && i == len(strParts)-1 {
			continue
		}
		if len(part) == 0 {
			return nil, fmt.Errorf("jsonpointer part must not be empty: %s", string(j))
		}

		if !tokenRegex.MatchString(part) {
			return nil, fmt.Errorf("jsonpointer part must be a valid token [%s]: %s", tokenRegex.String(), string(j))
		}

		if digitOnlyRegex.MatchString(part) && (len(part) == 1 || part[0] != '0') {
			stack = append(stack, navigationPart{
				Type:  partTypeIndex,
				Value: part,
			})
			continue
		}

		stack = append(stack, navigationPart{
			Type:  partTypeKey,
			Value: part,
		})
	}

	return stack, nil
}
