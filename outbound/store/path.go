package store

import (
	"strings"
	"ticketer/common/errs"
)

func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

func split(path string) ([]string, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, errs.ErrInvalidPath
	}

	segments := strings.Split(path, "/")
	for _, segment := range segments {
		if segment == "" || strings.ContainsAny(segment, ":*?[]") {
			return nil, errs.ErrInvalidPath
		}
	}

	return segments, nil
}

// topicOf is the root segment; change notices are published per root.
func topicOf(path string) string {
	root, _, _ := strings.Cut(strings.Trim(path, "/"), "/")
	return root
}
