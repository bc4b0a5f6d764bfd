package transport

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RemoteFile is one entry of a parsed directory listing. Records are
// immutable once constructed.
type RemoteFile struct {
	Filename    string
	Directory   string
	IsDirectory bool
	Permissions string
	LinkCount   int
	Owner       string
	Group       string
	SizeBytes   uint64
	LastChanged time.Time
}

// ParseListing parses long-format listing text into file records. The first
// line is a header and is discarded; every following non-empty line must
// split into exactly seven whitespace-separated tokens: type and
// permissions, link count, owner, group, size, last-changed epoch seconds,
// and filename. A malformed line fails the whole parse with a *ParseError;
// partial results are never returned. Listing order is preserved.
func ParseListing(directory, text string) ([]RemoteFile, error) {
	lines := strings.Split(text, "\n")
	files := make([]RemoteFile, 0, len(lines))
	for i, line := range lines {
		if i == 0 {
			continue
		}
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		file, err := parseListingLine(directory, i+1, line)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

func parseListingLine(directory string, lineNo int, line string) (RemoteFile, error) {
	tokens := strings.Fields(line)
	if len(tokens) != 7 {
		return RemoteFile{}, &ParseError{Line: lineNo, Text: line, Reason: fmt.Sprintf("expected 7 fields, got %d", len(tokens))}
	}
	mode := tokens[0]
	links, err := strconv.Atoi(tokens[1])
	if err != nil {
		return RemoteFile{}, &ParseError{Line: lineNo, Text: line, Reason: fmt.Sprintf("link count %q is not a number", tokens[1])}
	}
	size, err := strconv.ParseUint(tokens[4], 10, 64)
	if err != nil {
		return RemoteFile{}, &ParseError{Line: lineNo, Text: line, Reason: fmt.Sprintf("size %q is not a number", tokens[4])}
	}
	epoch, err := strconv.ParseInt(tokens[5], 10, 64)
	if err != nil {
		return RemoteFile{}, &ParseError{Line: lineNo, Text: line, Reason: fmt.Sprintf("timestamp %q is not a number", tokens[5])}
	}
	return RemoteFile{
		Filename:    tokens[6],
		Directory:   directory,
		IsDirectory: strings.HasPrefix(mode, "d"),
		Permissions: mode[1:],
		LinkCount:   links,
		Owner:       tokens[2],
		Group:       tokens[3],
		SizeBytes:   size,
		LastChanged: time.Unix(epoch, 0),
	}, nil
}
