package journal

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound indicates a requested row does not exist.
	ErrNotFound = errors.New("journal: record not found")
)

const (
	// VerbList records a directory listing request.
	VerbList = "list"
	// VerbDownload records a file retrieval.
	VerbDownload = "download"
	// VerbUpload records a file deployment.
	VerbUpload = "upload"
	// VerbCompare records a local/remote comparison.
	VerbCompare = "compare"
)

const (
	// StatusOK marks an operation that completed.
	StatusOK = "ok"
	// StatusFailed marks an operation that returned an error.
	StatusFailed = "failed"
)

// Operation is the SQLite representation of one remote file operation.
type Operation struct {
	ID         string
	Host       string
	Verb       string
	Filename   string
	SizeBytes  int64
	Status     string
	Detail     string
	StartedAt  int64
	FinishedAt int64
}

func validateVerb(verb string) error {
	switch verb {
	case VerbList, VerbDownload, VerbUpload, VerbCompare:
		return nil
	default:
		return fmt.Errorf("invalid operation verb %q", verb)
	}
}

func validateStatus(status string) error {
	switch status {
	case StatusOK, StatusFailed:
		return nil
	default:
		return fmt.Errorf("invalid operation status %q", status)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func nowUnixMilli() int64 {
	return time.Now().UnixMilli()
}
