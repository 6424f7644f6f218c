package state

import "errors"

var (
	// ErrStoreLocked indicates another process holds the store directory
	ErrStoreLocked = errors.New("build store is locked by another process")

	// ErrRecordCorrupted indicates a stored build record is not valid JSON
	ErrRecordCorrupted = errors.New("build record is corrupted")
)
