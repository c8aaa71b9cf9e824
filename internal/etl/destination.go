package etl

import (
	"fmt"
	"os"

	"passengerexport/internal/domain"
)

// Destination receives the serialized export.
type Destination interface {
	Write(path string, content []byte) error
}

// FileDestination writes the export to the local filesystem.
type FileDestination struct{}

func (FileDestination) Write(path string, content []byte) error {
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrWrite, err)
	}
	return nil
}
