package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrFormatVersion marks a package file whose version tag is missing or
	// unsupported. The package is rejected as a whole.
	ErrFormatVersion = errors.New("unsupported package format version")

	// ErrInvalidPackage marks a package file that cannot be parsed.
	ErrInvalidPackage = errors.New("invalid package file")

	// ErrChecksum marks a block whose stored checksum does not match its
	// content.
	ErrChecksum = errors.New("block checksum mismatch")

	// ErrOutOfBounds marks an element or block index outside the addressed
	// container. This is an invariant violation of the data or the caller,
	// never a normal query outcome.
	ErrOutOfBounds = errors.New("index out of bounds")

	// ErrUnknownPackage marks a block address whose package id is not
	// loaded.
	ErrUnknownPackage = errors.New("unknown package id")
)

func outOfBoundsError(kind string, id ElementID, count int) error {
	return fmt.Errorf("%w: %s element %d of block (package %d, block %d) with %d elements",
		ErrOutOfBounds, kind, id.Index, id.Block.PackageID, id.Block.BlockIndex, count)
}

func blockOutOfBoundsError(kind string, id BlockID, count int) error {
	return fmt.Errorf("%w: %s block %d of package %d with %d blocks",
		ErrOutOfBounds, kind, id.BlockIndex, id.PackageID, count)
}
