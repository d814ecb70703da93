package transfer

import "errors"

var (
	// ErrNotEnoughSpace is an error that occurs when there is not enough free
	// space on the destination to take the file being transferred.
	ErrNotEnoughSpace = errors.New("not enough free space on destination")

	// ErrHashMismatch is an error that occurs when there is a source/destination
	// hash mismatch, this usually means that there are underlying transfer or
	// hardware issues.
	ErrHashMismatch = errors.New("hash mismatch")

	// ErrRenameExists is an error that occurs when the transferred file is to be
	// renamed to its final name, but that final name already exists on the
	// destination.
	ErrRenameExists = errors.New("rename destination already exists")

	// ErrNotRegular is an error that occurs when a transfer source is not a
	// regular file.
	ErrNotRegular = errors.New("source is not a regular file")
)
