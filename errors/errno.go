// This file defines the sentinel error values this filesystem's operations
// can report, in the same plain-string-implementing-error style as the rest
// of this package, trimmed to the conditions this filesystem can actually
// hit rather than the full POSIX errno space.

package errors

import (
	"fmt"
)

type FilesystemError string

const ErrExists = FilesystemError("File exists")
const ErrFileSystemCorrupted = FilesystemError("Structure needs cleaning")
const ErrInvalidArgument = FilesystemError("Invalid argument")
const ErrIsADirectory = FilesystemError("Is a directory")
const ErrNameTooLong = FilesystemError("File name too long")
const ErrNoSpaceOnDevice = FilesystemError("No space left on device")
const ErrNotADirectory = FilesystemError("Not a directory")
const ErrNotFound = FilesystemError("No such file or directory")

func (e FilesystemError) Error() string {
	return string(e)
}

func (e FilesystemError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       message,
		originalError: e,
	}
}

func (e FilesystemError) WrapError(err error) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s %s", e.Error(), err.Error()),
		originalError: err,
	}
}
