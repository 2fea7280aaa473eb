package file

import "github.com/pkg/errors"

// ErrNoSuchPage is returned for a page number beyond the end of a file.
var ErrNoSuchPage = errors.New("no such page")
