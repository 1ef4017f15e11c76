package repository

import (
	"errors"
	"fmt"

	"github.com/okian/brewrank/internal/domain/ranking"
)

// Sentinel kinds for repository errors.
var (
	ErrInvalidLimit   = fmt.Errorf("%w: invalid search limit", ranking.ErrInvalidArgument)
	ErrPatchContended = fmt.Errorf("%w: rating patch kept losing to concurrent writers", ranking.ErrConflict)
	ErrNilClient      = errors.New("repository: nil mongo client")
)
