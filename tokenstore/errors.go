package tokenstore

import apperrors "github.com/jrsteele09/go-oauth-broker/internal/errors"

var (
	// ErrNotFound is returned by Store.Get when the key holds no value.
	ErrNotFound = apperrors.ErrNotFound

	// ErrNoPrefix is returned by the Manager before a prefix has been set.
	ErrNoPrefix = apperrors.Wrapf(apperrors.ErrInternal, "token store prefix not set")
)
