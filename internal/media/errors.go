package media

import "errors"

var (
	// ErrStorageUnavailable indicates no asset storage backend is configured.
	ErrStorageUnavailable = errors.New("asset storage unavailable")
	// ErrAssetTooLarge indicates the remote image exceeds the configured size cap.
	ErrAssetTooLarge = errors.New("asset exceeds size limit")
)
