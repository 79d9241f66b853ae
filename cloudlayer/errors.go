package cloudlayer

import "errors"

var (
	// ErrNoShadows is returned when shadows are requested from data baked
	// without a shadow map.
	ErrNoShadows = errors.New("cloudlayer: no layer casts shadows")
	// ErrNotPrepared is returned by render calls made before Update.
	ErrNotPrepared = errors.New("cloudlayer: renderer holds no precomputed data")
)
