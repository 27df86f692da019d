package registry

import "errors"

var (
	ErrEmptyName     = errors.New("registry: name is required")
	ErrEmptyEndpoint = errors.New("registry: endpoint is required")
	ErrInvalidTTL    = errors.New("registry: ttl must be positive")
)
