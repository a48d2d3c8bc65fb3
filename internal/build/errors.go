package build

import "errors"

// Sentinel errors, always wrapped with context at the call site.
var (
	ErrDiscovery = errors.New("resbuilder: discovery error")
	ErrPartial   = errors.New("resbuilder: partial build")
)
