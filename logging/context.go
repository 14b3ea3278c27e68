package logging

import (
	"context"

	"go.viam.com/utils"
)

type debugTagKey struct{}

// EnableDebugMode marks ctx so the C* debug methods log for it even when the logger's level is
// above debug. An empty tag is replaced with a random one.
func EnableDebugMode(ctx context.Context, tag string) context.Context {
	if tag == "" {
		tag = utils.RandomAlphaString(6)
	}
	return context.WithValue(ctx, debugTagKey{}, tag)
}

// IsDebugMode reports whether ctx was marked by EnableDebugMode.
func IsDebugMode(ctx context.Context) bool {
	return DebugTag(ctx) != ""
}

// DebugTag returns the tag given to EnableDebugMode, or "" for unmarked contexts.
func DebugTag(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	tag, _ := ctx.Value(debugTagKey{}).(string)
	return tag
}
