package platform

import (
	"log/slog"
	"strings"
)

// AppCatalog corrects application ids reported by clients against the set of
// installed applications. Implementations must answer without blocking.
type AppCatalog interface {
	Correct(appID string) string
}

// Options carries what every backend needs from its owner.
type Options struct {
	// SelfAppID is the dock's own application id; its windows are kept out
	// of the task list and asked to stay on all desktops.
	SelfAppID string
	Catalog   AppCatalog
	Publish   Publisher
	Logger    *slog.Logger
}

// Normalize fills in defaults so backends can use every field unconditionally.
func (o Options) Normalize() Options {
	if o.Publish == nil {
		o.Publish = func(Event) {}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Catalog == nil {
		o.Catalog = passthroughCatalog{}
	}
	return o
}

// IsSelf reports whether appID belongs to the dock itself.
func (o Options) IsSelf(appID string) bool {
	return o.SelfAppID != "" && strings.EqualFold(appID, o.SelfAppID)
}

type passthroughCatalog struct{}

func (passthroughCatalog) Correct(appID string) string { return appID }
