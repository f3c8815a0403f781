// Package buildinfo carries build-time metadata injected with -ldflags.
package buildinfo

import "fmt"

// UnknownValue is reported for metadata the build did not set
const UnknownValue = "unknown"

// Context contains build-time metadata that is not user-configurable.
type Context struct {
	Version   string // git tag
	BuildDate string
	Commit    string
}

// NewContext creates a Context
func NewContext(version, buildDate, commit string) *Context {
	return &Context{Version: version, BuildDate: buildDate, Commit: commit}
}

// GetVersion returns the version or UnknownValue. Safe on a nil Context.
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate returns the build date or UnknownValue
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// GetCommit returns the short commit hash or UnknownValue
func (c *Context) GetCommit() string {
	if c == nil || c.Commit == "" {
		return UnknownValue
	}
	return c.Commit
}

// String formats the metadata for `birddex --version`
func (c *Context) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", c.GetVersion(), c.GetCommit(), c.GetBuildDate())
}
