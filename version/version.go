package version

// version is injected at build time via ldflags.
var version = "development"

// ProxyVersion returns the proxy's own version string.
func ProxyVersion() string {
	return version
}
