package version

// BuildVersion is stamped by the release build via -ldflags; "dev" means a
// local build.
var BuildVersion = "dev"
