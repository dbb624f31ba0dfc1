package version

// Version is the smdrd release version, overridden at build time via
// -ldflags "-X github.com/smdrkit/smdrd/internal/version.Version=v1.2.3".
// Version 是 smdrd 的发布版本，可在构建时通过 ldflags 覆盖。
var Version = "dev"
