package common

var (
	// Version is overridden at build time with -ldflags "-X .../common.Version=..."
	Version = "dev"

	PackageName = "github.com/ruteri/tee-provenance-registry"
)
