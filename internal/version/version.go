package version

// Version is the current version of artmigrate.
// Can be overridden at build time with -ldflags "-X ...version.Version=..."
var Version = "1.2.0"

// Name is the application name.
const Name = "artmigrate"

// Description is a short description of the application.
const Description = "Migrate artwork records and image assets to the new platform"
