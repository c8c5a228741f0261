package version

import "runtime"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return "lingua " + Version + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}

// UserAgent is sent with every tutor API request.
func UserAgent() string {
	return "lingua/" + Version + " (" + runtime.GOOS + "; " + runtime.GOARCH + ")"
}
