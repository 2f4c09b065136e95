/*
flag Package set up cli flags shared across binaries

Usage:

	Flags listed in this package are shared across boundaries and service-agnostic.
	For binary dependent flags please define them in their respective main package.
	Call Parse() once at the top of main.
*/

package flag

import (
	"flag"
)

const (
	ApiServer = "postsync_server"
	Refresher = "postsync_refresh"
)

var (
	ServiceName    = flag.String("service", ApiServer, "'postsync_server' or 'postsync_refresh'")
	AppSettingPath = flag.String("app_setting_path", "cmd/postsync/setting.yaml", "path to the yaml app setting")
)

// Parse parses command line flags once, it is safe to call multiple times.
func Parse() {
	if !flag.Parsed() {
		flag.Parse()
	}
}
