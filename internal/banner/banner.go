// Package banner renders the startup banner printed by the CLI.
package banner

import "fmt"

const art = `  _        __                    _   _           _
 (_)_ __  / _| ___ _ __ __ _  __| |_(_)_   _____| |_   _
 | | '_ \| |_ / _ \ '__/ _` + "`" + ` |/ _` + "`" + ` __| \ \ / / _ \ | | | |
 | | | | |  _|  __/ | | (_| | (_| |_| |\ V /  __/ | |_| |
 |_|_| |_|_|  \___|_|  \__,_|\__,_(_)_| \_/ \___|_|\__, |
                                                   |___/
`

// Banner returns the banner with the version line appended.
func Banner(version string) string {
	return fmt.Sprintf("%s        multi-factor belief updater %s\n\n", art, version)
}
