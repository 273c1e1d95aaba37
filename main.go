// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/invowk/modfs/cmd/modfs"

func main() {
	cmd.Execute()
}
