// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/invowk/imagekit/cmd/imagekit"

func main() {
	cmd.Execute()
}
