// This program provides operational tooling against a running ledger
// service: chain statistics and block validation sweeps.
package main

import "github.com/rsl37/GLX-Systems-Network-sub008/app/tooling/admin/cmd"

func main() {
	cmd.Execute()
}
