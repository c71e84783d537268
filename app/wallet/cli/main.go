package main

import "github.com/adamwoolhether/trxsafe/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
