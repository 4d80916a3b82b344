package main

import "github.com/ardanlabs/gossipchain/app/wallet/cmd"

func main() {
	cmd.Execute()
}
