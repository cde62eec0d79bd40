// Command hypermint deploys and mints a single-image NFT on HyperEVM and
// analyses its dual block production.
package main

import "github.com/Aranthus/erc-721-hyperliquid/cmd"

func main() {
	cmd.Execute()
}
