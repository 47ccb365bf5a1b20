package main

import "github.com/vietddude/dexcache/internal/cli"

func main() {
	cli.Execute()
}
