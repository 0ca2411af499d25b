package main

import "github.com/LeJamon/goRLUSD/internal/cli"

func main() {
	cli.Execute()
}
