package main

import (
	"github.com/kashguard/go-market-client/internal/cli"
)

func main() {
	cli.Execute()
}
