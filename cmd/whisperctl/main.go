package main

import (
	"github.com/whisperhq/whisperd/internal/cli"
)

func main() {
	cli.Execute()
}
