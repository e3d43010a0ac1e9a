package main

import (
	"github.com/ardanlabs/inclusion/app/tooling/probe/cmd"
)

func main() {
	cmd.Execute()
}
