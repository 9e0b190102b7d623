package main

import (
	"github.com/vacwatch/vacwatch/cmd"
)

func main() {
	cmd.Execute()
}
