package main

import (
	"github.com/abe-nagisa/tacozip/cmd"
)

func main() {
	cmd.Execute()
}
