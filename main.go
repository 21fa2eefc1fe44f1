package main

import (
	"github.com/skevetter/contain/cmd"
)

func main() {
	cmd.Execute()
}
