package main

import (
	"os"

	"github.com/zheng/cgraph/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
