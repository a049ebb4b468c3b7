package main

import (
	"os"

	"SnapKeeper/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
