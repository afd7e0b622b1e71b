package main

import "github.com/plexdrive/plexdrive/cmd"

func main() {
	cmd.Execute()
}
