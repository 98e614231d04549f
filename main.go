package main

import "github.com/petrolab/psengine/cmd"

func main() {
	cmd.Execute()
}
