package main

import "github.com/iksnae/commit-mirror/cmd"

func main() {
	cmd.Execute()
}
