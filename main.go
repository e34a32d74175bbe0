package main

import "github.com/baymax-health/apiserver/cmd"

func main() {
	cmd.Execute()
}
