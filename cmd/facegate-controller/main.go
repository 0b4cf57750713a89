package main

import "github.com/facegate/facegate/cmd/facegate-controller/cmd"

func main() {
	cmd.Execute()
}
