package main

import "github.com/facegate/facegate/cmd/facegate-device/cmd"

func main() {
	cmd.Execute()
}
