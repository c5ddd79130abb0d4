package main

import "github.com/arogyabot/health-gateway/cmd"

func main() {
	cmd.Execute()
}
