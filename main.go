package main

import "launcherstats/cmd"

func main() {
	cmd.Execute()
}
