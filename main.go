package main

import "github.com/xephyr-stats/xepm/cmd"

func main() {
	cmd.Execute()
}
