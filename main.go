package main

import "github.com/vainnor/f1-stats/cmd"

func main() {
	cmd.Execute()
}
