package main

import "obdboard/cmd"

func main() {
	cmd.Execute()
}
