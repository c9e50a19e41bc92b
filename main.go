package main

import "github.com/crystaldolphin/pantrychef/cmd"

func main() {
	cmd.Execute()
}
