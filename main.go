package main

import "playlister/cmd"

func main() {
	cmd.Execute()
}
