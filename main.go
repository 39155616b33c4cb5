package main

import "github.com/winter-dragon/dragonlog/cmd"

func main() {
	cmd.Execute()
}
