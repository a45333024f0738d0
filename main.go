package main

import "scamazon_go/commands"

func main() {
	commands.Execute()
}
