package main

import "passengerexport/internal/cli"

func main() {
	cli.Main()
}
