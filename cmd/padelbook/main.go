package main

import "github.com/example/padel-booking/cmd"

func main() {
	cmd.Execute()
}
