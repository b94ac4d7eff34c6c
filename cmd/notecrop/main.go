package main

import "github.com/MeKo-Tech/notecrop/cmd/notecrop/cmd"

func main() {
	cmd.Execute()
}
