package main

import "github.com/MeKo-Tech/skintex/internal/cmd"

func main() {
	cmd.Execute()
}
