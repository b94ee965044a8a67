package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) > 3 {
		os.Exit(2) // want "прямой вызов os.Exit в функции main запрещен"
	}
	defer fmt.Println("done")
	os.Exit(run()) // want "прямой вызов os.Exit в функции main запрещен"
}

func run() int {
	os.Exit(1)
	return 0
}
