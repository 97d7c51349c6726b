package main

import "github.com/dilla-go/dilla/cmd"

func main() {
	cmd.Execute()
}
