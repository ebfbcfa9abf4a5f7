package main

import "github.com/sabrinalaillita/fpg-strl/cmd"

func main() {
	cmd.Execute()
}
