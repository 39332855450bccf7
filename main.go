package main

import "github.com/Wasabiboy/Knack-Reseller-Dashboard/cmd"

func main() {
	cmd.Execute()
}
