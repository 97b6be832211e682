/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/ssargent/strata/cmd/strata/cmd"

func main() {
	cmd.Execute()
}
