/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/ssargent/binverse/cmd/binverse/cmd"

func main() {
	cmd.Execute()
}
