/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "transcriptbot/cmd"

func main() {
	cmd.Execute()
}
