package main

import "grider-status-alerts/internal/cli"

func main() {
	cli.Execute()
}
