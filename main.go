package main

import "github.com/KaramelBytes/vitals-cli/cmd"

func main() {
	cmd.Execute()
}
