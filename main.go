package main

import "github.com/SaumyaAdani05/coastwatchd/cmd"

func main() {
	cmd.Execute()
}
