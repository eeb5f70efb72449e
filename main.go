package main

import "github.com/reelai/backend/cmd"

func main() {
	cmd.Execute()
}
