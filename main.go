package main

import "github.com/mouse-blink/culprit/cmd"

func main() {
	cmd.Execute()
}
