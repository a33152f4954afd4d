package main

import "github.com/runanywhere/nativeaudio/cmd"

func main() {
	cmd.Execute()
}
