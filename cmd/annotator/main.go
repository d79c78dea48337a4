package main

import "github.com/MeKo-Tech/annotator/cmd/annotator/cmd"

func main() {
	cmd.Execute()
}
