package main

import "github.com/jsphweid/sightreader/cmd"

func main() {
	cmd.Execute()
}
