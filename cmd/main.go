package main

import (
	"os"

	"github.com/graphmind-ai/graphmind/cmd/graphmind"
)

func main() {
	if err := graphmind.Execute(); err != nil {
		os.Exit(1)
	}
}
