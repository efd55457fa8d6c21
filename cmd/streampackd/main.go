// Command streampackd runs a streaming pipeline that fans one audio and
// one video source out to any number of file, RTMP, or SRT outputs.
package main

import (
	"fmt"
	"os"

	"github.com/ThibaultBee/streampack/cmd/streampackd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
