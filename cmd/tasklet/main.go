package main

import (
	"fmt"
	"os"
)

func main() {
	e := newEnv()
	err := newRootCmd(e).Execute()
	e.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
