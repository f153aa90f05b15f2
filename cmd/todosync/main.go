// Command todosync runs the shared todo list server and its clients.
package main

import (
	"os"

	"github.com/roach88/todosync/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	os.Exit(cli.GetExitCode(err))
}
