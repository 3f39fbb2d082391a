package main

import (
	"os"

	"github.com/surrealdb/surreal-sync-go/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
