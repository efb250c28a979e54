package main

import (
	"github.com/axellelanca/linkstats/cmd"
	_ "github.com/axellelanca/linkstats/cmd/cli"
	_ "github.com/axellelanca/linkstats/cmd/server"
)

func main() {
	cmd.Execute()
}
