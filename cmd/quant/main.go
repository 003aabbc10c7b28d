package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/google/subcommands"
)

var configPath = flag.String("config", defaultConfigPath(), "path to the YAML config file")

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&markowitzCmd{}, "portfolio")
	subcommands.Register(&fetchCmd{}, "portfolio")
	subcommands.Register(&varCmd{}, "portfolio")
	subcommands.Register(&serveCmd{}, "portfolio")

	subcommands.Register(&blackScholesCmd{}, "pricing")
	subcommands.Register(&mcOptionCmd{}, "pricing")
	subcommands.Register(&bondCmd{}, "pricing")
	subcommands.Register(&wienerCmd{}, "pricing")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}
