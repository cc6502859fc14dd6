package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "labgest",
		Usage: "Lab report ingestion and summaries",
		Commands: []*cli.Command{
			cmdServe,
			cmdParse,
			cmdMigrate,
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
