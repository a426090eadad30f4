package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"gitvault/cmd/gv/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := commands.Execute(ctx); err != nil {
		log.Fatal(err)
	}
}
