package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/mothman/mothman/internal/cli"
	"github.com/sirupsen/logrus"
)

func main() {
	// Setup logging format
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := cli.NewRootCmd(log)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error(err)
		stop()
		os.Exit(1)
	}
}
