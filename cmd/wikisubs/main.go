package main

import (
	"os"

	"github.com/patric-chuzhbe/wikisubs/internal/app"
	"github.com/patric-chuzhbe/wikisubs/internal/logger"
)

func main() {
	theApp, err := app.New()
	if err != nil {
		logger.Log.Errorw("Could not start the service", "error", err)
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	err = theApp.Run()
	theApp.Close()
	if err != nil {
		logger.Log.Errorw("The service stopped with an error", "error", err)
		os.Exit(1)
	}
}
