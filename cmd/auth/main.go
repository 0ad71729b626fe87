// Command auth serves the EduFlow authentication API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/eduflowhub/eduflow/internal/auth/app"
)

func main() {
	configFile := flag.String("config", "", "YAML config file; overrides AUTH_CONFIG_FILE")
	checkOnly := flag.Bool("check-config", false, "validate configuration and exit")
	showVersion := flag.Bool("version", false, "print the build version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(app.BuildVersion)
		return
	}
	if *configFile != "" {
		if err := os.Setenv("AUTH_CONFIG_FILE", *configFile); err != nil {
			log.Fatalf("set config file: %v", err)
		}
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if *checkOnly {
		fmt.Println("configuration ok")
		return
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = application.Run(ctx)
	stop()
	if err != nil {
		log.Fatalf("application error: %v", err)
	}
}
