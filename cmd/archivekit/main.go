package main

import (
	"fmt"
	"os"

	"archivekit/pkg/config"
	"archivekit/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	logLevel := os.Getenv("ARCHIVEKIT_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}
	logger.Init(logLevel)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(3)
	}

	cfg, err := config.Load(configPath())
	if err != nil {
		logger.Fatal("failed to load configuration", "err", err)
	}

	var exitCode int
	switch os.Args[1] {
	case "pack":
		exitCode = runPack(cfg, os.Args[2:])
	case "extract":
		exitCode = runExtract(cfg, os.Args[2:])
	case "inspect":
		exitCode = runInspect(cfg, os.Args[2:])
	case "add":
		exitCode = runAdd(cfg, os.Args[2:])
	case "remove":
		exitCode = runRemove(cfg, os.Args[2:])
	case "config":
		exitCode = runConfigCmd(cfg)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		printUsage()
		exitCode = 3
	}

	os.Exit(exitCode)
}

func configPath() string {
	if p := os.Getenv("ARCHIVEKIT_CONFIG"); p != "" {
		return p
	}
	return "archivekit.json"
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: archivekit <command> [flags]

commands:
  pack     <source-dir> <output-archive> [--incremental <prior-manifest>]
  extract  <archive> <output-dir>
  inspect  <archive>
  add      <archive> <file>...
  remove   <archive> <pattern>...
  config`)
}
