// Package main provides the nmt command line tool.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
)

const version = "v0.1.0"

const usage = `nmt - recurrent neural machine translation

Commands:
  version      Show version
  bleu         Score candidate sentences against references
  init         Write a randomly initialized checkpoint
  translate    Beam-search translate token ids read from stdin
  eval         Average BLEU and loss of a checkpoint over a parallel corpus

Run "nmt <command> -h" for command flags.
`

func main() {
	log.SetFlags(0)
	log.SetPrefix("nmt: ")

	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(2)
	}

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("nmt %s\n", version)
	case "bleu":
		err = runBLEU(args, os.Stdout)
	case "init":
		err = runInit(args, os.Stdout)
	case "translate":
		err = runTranslate(args, os.Stdin, os.Stdout)
	case "eval":
		err = runEval(args, os.Stdout)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}
