package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"bitmax/internal/botctl"
	"bitmax/internal/botctl/output"
)

func main() {
	var (
		apiBase = flag.String("api-base", "", "Bot server base URL (env: BOT_API_BASE)")
		outFmt  = flag.String("output", "json", "Output format: json|text")
	)
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		botctl.Usage(os.Stderr)
		os.Exit(2)
	}

	base := strings.TrimSpace(*apiBase)
	if base == "" {
		base = strings.TrimSpace(os.Getenv("BOT_API_BASE"))
	}
	if base == "" {
		base = "http://localhost:8080"
	}

	ctx := botctl.Context{
		APIBase: strings.TrimRight(base, "/"),
		Output:  output.Format(strings.TrimSpace(*outFmt)),
	}
	if err := botctl.Dispatch(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
