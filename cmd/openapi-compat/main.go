// Package main checks that the API contract has not dropped anything clients rely on.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/tsamuels456/unboundedfigures/docs"
)

func main() {
	basePath := flag.String("base", "", "published swagger document (JSON or YAML)")
	revisionPath := flag.String("revision", "", "candidate swagger document; defaults to the one compiled into the server")
	flag.Parse()

	if strings.TrimSpace(*basePath) == "" {
		fmt.Fprintln(os.Stderr, "usage: openapi-compat -base <path> [-revision <path>]")
		os.Exit(2)
	}

	base, err := loadFile(*basePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load base contract: %v\n", err)
		os.Exit(1)
	}

	var revision contract
	if strings.TrimSpace(*revisionPath) == "" {
		revision, err = parseContract([]byte(docs.SwaggerInfo.ReadDoc()))
	} else {
		revision, err = loadFile(*revisionPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load revision contract: %v\n", err)
		os.Exit(1)
	}

	if issues := breakingChanges(base, revision); len(issues) > 0 {
		fmt.Fprintln(os.Stderr, "backward compatibility check failed:")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "- %s\n", issue)
		}
		os.Exit(1)
	}

	fmt.Printf("openapi compatibility check passed (%d paths)\n", len(base.Paths))
}
