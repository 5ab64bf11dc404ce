// Package main provides the circulation CLI.
//
// It drives the circulation coordinator against PostgreSQL: catalogue books, register
// members and staff users, lend, return and renew copies, and inspect loans.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(openPostgresStore).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
