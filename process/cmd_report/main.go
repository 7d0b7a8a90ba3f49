package main

import (
	"flag"
	"fmt"
	"os"

	"payledger/process/report"
)

func main() {
	staffID := flag.Uint("staff-id", 0, "staff id to report for")
	month := flag.String("month", "2026-08", "month to report (YYYY-MM)")
	list := flag.Bool("list", false, "list matching rows")
	flag.Parse()

	if *staffID == 0 {
		fmt.Fprintln(os.Stderr, "--staff-id is required")
		os.Exit(2)
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "DB_DSN not set; export DB_DSN and retry")
		os.Exit(2)
	}

	report.RunReport(*staffID, *month, *list)
}
