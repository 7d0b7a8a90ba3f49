package main

import "payledger/process/sanitize"

func main() {
	sanitize.Run()
}
