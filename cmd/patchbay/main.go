package main

import (
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; PATCHBAY_* variables may come from the shell.
	_ = godotenv.Load()
	Execute()
}
