package main

import "github.com/Lllllllleong/pdfqaflow/internal/cli"

func main() {
	cli.Execute()
}
