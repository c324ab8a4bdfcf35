package main

import "github.com/tesh254/llmstxt/cmd"

func main() {
	cmd.Execute()
}
