package main

import "github.com/user/mobproto/internal/cli"

func main() {
	cli.Execute()
}
