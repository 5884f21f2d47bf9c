package main

import "github.com/Davincible/chat-dialect-router/cmd"

func main() {
	cmd.Execute()
}
