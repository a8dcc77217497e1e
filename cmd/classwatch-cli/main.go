package main

import (
	"context"

	"github.com/Haydos1210/ClassAvailabilityUNSW/cmd/classwatch-cli/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
