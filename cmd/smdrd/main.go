package main

import (
	"github.com/smdrkit/smdrd/cmd/smdrd/commands"
	"github.com/smdrkit/smdrd/internal/utils/logger"
)

func main() {
	defer logger.Sync()
	commands.Execute()
}
