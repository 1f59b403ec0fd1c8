package main

import (
	"votewatch/cmd/votewatch/commands"
	"votewatch/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
