package main

import (
	"github.com/armadaproject/pubload/cmd/pubload/cmd"
	"github.com/armadaproject/pubload/internal/common/logging"
)

func main() {
	logging.ConfigureCliLogging()
	cmd.Execute()
}
