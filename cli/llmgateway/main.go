package main

import (
	"os"

	llmgatewaycmder "github.com/papercomputeco/llmgateway/cmd/llmgateway"
)

func main() {
	cmd := llmgatewaycmder.NewLLMGatewayCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
