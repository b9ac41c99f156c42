package cli

import (
	"fmt"
	"io"
)

const usage = `afd - agent-first command framework

usage:
  afd --call <command> [key=value ... | '{...}']   invoke one command
  afd --pipe [file.json]     run a pipeline (JSON from file or stdin)
  afd --batch [file.json]    run a batch (JSON from file or stdin)
  afd --list [category]      list registered commands
  afd --serve                run the daemon in the foreground
  afd --mcp                  serve commands as MCP tools on stdio
  afd --audit <verify|show>  inspect the invocation audit log
  afd --version              print the version

Remote mode is read from config (~/.config/afd/config.yaml) or
AFD_REMOTE: auto (default), socket, http, or off for in-process
execution. Every invocation prints a result envelope as JSON; the exit
code mirrors its success field.
`

// RunHelp prints usage.
func RunHelp(w io.Writer) int {
	fmt.Fprint(w, usage)
	return 0
}
