package terminal

import "strings"

// Command is the action requested by one line of input
type Command int

const (
	// CmdNone is a blank line; nothing is submitted
	CmdNone Command = iota
	// CmdMessage is a chat message
	CmdMessage
	CmdExit
	CmdReset
	CmdHistory
	CmdModels
	CmdHelp

	// Setting commands take the rest of the line as their argument
	CmdModel
	CmdTemperature
	CmdStream
	CmdSystem
	CmdKey
)

var settingCommands = map[string]Command{
	"/model":       CmdModel,
	"/temperature": CmdTemperature,
	"/temp":        CmdTemperature,
	"/stream":      CmdStream,
	"/system":      CmdSystem,
	"/key":         CmdKey,
}

// ParseCommand classifies a line of input. For setting commands the
// argument is returned with its case preserved; otherwise it is empty.
func ParseCommand(line string) (Command, string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return CmdNone, ""
	}

	switch strings.ToLower(trimmed) {
	case "/exit", "/quit", "exit", "quit":
		return CmdExit, ""
	case "/reset", "/clear":
		return CmdReset, ""
	case "/history":
		return CmdHistory, ""
	case "/models":
		return CmdModels, ""
	case "/help":
		return CmdHelp, ""
	}

	name, arg, _ := strings.Cut(trimmed, " ")
	if cmd, ok := settingCommands[strings.ToLower(name)]; ok {
		return cmd, strings.TrimSpace(arg)
	}
	return CmdMessage, ""
}

// HelpText describes the available commands
const HelpText = `Commands:
  /reset, /clear       start a new conversation
  /history             show the current conversation
  /models              list models offered by the remote backend
  /model <name>        switch the model
  /temperature <0-1>   set the sampling temperature
  /stream on|off       toggle streamed replies
  /system <text>       replace the system prompt
  /key [key]           set the API key; without one replies come from the demo
  /help                show this help
  /exit, /quit         leave`
