package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ergochat/readline"

	scaffold "github.com/nemonical/freenet-scaffold"
	"github.com/nemonical/freenet-scaffold/node"
)

const replHelp = `commands:
  kinds                                list the registered kinds
  create <kind> <params> <state>       shelve a contract, printing its id
  list                                 list shelved contracts
  show <id>                            print a shelved record
  validate <id>                        validate a shelved state
  summarize <id>                       summarize a shelved state
  delta <id> <summary>                 cut the delta a peer at <summary> lacks
  update <id> <delta=...|state=...>... fold an update batch
  drop <id>                            remove a contract from the shelf
  help                                 this text
  exit                                 leave

JSON arguments must not contain spaces; pass @file for anything bigger.`

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func replCompleter(n *node.Node) *readline.PrefixCompleter {
	kindItems := []*readline.PrefixCompleter{}
	for _, kind := range n.Kinds() {
		kindItems = append(kindItems, readline.PcItem(kind))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("kinds"),
		readline.PcItem("create", kindItems...),
		readline.PcItem("list"),
		readline.PcItem("show"),
		readline.PcItem("validate"),
		readline.PcItem("summarize"),
		readline.PcItem("delta"),
		readline.PcItem("update"),
		readline.PcItem("drop"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}

func repl(n *node.Node) error {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "◌ ",
		HistoryFile:     "/tmp/scaffold.history",
		AutoComplete:    replCompleter(n),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return err
	}
	defer l.Close()
	l.CaptureExitSignal()

	ctx := context.Background()
	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "exit" || fields[0] == "quit" {
			break
		}
		if err := replLine(ctx, n, fields[0], fields[1:]); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
	return n.Close()
}

func replLine(ctx context.Context, n *node.Node, cmd string, args []string) error {
	switch cmd {
	case "help":
		fmt.Println(replHelp)
	case "kinds":
		for _, kind := range n.Kinds() {
			fmt.Println(kind)
		}
	case "create":
		return replCreate(ctx, n, args)
	case "list":
		return replList(n)
	case "show":
		return replShow(n, args)
	case "validate":
		return replValidate(ctx, n, args)
	case "summarize":
		return replSummarize(ctx, n, args)
	case "delta":
		return replDelta(ctx, n, args)
	case "update":
		return replUpdate(ctx, n, args)
	case "drop":
		return replDrop(n, args)
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
	return nil
}

func argID(args []string) (scaffold.ContractID, error) {
	if len(args) < 1 {
		return scaffold.ContractID{}, errors.New("want a contract id")
	}
	return scaffold.ParseID(args[0])
}

func replCreate(ctx context.Context, n *node.Node, args []string) error {
	if len(args) != 3 {
		return errors.New("want: create <kind> <params> <state>")
	}
	params, err := readArg(args[1])
	if err != nil {
		return err
	}
	state, err := readArg(args[2])
	if err != nil {
		return err
	}
	id, err := n.Create(ctx, args[0], params, state)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func replList(n *node.Node) error {
	ids, err := n.List()
	if err != nil {
		return err
	}
	for _, id := range ids {
		rec, err := n.Get(id)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", id, rec.Kind)
	}
	return nil
}

func replShow(n *node.Node, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}
	rec, err := n.Get(id)
	if err != nil {
		return err
	}
	fmt.Printf("kind:        %s\n", rec.Kind)
	fmt.Printf("params:      %s\n", rec.Params)
	fmt.Printf("state:       %s\n", rec.State)
	fmt.Printf("fingerprint: %016x\n", rec.Fingerprint)
	fmt.Printf("updated:     %s\n", rec.UpdatedAt)
	return nil
}

func replValidate(ctx context.Context, n *node.Node, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}
	res, err := n.Validate(ctx, id)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func replSummarize(ctx context.Context, n *node.Node, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}
	su, err := n.Summarize(ctx, id)
	if err != nil {
		return err
	}
	fmt.Println(string(su))
	return nil
}

func replDelta(ctx context.Context, n *node.Node, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return errors.New("want: delta <id> <summary>")
	}
	summary, err := readArg(args[1])
	if err != nil {
		return err
	}
	d, err := n.Delta(ctx, id, summary)
	if err != nil {
		return err
	}
	fmt.Println(string(d))
	return nil
}

func replUpdate(ctx context.Context, n *node.Node, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return errors.New("want: update <id> <delta=...|state=...>...")
	}
	updates, err := parseUpdates(args[1:])
	if err != nil {
		return err
	}
	mod, err := n.Update(ctx, id, updates)
	if err != nil {
		return err
	}
	fmt.Println(string(mod.State))
	return nil
}

func replDrop(n *node.Node, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}
	return n.Drop(id)
}
