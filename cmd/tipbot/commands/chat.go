package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"l2-tipbot/internal/bot"
	"l2-tipbot/internal/command"
)

// runChat answers one chat command. Every well-formed command exits 0,
// failure responses included; only wiring faults return an error.
func runChat(cmd *cobra.Command, name string, opts ...command.Option) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	resp := a.handler.Handle(ctx, command.Raw{Name: name, ActorID: actorID, Options: opts})
	printMessage(cmd.OutOrStdout(), bot.Render(resp))
	return nil
}

func printMessage(w io.Writer, m bot.Message) {
	if !m.IsEmbed() {
		fmt.Fprintln(w, m.Content)
		return
	}
	if m.Title != "" {
		fmt.Fprintln(w, m.Title)
		fmt.Fprintln(w, strings.Repeat("=", len([]rune(m.Title))))
	}
	if m.Description != "" {
		fmt.Fprintln(w, m.Description)
	}
	for _, f := range m.Fields {
		fmt.Fprintln(w)
		fmt.Fprintln(w, f.Name)
		fmt.Fprintln(w, "  "+f.Value)
	}
}

func opt(name, value string) command.Option {
	return command.Option{Name: name, Value: value}
}

// confirmArg reports whether the trailing positional argument is "confirm".
func confirmArg(args []string, pos int) ([]command.Option, error) {
	if len(args) <= pos {
		return nil, nil
	}
	if !strings.EqualFold(args[pos], command.OptConfirm) {
		return nil, fmt.Errorf("unexpected argument %q, expected %q", args[pos], command.OptConfirm)
	}
	return []command.Option{opt(command.OptConfirm, command.OptConfirm)}, nil
}

// helpCmd prints the introduction, or cobra usage for a named command.
func helpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "help [command]",
		Short: "Show the introduction or help for a command",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				printMessage(cmd.OutOrStdout(), bot.Render(bot.Response{Kind: bot.KindHelp}))
				return nil
			}
			target, _, err := cmd.Root().Find(args)
			if err != nil {
				return err
			}
			return target.Help()
		},
	}
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance [ticker]",
		Short: "Show wallet balances",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []command.Option
			if len(args) == 1 {
				opts = append(opts, opt(command.OptTicker, args[0]))
			}
			return runChat(cmd, "balance", opts...)
		},
	}
}

func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "send [amount ticker user [confirm]]",
		Aliases: []string{"tip"},
		Short:   "Preview or send a transfer to another user",
		Args:    cobra.MaximumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := []string{command.OptAmount, command.OptTicker, command.OptUser}
			var opts []command.Option
			for i, name := range names {
				if i < len(args) {
					opts = append(opts, opt(name, args[i]))
				}
			}
			confirm, err := confirmArg(args, len(names))
			if err != nil {
				return err
			}
			return runChat(cmd, cmd.CalledAs(), append(opts, confirm...)...)
		},
	}
}

func unlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock [ticker [confirm]]",
		Short: "Show the unlock fee or unlock the wallet",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []command.Option
			if len(args) > 0 {
				opts = append(opts, opt(command.OptTicker, args[0]))
			}
			confirm, err := confirmArg(args, 1)
			if err != nil {
				return err
			}
			return runChat(cmd, "unlock", append(opts, confirm...)...)
		},
	}
}

func tokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "tokens",
		Aliases: []string{"list-tokens"},
		Short:   "List supported tokens",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, "tokens")
		},
	}
}
