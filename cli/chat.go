package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MichelMeloG/JurChat/service"
)

var chatMessage string

var chatCmd = &cobra.Command{
	Use:   "chat <document>",
	Short: "Ask questions about a document",
	Long: `Starts an interactive chat about a document. Each line is sent as a question;
type "exit" or send EOF to leave. Use --message to ask a single question.`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "ask one question and exit")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	session, err := loadSession()
	if err != nil {
		return err
	}

	document := args[0]
	chat := service.NewChatService(backend, service.NewConversationStore(&cfg.Store))
	out := cmd.OutOrStdout()

	ask := func(question string) error {
		turn, err := chat.Ask(cmd.Context(), session.Username, document, question)
		if errors.Is(err, service.ErrEmptyQuestion) {
			return nil
		}
		fmt.Fprintf(out, "JurChat: %s\n", turn.Reply.Content)
		return err
	}

	if chatMessage != "" {
		return ask(chatMessage)
	}

	p := newPrompter(cmd)
	fmt.Fprintf(out, "Chatting about %s. Type \"exit\" to leave.\n", document)
	for {
		question, err := p.line("You: ")
		if err != nil {
			// EOF ends the session
			fmt.Fprintln(out)
			return nil
		}
		switch strings.ToLower(question) {
		case "exit", "quit":
			return nil
		}
		if err := ask(question); err != nil && cmd.Context().Err() != nil {
			return err
		}
	}
}
