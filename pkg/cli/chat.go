package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"github.com/venquis/contractchat/pkg/cli/config"
	"github.com/venquis/contractchat/pkg/client"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
	"github.com/venquis/contractchat/pkg/orchestrator"
	"github.com/venquis/contractchat/pkg/usecase"
	"github.com/venquis/contractchat/pkg/utils/safe"
)

func cmdChat() *cli.Command {
	var clientCfg config.Client
	var appCfg config.App

	var flags []cli.Flag
	flags = append(flags, clientCfg.Flags()...)
	flags = append(flags, appCfg.Flags()...)

	return &cli.Command{
		Name:    "chat",
		Aliases: []string{"c"},
		Usage:   "Interactive terminal client for a running server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			appConfig, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load application configuration")
			}

			apiClient, err := clientCfg.Configure()
			if err != nil {
				return err
			}

			in := c.Root().Reader
			if in == nil {
				in = os.Stdin
			}
			out := c.Root().Writer
			if out == nil {
				out = os.Stdout
			}

			session := newChatSession(apiClient, out,
				orchestrator.WithRetryPolicy(appConfig.RetryPolicy()),
				orchestrator.WithUploadPolicy(appConfig.UploadPolicy()),
			)
			return session.run(ctx, in)
		},
	}
}

// chatBackend is the server API used by the terminal client
type chatBackend interface {
	orchestrator.Backend
	ListConversations(ctx context.Context) ([]*client.Conversation, error)
	CreateConversation(ctx context.Context, title string) (*client.Conversation, error)
	RenameConversation(ctx context.Context, id types.ConversationID, title string) (*client.Conversation, error)
	DeleteConversation(ctx context.Context, id types.ConversationID) error
	ListContracts(ctx context.Context, id types.ConversationID) ([]*model.Contract, error)
	Converse(ctx context.Context, req *usecase.ConversationalRequest) (*usecase.ConversationalResult, error)
}

var _ chatBackend = &client.Client{}

var (
	colorUser      = color.New(color.FgGreen, color.Bold)
	colorAssistant = color.New(color.FgCyan, color.Bold)
	colorFile      = color.New(color.FgMagenta)
	colorButton    = color.New(color.FgYellow)
	colorError     = color.New(color.FgRed, color.Bold)
	colorSuccess   = color.New(color.FgGreen)
	colorFaint     = color.New(color.Faint)
)

type chatSession struct {
	backend chatBackend
	orch    *orchestrator.Orchestrator
	list    *orchestrator.ConversationList
	out     io.Writer
	printed int
}

func newChatSession(backend chatBackend, out io.Writer, opts ...orchestrator.Option) *chatSession {
	s := &chatSession{
		backend: backend,
		list:    orchestrator.NewConversationList(nil),
		out:     out,
	}
	opts = append(opts, orchestrator.WithNotifier(orchestrator.NotifierFunc(s.notify)))
	s.orch = orchestrator.New(backend, opts...)
	return s
}

func (s *chatSession) notify(n orchestrator.Notice) {
	c := colorSuccess
	if n.Kind.Error() {
		c = colorError
	}
	c.Fprintf(s.out, "[%s] ", n.Title)
	fmt.Fprintln(s.out, n.Description)
}

func (s *chatSession) run(ctx context.Context, in io.Reader) error {
	if err := s.loadConversations(ctx); err != nil {
		return err
	}
	s.printHelp()

	scanner := bufio.NewScanner(in)
	for {
		s.prompt()
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		quit, err := s.handle(ctx, line)
		if err != nil {
			colorError.Fprintf(s.out, "error: %s\n", err.Error())
		}
		if quit {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return goerr.Wrap(err, "failed to read input")
	}
	return nil
}

func (s *chatSession) prompt() {
	title := "no conversation"
	if conv := s.orch.Conversation(); conv != nil {
		title = conversationTitle(conv)
	}
	colorFaint.Fprintf(s.out, "(%s) > ", title)
}

func (s *chatSession) handle(ctx context.Context, line string) (bool, error) {
	if !strings.HasPrefix(line, "/") {
		return false, s.await(s.orch.SendText(ctx, line))
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		s.printHelp()
		return false, nil
	case "/new":
		return false, s.newConversation(ctx, arg)
	case "/list":
		s.printConversations()
		return false, nil
	case "/use":
		return false, s.useConversation(ctx, arg)
	case "/rename":
		return false, s.renameConversation(ctx, arg)
	case "/delete":
		return false, s.deleteConversation(ctx)
	case "/upload":
		return false, s.upload(ctx, arg)
	case "/click":
		return false, s.click(ctx, arg)
	case "/contracts":
		return false, s.printContracts(ctx)
	case "/ask":
		return false, s.ask(ctx, arg)
	default:
		return false, goerr.New("unknown command, type /help", goerr.V("command", cmd))
	}
}

// await waits for the task and prints the messages it produced. Failures
// were already shown as notices.
func (s *chatSession) await(task *orchestrator.Task) error {
	_ = task.Wait()
	s.printNewMessages()
	return nil
}

func (s *chatSession) loadConversations(ctx context.Context) error {
	items, err := s.backend.ListConversations(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to list conversations")
	}

	convs := make([]*model.Conversation, len(items))
	for i, item := range items {
		convs[i] = &item.Conversation
	}
	s.list.Reset(convs)

	if len(convs) == 0 {
		return nil
	}
	conv, _ := s.list.Select(convs[0].ID)
	return s.switchTo(ctx, conv)
}

func (s *chatSession) switchTo(ctx context.Context, conv *model.Conversation) error {
	s.orch.SetConversation(conv)
	s.printed = 0
	if conv == nil {
		return nil
	}
	if err := s.orch.Refresh(ctx); err != nil {
		return err
	}
	s.printNewMessages()
	return nil
}

func (s *chatSession) newConversation(ctx context.Context, title string) error {
	created, err := s.backend.CreateConversation(ctx, title)
	if err != nil {
		return err
	}
	conv := created.Conversation
	s.list.Add(&conv)
	colorSuccess.Fprintf(s.out, "created %s\n", conversationTitle(&conv))
	return s.switchTo(ctx, &conv)
}

func (s *chatSession) useConversation(ctx context.Context, arg string) error {
	items := s.list.Items()
	var id types.ConversationID
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(items) {
		id = items[n-1].ID
	} else {
		id = types.ConversationID(arg)
	}

	conv, ok := s.list.Select(id)
	if !ok {
		return goerr.New("no such conversation", goerr.V("conversation", arg))
	}
	return s.switchTo(ctx, conv)
}

func (s *chatSession) renameConversation(ctx context.Context, title string) error {
	conv := s.orch.Conversation()
	if conv == nil {
		return orchestrator.ErrNoConversation
	}
	if _, err := s.backend.RenameConversation(ctx, conv.ID, title); err != nil {
		return err
	}
	s.list.Rename(conv.ID, title)
	if current := s.list.Current(); current != nil && current.ID == conv.ID {
		s.orch.SetConversation(current)
	}
	colorSuccess.Fprintf(s.out, "renamed to %q\n", title)
	return nil
}

func (s *chatSession) deleteConversation(ctx context.Context) error {
	conv := s.orch.Conversation()
	if conv == nil {
		return orchestrator.ErrNoConversation
	}
	if err := s.backend.DeleteConversation(ctx, conv.ID); err != nil {
		return err
	}
	colorSuccess.Fprintf(s.out, "deleted %s\n", conversationTitle(conv))
	return s.switchTo(ctx, s.list.Remove(conv.ID))
}

func (s *chatSession) upload(ctx context.Context, path string) error {
	if path == "" {
		return goerr.New("usage: /upload <path>")
	}

	// #nosec G304 -- the user picks the file to upload
	f, err := os.Open(path)
	if err != nil {
		return goerr.Wrap(err, "failed to open file", goerr.V("path", path))
	}
	defer safe.Close(ctx, f)

	info, err := f.Stat()
	if err != nil {
		return goerr.Wrap(err, "failed to stat file", goerr.V("path", path))
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}

	return s.await(s.orch.UploadFile(ctx, orchestrator.FileUpload{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Size:        info.Size(),
		Body:        f,
	}))
}

func (s *chatSession) click(ctx context.Context, id string) error {
	if id == "" {
		return goerr.New("usage: /click <button id>")
	}

	label := id
	messages := s.orch.Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		if btn, ok := findButton(messages[i], id); ok {
			label = btn.Label
			break
		}
	}
	return s.await(s.orch.ClickButton(ctx, id, label))
}

func findButton(msg *model.Message, id string) (model.ActionButton, bool) {
	for _, btn := range msg.ActionButtons {
		if btn.ID == id {
			return btn, true
		}
	}
	return model.ActionButton{}, false
}

// ask stores the question and lets the server answer it with a canned reply
// instead of the analysis workflow
func (s *chatSession) ask(ctx context.Context, text string) error {
	if text == "" {
		return goerr.New("usage: /ask <question>")
	}
	conv := s.orch.Conversation()
	if conv == nil {
		return orchestrator.ErrNoConversation
	}

	if _, err := s.backend.CreateMessage(ctx, usecase.MessageInput{
		ConversationID: conv.ID,
		Content:        text,
		SenderKind:     types.SenderKindUser,
	}); err != nil {
		return err
	}
	if _, err := s.backend.Converse(ctx, &usecase.ConversationalRequest{
		ConversationID: conv.ID,
		MessageContent: text,
		ZepSessionID:   conv.SessionID,
	}); err != nil {
		return err
	}

	if err := s.orch.Refresh(ctx); err != nil {
		return err
	}
	s.printNewMessages()
	return nil
}

func (s *chatSession) printContracts(ctx context.Context) error {
	conv := s.orch.Conversation()
	if conv == nil {
		return orchestrator.ErrNoConversation
	}
	contracts, err := s.backend.ListContracts(ctx, conv.ID)
	if err != nil {
		return err
	}
	if len(contracts) == 0 {
		colorFaint.Fprintln(s.out, "no contracts analyzed yet")
		return nil
	}
	for _, ct := range contracts {
		colorFile.Fprintf(s.out, "%s  %s\n", ct.CreatedAt.Local().Format("2006-01-02 15:04"), ct.FileName)
		if ct.Overview != "" {
			fmt.Fprintf(s.out, "  %s\n", firstLine(ct.Overview))
		}
	}
	return nil
}

func (s *chatSession) printConversations() {
	items := s.list.Items()
	if len(items) == 0 {
		colorFaint.Fprintln(s.out, "no conversations, type /new to start one")
		return
	}
	current := s.list.Current()
	for i, conv := range items {
		marker := " "
		if current != nil && current.ID == conv.ID {
			marker = "*"
		}
		fmt.Fprintf(s.out, "%s %d. %s ", marker, i+1, conversationTitle(conv))
		colorFaint.Fprintf(s.out, "(%s)\n", conv.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
}

func (s *chatSession) printNewMessages() {
	messages := s.orch.Messages()
	if s.printed > len(messages) {
		s.printed = 0
	}
	for _, msg := range messages[s.printed:] {
		s.printMessage(msg)
	}
	s.printed = len(messages)
}

func (s *chatSession) printMessage(msg *model.Message) {
	switch msg.SenderKind {
	case types.SenderKindUser:
		colorUser.Fprint(s.out, "you: ")
	case types.SenderKindFile:
		colorFile.Fprint(s.out, "file: ")
	default:
		colorAssistant.Fprint(s.out, "assistant: ")
	}
	fmt.Fprintln(s.out, msg.Content)

	for _, btn := range msg.ActionButtons {
		colorButton.Fprintf(s.out, "  [/click %s] %s\n", btn.ID, btn.Label)
	}
}

func (s *chatSession) printHelp() {
	colorFaint.Fprintln(s.out, strings.Join([]string{
		"commands:",
		"  /new [title]    start a conversation",
		"  /list           list conversations",
		"  /use <n|id>     switch conversation",
		"  /rename <title> rename the current conversation",
		"  /delete         delete the current conversation",
		"  /upload <path>  upload a contract for analysis",
		"  /click <id>     press an action button",
		"  /contracts      list analyzed contracts",
		"  /ask <text>     quick answer without contract analysis",
		"  /quit           exit",
		"anything else is sent as a message",
	}, "\n"))
}

func conversationTitle(conv *model.Conversation) string {
	if conv.Title != "" {
		return conv.Title
	}
	id := conv.ID.String()
	if len(id) > 8 {
		id = id[:8]
	}
	return "Untitled " + id
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
