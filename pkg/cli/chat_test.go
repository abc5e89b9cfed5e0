package cli_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/venquis/contractchat/pkg/cli"
	httpctrl "github.com/venquis/contractchat/pkg/controller/http"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
	"github.com/venquis/contractchat/pkg/repository/memory"
	"github.com/venquis/contractchat/pkg/service/storage"
	"github.com/venquis/contractchat/pkg/usecase"
)

type scriptedWorkflow struct {
	calls atomic.Int32
}

func (w *scriptedWorkflow) Send(_ context.Context, p *model.WorkflowPayload) ([]byte, error) {
	w.calls.Add(1)
	switch p.MessageType {
	case types.MessageTypeFile:
		return []byte(`{"content":"Lease overview","full_text":"The tenant shall pay rent."}`), nil
	case types.MessageTypeButton:
		return []byte(`{"content":"Clause 4 is unusual"}`), nil
	default:
		return []byte(`{"content":"Send me a contract","actions":[{"id":"review","label":"Review clauses"}]}`), nil
	}
}

func startServer(t *testing.T, wf *scriptedWorkflow) (*usecase.UseCases, string) {
	t.Helper()
	local, err := storage.NewLocal(t.TempDir(), "http://files.local")
	gt.NoError(t, err).Required()

	uc := usecase.New(memory.New(),
		usecase.WithWorkflow(wf),
		usecase.WithFileStorage(local),
		usecase.WithIdentity(usecase.NewIdentityUseCase(usecase.WithFallbackUser("user-1"))),
	)
	srv := httptest.NewServer(httpctrl.New(uc))
	t.Cleanup(srv.Close)
	return uc, srv.URL
}

func TestChat_Session(t *testing.T) {
	ctx := context.Background()
	wf := &scriptedWorkflow{}
	uc, url := startServer(t, wf)

	pdf := filepath.Join(t.TempDir(), "lease.pdf")
	gt.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.7"), 0o600)).Required()

	script := strings.Join([]string{
		"/new Lease review",
		"hello",
		"/click review",
		"/upload " + pdf,
		"/contracts",
		"/list",
		"/rename Office lease",
		"/quit",
		"never sent",
	}, "\n")

	var out bytes.Buffer
	err := cli.RunChatForTest(ctx, url, strings.NewReader(script), &out)
	gt.NoError(t, err).Required()

	printed := out.String()
	for _, want := range []string{
		"created Lease review",
		"you: hello",
		"assistant: Send me a contract",
		"[/click review] Review clauses",
		"you: Clicked: Review clauses",
		"assistant: Clause 4 is unusual",
		"Upload successful",
		"file: Uploaded file: lease.pdf",
		"assistant: Lease overview",
		"* 1. Lease review",
		"renamed to \"Office lease\"",
	} {
		gt.Bool(t, strings.Contains(printed, want)).True()
	}
	gt.Bool(t, strings.Contains(printed, "never sent")).False()
	gt.Value(t, wf.calls.Load()).Equal(int32(3))

	convs, err := uc.Conversation.List(ctx, "user-1")
	gt.NoError(t, err).Required()
	gt.Array(t, convs).Length(1).Required()
	gt.Value(t, convs[0].Title).Equal("Office lease")
}

func TestChat_ResumesLatestConversation(t *testing.T) {
	ctx := context.Background()
	uc, url := startServer(t, &scriptedWorkflow{})

	conv, err := uc.Conversation.Create(ctx, "user-1", "Existing")
	gt.NoError(t, err).Required()
	_, err = uc.Message.Create(ctx, "user-1", usecase.MessageInput{ConversationID: conv.ID, Content: "earlier question"})
	gt.NoError(t, err).Required()

	var out bytes.Buffer
	err = cli.RunChatForTest(ctx, url, strings.NewReader("/delete\n/list\n"), &out)
	gt.NoError(t, err).Required()

	printed := out.String()
	gt.Bool(t, strings.Contains(printed, "you: earlier question")).True()
	gt.Bool(t, strings.Contains(printed, "deleted Existing")).True()
	gt.Bool(t, strings.Contains(printed, "no conversations")).True()
}

func TestChat_Ask(t *testing.T) {
	ctx := context.Background()
	wf := &scriptedWorkflow{}
	uc, url := startServer(t, wf)

	script := strings.Join([]string{
		"/ask hello",
		"/new Quick questions",
		"/ask",
		"/ask hello there",
	}, "\n")

	var out bytes.Buffer
	err := cli.RunChatForTest(ctx, url, strings.NewReader(script), &out)
	gt.NoError(t, err).Required()

	printed := out.String()
	gt.Bool(t, strings.Contains(printed, "usage: /ask <question>")).True()
	gt.Bool(t, strings.Contains(printed, "you: hello there")).True()
	gt.Bool(t, strings.Contains(printed, "assistant: Hello! I am your contract analysis assistant.")).True()
	gt.Bool(t, strings.Contains(printed, "[/click upload_contract] Upload Contract")).True()
	gt.Value(t, wf.calls.Load()).Equal(int32(0))

	convs, err := uc.Conversation.List(ctx, "user-1")
	gt.NoError(t, err).Required()
	gt.Array(t, convs).Length(1).Required()
	msgs, err := uc.Message.List(ctx, "user-1", convs[0].ID)
	gt.NoError(t, err).Required()
	gt.Array(t, msgs).Length(2)
}

func TestChat_Rejections(t *testing.T) {
	ctx := context.Background()
	wf := &scriptedWorkflow{}
	_, url := startServer(t, wf)

	txt := filepath.Join(t.TempDir(), "notes.txt")
	gt.NoError(t, os.WriteFile(txt, []byte("plain"), 0o600)).Required()

	script := strings.Join([]string{
		"hello before any conversation",
		"/rename nothing",
		"/new",
		"/upload " + txt,
		"/bogus",
	}, "\n")

	var out bytes.Buffer
	err := cli.RunChatForTest(ctx, url, strings.NewReader(script), &out)
	gt.NoError(t, err).Required()

	printed := out.String()
	gt.Bool(t, strings.Contains(printed, "No conversation")).True()
	gt.Bool(t, strings.Contains(printed, "Invalid file type")).True()
	gt.Bool(t, strings.Contains(printed, "unknown command")).True()
	gt.Value(t, wf.calls.Load()).Equal(int32(0))
}
