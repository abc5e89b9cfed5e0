package orchestrator

import (
	"context"
	"errors"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
	"github.com/venquis/contractchat/pkg/usecase"
	"github.com/venquis/contractchat/pkg/utils/logging"
)

// Backend is the server API the orchestrator drives
type Backend interface {
	CreateMessage(ctx context.Context, input usecase.MessageInput) (*model.Message, error)
	ListMessages(ctx context.Context, id types.ConversationID) ([]*model.Message, error)
	Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.RelayResult, error)
	UploadFile(ctx context.Context, id types.ConversationID, fileName, contentType string, r io.Reader) (*model.UploadedFile, error)
}

// Orchestrator runs the client side of a conversation: it persists the
// user's input, relays it for analysis with retries and refreshes the thread.
type Orchestrator struct {
	backend  Backend
	notifier Notifier
	policy   RetryPolicy
	sleeper  Sleeper
	upload   UploadPolicy
	state    *State
}

type Option func(*Orchestrator)

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		o.notifier = n
	}
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *Orchestrator) {
		o.policy = p
	}
}

func WithSleeper(s Sleeper) Option {
	return func(o *Orchestrator) {
		o.sleeper = s
	}
}

func WithUploadPolicy(p UploadPolicy) Option {
	return func(o *Orchestrator) {
		o.upload = p
	}
}

func New(backend Backend, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend:  backend,
		notifier: logNotifier{},
		policy:   DefaultFixedPolicy(),
		sleeper:  TimerSleeper{},
		upload:   DefaultUploadPolicy(),
		state:    newState(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Flags() Flags {
	return o.state.Flags()
}

func (o *Orchestrator) Conversation() *model.Conversation {
	return o.state.Conversation()
}

func (o *Orchestrator) Messages() []*model.Message {
	return o.state.Messages()
}

// SetConversation switches the active conversation. Moving to another
// conversation clears the in-flight flags; nil clears everything.
func (o *Orchestrator) SetConversation(conv *model.Conversation) {
	o.state.setConversation(conv)
}

// OnScroll records whether the user is near the end of the thread
func (o *Orchestrator) OnScroll(v Viewport) {
	o.state.update(func(f *Flags) {
		f.AutoScroll = v.NearBottom()
	})
}

// ShouldFollow reports whether the view should scroll to new messages
func (o *Orchestrator) ShouldFollow() bool {
	return o.state.Flags().AutoScroll
}

// Refresh reloads the thread of the active conversation
func (o *Orchestrator) Refresh(ctx context.Context) error {
	conv := o.state.Conversation()
	if conv == nil {
		return goerr.Wrap(ErrNoConversation, "nothing to refresh")
	}
	msgs, err := o.backend.ListMessages(ctx, conv.ID)
	if err != nil {
		return goerr.Wrap(err, "failed to fetch messages", goerr.V(usecase.ConversationIDKey, conv.ID))
	}
	o.state.replaceMessages(conv, msgs)
	return nil
}

// SendText persists text as a user message and relays it
func (o *Orchestrator) SendText(ctx context.Context, text string) *Task {
	conv := o.state.Conversation()
	if conv == nil {
		o.notifyNoConversation()
		return settledTask(goerr.Wrap(ErrNoConversation, "cannot send message"))
	}

	task, ctx := newTask(ctx)
	task.run(func() error {
		o.state.updateFor(conv.ID, func(f *Flags) { f.Processing = true })
		defer o.state.updateFor(conv.ID, func(f *Flags) {
			f.Processing = false
			f.Typing = false
		})

		task.setPhase(PhaseSending)
		if err := o.persist(ctx, usecase.MessageInput{
			ConversationID: conv.ID,
			Content:        text,
			SenderKind:     types.SenderKindUser,
		}); err != nil {
			return err
		}

		o.state.updateFor(conv.ID, func(f *Flags) { f.Typing = true })
		err := o.relay(ctx, task, &model.AnalysisRequest{
			ConversationID: conv.ID,
			SessionID:      conv.SessionID,
			MessageContent: text,
			MessageType:    types.MessageTypeText,
		})
		if err != nil {
			o.notifier.Notify(Notice{
				Kind:        NoticeAIProcessingError,
				Title:       "AI Processing Error",
				Description: "Failed to process your message after multiple attempts. Please try again.",
			})
			return err
		}

		o.refresh(ctx, conv)
		return nil
	})
	return task
}

// UploadFile validates, stores and analyzes a file
func (o *Orchestrator) UploadFile(ctx context.Context, file FileUpload) *Task {
	conv := o.state.Conversation()
	if conv == nil {
		o.notifyNoConversation()
		return settledTask(goerr.Wrap(ErrNoConversation, "cannot upload file"))
	}

	if err := o.upload.Validate(file); err != nil {
		o.notifyRejected(file, err)
		return settledTask(err)
	}

	task, ctx := newTask(ctx)
	task.run(func() error {
		logger := logging.From(ctx).With("file_name", file.Name)

		task.setPhase(PhaseSending)
		o.state.updateFor(conv.ID, func(f *Flags) {
			f.Uploading = true
			f.UploadProgress = 0
		})

		uploaded, err := o.backend.UploadFile(ctx, conv.ID, file.Name, file.ContentType, file.Body)
		o.state.updateFor(conv.ID, func(f *Flags) { f.UploadProgress = 100 })
		if err == nil {
			var msg *model.Message
			msg, err = o.backend.CreateMessage(ctx, usecase.MessageInput{
				ConversationID: conv.ID,
				Content:        "Uploaded file: " + file.Name,
				SenderKind:     types.SenderKindFile,
				FileName:       uploaded.FileName,
				FileURL:        uploaded.FileURL,
			})
			if err == nil {
				o.state.appendMessage(msg)
			}
		}
		if err != nil {
			logger.Warn("upload failed", "error", err)
			o.notifier.Notify(Notice{
				Kind:        NoticeUploadFailed,
				Title:       "Upload failed",
				Description: "Failed to upload " + file.Name + ". Please try again.",
				FileName:    file.Name,
			})
			o.state.updateFor(conv.ID, func(f *Flags) {
				f.Typing = false
				f.Uploading = false
				f.UploadProgress = 0
			})
			return goerr.Wrap(err, "failed to upload file", goerr.V("file_name", file.Name))
		}

		o.notifier.Notify(Notice{
			Kind:        NoticeUploadSucceeded,
			Title:       "Upload successful",
			Description: "Analyzing document...",
			FileName:    file.Name,
		})

		o.state.updateFor(conv.ID, func(f *Flags) {
			f.Typing = true
			f.Uploading = false
			f.UploadProgress = 0
		})
		defer o.state.updateFor(conv.ID, func(f *Flags) { f.Typing = false })

		err = o.relay(ctx, task, &model.AnalysisRequest{
			ConversationID: conv.ID,
			SessionID:      conv.SessionID,
			MessageContent: "Contract uploaded: " + file.Name,
			MessageType:    types.MessageTypeFile,
			FileURL:        uploaded.FileURL,
			FileName:       uploaded.FileName,
		})
		if err != nil {
			o.notifier.Notify(Notice{
				Kind:        NoticeAnalysisError,
				Title:       "Analysis Error",
				Description: "Failed to analyze " + file.Name + " after multiple attempts. Please try again.",
				FileName:    file.Name,
			})
			return err
		}

		o.refresh(ctx, conv)
		return nil
	})
	return task
}

// ClickButton records the click and relays the button action
func (o *Orchestrator) ClickButton(ctx context.Context, id, label string) *Task {
	conv := o.state.Conversation()
	if conv == nil {
		o.notifyNoConversation()
		return settledTask(goerr.Wrap(ErrNoConversation, "cannot handle button click"))
	}

	task, ctx := newTask(ctx)
	task.run(func() error {
		task.setPhase(PhaseSending)
		if err := o.persist(ctx, usecase.MessageInput{
			ConversationID: conv.ID,
			Content:        "Clicked: " + label,
			SenderKind:     types.SenderKindUser,
		}); err != nil {
			return err
		}

		o.state.updateFor(conv.ID, func(f *Flags) { f.Typing = true })
		defer o.state.updateFor(conv.ID, func(f *Flags) { f.Typing = false })

		err := o.relay(ctx, task, &model.AnalysisRequest{
			ConversationID: conv.ID,
			SessionID:      conv.SessionID,
			MessageContent: label,
			MessageType:    types.MessageTypeButton,
			ButtonAction:   id,
		})
		if err != nil {
			o.notifier.Notify(Notice{
				Kind:        NoticeProcessingError,
				Title:       "Processing Error",
				Description: "Failed to process your request after multiple attempts. Please try again.",
			})
			return err
		}

		o.refresh(ctx, conv)
		return nil
	})
	return task
}

func (o *Orchestrator) persist(ctx context.Context, input usecase.MessageInput) error {
	msg, err := o.backend.CreateMessage(ctx, input)
	if err != nil {
		o.notifier.Notify(Notice{
			Kind:        NoticeSendFailed,
			Title:       "Error",
			Description: "Failed to send message",
		})
		return goerr.Wrap(err, "failed to save user message", goerr.V(usecase.ConversationIDKey, input.ConversationID))
	}
	o.state.appendMessage(msg)
	return nil
}

// relay calls the analysis endpoint under the retry policy
func (o *Orchestrator) relay(ctx context.Context, task *Task, req *model.AnalysisRequest) error {
	logger := logging.From(ctx).With(
		usecase.ConversationIDKey, req.ConversationID,
		"message_type", req.MessageType,
	)

	attempts := max(o.policy.Attempts(), 1)
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			task.setPhase(PhaseRetrying)
		}

		if _, err = o.backend.Analyze(ctx, req); err == nil {
			return nil
		}
		logger.Warn("analysis attempt failed", "attempt", attempt, "error", err)

		if attempt == attempts || !o.policy.Retryable(err) {
			break
		}
		if serr := o.sleeper.Sleep(ctx, o.policy.Delay(attempt)); serr != nil {
			return goerr.Wrap(serr, "retry interrupted", goerr.V("attempt", attempt), goerr.V("last_error", err.Error()))
		}
	}
	return goerr.Wrap(err, "analysis failed", goerr.V(usecase.ConversationIDKey, req.ConversationID))
}

// refresh replaces the local thread with the server's. A failure leaves the
// local list as it is; the reply is already persisted.
func (o *Orchestrator) refresh(ctx context.Context, conv *model.Conversation) {
	msgs, err := o.backend.ListMessages(ctx, conv.ID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logging.From(ctx).Warn("failed to refresh messages", "error", err, usecase.ConversationIDKey, conv.ID)
		}
		return
	}
	o.state.replaceMessages(conv, msgs)
}

func (o *Orchestrator) notifyNoConversation() {
	o.notifier.Notify(Notice{
		Kind:        NoticeNoConversation,
		Title:       "No conversation",
		Description: "Please create a new conversation first",
	})
}

func (o *Orchestrator) notifyRejected(file FileUpload, err error) {
	n := Notice{Kind: NoticeUploadRejected, FileName: file.Name}
	if errors.Is(err, ErrFileTooLarge) {
		n.Title = "File too large"
		n.Description = file.Name + ": please upload a file smaller than " + o.upload.describeMaxSize()
	} else {
		n.Title = "Invalid file type"
		n.Description = file.Name + ": please upload a PDF file only"
	}
	o.notifier.Notify(n)
}
